package main

import (
	"context"
	"log"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagecrew/backend-offers/internal/config"
	"github.com/stagecrew/backend-offers/internal/db"
)

type seedItem struct {
	Category    string
	Subcategory string
	Name        string
	UnitPrice   float64
	Stock       int
}

var catalogItems = []seedItem{
	{"Zvuková technika", "Mixpulty", "Mixpult Allen & Heath SQ-5", 2000, 2},
	{"Zvuková technika", "Reproboxy", "Reprobox RCF ART 945-A", 500, 12},
	{"Zvuková technika", "Mikrofony", "Mikrofon Shure SM58", 150, 20},
	{"Světelná technika", "LED", "LED PAR Cameo Zenit W600", 300, 16},
	{"Světelná technika", "Hlavy", "Otočná hlava Robe Pointe", 1200, 8},
	{"Pódiová technika", "Podesty", "Podesta Nivtec 2x1m", 250, 30},
	{"Ground support", "Věže", "Věž Prolyte MPT", 1000, 4},
	{"Rigging", "Traverzy", "Traverza Prolyte H30V 3m", 150, 24},
	{"Technický personál", "", "Zvukař", 500, 0},
	{"Technický personál", "", "Osvětlovač", 450, 0},
	{"Doprava", "", "Dodávka (km)", 20, 0},
	{"Doprava", "", "Kamion (km)", 45, 0},
}

func main() {
	cfg := config.MustLoad()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	seedAdmin(ctx, pool)
	seedCatalog(ctx, pool)
	seedPreset(ctx, pool)

	log.Println("seeding completed")
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool) {
	hash, err := argon2id.CreateHash("admin12345", argon2id.DefaultParams)
	if err != nil {
		log.Fatalf("hash admin password: %v", err)
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, 'admin')
		ON CONFLICT (email) DO NOTHING`,
		"Admin", "admin@stagecrew.cz", hash)
	if err != nil {
		log.Fatalf("seed admin user: %v", err)
	}
	log.Println("seeded admin user")
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) {
	for _, item := range catalogItems {
		_, err := pool.Exec(ctx, `
			INSERT INTO catalog_items (category, subcategory, name, unit_price, stock_quantity)
			SELECT $1, $2, $3, $4, $5
			WHERE NOT EXISTS (SELECT 1 FROM catalog_items WHERE name = $3)`,
			item.Category, item.Subcategory, item.Name, item.UnitPrice, item.Stock)
		if err != nil {
			log.Fatalf("seed catalog item %q: %v", item.Name, err)
		}
	}
	log.Printf("seeded %d catalog items", len(catalogItems))
}

func seedPreset(ctx context.Context, pool *pgxpool.Pool) {
	var presetID string
	err := pool.QueryRow(ctx, `
		INSERT INTO presets (name, description)
		SELECT 'Malý koncert', 'Základní ozvučení a osvětlení pro klubový koncert'
		WHERE NOT EXISTS (SELECT 1 FROM presets WHERE name = 'Malý koncert')
		RETURNING id::text`).Scan(&presetID)
	if err != nil {
		// Already seeded on a previous run.
		log.Println("preset already present, skipping")
		return
	}

	lines := []struct {
		Name     string
		Quantity float64
		Order    int
	}{
		{"Mixpult Allen & Heath SQ-5", 1, 0},
		{"Reprobox RCF ART 945-A", 4, 1},
		{"Mikrofon Shure SM58", 6, 2},
		{"LED PAR Cameo Zenit W600", 8, 3},
		{"Zvukař", 1, 4},
		{"Dodávka (km)", 100, 5},
	}
	for _, line := range lines {
		_, err := pool.Exec(ctx, `
			INSERT INTO preset_items (preset_id, catalog_item_id, quantity, duration, sort_order)
			SELECT $1, id, $3, 1, $4 FROM catalog_items WHERE name = $2`,
			presetID, line.Name, line.Quantity, line.Order)
		if err != nil {
			log.Fatalf("seed preset line %q: %v", line.Name, err)
		}
	}
	log.Println("seeded preset")
}
