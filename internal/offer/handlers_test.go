package offer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stagecrew/backend-offers/internal/common"
)

func newTestRouter(t *testing.T) (*chi.Mux, *memStorage) {
	t.Helper()
	store := newMemStorage()
	svc, _ := newService(store)
	handler := Handler{
		Service:     svc,
		Validate:    validator.New(),
		DefaultPage: 20,
		MaxPerPage:  100,
	}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := common.WithUserID(req.Context(), uuid.NewString())
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	handler.Routes(r, nil)
	return r, store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateOfferEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/offers", map[string]any{
		"title":           "Městské slavnosti",
		"discountPercent": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var envelope struct {
		Data Detail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "Městské slavnosti", envelope.Data.Offer.Title)
	require.Equal(t, StatusDraft, envelope.Data.Offer.Status)
}

func TestCreateOfferRejectsBadPayload(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/offers", map[string]any{"discountPercent": 150})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/offers", bytes.NewBufferString("{"))
	recBad := httptest.NewRecorder()
	router.ServeHTTP(recBad, req)
	require.Equal(t, http.StatusBadRequest, recBad.Code)
}

func TestItemLifecycleEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/offers", map[string]any{"title": "Koncert"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data Detail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	offerID := created.Data.Offer.ID.String()

	rec = doJSON(t, router, http.MethodPost, "/offers/"+offerID+"/items", map[string]any{
		"category":  "Zvuková technika",
		"name":      "Mixpult",
		"unitPrice": 1200,
		"quantity":  1,
		"duration":  2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var item struct {
		Data Item `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))

	rec = doJSON(t, router, http.MethodPatch, "/items/"+item.Data.ID.String(), map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/offers/"+offerID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Data Detail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Equal(t, 7200.0, detail.Data.Offer.TotalAmount)

	rec = doJSON(t, router, http.MethodDelete, "/items/"+item.Data.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/offers/"+offerID+"/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items struct {
		Data []Item `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Empty(t, items.Data)
}

func TestItemEndpointRejectsShortDuration(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/offers", map[string]any{"title": "Koncert"})
	var created struct {
		Data Detail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodPost, "/offers/"+created.Data.Offer.ID.String()+"/items", map[string]any{
		"category": "Rigging",
		"name":     "Traverza",
		"quantity": 1,
		"duration": 0.25,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOfferInvalidID(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/offers/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/offers/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecalculateEndpoint(t *testing.T) {
	router, store := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/offers", map[string]any{"title": "Koncert"})
	var created struct {
		Data Detail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	offerID := created.Data.Offer.ID

	// Insert directly through storage so the stored totals are stale.
	_, err := store.CreateItem(context.Background(), Item{
		OfferID: offerID, Category: "Doprava", Name: "Dodávka", UnitPrice: 15, Quantity: 200, Duration: 1,
	})
	require.NoError(t, err)

	rec = doJSON(t, router, http.MethodPost, "/offers/"+offerID.String()+"/recalculate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var offer struct {
		Data Offer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &offer))
	require.Equal(t, 3000.0, offer.Data.SubtotalTransport)
	require.Equal(t, 3000.0, offer.Data.TotalAmount)
}
