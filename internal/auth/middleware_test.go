package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stagecrew/backend-offers/internal/common"
)

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	svc, _ := newTestService(t)
	mw := Middleware{Service: svc}

	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/offers", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthAttachesIdentity(t *testing.T) {
	svc, store := newTestService(t)
	seeded := seedUser(t, store, "manager@stagecrew.cz", "s3cret-pass", RoleManager)
	result, err := svc.Login(context.Background(), seeded.Email, "s3cret-pass")
	require.NoError(t, err)

	mw := Middleware{Service: svc}
	var gotID, gotRole string
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = common.UserID(r.Context())
		gotRole, _ = common.UserRole(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/offers", nil)
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, seeded.ID.String(), gotID)
	require.Equal(t, string(RoleManager), gotRole)
}

func TestRequireRoleEnforcesRank(t *testing.T) {
	svc, store := newTestService(t)
	tech := seedUser(t, store, "tech@stagecrew.cz", "techpass99", RoleTechnician)
	result, err := svc.Login(context.Background(), tech.Email, "techpass99")
	require.NoError(t, err)

	mw := Middleware{Service: svc}
	handler := mw.RequireRole(RoleSupervisor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/offers/123", nil)
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
