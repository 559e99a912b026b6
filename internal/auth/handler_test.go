package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryUserRepo struct {
	users map[string]*User
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func newTestHandler(t *testing.T) (*Handler, *TokenIssuer) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &memoryUserRepo{users: map[string]*User{
		"finance@example.com": {
			ID: 7, Email: "finance@example.com", PasswordHash: string(hash),
			Role: RoleAccountant, IsActive: true,
		},
	}}
	issuer := NewTokenIssuer("test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	return NewHandler(logger, NewService(repo), issuer, httpx.ErrorWriter{Logger: logger, Verbose: true}), issuer
}

func postLogin(t *testing.T, h *Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	r := chi.NewRouter()
	h.MountRoutes(r)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	h, issuer := newTestHandler(t)
	rec := postLogin(t, h, map[string]string{
		"email": "finance@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)

	claims, err := issuer.Verify(envelope.Data.Token)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.Equal(t, RoleAccountant, claims.Role)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := postLogin(t, h, map[string]string{
		"email": "finance@example.com", "password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := postLogin(t, h, map[string]string{"email": "not-an-email", "password": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func roleRouter(mw *Middleware, guard func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth)
		r.With(guard).Delete("/things/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}

func deleteAs(t *testing.T, router http.Handler, issuer *TokenIssuer, role string) int {
	t.Helper()
	token, _, err := issuer.Issue(&User{ID: 1, Email: "a@b.c", Role: role})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodDelete, "/things/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireRoleAdminOnly(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	mw := NewMiddleware(issuer)
	router := roleRouter(mw, mw.RequireRole())

	require.Equal(t, http.StatusNoContent, deleteAs(t, router, issuer, RoleAdmin))
	require.Equal(t, http.StatusForbidden, deleteAs(t, router, issuer, RoleAccountant))
	require.Equal(t, http.StatusForbidden, deleteAs(t, router, issuer, RoleViewer))
}

func TestRequireRoleAllowsListedRoles(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	mw := NewMiddleware(issuer)
	router := roleRouter(mw, mw.RequireRole(RoleAccountant))

	require.Equal(t, http.StatusNoContent, deleteAs(t, router, issuer, RoleAccountant))
	require.Equal(t, http.StatusNoContent, deleteAs(t, router, issuer, RoleAdmin))
	require.Equal(t, http.StatusForbidden, deleteAs(t, router, issuer, RoleViewer))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)
	past := time.Now().Add(-2 * time.Hour)
	issuer.WithNow(func() time.Time { return past })
	token, _, err := issuer.Issue(&User{ID: 1, Email: "a@b.c", Role: RoleViewer})
	require.NoError(t, err)

	issuer.WithNow(time.Now)
	_, err = issuer.Verify(token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}
