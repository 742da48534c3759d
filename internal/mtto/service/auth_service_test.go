package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/OscarR093/reportesMtto/internal/mtto/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGoogle servidor de token y userinfo con el perfil dado
func fakeGoogle(t *testing.T, info GoogleUserInfo) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "google-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer google-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(info)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func withGoogle(env *testEnv, srv *httptest.Server) {
	env.cfg.Google.ClientID = "client"
	env.cfg.Google.ClientSecret = "secret"
	env.cfg.Google.RedirectURL = "http://localhost/api/auth/google/callback"
	env.cfg.Google.StateTTL = 10 * time.Minute
	env.auth.oauth.ClientID = "client"
	env.auth.oauth.ClientSecret = "secret"
	env.auth.oauth.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	env.auth.userInfoURL = srv.URL + "/userinfo"
}

func stateFrom(t *testing.T, loginURL string) string {
	t.Helper()
	u, err := url.Parse(loginURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestGoogleCallbackCreatesPendingUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	srv := fakeGoogle(t, GoogleUserInfo{Sub: "g-1", Email: "nuevo@planta.test", EmailVerified: true, Name: "Nuevo"})
	withGoogle(env, srv)

	loginURL, err := env.auth.GoogleLoginURL(ctx)
	require.NoError(t, err)
	state := stateFrom(t, loginURL)

	user, pair, err := env.auth.HandleGoogleCallback(ctx, "code", state)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Nil(t, pair)
	require.NotNil(t, user)
	assert.Equal(t, entity.UserStatusPending, user.Status)
	assert.Contains(t, err.Error(), entity.UserStatusPending)

	// el state es de un solo uso
	_, _, err = env.auth.HandleGoogleCallback(ctx, "code", state)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGoogleCallbackSuperAdminAndDomain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	srv := fakeGoogle(t, GoogleUserInfo{Sub: "g-2", Email: "jefe@planta.test", EmailVerified: true, Name: "Jefe"})
	withGoogle(env, srv)

	loginURL, err := env.auth.GoogleLoginURL(ctx)
	require.NoError(t, err)
	user, pair, err := env.auth.HandleGoogleCallback(ctx, "code", stateFrom(t, loginURL))
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, entity.RoleSuperAdmin, user.Role)
	assert.True(t, user.IsActive())

	env.cfg.Google.AllowedDomain = "otra.test"
	loginURL, err = env.auth.GoogleLoginURL(ctx)
	require.NoError(t, err)
	_, _, err = env.auth.HandleGoogleCallback(ctx, "code", stateFrom(t, loginURL))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestLocalLoginAndRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, &RegisterRequest{Email: "Tec@Planta.test", Name: "Tec", Password: "secreto123"})
	require.NoError(t, err)
	assert.Equal(t, "tec@planta.test", user.Email)
	assert.Equal(t, entity.UserStatusPending, user.Status)

	_, err = env.auth.Register(ctx, &RegisterRequest{Email: "tec@planta.test", Name: "Otro", Password: "secreto123"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = env.auth.Register(ctx, &RegisterRequest{Email: "corta@planta.test", Name: "Corta", Password: "123"})
	assert.ErrorIs(t, err, ErrValidation)

	// pendiente: credenciales correctas pero sin tokens
	_, _, err = env.auth.Login(ctx, "tec@planta.test", "secreto123")
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, env.db.Model(&entity.User{}).Where("id = ?", user.ID).Update("status", entity.UserStatusActive).Error)

	_, _, err = env.auth.Login(ctx, "tec@planta.test", "incorrecta")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, _, err = env.auth.Login(ctx, "nadie@planta.test", "secreto123")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, pair, err := env.auth.Login(ctx, "TEC@planta.test", "secreto123")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(pair.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testutil.JWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims["uid"])
	assert.Equal(t, entity.RoleUser, claims["role"])
	assert.Equal(t, "access", claims["type"])

	next, err := env.auth.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// el refresh rotado ya no sirve
	_, err = env.auth.RefreshToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	// un access token no sirve como refresh
	_, err = env.auth.RefreshToken(ctx, next.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, env.auth.Logout(ctx, next.RefreshToken))
	_, err = env.auth.RefreshToken(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestEnsureSuperAdminPromotesExistingUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	existing := env.user(t, "Ana")

	user, err := env.auth.EnsureSuperAdmin(ctx, existing.Email, "", "clave-segura")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, entity.RoleSuperAdmin, user.Role)

	_, pair, err := env.auth.Login(ctx, existing.Email, "clave-segura")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	created, err := env.auth.EnsureSuperAdmin(ctx, "root@planta.test", "Root", "clave-segura")
	require.NoError(t, err)
	assert.True(t, created.IsActive())
}

func TestMemoryStateStoreExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "k", "v", time.Minute))
	ok, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, err = store.Take(ctx, "k")
	assert.ErrorIs(t, err, ErrStateNotFound)

	require.NoError(t, store.Save(ctx, "k2", "v2", time.Minute))
	v, err := store.Take(ctx, "k2")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
	_, err = store.Take(ctx, "k2")
	assert.ErrorIs(t, err, ErrStateNotFound)
}
