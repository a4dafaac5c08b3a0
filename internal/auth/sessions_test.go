package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

func setupSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	db := setupTestDB(t)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	sm, err := NewSessionManager(sqlDB, config.DriverSQLite, testAuthConfig)
	require.NoError(t, err)
	return sm
}

func TestNewSessionManager(t *testing.T) {
	sm := setupSessionManager(t)

	assert.Equal(t, "session", sm.Cookie.Name)
	assert.True(t, sm.Cookie.HttpOnly)
	assert.False(t, sm.Cookie.Secure)
	assert.Equal(t, testAuthConfig.SessionLifetime, sm.Lifetime)
	assert.Equal(t, testAuthConfig.SessionLifetime/2, sm.IdleTimeout)
}

func TestNewSessionManager_MemoryStoreForPostgres(t *testing.T) {
	sm, err := NewSessionManager(nil, config.DriverPostgres, config.Auth{SecureCookies: true})
	require.NoError(t, err)
	assert.True(t, sm.Cookie.Secure)
	assert.Greater(t, sm.Lifetime, sm.IdleTimeout)
}

func TestSessionManager_CreateAndRetrieveSession(t *testing.T) {
	sm := setupSessionManager(t)
	user := &entities.User{ID: 123, Username: "alice", Role: entities.UserRoleAdmin}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, sm.IsAuthenticated(r))
		require.NoError(t, sm.CreateSession(r, user))

		assert.True(t, sm.IsAuthenticated(r))
		assert.Equal(t, user.ID, sm.GetUserID(r))
		assert.Equal(t, user.Username, sm.GetUsername(r))
		assert.Equal(t, user.Role, sm.GetUserRole(r))
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Result().Cookies(), "session cookie should be set")
}

func TestSessionManager_Flash(t *testing.T) {
	sm := setupSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.Flash(r, "Book borrowed successfully!")
		assert.Equal(t, "Book borrowed successfully!", sm.PopFlash(r))
		assert.Empty(t, sm.PopFlash(r), "flash is shown once")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestSessionManager_DestroySession(t *testing.T) {
	sm := setupSessionManager(t)
	user := &entities.User{ID: 7, Username: "alice", Role: entities.UserRoleUser}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, sm.CreateSession(r, user))
		require.NoError(t, sm.DestroySession(r))
		assert.False(t, sm.IsAuthenticated(r))
		assert.Empty(t, sm.GetUserRole(r))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
}
