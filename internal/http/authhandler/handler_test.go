package authhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chessmatchgo/internal/services/auth"
)

// stubAuthService accepts any password equal to "hunter2" and any token
// of the form "tok-<username>".
type stubAuthService struct {
	users map[string]bool
}

func (s *stubAuthService) Register(_ context.Context, username, _ string) (*auth.CredentialsDTO, error) {
	if s.users[username] {
		return nil, auth.ErrUserExists
	}
	s.users[username] = true
	return &auth.CredentialsDTO{Username: username, Token: "tok-" + username}, nil
}

func (s *stubAuthService) Login(_ context.Context, username, password string) (*auth.CredentialsDTO, error) {
	if !s.users[username] {
		return nil, auth.ErrUserNotFound
	}
	if password != "hunter2" {
		return nil, auth.ErrInvalidPassword
	}
	return &auth.CredentialsDTO{Username: username, Token: "tok-" + username}, nil
}

func (s *stubAuthService) VerifyToken(token string) (string, error) {
	if len(token) > 4 && token[:4] == "tok-" {
		return token[4:], nil
	}
	return "", auth.ErrInvalidToken
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	New(&stubAuthService{users: map[string]bool{"magnus": true}}).Register(engine)
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRegisterEndpoint(t *testing.T) {
	engine := newTestEngine()

	rec := doJSON(t, engine, http.MethodPost, "/api/register",
		map[string]string{"username": "anna", "password": "hunter2"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp CredentialsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "anna", resp.Username)
	assert.Equal(t, "tok-anna", resp.Token)
}

func TestRegisterEndpointValidation(t *testing.T) {
	engine := newTestEngine()

	rec := doJSON(t, engine, http.MethodPost, "/api/register",
		map[string]string{"username": "anna"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/register",
		map[string]string{"username": "magnus", "password": "hunter2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate username")
}

func TestLoginEndpoint(t *testing.T) {
	engine := newTestEngine()

	rec := doJSON(t, engine, http.MethodPost, "/api/login",
		map[string]string{"username": "magnus", "password": "hunter2"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/login",
		map[string]string{"username": "magnus", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/login",
		map[string]string{"username": "nobody", "password": "hunter2"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeEndpoint(t *testing.T) {
	engine := newTestEngine()

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer tok-magnus")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp MeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "magnus", resp.Username)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
