package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"xrparena/market"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("op-secret"), bcrypt.DefaultCost)
	require.NoError(t, err)

	source := market.NewSyntheticSource(1, 0.60, 0.002, 0)
	cache := market.New("XRP/EUR", "BTC/EUR", source)

	s := NewServer(Config{
		Cache:        cache,
		Store:        nil,
		JWTSecret:    "test-secret",
		OperatorHash: string(hash),
	})
	return s, "op-secret"
}

func doJSON(t *testing.T, s *Server, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestLoginRejectsWrongToken(t *testing.T) {
	s, _ := testServer(t)
	rec := doJSON(t, s, http.MethodPost, "/auth/login", map[string]string{"token": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginIssuesTokenOnCorrectSecret(t *testing.T) {
	s, secret := testServer(t)
	rec := doJSON(t, s, http.MethodPost, "/auth/login", map[string]string{"token": secret}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["token"])
}

func TestCreateSessionRequiresBearerToken(t *testing.T) {
	s, _ := testServer(t)
	rec := doJSON(t, s, http.MethodPost, "/sessions", createSessionRequest{AgentCount: 2, StartingCapital: 1000}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSessionSucceedsWithValidToken(t *testing.T) {
	s, secret := testServer(t)
	loginRec := doJSON(t, s, http.MethodPost, "/auth/login", map[string]string{"token": secret}, "")
	var loginResp map[string]string
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &loginResp))

	rec := doJSON(t, s, http.MethodPost, "/sessions", createSessionRequest{
		Pair: "XRP/EUR", AgentCount: 3, StartingCapital: 1000, Leverage: 10, MaxDurationS: 3600,
	}, loginResp["token"])
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["session_id"])
}

func TestSessionStateIsReadableWithoutAuth(t *testing.T) {
	s, _ := testServer(t)
	rec := doJSON(t, s, http.MethodGet, "/sessions/any/state", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthzReportsOK(t *testing.T) {
	s, _ := testServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
