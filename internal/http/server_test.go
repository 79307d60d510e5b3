package http

import (
	"admin-service/internal/admission"
	"admin-service/internal/auth"
	"admin-service/internal/config"
	"admin-service/internal/domain/membership"
	"admin-service/internal/domain/principal"
	"admin-service/internal/permission"
	"admin-service/internal/repository"
	"admin-service/internal/repository/memory"
	"admin-service/pkg/logger"
	"admin-service/pkg/metrics"
	"admin-service/pkg/password"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "k3J9xQ2mV7pL0sR8tY4wZ1aB6cD5eF3gH"
	testUsername = "root"
	testPassword = "correct-horse-9"
)

type testServer struct {
	server *Server
	store  repository.Store
	root   *principal.Principal
}

func newTestServer(t *testing.T, ceiling int64) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second},
		App:    config.AppConfig{Version: "1.2.3", MetricsEnabled: true},
		CORS:   config.CORSConfig{Whitelist: []string{"https://admin.example.com"}},
	}

	ctx := context.Background()
	store := memory.NewStore()
	hash, err := password.HashWithCost(testPassword, bcrypt.MinCost)
	require.NoError(t, err)

	root, err := store.Principals.Create(ctx, principal.CreatePrincipalInput{
		Username:     testUsername,
		Email:        "root@example.com",
		PasswordHash: hash,
		State:        principal.StateActive,
	})
	require.NoError(t, err)
	_, err = store.Memberships.Create(ctx, membership.CreateMembershipInput{
		PrincipalID: root.ID,
		Role:        permission.RoleManager,
	})
	require.NoError(t, err)

	log := logger.Nop()
	m := metrics.New()
	resolver := auth.NewResolver(store.Principals, store.Memberships, store.AccessTokens, auth.ResolverConfig{
		Aggregation:        permission.AggregateOr,
		AllowManagerDelete: true,
		HonorValidity:      true,
	}, log)
	issuer := auth.NewIssuer(testSecret, 30*time.Minute, 24*time.Hour, cfg.App.Version, resolver, auth.WithIssuerMetrics(m))
	verifier := auth.NewVerifier(issuer, resolver, log, m)

	gate := admission.NewGate(time.Minute)
	t.Cleanup(gate.Close)

	srv := NewServer(&ServerDependencies{
		Config:          cfg,
		Logger:          log,
		Metrics:         m,
		Store:           store,
		Issuer:          issuer,
		AuthMiddleware:  auth.NewMiddleware(verifier),
		AdmissionPolicy: admission.NewPolicy(gate.Store(), ceiling, log, m),
	})

	return &testServer{server: srv, store: store, root: root}
}

func (ts *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *stdhttp.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	rec := ts.do(stdhttp.MethodPost, "/api/v1/authentication/login",
		`{"username":"`+testUsername+`","password":"`+testPassword+`"}`, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	return rec.Header().Get("Refresh-JWT")
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestServer_UnauthenticatedEndpoints(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(stdhttp.MethodGet, "/hello", "", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "Hello World", rec.Body.String())

	rec = ts.do(stdhttp.MethodGet, "/health", "", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = ts.do(stdhttp.MethodGet, "/api/version", "", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.JSONEq(t, `{"version":"1.2.3"}`, rec.Body.String())

	rec = ts.do(stdhttp.MethodGet, "/metrics", "", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "admission_requests_total")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_LoginAndAccount(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(stdhttp.MethodPost, "/api/v1/authentication/login",
		`{"username":"root","password":"`+testPassword+`"}`, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	session := rec.Header().Get("Refresh-JWT")
	assert.NotEmpty(t, session)
	assert.NotEmpty(t, rec.Header().Get("refresh-token"))

	body := decode(t, rec)
	assert.Equal(t, true, body["status"])
	assert.Equal(t, "Login successful!", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "root", data["username"])
	assert.Equal(t, "root@example.com", data["email"])
	assert.Equal(t, session, data["access_token"])

	stored, err := ts.store.Principals.GetByID(context.Background(), ts.root.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)

	rec = ts.do(stdhttp.MethodGet, "/api/v1/account/me", "", bearer(session))
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	me := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, ts.root.ID.String(), me["id"])
	assert.Equal(t, false, me["access_key"])
	perms := me["permissions"].(map[string]any)
	assert.EqualValues(t, permission.MaskAll, perms["accesstokens"])
	assert.EqualValues(t, permission.MaskAll, perms["tokens"])
}

func TestServer_LoginRejections(t *testing.T) {
	ts := newTestServer(t, 100)
	ctx := context.Background()

	rec := ts.do(stdhttp.MethodPost, "/api/v1/authentication/login", `{"username":"root","password":"wrong-password"}`, nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Password or Username is incorrect", decode(t, rec)["error"])

	rec = ts.do(stdhttp.MethodPost, "/api/v1/authentication/login", `{"username":"ghost","password":"whatever-1"}`, nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)

	hash, err := password.HashWithCost("pending-pass-1", bcrypt.MinCost)
	require.NoError(t, err)
	_, err = ts.store.Principals.Create(ctx, principal.CreatePrincipalInput{
		Username:     "pending",
		Email:        "pending@example.com",
		PasswordHash: hash,
		State:        principal.StateUnverified,
	})
	require.NoError(t, err)

	rec = ts.do(stdhttp.MethodPost, "/api/v1/authentication/login", `{"username":"pending","password":"pending-pass-1"}`, nil)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "Administrator not verified, check your state", decode(t, rec)["error"])

	rec = ts.do(stdhttp.MethodPost, "/api/v1/authentication/login", `{"username":"root","password":"x","extra":1}`, nil)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
}

func TestServer_Logout(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(stdhttp.MethodGet, "/api/v1/authentication/logout", "", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":true,"message":"Logged out successful!"}`, rec.Body.String())
}

func TestServer_VerifiedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(stdhttp.MethodGet, "/api/v1/account/me", "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No auth token", decode(t, rec)["error"])

	rec = ts.do(stdhttp.MethodGet, "/api/v1/account/me", "", bearer("not-a-jwt"))
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
}

func TestServer_AccessTokenLifecycle(t *testing.T) {
	ts := newTestServer(t, 100)
	session := ts.login(t)

	rec := ts.do(stdhttp.MethodPost, "/api/v1/accesstokens",
		`{"name":"ci","permissions":{"accesstokens":1},"expires":false}`, bearer(session))
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())

	data := decode(t, rec)["data"].(map[string]any)
	key := data["token"].(string)
	record := data["access_token"].(map[string]any)
	id := record["id"].(string)
	assert.Equal(t, true, record["isValid"])

	// The key only carries accesstokens get.
	rec = ts.do(stdhttp.MethodGet, "/api/v1/accesstokens/"+id, "", bearer(key))
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(stdhttp.MethodGet, "/api/v1/account/me", "", bearer(key))
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	me := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, true, me["access_key"])
	assert.Equal(t, id, me["access_token_id"])

	rec = ts.do(stdhttp.MethodDelete, "/api/v1/accesstokens/"+id, "", bearer(key))
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = ts.do(stdhttp.MethodPut, "/api/v1/accesstokens/"+id+"/validity", `{"isValid":false}`, bearer(session))
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(stdhttp.MethodGet, "/api/v1/accesstokens/"+id, "", bearer(key))
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access token has been revoked", decode(t, rec)["error"])

	rec = ts.do(stdhttp.MethodDelete, "/api/v1/accesstokens/"+id, "", bearer(session))
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = ts.do(stdhttp.MethodGet, "/api/v1/accesstokens/"+id, "", bearer(session))
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
}

func TestServer_AccessTokenRejectsEscalation(t *testing.T) {
	ts := newTestServer(t, 100)
	session := ts.login(t)

	rec := ts.do(stdhttp.MethodPost, "/api/v1/accesstokens", `{"name":"jobs","permissions":{"jobs":1}}`, bearer(session))
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = ts.do(stdhttp.MethodPost, "/api/v1/accesstokens", `{"name":"bogus","permissions":{"printers":1}}`, bearer(session))
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = ts.do(stdhttp.MethodPost, "/api/v1/accesstokens", `{"name":"range","permissions":{"tokens":16}}`, bearer(session))
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = ts.do(stdhttp.MethodPost, "/api/v1/accesstokens", `{"name":"","permissions":{"tokens":1}}`, bearer(session))
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
}

func TestServer_AdmissionCeiling(t *testing.T) {
	ts := newTestServer(t, 2)

	assert.Equal(t, stdhttp.StatusOK, ts.do(stdhttp.MethodGet, "/hello", "", nil).Code)
	assert.Equal(t, stdhttp.StatusOK, ts.do(stdhttp.MethodGet, "/hello", "", nil).Code)

	rec := ts.do(stdhttp.MethodGet, "/hello", "", nil)
	assert.Equal(t, stdhttp.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	// Health checks are never counted.
	assert.Equal(t, stdhttp.StatusOK, ts.do(stdhttp.MethodGet, "/health", "", nil).Code)
}

func TestServer_ProfilingRequiresVerification(t *testing.T) {
	ts := newTestServer(t, 100)
	ts.server.deps.Config.App.ProfilingEnabled = true
	ts.server = NewServer(ts.server.deps)

	rec := ts.do(stdhttp.MethodGet, "/api/debug/pprof/memstats", "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)

	session := ts.login(t)
	rec = ts.do(stdhttp.MethodGet, "/api/debug/pprof/memstats", "", bearer(session))
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines")
}
