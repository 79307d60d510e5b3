package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, RequestID()(ok)(c))

	id := rec.Header().Get(echo.HeaderXRequestID)
	assert.Len(t, id, 36)
	assert.Equal(t, id, GetRequestID(c))
}

func TestRequestID_ReusesWellFormedHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123.abc")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, RequestID()(ok)(c))
	assert.Equal(t, "req-123.abc", rec.Header().Get(echo.HeaderXRequestID))
}

func TestRequestID_ReplacesMalformedHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "bad id\" injected")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, RequestID()(ok)(c))
	assert.NotEqual(t, "bad id\" injected", rec.Header().Get(echo.HeaderXRequestID))
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/account/me", nil), rec)
	require.NoError(t, SecurityHeaders()(ok)(c))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	require.NoError(t, SecurityHeaders()(ok)(c))
	assert.Empty(t, rec.Header().Get(echo.HeaderCacheControl))
}

func TestCORS_WhitelistedOrigin(t *testing.T) {
	e := echo.New()
	e.Use(CORS([]string{"https://admin.example.com/", " "}))
	e.GET("/api/version", ok)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set(echo.HeaderOrigin, "https://admin.example.com")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://admin.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
	exposed := rec.Header().Get(echo.HeaderAccessControlExposeHeaders)
	for _, h := range ExposedHeaders {
		assert.Contains(t, exposed, h)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	e := echo.New()
	e.Use(CORS([]string{"https://admin.example.com"}))
	e.GET("/api/version", ok)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example.com")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
