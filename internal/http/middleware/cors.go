package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// ExposedHeaders are readable by browser clients. The refresh headers carry
// re-issued tokens and records-total carries list sizes.
var ExposedHeaders = []string{"Refresh-JWT", "refresh-token", "records-total"}

// CORS allows credentialed requests from whitelisted origins only. Requests
// without an Origin header are not affected.
func CORS(whitelist []string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(whitelist))
	for _, origin := range whitelist {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			_, ok := allowed[origin]
			return ok, nil
		},
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost,
			http.MethodPut, http.MethodPatch, http.MethodDelete,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			echo.HeaderAuthorization, echo.HeaderXRequestID, "refresh-token",
		},
		ExposeHeaders:    ExposedHeaders,
		AllowCredentials: true,
	})
}
