package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"

	"github.com/campus-seminarios/backend/pkg/response"
)

const (
	// CookieXSRFToken is the script-readable cookie carrying the current anti-forgery token.
	CookieXSRFToken = "XSRF-TOKEN"
	// HeaderXSRFToken is the header clients echo the cookie value in.
	HeaderXSRFToken = "X-XSRF-TOKEN"
	// cookieCSRFSecret holds the signed per-client secret managed by gorilla/csrf.
	cookieCSRFSecret = "_csrf"
)

// CSRFOptions configures the anti-forgery middleware.
type CSRFOptions struct {
	AuthKey        []byte // 32 bytes
	Secure         bool
	TrustedOrigins []string
}

// CSRF enforces the cookie-to-header anti-forgery pattern on unsafe methods.
// Every request that passes gets a fresh XSRF-TOKEN cookie for the client to echo back.
func CSRF(opts CSRFOptions) gin.HandlerFunc {
	protect := csrf.Protect(opts.AuthKey,
		csrf.CookieName(cookieCSRFSecret),
		csrf.RequestHeader(HeaderXSRFToken),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.Secure(opts.Secure),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(opts.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)
	return func(c *gin.Context) {
		passed := false
		protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			http.SetCookie(w, &http.Cookie{
				Name:     CookieXSRFToken,
				Value:    csrf.Token(r),
				Path:     "/",
				Secure:   opts.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

// CSRFCookie handles GET /csrf-cookie; the middleware has already set the cookie.
func CSRFCookie(c *gin.Context) {
	response.NoContent(c)
}

func csrfFailure(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(response.Body{Message: "Token de segurança inválido. Recarregue a página e tente novamente."})
}
