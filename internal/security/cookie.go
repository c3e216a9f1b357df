package security

import (
	"net/http"
	"time"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
	RefreshCookiePath = "/api/v1/auth"
)

type CookieOptions struct {
	Domain string
	Secure bool
}

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetTokenCookies stores the pair as HttpOnly strict cookies. The access
// cookie lives as long as the access token; the refresh cookie lives as
// long as the session ceiling allows.
func SetTokenCookies(w http.ResponseWriter, opts CookieOptions, access string, accessTTL time.Duration, refresh string, refreshMaxAge time.Duration) {
	http.SetCookie(w, tokenCookie(opts, AccessCookieName, "/", access, accessTTL))
	http.SetCookie(w, tokenCookie(opts, RefreshCookieName, RefreshCookiePath, refresh, refreshMaxAge))
}

func ClearTokenCookies(w http.ResponseWriter, opts CookieOptions) {
	access := tokenCookie(opts, AccessCookieName, "/", "", 0)
	access.MaxAge = -1
	refresh := tokenCookie(opts, RefreshCookieName, RefreshCookiePath, "", 0)
	refresh.MaxAge = -1
	http.SetCookie(w, access)
	http.SetCookie(w, refresh)
}

func tokenCookie(opts CookieOptions, name, path, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   opts.Domain,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
