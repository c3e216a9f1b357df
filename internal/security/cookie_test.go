package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSetTokenCookiesAttributes(t *testing.T) {
	rr := httptest.NewRecorder()
	SetTokenCookies(rr, CookieOptions{Secure: true}, "acc", 10*time.Minute, "ref", 14*24*time.Hour)

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
		if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode {
			t.Fatalf("cookie %s missing security attributes: %+v", c.Name, c)
		}
	}
	if byName[AccessCookieName].MaxAge != 600 {
		t.Fatalf("expected access max-age 600, got %d", byName[AccessCookieName].MaxAge)
	}
	if byName[RefreshCookieName].Path != RefreshCookiePath || byName[RefreshCookieName].MaxAge != 14*24*3600 {
		t.Fatalf("unexpected refresh cookie: %+v", byName[RefreshCookieName])
	}
}

func TestClearTokenCookiesExpiresBoth(t *testing.T) {
	rr := httptest.NewRecorder()
	ClearTokenCookies(rr, CookieOptions{})
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge >= 0 || c.Value != "" {
			t.Fatalf("expected cleared cookie, got %+v", c)
		}
	}
}
