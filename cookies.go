package authcore

import (
	"net/http"
	"time"
)

// BuildAccessCookie wraps an access token in the HttpOnly cookie served to
// browsers.
func (e *Engine) BuildAccessCookie(accessToken string) *http.Cookie {
	return &http.Cookie{
		Name:     e.config.Cookies.AccessName,
		Value:    accessToken,
		Path:     "/",
		Domain:   e.config.Cookies.Domain,
		MaxAge:   int(e.config.JWT.AccessTTL / time.Second),
		HttpOnly: true,
		Secure:   e.config.Cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// BuildRefreshCookie wraps a refresh token in a cookie path-scoped to the
// refresh endpoint, so the long-lived token is never sent anywhere else.
func (e *Engine) BuildRefreshCookie(refreshToken string) *http.Cookie {
	return &http.Cookie{
		Name:     e.config.Cookies.RefreshName,
		Value:    refreshToken,
		Path:     e.config.Cookies.RefreshPath,
		Domain:   e.config.Cookies.Domain,
		MaxAge:   int(e.config.JWT.RefreshTTL / time.Second),
		HttpOnly: true,
		Secure:   e.config.Cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearAuthCookies returns expired copies of both cookies for logout
// responses.
func (e *Engine) ClearAuthCookies() []*http.Cookie {
	access := e.BuildAccessCookie("")
	access.MaxAge = -1
	refresh := e.BuildRefreshCookie("")
	refresh.MaxAge = -1
	return []*http.Cookie{access, refresh}
}
