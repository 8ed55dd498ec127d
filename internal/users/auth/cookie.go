// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/projectflow/projectflow/internal/platform/constants"
)

// CookiePolicy issues, reads and clears the session cookie.
//
// Attributes:
//   - HttpOnly always.
//   - Secure iff running in production.
//   - SameSite=None only for a cross-site request over a secure connection, else Lax.
//   - Max-Age equal to the session lifetime, Path "/".
type CookiePolicy struct {
	production bool
	ttl        time.Duration
}

// NewCookiePolicy creates a [CookiePolicy]. A non-positive ttl falls back to the
// default session lifetime.
func NewCookiePolicy(production bool, ttl time.Duration) *CookiePolicy {
	if ttl <= 0 {
		ttl = constants.DefaultSessionTTL
	}
	return &CookiePolicy{production: production, ttl: ttl}
}

// Issue sets the session cookie carrying rawToken.
func (policy *CookiePolicy) Issue(writer http.ResponseWriter, request *http.Request, rawToken string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    rawToken,
		Path:     constants.SessionCookiePath,
		MaxAge:   int(policy.ttl.Seconds()),
		Secure:   policy.production,
		HttpOnly: true,
		SameSite: policy.sameSite(request),
	})
}

// Clear expires both the current and the legacy session cookie.
func (policy *CookiePolicy) Clear(writer http.ResponseWriter, request *http.Request) {
	sameSite := policy.sameSite(request)
	for _, name := range []string{constants.SessionCookieName, constants.LegacySessionCookieName} {
		http.SetCookie(writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     constants.SessionCookiePath,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			Secure:   policy.production,
			HttpOnly: true,
			SameSite: sameSite,
		})
	}
}

// Token returns the raw session token from the session cookie, falling back to
// an "Authorization: Bearer" header. It returns "" when neither is present.
func (policy *CookiePolicy) Token(request *http.Request) string {
	if cookie, err := request.Cookie(constants.SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := request.Header.Get(constants.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// sameSite picks None for cross-site requests on a secure connection.
func (policy *CookiePolicy) sameSite(request *http.Request) http.SameSite {
	if isCrossSite(request) && isSecure(request) {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// isCrossSite compares the Origin host with the host the request was sent to.
func isCrossSite(request *http.Request) bool {
	origin := request.Header.Get(constants.HeaderOrigin)
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Hostname() == "" {
		return false
	}

	return !strings.EqualFold(parsed.Hostname(), hostname(request.Host))
}

func isSecure(request *http.Request) bool {
	if request.TLS != nil {
		return true
	}
	proto, _, _ := strings.Cut(request.Header.Get(constants.HeaderXForwardedProto), ",")
	return strings.EqualFold(strings.TrimSpace(proto), "https")
}

func hostname(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return strings.Trim(hostport, "[]")
}
