package domain

import (
	"sort"
	"strings"
)

// Session is the single authenticated VRChat session for this process.
// The cookie jar keeps only name=value pairs; cookie attributes (path,
// expiry, secure) are never modeled.
type Session struct {
	Cookies map[string]string
	UserID  string
	User    *User
}

func NewSession() Session {
	return Session{Cookies: map[string]string{}}
}

// ReadyForAPI reports whether the session carries cookies usable for
// authenticated calls. It says nothing about whether the server still
// accepts them.
func (s Session) ReadyForAPI() bool {
	return len(s.Cookies) > 0
}

// CookieHeader serializes the jar into a single Cookie header value.
// Names are sorted so the header is stable across requests.
func (s Session) CookieHeader() string {
	if len(s.Cookies) == 0 {
		return ""
	}

	names := make([]string, 0, len(s.Cookies))
	for name := range s.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+s.Cookies[name])
	}

	return strings.Join(pairs, "; ")
}

// MergeSetCookies folds Set-Cookie header values into the jar,
// last-write-wins per cookie name. Attributes after the first ';' are
// discarded.
func (s *Session) MergeSetCookies(setCookies []string) {
	if s.Cookies == nil {
		s.Cookies = map[string]string{}
	}

	for _, setCookie := range setCookies {
		pair, _, _ := strings.Cut(setCookie, ";")
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			continue
		}
		s.Cookies[name] = value
	}
}

// AuthStatus is the read-only view of the session consumed by the
// engine's poll guard and the command surface.
type AuthStatus struct {
	Authenticated bool
	UserID        string
	User          *User
}
