package http

import (
	"net/http"
	"strings"
)

// HeaderProfileID selects the profile a request operates on.
const HeaderProfileID = "X-Profile-ID"

// profileID returns the profile named by the request header, or the
// configured default.
func (s *Server) profileID(r *http.Request) string {
	if p := sanitizeInput(r.Header.Get(HeaderProfileID)); p != "" {
		return p
	}
	return s.cfg.ProfileID
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}
