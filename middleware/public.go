package middleware

import (
	"path"
	"strings"
)

// PublicRoutes lists the paths the gate lets through without a session.
type PublicRoutes struct {
	Exact    []string
	Prefixes []string
	// Suffixes matches file extensions such as ".png". It never applies
	// under /api/.
	Suffixes []string
}

// DefaultPublicRoutes returns the landing and signup pages, every route
// under /api/auth/, and static assets.
func DefaultPublicRoutes() PublicRoutes {
	return PublicRoutes{
		Exact:    []string{"/", "/create-account", "/api/auth/login", "/api/auth/signup", "/favicon.ico", "/healthz"},
		Prefixes: []string{"/api/auth/", "/static/"},
		Suffixes: []string{".png"},
	}
}

func (p PublicRoutes) empty() bool {
	return len(p.Exact) == 0 && len(p.Prefixes) == 0 && len(p.Suffixes) == 0
}

// Match reports whether urlPath is public. The path is cleaned first so that
// dot segments cannot climb out of a public prefix.
func (p PublicRoutes) Match(urlPath string) bool {
	if urlPath == "" {
		urlPath = "/"
	}
	clean := path.Clean("/" + urlPath)
	if strings.HasSuffix(urlPath, "/") && clean != "/" {
		clean += "/"
	}

	for _, e := range p.Exact {
		if clean == e {
			return true
		}
	}
	for _, pre := range p.Prefixes {
		if strings.HasPrefix(clean, pre) {
			return true
		}
	}
	if strings.HasPrefix(clean, "/api/") {
		return false
	}
	for _, suf := range p.Suffixes {
		if strings.HasSuffix(clean, suf) {
			return true
		}
	}
	return false
}
