// Package conditional answers conditional GETs for resources whose version
// is known up front. A registered metamodel snapshot never changes, so its
// build id is a complete validator for every query response.
package conditional

import (
	"net/http"
	"strings"
	"time"
)

// Validators identify one version of a resource
type Validators struct {
	ETag         string
	LastModified time.Time
}

// WeakETag formats version as a weak entity tag
func WeakETag(version string) string {
	return `W/"` + version + `"`
}

// ParseIfNoneMatch parses the If-None-Match header value
func ParseIfNoneMatch(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	if header == "*" {
		return []string{"*"}
	}

	var etags []string
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		weak := strings.HasPrefix(part, "W/")
		tag := strings.TrimPrefix(part, "W/")
		if len(tag) < 2 || tag[0] != '"' || tag[len(tag)-1] != '"' {
			continue
		}
		if weak {
			tag = "W/" + tag
		}
		etags = append(etags, tag)
	}
	return etags
}

// MatchesETag reports whether etag matches any of etags using weak
// comparison
func MatchesETag(etag string, etags []string) bool {
	if len(etags) == 1 && etags[0] == "*" {
		return true
	}
	opaque := strings.TrimPrefix(etag, "W/")
	for _, e := range etags {
		if strings.TrimPrefix(e, "W/") == opaque {
			return true
		}
	}
	return false
}

// NotModified reports whether r already holds the version v describes.
// If-None-Match takes precedence over If-Modified-Since.
func NotModified(r *http.Request, v Validators) bool {
	if header := r.Header.Get("If-None-Match"); header != "" {
		return v.ETag != "" && MatchesETag(v.ETag, ParseIfNoneMatch(header))
	}

	header := r.Header.Get("If-Modified-Since")
	if header == "" || v.LastModified.IsZero() {
		return false
	}
	since, err := http.ParseTime(header)
	if err != nil {
		return false
	}
	return !v.LastModified.Truncate(time.Second).After(since)
}

// SetHeaders writes the validators and cache control header
func SetHeaders(w http.ResponseWriter, v Validators, cacheControl string) {
	if v.ETag != "" {
		w.Header().Set("ETag", v.ETag)
	}
	if !v.LastModified.IsZero() {
		w.Header().Set("Last-Modified", v.LastModified.UTC().Format(http.TimeFormat))
	}
	if cacheControl != "" {
		w.Header().Set("Cache-Control", cacheControl)
	}
}

// Middleware tags GET and HEAD responses with the validators current
// returns and answers 304 when the client already has that version. When
// current reports false the request passes through untouched.
func Middleware(current func() (Validators, bool), cacheControl string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			v, ok := current()
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			SetHeaders(w, v, cacheControl)
			if NotModified(r, v) {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
