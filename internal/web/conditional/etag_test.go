package conditional

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestParseIfNoneMatch(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   []string
	}{
		{"empty", "", nil},
		{"wildcard", "*", []string{"*"}},
		{"single", `"abc"`, []string{`"abc"`}},
		{"weak", `W/"abc"`, []string{`W/"abc"`}},
		{"list", `"a", W/"b" ,"c"`, []string{`"a"`, `W/"b"`, `"c"`}},
		{"unquoted skipped", `abc, "d"`, []string{`"d"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseIfNoneMatch(tt.header); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseIfNoneMatch(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestMatchesETag(t *testing.T) {
	etag := WeakETag("build-1")

	if etag != `W/"build-1"` {
		t.Fatalf("WeakETag = %s", etag)
	}
	if !MatchesETag(etag, []string{`"build-1"`}) {
		t.Error("weak comparison should ignore the W/ prefix")
	}
	if !MatchesETag(etag, []string{"*"}) {
		t.Error("* should match anything")
	}
	if MatchesETag(etag, []string{`W/"build-2"`}) {
		t.Error("different versions should not match")
	}
	if MatchesETag(etag, nil) {
		t.Error("no tags should not match")
	}
}

func TestNotModified(t *testing.T) {
	modified := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	v := Validators{ETag: WeakETag("build-1"), LastModified: modified}

	tests := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{"no headers", nil, false},
		{"etag match", map[string]string{"If-None-Match": `W/"build-1"`}, true},
		{"etag mismatch wins over date", map[string]string{
			"If-None-Match":     `W/"build-0"`,
			"If-Modified-Since": modified.Add(time.Hour).Format(http.TimeFormat),
		}, false},
		{"not modified since", map[string]string{"If-Modified-Since": modified.Format(http.TimeFormat)}, true},
		{"modified since", map[string]string{"If-Modified-Since": modified.Add(-time.Hour).Format(http.TimeFormat)}, false},
		{"bad date", map[string]string{"If-Modified-Since": "yesterday"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/types", nil)
			for k, val := range tt.headers {
				r.Header.Set(k, val)
			}
			if got := NotModified(r, v); got != tt.want {
				t.Errorf("NotModified() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := Validators{ETag: WeakETag("build-1"), LastModified: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	available := true
	h := Middleware(func() (Validators, bool) { return v, available }, "no-cache")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("body"))
		}))

	t.Run("tags response", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/types", nil))

		if rec.Code != http.StatusOK || rec.Body.String() != "body" {
			t.Fatalf("got %d %q", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("ETag") != `W/"build-1"` {
			t.Errorf("ETag = %q", rec.Header().Get("ETag"))
		}
		if rec.Header().Get("Last-Modified") != "Sun, 01 Mar 2026 12:00:00 GMT" {
			t.Errorf("Last-Modified = %q", rec.Header().Get("Last-Modified"))
		}
		if rec.Header().Get("Cache-Control") != "no-cache" {
			t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
		}
	})

	t.Run("not modified", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/types", nil)
		r.Header.Set("If-None-Match", `W/"build-1"`)
		h.ServeHTTP(rec, r)

		if rec.Code != http.StatusNotModified {
			t.Errorf("status = %d, want 304", rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("body = %q, want empty", rec.Body.String())
		}
	})

	t.Run("unsafe methods pass through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/types", nil)
		r.Header.Set("If-None-Match", "*")
		h.ServeHTTP(rec, r)

		if rec.Code != http.StatusOK || rec.Header().Get("ETag") != "" {
			t.Errorf("got %d with ETag %q", rec.Code, rec.Header().Get("ETag"))
		}
	})

	t.Run("unavailable", func(t *testing.T) {
		available = false
		defer func() { available = true }()

		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/types", nil)
		r.Header.Set("If-None-Match", "*")
		h.ServeHTTP(rec, r)

		if rec.Code != http.StatusOK || rec.Header().Get("ETag") != "" {
			t.Errorf("got %d with ETag %q", rec.Code, rec.Header().Get("ETag"))
		}
	})
}
