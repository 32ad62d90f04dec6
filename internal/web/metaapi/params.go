package metaapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// queryInt reads a non-negative integer query parameter
func queryInt(r *http.Request, name string, defaultValue int) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid value for %s: %q", name, value)
	}
	return i, nil
}

// queryBool reads a boolean query parameter
func queryBool(r *http.Request, name string, defaultValue bool) (bool, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q", name, value)
	}
	return b, nil
}

// queryList reads a comma separated query parameter. Repeated parameters
// are merged.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, value := range r.URL.Query()[name] {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
