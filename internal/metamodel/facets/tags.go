package facets

import (
	"fmt"
	"strconv"
	"strings"
)

// MetaTag is the parsed form of a `meta:"..."` struct tag
type MetaTag struct {
	Name        string
	DescribedAs string
	Mandatory   *bool
	Hidden      bool
	ReadOnly    bool
	MaxLength   *int
}

// ParseMetaTag parses a comma-separated meta tag such as
// `name=Email Address,describedAs=Where receipts go,mandatory,maxlen=120`.
// Unknown options are rejected.
func ParseMetaTag(tag string) (MetaTag, error) {
	var mt MetaTag
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if (key == "name" || key == "describedAs" || key == "maxlen") && !hasValue {
			return MetaTag{}, fmt.Errorf("meta option %q requires a value", key)
		}

		switch key {
		case "name":
			mt.Name = value
		case "describedAs":
			mt.DescribedAs = value
		case "mandatory", "optional":
			if hasValue {
				return MetaTag{}, fmt.Errorf("meta option %q takes no value", key)
			}
			required := key == "mandatory"
			mt.Mandatory = &required
		case "hidden":
			mt.Hidden = true
		case "readonly":
			mt.ReadOnly = true
		case "maxlen":
			n, err := strconv.Atoi(value)
			if err != nil {
				return MetaTag{}, fmt.Errorf("meta option maxlen: invalid length %q", value)
			}
			mt.MaxLength = &n
		default:
			return MetaTag{}, fmt.Errorf("unknown meta option %q", key)
		}
	}
	return mt, nil
}
