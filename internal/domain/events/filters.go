package events

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	CategoryAcademic = "Academic"
	CategorySports   = "Sports"
	CategorySocial   = "Social"
	CategoryArts     = "Arts"
)

// Categories is the fixed campus category set, in display order.
var Categories = []string{CategoryAcademic, CategorySports, CategorySocial, CategoryArts}

type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Filters narrows an event listing. Empty filters match everything.
type Filters struct {
	Categories []string
	Query      string
}

// Matches reports whether event passes the filters. Categories are OR-ed and
// matched exactly; Query is a case-insensitive substring of title or location.
func (f Filters) Matches(event Event) bool {
	if len(f.Categories) > 0 {
		found := false
		for _, category := range f.Categories {
			if event.Category == category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Query == "" {
		return true
	}
	query := strings.ToLower(f.Query)
	return strings.Contains(strings.ToLower(event.Title), query) ||
		strings.Contains(strings.ToLower(event.Location), query)
}

// ParseFilters reads category and q from a query string. category may repeat
// or hold a comma-separated list. When strict is set, unknown categories are
// rejected and known ones are canonicalized.
func ParseFilters(values url.Values, strict bool) (Filters, error) {
	filters := Filters{Query: strings.TrimSpace(values.Get("q"))}

	for _, raw := range values["category"] {
		for _, part := range strings.Split(raw, ",") {
			item := strings.TrimSpace(part)
			if item == "" || strings.EqualFold(item, "all") {
				continue
			}
			if strict {
				canonical, ok := CanonicalCategory(item)
				if !ok {
					return Filters{}, FilterError{Field: "category", Message: categoryMessage()}
				}
				item = canonical
			}
			filters.Categories = append(filters.Categories, item)
		}
	}

	return filters, nil
}

// CanonicalCategory maps value onto the fixed category set, ignoring case.
func CanonicalCategory(value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, category := range Categories {
		if strings.EqualFold(category, value) {
			return category, true
		}
	}
	return "", false
}

func categoryMessage() string {
	return "must be one of " + strings.Join(Categories, ", ")
}
