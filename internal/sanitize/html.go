package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy removes all HTML tags and attributes.
var StrictPolicy = bluemonday.StrictPolicy()

// maxPasses bounds how many decode/strip rounds Text runs before falling
// back to the policy's escaped output.
const maxPasses = 4

// Text strips all HTML from input and returns trimmed plain text. Entities are
// decoded before stripping so entity-encoded markup is removed too. The
// result is decoded for the JSON surface and stripped again until stable.
func Text(input string) string {
	current := input
	for range maxPasses {
		next := html.UnescapeString(StrictPolicy.Sanitize(html.UnescapeString(current)))
		if next == current {
			return strings.TrimSpace(next)
		}
		current = next
	}
	return strings.TrimSpace(StrictPolicy.Sanitize(current))
}

// OptionalText applies Text to a present value. Values that are empty after
// sanitizing become nil.
func OptionalText(input *string) *string {
	if input == nil {
		return nil
	}
	cleaned := Text(*input)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
