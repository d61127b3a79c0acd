package ids

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ulidRegex = regexp.MustCompile(`(?i)^[0-9A-HJKMNP-TV-Z]{26}$`)

	ErrInvalidULID       = errors.New("invalid ULID")
	ErrInvalidBaseURL    = errors.New("invalid base URL")
	ErrInvalidCollection = errors.New("invalid collection")
)

// NewULID generates a new ULID string. Event and registration identifiers are
// minted here so they sort by creation time.
func NewULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// IsULID returns true when value is a valid ULID (case-insensitive Crockford Base32).
func IsULID(value string) bool {
	return ulidRegex.MatchString(value)
}

// ValidateULID validates a ULID string.
func ValidateULID(value string) error {
	if !IsULID(value) {
		return ErrInvalidULID
	}
	return nil
}

// ResourceURL joins baseURL, an API collection path and an id,
// e.g. ("http://localhost:8080", "api/events", id).
func ResourceURL(baseURL, collection, id string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", ErrInvalidBaseURL
	}
	cleanCollection := strings.Trim(strings.TrimSpace(collection), "/")
	if cleanCollection == "" {
		return "", ErrInvalidCollection
	}
	if strings.TrimSpace(id) == "" {
		return "", ErrInvalidULID
	}
	return fmt.Sprintf("%s://%s/%s/%s", parsed.Scheme, parsed.Host, cleanCollection, url.PathEscape(id)), nil
}
