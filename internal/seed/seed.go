package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/campus-events/server/internal/domain/events"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Catalog struct {
	Events []EventConfig `yaml:"events"`
}

type EventConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Date        string `yaml:"date"`
	Time        string `yaml:"time"`
	Location    string `yaml:"location"`
	Capacity    int    `yaml:"capacity"`
	ImageURL    string `yaml:"image_url,omitempty"`
}

// Creator is the event creation capability needed to apply a catalog.
type Creator interface {
	Create(ctx context.Context, params events.EventCreateParams) (*events.Event, error)
}

// Default returns the embedded campus catalog.
func Default() (Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read seed file %s: %w", path, err)
	}
	catalog, err := Parse(data)
	if err != nil {
		return Catalog{}, fmt.Errorf("seed file %s: %w", path, err)
	}
	return catalog, nil
}

// Load returns the catalog at path, or the embedded one when path is empty.
func Load(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return LoadFile(path)
}

func Parse(data []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return Catalog{}, err
	}
	return catalog, nil
}

func (c Catalog) Validate() error {
	var errs []error
	for i, event := range c.Events {
		prefix := fmt.Sprintf("events[%d]", i)
		for field, value := range map[string]string{
			"title":       event.Title,
			"description": event.Description,
			"category":    event.Category,
			"date":        event.Date,
			"time":        event.Time,
			"location":    event.Location,
		} {
			if strings.TrimSpace(value) == "" {
				errs = append(errs, fmt.Errorf("%s.%s is required", prefix, field))
			}
		}
		if event.Capacity < 0 {
			errs = append(errs, fmt.Errorf("%s.capacity must be zero or greater", prefix))
		}
	}
	return errors.Join(errs...)
}

// Apply creates every catalog event through creator, in order.
func (c Catalog) Apply(ctx context.Context, creator Creator) (int, error) {
	for i, event := range c.Events {
		_, err := creator.Create(ctx, events.EventCreateParams{
			Title:       event.Title,
			Description: event.Description,
			Category:    event.Category,
			Date:        event.Date,
			Time:        event.Time,
			Location:    event.Location,
			Capacity:    event.Capacity,
			ImageURL:    event.ImageURL,
		})
		if err != nil {
			return i, fmt.Errorf("seed event %q: %w", event.Title, err)
		}
	}
	return len(c.Events), nil
}
