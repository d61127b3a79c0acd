package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/campus-events/server/internal/domain/events"
	"github.com/campus-events/server/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	catalog, err := Default()
	require.NoError(t, err)
	require.Len(t, catalog.Events, 6)

	first := catalog.Events[0]
	assert.Equal(t, "Introduction to Machine Learning", first.Title)
	assert.Equal(t, events.CategoryAcademic, first.Category)
	assert.Equal(t, "Nov 15, 2025", first.Date)
	assert.Equal(t, "2:00 PM", first.Time)
	assert.Equal(t, "Engineering Building, Room 301", first.Location)
	assert.Equal(t, 50, first.Capacity)

	hamlet := catalog.Events[3]
	assert.Equal(t, "Student Theater Production: Hamlet", hamlet.Title)
	assert.Equal(t, 150, hamlet.Capacity)

	for _, event := range catalog.Events {
		_, ok := events.CanonicalCategory(event.Category)
		assert.True(t, ok, event.Category)
	}
}

func TestApplySeedsStore(t *testing.T) {
	store := memory.NewStore()
	catalog, err := Default()
	require.NoError(t, err)

	n, err := catalog.Apply(context.Background(), store.Events())
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	list, err := store.Events().List(context.Background(), events.Filters{})
	require.NoError(t, err)
	require.Len(t, list, 6)
	for _, event := range list {
		assert.Equal(t, 0, event.Registered)
		assert.NotEmpty(t, event.ID)
	}
	assert.Equal(t, "Intramural Soccer League Kickoff", list[5].Title)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
events:
  - title: Poetry Night
    description: Open mic.
    category: Arts
    date: Dec 1, 2025
    time: "8:00 PM"
    location: Library Cafe
    capacity: 40
`), 0o600))

	catalog, err := Load(path)
	require.NoError(t, err)
	require.Len(t, catalog.Events, 1)
	assert.Equal(t, "Poetry Night", catalog.Events[0].Title)
	assert.Empty(t, catalog.Events[0].ImageURL)
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	catalog, err := Load("  ")
	require.NoError(t, err)
	assert.Len(t, catalog.Events, 6)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseRejectsInvalidCatalog(t *testing.T) {
	_, err := Parse([]byte(`
events:
  - title: ""
    category: Arts
    capacity: -3
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events[0].title is required")
	assert.Contains(t, err.Error(), "events[0].capacity must be zero or greater")

	_, err = Parse([]byte("events: [unterminated"))
	require.Error(t, err)
}
