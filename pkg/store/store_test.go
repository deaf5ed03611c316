package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modfort/modfort/pkg/mod"
)

// storeFactories builds each backend fresh inside t.TempDir so the same
// contract suite runs over both.
var storeFactories = map[string]func(t *testing.T) Store{
	"file": func(t *testing.T) Store {
		s, err := NewFileStore(filepath.Join(t.TempDir(), "mods"))
		require.NoError(t, err)
		return s
	},
	"sqlite": func(t *testing.T) Store {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "mods.db"))
		require.NoError(t, err)
		return s
	},
}

func sampleRecord(id string) *mod.Record {
	return &mod.Record{
		ID:          id,
		Name:        "Sample " + id,
		Version:     "1.2.3",
		Author:      "author",
		Enabled:     true,
		InstallPath: "/mods/" + id,
		EntryFile:   "mod.dll",
		InstalledAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Dependencies: []mod.Dependency{
			{ID: "libcore", VersionRange: ">=2.0.0"},
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()

			// Empty store.
			records, err := s.List()
			require.NoError(t, err)
			require.Empty(t, records)

			got, err := s.Get("ghost")
			require.NoError(t, err)
			require.Nil(t, got, "absent id must return nil, nil")

			// Put and read back.
			rec := sampleRecord("author.mod")
			require.NoError(t, s.Put(rec))

			got, err = s.Get("author.mod")
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, "author.mod", got.ID)
			require.Equal(t, "1.2.3", got.Version)
			require.Len(t, got.Dependencies, 1)
			require.Equal(t, "libcore", got.Dependencies[0].ID)

			// Case-insensitive key.
			got, err = s.Get("Author.MOD")
			require.NoError(t, err)
			require.NotNil(t, got)

			// Replace.
			rec.Version = "2.0.0"
			require.NoError(t, s.Put(rec))
			got, err = s.Get("author.mod")
			require.NoError(t, err)
			require.Equal(t, "2.0.0", got.Version)

			records, err = s.List()
			require.NoError(t, err)
			require.Len(t, records, 1)

			// Delete, idempotently.
			require.NoError(t, s.Delete("author.mod"))
			require.NoError(t, s.Delete("author.mod"))
			got, err = s.Get("author.mod")
			require.NoError(t, err)
			require.Nil(t, got)
		})
	}
}

func TestStoreCanonicalizesOnPut(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()

			rec := sampleRecord("Mixed.Case")
			require.NoError(t, s.Put(rec))

			got, err := s.Get("mixed.case")
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, "mixed.case", got.ID)
		})
	}
}

func TestStoreRejectsInvalidID(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()
			require.Error(t, s.Put(&mod.Record{ID: "bad/id", Name: "x", Version: "1.0.0"}))
		})
	}
}

func TestLoadOrderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loadorder.txt")

	ids, err := ReadLoadOrder(path)
	require.NoError(t, err)
	require.Empty(t, ids, "missing artifact reads as empty order")

	want := []string{"libcore", "libui", "app"}
	require.NoError(t, WriteLoadOrder(path, want))

	ids, err = ReadLoadOrder(path)
	require.NoError(t, err)
	require.Equal(t, want, ids)

	// Rewrite replaces, never appends.
	require.NoError(t, WriteLoadOrder(path, []string{"solo"}))
	ids, err = ReadLoadOrder(path)
	require.NoError(t, err)
	require.Equal(t, []string{"solo"}, ids)
}
