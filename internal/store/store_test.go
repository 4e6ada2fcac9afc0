package store

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partforge/internal/draft"
)

func newTestStore(t *testing.T, quota int) (*ProjectStore, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend(quota)
	ps, err := NewProjectStore(backend, nil, "tester")
	require.NoError(t, err)
	return ps, backend
}

func readStored(t *testing.T, backend *MemoryBackend, id string) *draft.DraftingSession {
	t.Helper()
	data, err := backend.Read(projectKey(id))
	require.NoError(t, err)
	var sess draft.DraftingSession
	require.NoError(t, json.Unmarshal(data, &sess))
	return &sess
}

func TestNewProjectStore(t *testing.T) {
	t.Run("creates blank active session", func(t *testing.T) {
		ps, backend := newTestStore(t, 0)
		sess := ps.Active()
		require.NotNil(t, sess)
		assert.Equal(t, draft.DefaultName, sess.Name)
		assert.Equal(t, "tester", sess.OwnerID)
		assert.NotEmpty(t, sess.ID)

		// The blank session is already persisted and pointed at.
		stored := readStored(t, backend, sess.ID)
		assert.Equal(t, sess.ID, stored.ID)
		assert.Equal(t, sess.ID, ps.readActivePointer())
	})

	t.Run("restores last active project", func(t *testing.T) {
		backend := NewMemoryBackend(0)
		first, err := NewProjectStore(backend, nil, "tester")
		require.NoError(t, err)
		first.Active().Name = "Persisted Build"
		require.NoError(t, first.Save())

		second, err := NewProjectStore(backend, nil, "tester")
		require.NoError(t, err)
		assert.Equal(t, first.Active().ID, second.Active().ID)
		assert.Equal(t, "Persisted Build", second.Active().Name)
	})

	t.Run("dangling active pointer falls back to fresh session", func(t *testing.T) {
		backend := NewMemoryBackend(0)
		data, _ := json.Marshal("ghost-project")
		require.NoError(t, backend.Write(keyActive, data))

		ps, err := NewProjectStore(backend, nil, "tester")
		require.NoError(t, err)
		require.NotNil(t, ps.Active())
		assert.NotEqual(t, "ghost-project", ps.Active().ID)
	})
}

func TestProjectLifecycle(t *testing.T) {
	ps, _ := newTestStore(t, 0)
	firstID := ps.Active().ID

	second := ps.CreateNewProject()
	assert.NotEqual(t, firstID, second.ID)
	assert.Equal(t, second.ID, ps.Active().ID)

	t.Run("index lists most recent first", func(t *testing.T) {
		projects := ps.Projects()
		require.Len(t, projects, 2)
		assert.Equal(t, second.ID, projects[0].ID)
		assert.Equal(t, firstID, projects[1].ID)
	})

	t.Run("load swaps the active session", func(t *testing.T) {
		require.NoError(t, ps.LoadProject(firstID))
		assert.Equal(t, firstID, ps.Active().ID)
	})

	t.Run("load failure leaves active untouched", func(t *testing.T) {
		err := ps.LoadProject("no-such-project")
		require.ErrorIs(t, err, ErrProjectNotFound)
		assert.Equal(t, firstID, ps.Active().ID)
	})

	t.Run("rename active project", func(t *testing.T) {
		require.NoError(t, ps.RenameProject(firstID, "Keyboard Build"))
		assert.Equal(t, "Keyboard Build", ps.Active().Name)
		assert.Equal(t, "Keyboard Build", ps.Projects()[0].Name)
	})

	t.Run("rename inactive project does not activate it", func(t *testing.T) {
		require.NoError(t, ps.RenameProject(second.ID, "Drone Build"))
		assert.Equal(t, firstID, ps.Active().ID)

		found := false
		for _, p := range ps.Projects() {
			if p.ID == second.ID {
				found = true
				assert.Equal(t, "Drone Build", p.Name)
			}
		}
		assert.True(t, found)
	})
}

func TestDeleteProject(t *testing.T) {
	t.Run("deleting active falls back to remaining project", func(t *testing.T) {
		ps, backend := newTestStore(t, 0)
		firstID := ps.Active().ID
		second := ps.CreateNewProject()

		require.NoError(t, ps.DeleteProject(second.ID))
		assert.Equal(t, firstID, ps.Active().ID)
		assert.Len(t, ps.Projects(), 1)

		_, err := backend.Read(projectKey(second.ID))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("deleting the last project creates a fresh one", func(t *testing.T) {
		ps, _ := newTestStore(t, 0)
		onlyID := ps.Active().ID

		require.NoError(t, ps.DeleteProject(onlyID))
		require.NotNil(t, ps.Active(), "there is never no active session")
		assert.NotEqual(t, onlyID, ps.Active().ID)
	})

	t.Run("deleting inactive keeps active", func(t *testing.T) {
		ps, _ := newTestStore(t, 0)
		firstID := ps.Active().ID
		second := ps.CreateNewProject()

		require.NoError(t, ps.DeleteProject(firstID))
		assert.Equal(t, second.ID, ps.Active().ID)
	})
}

func TestSaveQuotaDegradation(t *testing.T) {
	bigImage := func(id string) draft.GeneratedImage {
		return draft.GeneratedImage{
			ID:          id,
			Description: "concept render",
			Data:        strings.Repeat("A", 3000),
		}
	}

	t.Run("serialized copy is trimmed until the write fits", func(t *testing.T) {
		ps, backend := newTestStore(t, 0)
		backend.quota = 8000
		sess := ps.Active()
		sess.GeneratedImages = []draft.GeneratedImage{bigImage("img-1"), bigImage("img-2"), bigImage("img-3")}

		require.NoError(t, ps.Save())

		stored := readStored(t, backend, sess.ID)
		assert.Less(t, len(stored.GeneratedImages), 3, "persisted document must be degraded")
		assert.Len(t, sess.GeneratedImages, 3, "in-memory session is never mutated")

		// Oldest images are dropped first.
		require.NotEmpty(t, stored.GeneratedImages)
		assert.Equal(t, "img-3", stored.GeneratedImages[len(stored.GeneratedImages)-1].ID)
		assert.NotEqual(t, "img-1", stored.GeneratedImages[0].ID)
	})

	t.Run("exhausted degradation surfaces the quota error", func(t *testing.T) {
		ps, backend := newTestStore(t, 0)
		backend.quota = 100

		err := ps.Save()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	})

	t.Run("custom degrade chain is honored", func(t *testing.T) {
		ps, backend := newTestStore(t, 0)
		backend.quota = 100
		calls := 0
		ps.SetDegradeSteps([]DegradeStep{func(copy *draft.DraftingSession) bool {
			calls++
			return false
		}})

		err := ps.Save()
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestFileBackend(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, 0)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, backend.Write("project:abc", []byte(`{"id":"abc"}`)))
		data, err := backend.Read("project:abc")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"abc"}`, string(data))
	})

	t.Run("keys map to filename-safe paths", func(t *testing.T) {
		assert.Equal(t, filepath.Join(dir, "project_abc.json"), backend.keyPath("project:abc"))

		keys, err := backend.List()
		require.NoError(t, err)
		assert.Contains(t, keys, "project:abc")
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := backend.Read("project:missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, backend.Delete("project:abc"))
		require.NoError(t, backend.Delete("project:abc"))
		_, err := backend.Read("project:abc")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("quota enforced", func(t *testing.T) {
		limited, err := NewFileBackend(t.TempDir(), 10)
		require.NoError(t, err)
		err = limited.Write("k", []byte(strings.Repeat("x", 11)))
		assert.True(t, errors.Is(err, ErrQuotaExceeded))
	})
}

func TestMemoryBackendIsolation(t *testing.T) {
	backend := NewMemoryBackend(0)
	original := []byte(`{"a":1}`)
	require.NoError(t, backend.Write("k", original))

	// Mutating the caller's slice after Write must not affect the stored copy.
	original[0] = 'X'
	data, err := backend.Read("k")
	require.NoError(t, err)
	assert.Equal(t, byte('{'), data[0])

	// Mutating the read result must not affect subsequent reads.
	data[1] = 'X'
	again, err := backend.Read("k")
	require.NoError(t, err)
	assert.Equal(t, byte('"'), again[1])
}
