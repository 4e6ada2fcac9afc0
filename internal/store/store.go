package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"partforge/internal/draft"
	"partforge/internal/logging"
)

// Document keys. The whole store is three kinds of document: one session per
// project, one shared index, and the active-project pointer.
const (
	keyIndex  = "index"
	keyActive = "active"
)

func projectKey(id string) string { return "project:" + id }

// ErrProjectNotFound is returned for operations on unknown project ids.
var ErrProjectNotFound = errors.New("project not found")

// ProjectIndexEntry is the lightweight projection kept in the index document
// so the project picker never loads full sessions.
type ProjectIndexEntry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ShareSlug    string    `json:"shareSlug,omitempty"`
	LastModified time.Time `json:"lastModified"`
	Preview      string    `json:"preview"`
}

// ProjectStore owns the active session and the project index. There is
// always exactly one active session: construction loads the last-active
// project or creates a blank one, and deletion falls back to the next
// indexed project.
type ProjectStore struct {
	backend DocumentBackend
	mirror  *Mirror // optional, best-effort
	ownerID string
	degrade []DegradeStep
	active  *draft.DraftingSession
}

// NewProjectStore opens the store and ensures an active session exists.
// mirror may be nil.
func NewProjectStore(backend DocumentBackend, mirror *Mirror, ownerID string) (*ProjectStore, error) {
	ps := &ProjectStore{
		backend: backend,
		mirror:  mirror,
		ownerID: ownerID,
		degrade: DefaultDegradeSteps(),
	}

	if id := ps.readActivePointer(); id != "" {
		if sess, err := ps.readSession(id); err == nil {
			ps.active = sess
			logging.SessionDebug("restored active project %s (%s)", sess.ID, sess.Name)
			return ps, nil
		}
		logging.Get(logging.CategorySession).Warn("last-active project %s unreadable, creating fresh session", id)
	}

	ps.active = ps.newSession(draft.DefaultName)
	if err := ps.Save(); err != nil {
		logging.Get(logging.CategoryStore).Error("initial save failed: %v", err)
	}
	return ps, nil
}

// SetDegradeSteps replaces the quota-degradation chain.
func (ps *ProjectStore) SetDegradeSteps(steps []DegradeStep) {
	ps.degrade = steps
}

// Active returns the current session. Never nil.
func (ps *ProjectStore) Active() *draft.DraftingSession {
	return ps.active
}

func (ps *ProjectStore) newSession(name string) *draft.DraftingSession {
	id := uuid.NewString()
	now := time.Now()
	return &draft.DraftingSession{
		ID:           id,
		Slug:         draft.SlugFromName(name) + "-" + id[:8],
		OwnerID:      ps.ownerID,
		Name:         name,
		CreatedAt:    now,
		LastModified: now,
	}
}

// CreateNewProject builds a fresh blank session and makes it active.
func (ps *ProjectStore) CreateNewProject() *draft.DraftingSession {
	ps.active = ps.newSession(draft.DefaultName)
	if err := ps.Save(); err != nil {
		logging.Get(logging.CategoryStore).Error("save of new project failed: %v", err)
	}
	logging.SessionDebug("created project %s", ps.active.ID)
	return ps.active
}

// LoadProject replaces the active session with the stored one. On any
// failure the prior active session is left untouched.
func (ps *ProjectStore) LoadProject(id string) error {
	sess, err := ps.readSession(id)
	if err != nil {
		return err
	}
	ps.active = sess
	ps.writeActivePointer(id)
	logging.SessionDebug("activated project %s (%s)", id, sess.Name)
	return nil
}

// RenameProject renames a project. The active session is mutated in place;
// an inactive one is patched in storage without being activated.
func (ps *ProjectStore) RenameProject(id, name string) error {
	if ps.active.ID == id {
		ps.active.Name = name
		ps.active.Touch()
		return ps.Save()
	}

	sess, err := ps.readSession(id)
	if err != nil {
		return err
	}
	sess.Name = name
	sess.Touch()
	if err := ps.writeSession(sess); err != nil {
		return err
	}
	ps.upsertIndex(sess)
	return nil
}

// DeleteProject removes a project from storage and the index. If it was
// active, the store falls back to the most recent remaining project or a
// fresh one, so there is always an active session.
func (ps *ProjectStore) DeleteProject(id string) error {
	if err := ps.backend.Delete(projectKey(id)); err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}

	index := ps.readIndex()
	kept := index[:0]
	for _, entry := range index {
		if entry.ID != id {
			kept = append(kept, entry)
		}
	}
	ps.writeIndex(kept)

	if ps.mirror != nil {
		ps.mirror.DeleteProject(id)
	}

	if ps.active.ID != id {
		return nil
	}
	for _, entry := range kept {
		if err := ps.LoadProject(entry.ID); err == nil {
			return nil
		}
	}
	ps.CreateNewProject()
	return nil
}

// Projects returns the index, most recently modified first.
func (ps *ProjectStore) Projects() []ProjectIndexEntry {
	return ps.readIndex()
}

// =============================================================================
// SAVE PATH
// =============================================================================

// Save persists the active session: full document under its project key,
// index upsert, active pointer, and best-effort SQLite mirror. Implements
// draft.SessionSource.
func (ps *ProjectStore) Save() error {
	timer := logging.StartTimer(logging.CategoryStore, "Save")
	defer timer.Stop()

	sess := ps.active
	sess.CacheIsDirty = sess.CacheDirty()

	if err := ps.writeSession(sess); err != nil {
		return err
	}
	ps.upsertIndex(sess)
	ps.writeActivePointer(sess.ID)

	if ps.mirror != nil {
		ps.mirror.SyncTranscript(sess.ID, sess.Messages)
	}
	return nil
}

// writeSession writes the full session document, degrading the serialized
// copy when the medium rejects the write. The in-memory session is never
// modified: each retry shrinks only the copy being written. Exhausting every
// step is a hard failure, but in-memory state stays authoritative.
func (ps *ProjectStore) writeSession(sess *draft.DraftingSession) error {
	doc := sess
	for {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to serialize session %s: %w", sess.ID, err)
		}

		err = ps.backend.Write(projectKey(sess.ID), data)
		if err == nil {
			if doc != sess {
				logging.Get(logging.CategoryStore).Warn(
					"session %s persisted with %d of %d images after quota degradation",
					sess.ID, len(doc.GeneratedImages), len(sess.GeneratedImages))
			}
			return nil
		}
		if !errors.Is(err, ErrQuotaExceeded) {
			logging.Get(logging.CategoryStore).Error("write of session %s failed: %v", sess.ID, err)
			return err
		}

		if doc == sess {
			doc = degradedCopy(sess)
		}
		reduced := false
		for _, step := range ps.degrade {
			if step(doc) {
				reduced = true
				break
			}
		}
		if !reduced {
			logging.Get(logging.CategoryStore).Error(
				"session %s cannot fit storage quota even fully degraded", sess.ID)
			return err
		}
	}
}

func (ps *ProjectStore) readSession(id string) (*draft.DraftingSession, error) {
	data, err := ps.backend.Read(projectKey(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	var sess draft.DraftingSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse project %s: %w", id, err)
	}
	return &sess, nil
}

func (ps *ProjectStore) upsertIndex(sess *draft.DraftingSession) {
	index := ps.readIndex()
	entry := ProjectIndexEntry{
		ID:           sess.ID,
		Name:         sess.Name,
		ShareSlug:    sess.ShareSlug,
		LastModified: sess.LastModified,
		Preview:      sess.Preview(),
	}

	updated := make([]ProjectIndexEntry, 0, len(index)+1)
	updated = append(updated, entry)
	for _, e := range index {
		if e.ID != sess.ID {
			updated = append(updated, e)
		}
	}
	ps.writeIndex(updated)
}

func (ps *ProjectStore) readIndex() []ProjectIndexEntry {
	data, err := ps.backend.Read(keyIndex)
	if err != nil {
		return nil
	}
	var index []ProjectIndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		logging.Get(logging.CategoryStore).Warn("index document corrupt, rebuilding: %v", err)
		return nil
	}
	return index
}

func (ps *ProjectStore) writeIndex(index []ProjectIndexEntry) {
	data, err := json.Marshal(index)
	if err != nil {
		return
	}
	if err := ps.backend.Write(keyIndex, data); err != nil {
		logging.Get(logging.CategoryStore).Error("index write failed: %v", err)
		return
	}
	if ps.mirror != nil {
		ps.mirror.SyncIndex(index)
	}
}

func (ps *ProjectStore) readActivePointer() string {
	data, err := ps.backend.Read(keyActive)
	if err != nil {
		return ""
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return ""
	}
	return id
}

func (ps *ProjectStore) writeActivePointer(id string) {
	data, _ := json.Marshal(id)
	if err := ps.backend.Write(keyActive, data); err != nil {
		logging.Get(logging.CategoryStore).Error("active pointer write failed: %v", err)
	}
}
