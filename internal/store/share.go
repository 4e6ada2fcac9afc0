package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"partforge/internal/draft"
	"partforge/internal/logging"
)

// ErrSlugTooShort is returned for share slugs under three characters.
var ErrSlugTooShort = errors.New("share slug must be at least 3 characters")

// ErrSlugTaken is returned when another project already holds the slug.
var ErrSlugTaken = errors.New("share slug already in use")

// ErrInvalidExport is returned when an imported document is not a session.
var ErrInvalidExport = errors.New("not a valid exported project")

// NormalizeSlug lowercases and strips a candidate slug down to alphanumerics
// and hyphens, collapsing runs. Same rules as draft.SlugFromName but without
// the fallback: an empty result is the caller's problem.
func NormalizeSlug(raw string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ReserveSlug claims a public share slug for the active project. The slug is
// normalized first; collisions against every indexed project are rejected.
func (ps *ProjectStore) ReserveSlug(raw string) (string, error) {
	slug := NormalizeSlug(raw)
	if len(slug) < 3 {
		return "", ErrSlugTooShort
	}

	for _, entry := range ps.readIndex() {
		if entry.ShareSlug == slug && entry.ID != ps.active.ID {
			return "", fmt.Errorf("%q: %w", slug, ErrSlugTaken)
		}
	}

	ps.active.ShareSlug = slug
	ps.active.Touch()
	if err := ps.Save(); err != nil {
		return "", err
	}
	logging.ShareDebug("reserved slug %q for project %s", slug, ps.active.ID)
	return slug, nil
}

// FindProjectBySlug resolves a share slug to a full session without changing
// which project is active. The active session is checked first so unsaved
// renames still resolve.
func (ps *ProjectStore) FindProjectBySlug(slug string) (*draft.DraftingSession, error) {
	slug = NormalizeSlug(slug)
	if ps.active.ShareSlug == slug && slug != "" {
		return ps.active, nil
	}
	for _, entry := range ps.readIndex() {
		if entry.ShareSlug == slug {
			return ps.readSession(entry.ID)
		}
	}
	return nil, ErrProjectNotFound
}

// ExportProject serializes a project as an indented, self-contained JSON
// document suitable for hand-off to another instance.
func (ps *ProjectStore) ExportProject(id string) ([]byte, error) {
	var sess *draft.DraftingSession
	if ps.active.ID == id {
		sess = ps.active
	} else {
		loaded, err := ps.readSession(id)
		if err != nil {
			return nil, err
		}
		sess = loaded
	}
	sess.CacheIsDirty = sess.CacheDirty()
	return json.MarshalIndent(sess, "", "  ")
}

// ImportProject ingests an exported document as a brand-new project owned by
// this store: fresh id and slug, share slug cleared so the import cannot
// squat on the exporter's public name. The imported project becomes active.
// On any failure the store is left untouched.
func (ps *ProjectStore) ImportProject(data []byte) (*draft.DraftingSession, error) {
	var sess draft.DraftingSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}
	// Minimal shape check: a real export always carries these two keys, even
	// when their values are empty or null.
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}
	if _, ok := shape["messages"]; !ok {
		return nil, ErrInvalidExport
	}
	if _, ok := shape["bom"]; !ok {
		return nil, ErrInvalidExport
	}

	id := uuid.NewString()
	sess.ID = id
	if sess.Name == "" {
		sess.Name = draft.DefaultName
	}
	sess.Slug = draft.SlugFromName(sess.Name) + "-" + id[:8]
	sess.ShareSlug = ""
	sess.OwnerID = ps.ownerID
	sess.Touch()

	if err := ps.writeSession(&sess); err != nil {
		return nil, fmt.Errorf("failed to persist imported project: %w", err)
	}
	ps.active = &sess
	ps.upsertIndex(&sess)
	ps.writeActivePointer(id)
	if ps.mirror != nil {
		ps.mirror.SyncTranscript(id, sess.Messages)
	}
	logging.ShareDebug("imported project %s (%s)", id, sess.Name)
	return &sess, nil
}
