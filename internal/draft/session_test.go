package draft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"partforge/internal/catalog"
)

func entryFor(t *testing.T, partID string, qty int) BOMEntry {
	t.Helper()
	part, ok := catalog.Lookup(partID)
	if !ok {
		part = catalog.Synthesize(partID)
	}
	return BOMEntry{InstanceID: "i-" + partID, Part: part, Quantity: qty, IsCompatible: true}
}

func TestFingerprint(t *testing.T) {
	a := &DraftingSession{BOM: []BOMEntry{entryFor(t, "kb-pcb-1", 1), entryFor(t, "kb-sw-1", 68)}}
	b := &DraftingSession{BOM: []BOMEntry{entryFor(t, "kb-pcb-1", 1), entryFor(t, "kb-sw-1", 68)}}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "same BOM content hashes equal")

	b.BOM[1].Quantity = 67
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint(), "quantity feeds the fingerprint")

	c := &DraftingSession{BOM: []BOMEntry{entryFor(t, "kb-sw-1", 68), entryFor(t, "kb-pcb-1", 1)}}
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint(), "order feeds the fingerprint")

	d := &DraftingSession{
		DesignRequirements: "a silent office keyboard",
		BOM:                []BOMEntry{entryFor(t, "kb-pcb-1", 1), entryFor(t, "kb-sw-1", 68)},
	}
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint(), "requirements feed the fingerprint")
}

func TestCacheDirtyIsDerived(t *testing.T) {
	sess := &DraftingSession{BOM: []BOMEntry{entryFor(t, "kb-pcb-1", 1)}}
	assert.True(t, sess.CacheDirty(), "no artifact hash recorded yet")

	sess.ArtifactBOMHash = sess.Fingerprint()
	assert.False(t, sess.CacheDirty())

	sess.BOM[0].Quantity = 2
	assert.True(t, sess.CacheDirty(), "mutating the BOM must dirty the cache")

	// Reverting the mutation restores cleanliness; dirtiness is content-based.
	sess.BOM[0].Quantity = 1
	assert.False(t, sess.CacheDirty())
}

func TestTouch(t *testing.T) {
	sess := &DraftingSession{}
	before := sess.LastModified
	sess.Touch()
	assert.True(t, sess.LastModified.After(before))
	assert.Equal(t, sess.CacheDirty(), sess.CacheIsDirty)
}

func TestFindEntry(t *testing.T) {
	sess := &DraftingSession{BOM: []BOMEntry{entryFor(t, "kb-pcb-1", 1)}}

	assert.NotNil(t, sess.FindEntry("i-kb-pcb-1"))
	assert.Nil(t, sess.FindEntry("missing"))
	assert.NotNil(t, sess.FindEntryByPart("kb-pcb-1"))
	assert.Nil(t, sess.FindEntryByPart("kb-sw-1"))

	// Returned pointer aliases the slice so callers can mutate in place.
	sess.FindEntry("i-kb-pcb-1").Quantity = 5
	assert.Equal(t, 5, sess.BOM[0].Quantity)
}

func TestAppendMessage(t *testing.T) {
	sess := &DraftingSession{}
	sess.AppendMessage("user", "hello")
	sess.AppendMessage("assistant", "hi")

	assert.Len(t, sess.Messages, 2)
	assert.Equal(t, "user", sess.Messages[0].Role)
	assert.WithinDuration(t, time.Now(), sess.Messages[1].Time, time.Second)
}

func TestPreview(t *testing.T) {
	sess := &DraftingSession{}
	assert.Equal(t, "0 parts across 0 entries", sess.Preview())

	sess.BOM = []BOMEntry{entryFor(t, "kb-pcb-1", 1), entryFor(t, "kb-sw-1", 68)}
	assert.Equal(t, "69 parts across 2 entries", sess.Preview())
}

func TestSlugFromName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Custom Keyboard", "custom-keyboard"},
		{"  My Drone!  ", "my-drone"},
		{"65% Build", "65-build"},
		{"___", "draft"},
		{"", "draft"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SlugFromName(tt.in), "SlugFromName(%q)", tt.in)
	}
}
