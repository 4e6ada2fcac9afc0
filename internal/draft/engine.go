package draft

import (
	"github.com/google/uuid"

	"partforge/internal/catalog"
	"partforge/internal/compat"
	"partforge/internal/logging"
)

// SessionSource provides the active session and persists it after mutations.
// The project store implements this; tests use an in-memory fake.
type SessionSource interface {
	Active() *DraftingSession
	Save() error
}

// Engine applies BOM mutations to the active session. Mutations are
// synchronous and single-writer: each is driven by one awaited UI event, so
// no two interleave.
type Engine struct {
	src SessionSource
}

// NewEngine creates an engine over the given session source.
func NewEngine(src SessionSource) *Engine {
	return &Engine{src: src}
}

// AddPart resolves partID against the catalog (synthesizing a virtual part
// when absent) and inserts it, or accumulates quantity when an entry for the
// same part id already exists. Returns the affected entry.
func (e *Engine) AddPart(partID string, qty int) *BOMEntry {
	if qty < 1 {
		qty = 1
	}
	sess := e.src.Active()

	if existing := sess.FindEntryByPart(partID); existing != nil {
		logging.BOMDebug("addPart %s: accumulating onto %s (%d + %d)",
			partID, existing.InstanceID, existing.Quantity, qty)
		return e.UpdateQuantity(existing.InstanceID, existing.Quantity+qty)
	}

	part, ok := catalog.Lookup(partID)
	if !ok {
		part = catalog.Synthesize(partID)
		logging.BOMDebug("addPart %s: not in catalog, synthesized virtual part", partID)
	}

	existingParts := make([]catalog.Part, len(sess.BOM))
	for i, entry := range sess.BOM {
		existingParts[i] = entry.Part
	}
	result := compat.Validate(part, existingParts)

	entry := BOMEntry{
		InstanceID:   uuid.NewString(),
		Part:         part,
		Quantity:     qty,
		IsCompatible: result.IsCompatible,
		Warnings:     result.Warnings,
	}
	sess.BOM = append(sess.BOM, entry)
	sess.Touch()
	e.persist("addPart")
	return &sess.BOM[len(sess.BOM)-1]
}

// RemovePart deletes the entry with the given instance id. No-op if absent.
func (e *Engine) RemovePart(instanceID string) {
	sess := e.src.Active()
	kept := sess.BOM[:0]
	removed := false
	for _, entry := range sess.BOM {
		if entry.InstanceID == instanceID {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	if !removed {
		logging.BOMDebug("removePart %s: no such entry", instanceID)
		return
	}
	sess.BOM = kept
	sess.Touch()
	e.persist("removePart")
}

// UpdateQuantity sets an entry's quantity, clamped to at least 1.
// No-op if the entry is absent. Returns the entry (or nil).
func (e *Engine) UpdateQuantity(instanceID string, qty int) *BOMEntry {
	if qty < 1 {
		qty = 1
	}
	sess := e.src.Active()
	entry := sess.FindEntry(instanceID)
	if entry == nil {
		logging.BOMDebug("updateQuantity %s: no such entry", instanceID)
		return nil
	}
	entry.Quantity = qty
	sess.Touch()
	e.persist("updateQuantity")
	return entry
}

// Initialize pivots the draft to a new design: name and requirements are
// replaced and the BOM cleared, while the transcript and image history are
// preserved: a pivot continues the same conversation.
func (e *Engine) Initialize(name, requirements string) {
	sess := e.src.Active()
	sess.Name = name
	sess.DesignRequirements = requirements
	sess.BOM = nil
	sess.Touch()
	e.persist("initialize")
}

// TotalCost sums part price times quantity over all entries.
func (e *Engine) TotalCost() float64 {
	var total float64
	for _, entry := range e.src.Active().BOM {
		total += entry.Part.Price * float64(entry.Quantity)
	}
	return total
}

// SearchCatalog exposes catalog search to the UI layer.
func (e *Engine) SearchCatalog(query string) []catalog.Part {
	return catalog.Search(query)
}

// CacheAudit stores a verification report and records the BOM fingerprint it
// was computed against, which clears the derived dirty state.
func (e *Engine) CacheAudit(text string) {
	sess := e.src.Active()
	sess.CachedAuditResult = text
	sess.ArtifactBOMHash = sess.Fingerprint()
	sess.Touch()
	e.persist("cacheAudit")
}

// CacheAssemblyPlan stores an assembly plan and records the BOM fingerprint.
func (e *Engine) CacheAssemblyPlan(plan *AssemblyPlan) {
	sess := e.src.Active()
	sess.CachedAssemblyPlan = plan
	sess.ArtifactBOMHash = sess.Fingerprint()
	sess.Touch()
	e.persist("cacheAssemblyPlan")
}

// AttachSourcing stores sourcing research on an entry. Sourcing does not
// feed the BOM fingerprint, so cached artifacts stay valid.
func (e *Engine) AttachSourcing(instanceID string, sourcing *Sourcing) {
	sess := e.src.Active()
	entry := sess.FindEntry(instanceID)
	if entry == nil {
		return
	}
	entry.Sourcing = sourcing
	sess.Touch()
	e.persist("attachSourcing")
}

// AttachFabricationBrief stores a fabrication brief on an entry.
func (e *Engine) AttachFabricationBrief(instanceID, brief string) {
	sess := e.src.Active()
	entry := sess.FindEntry(instanceID)
	if entry == nil {
		return
	}
	entry.FabricationBrief = brief
	sess.Touch()
	e.persist("attachFabricationBrief")
}

// persist saves through the session source. Persistence failures never
// invalidate in-memory state; they are logged and the session stays
// authoritative.
func (e *Engine) persist(op string) {
	if err := e.src.Save(); err != nil {
		logging.Get(logging.CategoryBOM).Error("persist after %s failed: %v", op, err)
	}
}
