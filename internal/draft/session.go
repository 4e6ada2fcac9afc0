// Package draft owns the DraftingSession aggregate: the BOM, the chat
// transcript, generated concept images, and cached AI-derived artifacts.
// All engine mutations flow through this package.
package draft

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"partforge/internal/catalog"
)

// ChatMessage is one turn of the conversation transcript.
type ChatMessage struct {
	Role    string    `json:"role"` // user, assistant
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// GeneratedImage is a concept render attached to the session.
type GeneratedImage struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Data        string    `json:"data"` // base64-encoded image bytes
	CreatedAt   time.Time `json:"createdAt"`
}

// SourceResult is one purchasing option found for a part.
type SourceResult struct {
	Title  string  `json:"title"`
	URL    string  `json:"url"`
	Source string  `json:"source"`
	Price  float64 `json:"price,omitempty"`
}

// Supplier is a local fabrication or retail supplier.
type Supplier struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	URL     string `json:"url"`
}

// Sourcing groups the assistant's purchasing research for one entry.
type Sourcing struct {
	Results   []SourceResult `json:"results,omitempty"`
	Suppliers []Supplier     `json:"suppliers,omitempty"`
	FetchedAt time.Time      `json:"fetchedAt"`
}

// AssemblyStep is one ordered step of an assembly plan.
type AssemblyStep struct {
	Order        int      `json:"order"`
	Title        string   `json:"title"`
	Instructions string   `json:"instructions"`
	Parts        []string `json:"parts,omitempty"`
}

// AssemblyPlan is the assistant-generated build sequence for the BOM.
type AssemblyPlan struct {
	Overview      string         `json:"overview"`
	Steps         []AssemblyStep `json:"steps"`
	EstimatedTime string         `json:"estimatedTime,omitempty"`
}

// BOMEntry is one line of the bill of materials. InstanceID is unique per
// insertion and distinct from the part id; adds for an already-present part
// id accumulate quantity instead of creating a second entry.
type BOMEntry struct {
	InstanceID       string       `json:"instanceId"`
	Part             catalog.Part `json:"part"`
	Quantity         int          `json:"quantity"`
	IsCompatible     bool         `json:"isCompatible"`
	Warnings         []string     `json:"warnings,omitempty"`
	Sourcing         *Sourcing    `json:"sourcing,omitempty"`
	FabricationBrief string       `json:"fabricationBrief,omitempty"`
}

// DraftingSession is the aggregate root for one project.
type DraftingSession struct {
	ID                 string           `json:"id"`
	Slug               string           `json:"slug"`
	ShareSlug          string           `json:"shareSlug,omitempty"`
	OwnerID            string           `json:"ownerId"`
	Name               string           `json:"name"`
	DesignRequirements string           `json:"designRequirements"`
	BOM                []BOMEntry       `json:"bom"`
	GeneratedImages    []GeneratedImage `json:"generatedImages"`
	Messages           []ChatMessage    `json:"messages"`

	// Cached AI-derived artifacts plus the fingerprint of the requirements
	// and BOM they were computed against. Staleness is derived, not
	// flag-driven: the cache is dirty whenever the current fingerprint
	// differs from ArtifactBOMHash.
	CachedAuditResult  string        `json:"cachedAuditResult,omitempty"`
	CachedAssemblyPlan *AssemblyPlan `json:"cachedAssemblyPlan,omitempty"`
	ArtifactBOMHash    string        `json:"artifactBomHash,omitempty"`

	// Serialized for interchange compatibility; recomputed before every
	// save from CacheDirty().
	CacheIsDirty bool `json:"cacheIsDirty"`

	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
}

// Fingerprint hashes the session content that artifacts depend on: the
// design requirements, then part ids and quantities in insertion order.
// Audits are computed against the requirements, so a pivot that replaces
// them must dirty the cache even when the BOM is unchanged.
func (s *DraftingSession) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "req:%s\n", s.DesignRequirements)
	for _, e := range s.BOM {
		fmt.Fprintf(h, "%s:%d\n", e.Part.ID, e.Quantity)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CacheDirty reports whether the cached artifacts are stale relative to the
// current requirements and BOM. Dirty artifacts remain displayable;
// recomputation is an expensive external call the user may defer.
func (s *DraftingSession) CacheDirty() bool {
	return s.ArtifactBOMHash != s.Fingerprint()
}

// Touch stamps the modification time and refreshes the serialized dirty bit.
func (s *DraftingSession) Touch() {
	s.LastModified = time.Now()
	s.CacheIsDirty = s.CacheDirty()
}

// FindEntry returns the entry with the given instance id, or nil.
func (s *DraftingSession) FindEntry(instanceID string) *BOMEntry {
	for i := range s.BOM {
		if s.BOM[i].InstanceID == instanceID {
			return &s.BOM[i]
		}
	}
	return nil
}

// FindEntryByPart returns the entry referencing the given part id, or nil.
func (s *DraftingSession) FindEntryByPart(partID string) *BOMEntry {
	for i := range s.BOM {
		if s.BOM[i].Part.ID == partID {
			return &s.BOM[i]
		}
	}
	return nil
}

// AppendMessage adds a transcript message and stamps the session.
func (s *DraftingSession) AppendMessage(role, content string) {
	s.Messages = append(s.Messages, ChatMessage{
		Role:    role,
		Content: content,
		Time:    time.Now(),
	})
	s.Touch()
}

// Preview summarizes the session for the project index.
func (s *DraftingSession) Preview() string {
	total := 0
	for _, e := range s.BOM {
		total += e.Quantity
	}
	return fmt.Sprintf("%d parts across %d entries", total, len(s.BOM))
}

// DefaultName is used for freshly created projects.
const DefaultName = "Untitled Draft"

// SlugFromName derives a storage slug from a project name.
func SlugFromName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "draft"
	}
	return slug
}
