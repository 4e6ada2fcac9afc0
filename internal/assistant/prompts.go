package assistant

import (
	"fmt"
	"strings"

	"partforge/internal/catalog"
	"partforge/internal/draft"
)

// maxHistoryMessages bounds how much transcript is replayed per request.
// Older turns fall off the window; the BOM state carries the durable facts.
const maxHistoryMessages = 20

const draftingSystemPrompt = `You are a hardware drafting assistant. You help users design physical
builds (keyboards, drones, electronics projects) by maintaining a bill of
materials for them.

You can modify the draft by embedding commands anywhere in your reply:

  initializeDraft("Project Name", "one-line design requirements")
  addPart("part-id", quantity)
  removePart("instance-id")

Rules:
- Start a new draft with initializeDraft before adding parts to an empty
  project, and call it again whenever the user pivots to a different build.
- addPart quantity is optional and defaults to 1. Adding a part that is
  already in the draft increases its quantity instead of duplicating it.
- removePart takes the BOM instance id shown in the draft state, not the
  catalog part id.
- If the catalog has no suitable part, you may invent a kebab-case part id
  (for example "custom-shock-mount"); it will enter the draft as a virtual
  part pending physical validation.
- Write your reasoning as normal prose around the commands. The commands are
  stripped before the user sees your reply, so never refer to them.

Parts catalog:
%s`

// catalogListing renders the full catalog for the system prompt.
func catalogListing() string {
	var b strings.Builder
	for _, part := range catalog.Search("") {
		fmt.Fprintf(&b, "- %s: %s (%s, $%.2f)", part.ID, part.Name, part.Category, part.Price)
		if len(part.Ports) > 0 {
			ports := make([]string, len(part.Ports))
			for i, p := range part.Ports {
				ports[i] = fmt.Sprintf("%s/%s/%s", p.Spec, p.Type, p.Gender)
			}
			fmt.Fprintf(&b, " ports[%s]", strings.Join(ports, " "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderBOM flattens the current BOM into prompt text, including the
// instance ids removePart needs.
func renderBOM(bom []draft.BOMEntry) string {
	if len(bom) == 0 {
		return "(the draft is empty)"
	}
	var b strings.Builder
	for _, entry := range bom {
		fmt.Fprintf(&b, "- instance=%s part=%s name=%q qty=%d price=$%.2f",
			entry.InstanceID, entry.Part.ID, entry.Part.Name, entry.Quantity, entry.Part.Price)
		if !entry.IsCompatible {
			b.WriteString(" INCOMPATIBLE")
		}
		for _, w := range entry.Warnings {
			fmt.Fprintf(&b, " warning=%q", w)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// windowHistory keeps the most recent messages and converts them to wire
// contents. The current prompt is sent separately, so the final user message
// already in the transcript is dropped to avoid repeating it.
func windowHistory(history []draft.ChatMessage) []geminiContent {
	if n := len(history); n > 0 && history[n-1].Role == "user" {
		history = history[:n-1]
	}
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	contents := make([]geminiContent, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	return contents
}

func auditPrompt(bom []draft.BOMEntry, requirements, previousAudit string) string {
	var b strings.Builder
	b.WriteString("Audit this draft against its design requirements. Check for missing parts, wrong quantities, incompatible interfaces, and budget problems. ")
	b.WriteString("You may fix problems directly by embedding addPart/removePart commands in your reply.\n\n")
	fmt.Fprintf(&b, "Design requirements: %s\n\nCurrent bill of materials:\n%s", requirements, renderBOM(bom))
	if previousAudit != "" {
		fmt.Fprintf(&b, "\nYour previous audit, for reference:\n%s\n", previousAudit)
	}
	return b.String()
}

func planPrompt(bom []draft.BOMEntry, previous *draft.AssemblyPlan) string {
	var b strings.Builder
	b.WriteString("Produce a step-by-step assembly plan for this bill of materials. Reference parts by their instance ids in each step's parts list.\n\n")
	fmt.Fprintf(&b, "Bill of materials:\n%s", renderBOM(bom))
	if previous != nil {
		fmt.Fprintf(&b, "\nA previous plan exists (overview: %s). The parts list has changed since; produce a fresh plan.\n", previous.Overview)
	}
	return b.String()
}

func fabricationPrompt(partName, designContext string) string {
	return fmt.Sprintf(
		"Write a concise fabrication brief for manufacturing %q as a one-off custom part. "+
			"Cover material choice, fabrication method (3D print, CNC, laser cut), critical tolerances, and finishing. "+
			"Design context: %s", partName, designContext)
}
