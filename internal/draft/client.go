package draft

import "context"

// AssistantClient is the engine's view of the generative assistant. Every
// call is best-effort: implementations may return an error or a nil result,
// and callers degrade gracefully (skip the display, leave the artifact
// blank) rather than failing the session.
type AssistantClient interface {
	// Ask sends a conversational prompt with transcript history and an
	// optional reference image, returning the raw reply text. Replies may
	// embed drafting commands; extraction is the caller's job.
	Ask(ctx context.Context, prompt string, history []ChatMessage, image []byte) (string, error)

	// FindSources searches for purchasing options for a part.
	FindSources(ctx context.Context, query string) ([]SourceResult, error)

	// FindLocalSuppliers searches for nearby fabrication/retail suppliers.
	FindLocalSuppliers(ctx context.Context, query string) ([]Supplier, error)

	// Verify audits the BOM against the design requirements. The reply is
	// raw text that may embed corrective commands.
	Verify(ctx context.Context, bom []BOMEntry, requirements, previousAudit string) (string, error)

	// PlanAssembly produces a step-by-step build plan for the BOM.
	PlanAssembly(ctx context.Context, bom []BOMEntry, previous *AssemblyPlan) (*AssemblyPlan, error)

	// GenerateImage renders a concept image for the description.
	GenerateImage(ctx context.Context, description string, reference []byte) ([]byte, error)

	// GenerateFabricationBrief writes a manufacturing brief for one part.
	GenerateFabricationBrief(ctx context.Context, partName, designContext string) (string, error)
}
