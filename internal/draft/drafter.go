package draft

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"partforge/internal/command"
	"partforge/internal/logging"
)

// Drafter drives one conversational turn end to end: user text in, assistant
// reply parsed, commands applied in order, transcript persisted. It assumes
// at most one in-flight assistant call; mutations only happen after the full
// reply has returned, so an aborted call applies nothing.
type Drafter struct {
	engine *Engine
	src    SessionSource
	client AssistantClient
}

// NewDrafter wires the turn loop over a session source and assistant client.
func NewDrafter(src SessionSource, client AssistantClient) *Drafter {
	return &Drafter{
		engine: NewEngine(src),
		src:    src,
		client: client,
	}
}

// Engine exposes the BOM engine for direct (non-conversational) operations.
func (d *Drafter) Engine() *Engine {
	return d.engine
}

// TurnResult reports what one conversational turn did.
type TurnResult struct {
	Reply   string
	Applied []command.Command
}

// ProcessTurn relays userText to the assistant, extracts embedded commands,
// applies them in first-seen order, and appends both sides to the transcript.
// Assistant failure is not an error for the caller: a visible inline error
// message is appended instead, and retry is user-initiated.
func (d *Drafter) ProcessTurn(ctx context.Context, userText string, image []byte) *TurnResult {
	timer := logging.StartTimer(logging.CategorySession, "ProcessTurn")
	defer timer.Stop()

	sess := d.src.Active()
	sess.AppendMessage("user", userText)
	d.save("user message")

	reply, err := d.client.Ask(ctx, userText, sess.Messages, image)
	if err != nil {
		logging.Get(logging.CategoryAssistant).Error("ask failed: %v", err)
		sess.AppendMessage("assistant", fmt.Sprintf("Something went wrong talking to the assistant: %v. Please resend your last message.", err))
		d.save("assistant error")
		return &TurnResult{Reply: sess.Messages[len(sess.Messages)-1].Content}
	}

	res := command.Parse(reply)
	d.apply(res.Commands)

	sess.AppendMessage("assistant", res.Reasoning)
	d.save("assistant message")

	return &TurnResult{Reply: res.Reasoning, Applied: res.Commands}
}

// apply executes parsed commands in order. The engine's idempotent-add
// semantics make duplicate addPart calls accumulate rather than duplicate.
func (d *Drafter) apply(commands []command.Command) {
	for _, cmd := range commands {
		switch cmd.Kind {
		case command.KindInitDraft:
			d.engine.Initialize(cmd.Name, cmd.Requirements)
		case command.KindAddPart:
			d.engine.AddPart(cmd.PartID, cmd.Quantity)
		case command.KindRemovePart:
			d.engine.RemovePart(cmd.InstanceID)
		}
	}
}

// RunAudit asks the assistant to verify the BOM against the design
// requirements, applies any corrective commands it proposes, and caches the
// report with the resulting BOM fingerprint.
func (d *Drafter) RunAudit(ctx context.Context) (string, error) {
	sess := d.src.Active()
	reply, err := d.client.Verify(ctx, sess.BOM, sess.DesignRequirements, sess.CachedAuditResult)
	if err != nil {
		return "", fmt.Errorf("audit failed: %w", err)
	}

	res := command.Parse(reply)
	d.apply(res.Commands)
	d.engine.CacheAudit(res.Reasoning)
	return res.Reasoning, nil
}

// BuildPlan asks the assistant for an assembly plan and caches it.
func (d *Drafter) BuildPlan(ctx context.Context) (*AssemblyPlan, error) {
	sess := d.src.Active()
	plan, err := d.client.PlanAssembly(ctx, sess.BOM, sess.CachedAssemblyPlan)
	if err != nil {
		return nil, fmt.Errorf("assembly planning failed: %w", err)
	}
	if plan == nil {
		return nil, fmt.Errorf("assembly planning returned no plan")
	}
	d.engine.CacheAssemblyPlan(plan)
	return plan, nil
}

// GenerateConceptImage renders and stores a concept image for the session.
func (d *Drafter) GenerateConceptImage(ctx context.Context, description string, reference []byte) (*GeneratedImage, error) {
	blob, err := d.client.GenerateImage(ctx, description, reference)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(blob) == 0 {
		return nil, fmt.Errorf("image generation returned no data")
	}

	sess := d.src.Active()
	img := GeneratedImage{
		ID:          uuid.NewString(),
		Description: description,
		Data:        base64.StdEncoding.EncodeToString(blob),
		CreatedAt:   time.Now(),
	}
	sess.GeneratedImages = append(sess.GeneratedImages, img)
	sess.Touch()
	d.save("concept image")
	return &sess.GeneratedImages[len(sess.GeneratedImages)-1], nil
}

// FetchSourcing researches purchasing options and local suppliers for one
// entry and attaches the results. Either lookup may fail independently.
func (d *Drafter) FetchSourcing(ctx context.Context, instanceID string) (*Sourcing, error) {
	entry := d.src.Active().FindEntry(instanceID)
	if entry == nil {
		return nil, fmt.Errorf("no BOM entry %s", instanceID)
	}

	query := entry.Part.Name
	if entry.Part.Brand != "" {
		query = entry.Part.Brand + " " + entry.Part.Name
	}

	sourcing := &Sourcing{FetchedAt: time.Now()}
	if results, err := d.client.FindSources(ctx, query); err == nil {
		sourcing.Results = results
	} else {
		logging.Get(logging.CategoryAssistant).Warn("sourcing lookup failed for %s: %v", entry.Part.ID, err)
	}
	if suppliers, err := d.client.FindLocalSuppliers(ctx, query); err == nil {
		sourcing.Suppliers = suppliers
	} else {
		logging.Get(logging.CategoryAssistant).Warn("supplier lookup failed for %s: %v", entry.Part.ID, err)
	}

	if len(sourcing.Results) == 0 && len(sourcing.Suppliers) == 0 {
		return nil, fmt.Errorf("no sourcing results for %q", query)
	}

	d.engine.AttachSourcing(instanceID, sourcing)
	return sourcing, nil
}

// FetchFabricationBrief asks the assistant for a manufacturing brief for one
// entry and attaches it.
func (d *Drafter) FetchFabricationBrief(ctx context.Context, instanceID string) (string, error) {
	sess := d.src.Active()
	entry := sess.FindEntry(instanceID)
	if entry == nil {
		return "", fmt.Errorf("no BOM entry %s", instanceID)
	}

	brief, err := d.client.GenerateFabricationBrief(ctx, entry.Part.Name, sess.DesignRequirements)
	if err != nil {
		return "", fmt.Errorf("fabrication brief failed: %w", err)
	}
	d.engine.AttachFabricationBrief(instanceID, brief)
	return brief, nil
}

func (d *Drafter) save(what string) {
	if err := d.src.Save(); err != nil {
		logging.Get(logging.CategorySession).Error("persist after %s failed: %v", what, err)
	}
}
