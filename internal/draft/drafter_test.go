package draft

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partforge/internal/command"
)

// fakeClient scripts assistant behavior for drafter tests.
type fakeClient struct {
	askReply    string
	askErr      error
	verifyReply string
	verifyErr   error
	plan        *AssemblyPlan
	planErr     error
	sources     []SourceResult
	sourcesErr  error
	suppliers   []Supplier
	supplierErr error
	imageData   []byte
	imageErr    error
	brief       string
	briefErr    error

	lastPrompt  string
	lastHistory []ChatMessage
}

func (f *fakeClient) Ask(ctx context.Context, prompt string, history []ChatMessage, image []byte) (string, error) {
	f.lastPrompt = prompt
	f.lastHistory = history
	return f.askReply, f.askErr
}

func (f *fakeClient) FindSources(ctx context.Context, query string) ([]SourceResult, error) {
	return f.sources, f.sourcesErr
}

func (f *fakeClient) FindLocalSuppliers(ctx context.Context, query string) ([]Supplier, error) {
	return f.suppliers, f.supplierErr
}

func (f *fakeClient) Verify(ctx context.Context, bom []BOMEntry, requirements, previousAudit string) (string, error) {
	return f.verifyReply, f.verifyErr
}

func (f *fakeClient) PlanAssembly(ctx context.Context, bom []BOMEntry, previous *AssemblyPlan) (*AssemblyPlan, error) {
	return f.plan, f.planErr
}

func (f *fakeClient) GenerateImage(ctx context.Context, description string, reference []byte) ([]byte, error) {
	return f.imageData, f.imageErr
}

func (f *fakeClient) GenerateFabricationBrief(ctx context.Context, partName, designContext string) (string, error) {
	return f.brief, f.briefErr
}

func TestProcessTurn(t *testing.T) {
	t.Run("applies embedded commands and records transcript", func(t *testing.T) {
		src := newTestSource()
		client := &fakeClient{askReply: `Starting your board now.

initializeDraft("Custom Keyboard", "65% hotswap")
addPart("kb-pcb-1")
addPart("kb-sw-1", 68)`}
		d := NewDrafter(src, client)

		result := d.ProcessTurn(context.Background(), "build me a 65% keyboard", nil)

		require.Len(t, result.Applied, 3)
		assert.Equal(t, command.KindInitDraft, result.Applied[0].Kind)
		assert.Equal(t, "Starting your board now.", result.Reply)

		sess := src.sess
		assert.Equal(t, "Custom Keyboard", sess.Name)
		require.Len(t, sess.BOM, 2)
		assert.Equal(t, 68, sess.BOM[1].Quantity)

		require.Len(t, sess.Messages, 2)
		assert.Equal(t, "user", sess.Messages[0].Role)
		assert.Equal(t, "build me a 65% keyboard", sess.Messages[0].Content)
		assert.Equal(t, "assistant", sess.Messages[1].Role)
		assert.NotContains(t, sess.Messages[1].Content, "addPart")
	})

	t.Run("assistant failure yields inline error and no mutation", func(t *testing.T) {
		src := newTestSource()
		client := &fakeClient{askErr: errors.New("connection reset")}
		d := NewDrafter(src, client)

		result := d.ProcessTurn(context.Background(), "hello", nil)

		assert.Empty(t, result.Applied)
		assert.Contains(t, result.Reply, "connection reset")
		assert.Contains(t, result.Reply, "resend")
		assert.Empty(t, src.sess.BOM)

		// Both the user message and the inline error are in the transcript so
		// the user can retry from context.
		require.Len(t, src.sess.Messages, 2)
		assert.Equal(t, "assistant", src.sess.Messages[1].Role)
	})

	t.Run("reply without commands is pure conversation", func(t *testing.T) {
		src := newTestSource()
		client := &fakeClient{askReply: "Do you prefer linear or tactile switches?"}
		d := NewDrafter(src, client)

		result := d.ProcessTurn(context.Background(), "I want a keyboard", nil)

		assert.Empty(t, result.Applied)
		assert.Equal(t, "Do you prefer linear or tactile switches?", result.Reply)
		assert.Empty(t, src.sess.BOM)
	})

	t.Run("user message is saved before the assistant call", func(t *testing.T) {
		src := newTestSource()
		client := &fakeClient{askReply: "ok"}
		d := NewDrafter(src, client)

		d.ProcessTurn(context.Background(), "ping", nil)
		require.Len(t, client.lastHistory, 1)
		assert.Equal(t, "ping", client.lastHistory[0].Content)
	})
}

func TestRunAudit(t *testing.T) {
	t.Run("caches report and applies corrections", func(t *testing.T) {
		src := newTestSource()
		client := &fakeClient{verifyReply: `You are missing keycaps for the switches.

addPart("kb-cap-1")`}
		d := NewDrafter(src, client)
		d.Engine().AddPart("kb-pcb-1", 1)

		report, err := d.RunAudit(context.Background())
		require.NoError(t, err)
		assert.Contains(t, report, "missing keycaps")

		sess := src.sess
		assert.Equal(t, report, sess.CachedAuditResult)
		assert.False(t, sess.CacheDirty(), "audit records the post-correction fingerprint")
		require.Len(t, sess.BOM, 2)
		assert.Equal(t, "kb-cap-1", sess.BOM[1].Part.ID)
	})

	t.Run("propagates assistant failure", func(t *testing.T) {
		src := newTestSource()
		client := &fakeClient{verifyErr: errors.New("quota exhausted")}
		d := NewDrafter(src, client)

		_, err := d.RunAudit(context.Background())
		require.Error(t, err)
		assert.Empty(t, src.sess.CachedAuditResult)
	})
}

func TestBuildPlan(t *testing.T) {
	t.Run("caches returned plan", func(t *testing.T) {
		src := newTestSource()
		plan := &AssemblyPlan{
			Overview: "Three stage assembly.",
			Steps:    []AssemblyStep{{Order: 1, Title: "Solder", Instructions: "Flash the PCB first."}},
		}
		client := &fakeClient{plan: plan}
		d := NewDrafter(src, client)
		d.Engine().AddPart("kb-pcb-1", 1)

		got, err := d.BuildPlan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, plan, got)
		assert.Equal(t, plan, src.sess.CachedAssemblyPlan)
		assert.False(t, src.sess.CacheDirty())
	})

	t.Run("nil plan is an error", func(t *testing.T) {
		src := newTestSource()
		d := NewDrafter(src, &fakeClient{})

		_, err := d.BuildPlan(context.Background())
		require.Error(t, err)
		assert.Nil(t, src.sess.CachedAssemblyPlan)
	})
}

func TestGenerateConceptImage(t *testing.T) {
	src := newTestSource()
	client := &fakeClient{imageData: []byte{0x89, 0x50, 0x4e, 0x47}}
	d := NewDrafter(src, client)

	img, err := d.GenerateConceptImage(context.Background(), "black aluminum keyboard", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, img.ID)
	assert.Equal(t, "black aluminum keyboard", img.Description)
	assert.NotEmpty(t, img.Data)
	assert.Len(t, src.sess.GeneratedImages, 1)

	t.Run("empty render is an error", func(t *testing.T) {
		d := NewDrafter(newTestSource(), &fakeClient{})
		_, err := d.GenerateConceptImage(context.Background(), "x", nil)
		require.Error(t, err)
	})
}

func TestFetchSourcing(t *testing.T) {
	setup := func(client *fakeClient) (*Drafter, string) {
		src := newTestSource()
		d := NewDrafter(src, client)
		entry := d.Engine().AddPart("drone-motor-1", 4)
		return d, entry.InstanceID
	}

	t.Run("attaches combined results", func(t *testing.T) {
		client := &fakeClient{
			sources:   []SourceResult{{Title: "2306 Motor", URL: "https://example.com/m", Source: "HobbyShop"}},
			suppliers: []Supplier{{Name: "Local Maker Space"}},
		}
		d, instanceID := setup(client)

		sourcing, err := d.FetchSourcing(context.Background(), instanceID)
		require.NoError(t, err)
		assert.Len(t, sourcing.Results, 1)
		assert.Len(t, sourcing.Suppliers, 1)

		entry := d.Engine().src.Active().FindEntry(instanceID)
		require.NotNil(t, entry.Sourcing)
	})

	t.Run("one failed lookup is tolerated", func(t *testing.T) {
		client := &fakeClient{
			sources:     []SourceResult{{Title: "Motor", URL: "u", Source: "s"}},
			supplierErr: errors.New("search unavailable"),
		}
		d, instanceID := setup(client)

		sourcing, err := d.FetchSourcing(context.Background(), instanceID)
		require.NoError(t, err)
		assert.Len(t, sourcing.Results, 1)
		assert.Empty(t, sourcing.Suppliers)
	})

	t.Run("both lookups empty is an error", func(t *testing.T) {
		d, instanceID := setup(&fakeClient{})
		_, err := d.FetchSourcing(context.Background(), instanceID)
		require.Error(t, err)
	})

	t.Run("unknown instance is an error", func(t *testing.T) {
		d, _ := setup(&fakeClient{})
		_, err := d.FetchSourcing(context.Background(), "missing")
		require.Error(t, err)
	})
}

func TestFetchFabricationBrief(t *testing.T) {
	src := newTestSource()
	client := &fakeClient{brief: "Print in PETG at 100% infill."}
	d := NewDrafter(src, client)
	entry := d.Engine().AddPart("custom-shock-mount", 1)

	brief, err := d.FetchFabricationBrief(context.Background(), entry.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, "Print in PETG at 100% infill.", brief)
	assert.Equal(t, brief, src.sess.FindEntry(entry.InstanceID).FabricationBrief)
}
