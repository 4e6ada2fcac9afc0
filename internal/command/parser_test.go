package command

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtractsCommandsInOrder(t *testing.T) {
	reply := `Great choice! Let's start.

initializeDraft("Custom Keyboard", "65% hotswap board under $300")
addPart("kb-pcb-1")
addPart('kb-sw-1', 68)

That gives you the core of the build.`

	res := Parse(reply)

	want := []Command{
		{Kind: KindInitDraft, Name: "Custom Keyboard", Requirements: "65% hotswap board under $300"},
		{Kind: KindAddPart, PartID: "kb-pcb-1", Quantity: 1},
		{Kind: KindAddPart, PartID: "kb-sw-1", Quantity: 68},
	}
	if diff := cmp.Diff(want, res.Commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}

	assert.Contains(t, res.Reasoning, "Great choice!")
	assert.Contains(t, res.Reasoning, "core of the build")
	assert.NotContains(t, res.Reasoning, "addPart")
	assert.NotContains(t, res.Reasoning, "initializeDraft")
}

func TestParseArgumentStyles(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  Command
	}{
		{
			"double quoted",
			`addPart("drone-motor-1", 4)`,
			Command{Kind: KindAddPart, PartID: "drone-motor-1", Quantity: 4},
		},
		{
			"single quoted",
			`addPart('drone-motor-1', 4)`,
			Command{Kind: KindAddPart, PartID: "drone-motor-1", Quantity: 4},
		},
		{
			"bare arguments",
			`addPart(drone-motor-1, 4)`,
			Command{Kind: KindAddPart, PartID: "drone-motor-1", Quantity: 4},
		},
		{
			"quantity defaults to one",
			`addPart("drone-frame-1")`,
			Command{Kind: KindAddPart, PartID: "drone-frame-1", Quantity: 1},
		},
		{
			"trailing semicolon",
			`removePart("abc-123");`,
			Command{Kind: KindRemovePart, InstanceID: "abc-123"},
		},
		{
			"whitespace inside call",
			`addPart( "kb-cap-1" , 2 )`,
			Command{Kind: KindAddPart, PartID: "kb-cap-1", Quantity: 2},
		},
		{
			"non-numeric quantity falls back to one",
			`addPart("kb-cap-1", lots)`,
			Command{Kind: KindAddPart, PartID: "kb-cap-1", Quantity: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.reply)
			require.Len(t, res.Commands, 1)
			assert.Equal(t, tt.want, res.Commands[0])
		})
	}
}

func TestParseOrderAcrossKinds(t *testing.T) {
	reply := `removePart("old-entry")
Some prose in between.
addPart("kb-plate-1")
initializeDraft("Pivot", "new direction")`

	res := Parse(reply)
	require.Len(t, res.Commands, 3)
	assert.Equal(t, KindRemovePart, res.Commands[0].Kind)
	assert.Equal(t, KindAddPart, res.Commands[1].Kind)
	assert.Equal(t, KindInitDraft, res.Commands[2].Kind)
}

func TestParseNeverFails(t *testing.T) {
	t.Run("empty input yields fallback", func(t *testing.T) {
		res := Parse("")
		assert.Empty(t, res.Commands)
		assert.Equal(t, FallbackReasoning, res.Reasoning)
	})

	t.Run("whitespace input yields fallback", func(t *testing.T) {
		res := Parse("   \n\t ")
		assert.Empty(t, res.Commands)
		assert.Equal(t, FallbackReasoning, res.Reasoning)
	})

	t.Run("commands-only reply yields fallback reasoning", func(t *testing.T) {
		res := Parse(`addPart("kb-pcb-1")` + "\n" + `addPart("kb-sw-1", 68)`)
		assert.Len(t, res.Commands, 2)
		assert.Equal(t, FallbackReasoning, res.Reasoning)
	})

	t.Run("prose without commands passes through", func(t *testing.T) {
		res := Parse("What switch feel do you prefer, linear or tactile?")
		assert.Empty(t, res.Commands)
		assert.Equal(t, "What switch feel do you prefer, linear or tactile?", res.Reasoning)
	})

	t.Run("malformed call stays in reasoning", func(t *testing.T) {
		res := Parse("I would call addPart() but I need a part id first.")
		assert.Empty(t, res.Commands)
		assert.Contains(t, res.Reasoning, "addPart()")
	})
}

func TestParseScrubsNoisyReplies(t *testing.T) {
	t.Run("tool heading and command fence removed", func(t *testing.T) {
		reply := "### Tool Calls:\n```tool\naddPart(\"kb-case-1\", 1);\n```\nI've added the aluminum case."
		res := Parse(reply)
		require.Len(t, res.Commands, 1)
		assert.Equal(t, "kb-case-1", res.Commands[0].PartID)
		assert.Equal(t, "I've added the aluminum case.", res.Reasoning)
	})

	t.Run("unrelated code fence preserved", func(t *testing.T) {
		reply := "Wire it like this:\n```\nred -> VCC\nblack -> GND\n```\nDone."
		res := Parse(reply)
		assert.Empty(t, res.Commands)
		assert.Contains(t, res.Reasoning, "red -> VCC")
	})

	t.Run("tool json line removed", func(t *testing.T) {
		reply := "Updating now.\n[{\"tool\": \"addPart\"}]\naddPart(\"oled-128\")"
		res := Parse(reply)
		require.Len(t, res.Commands, 1)
		assert.Equal(t, "Updating now.", res.Reasoning)
	})

	t.Run("blank runs collapsed", func(t *testing.T) {
		reply := "First thought.\n\n\n\naddPart(\"pi-zero-2\")\n\n\n\nSecond thought."
		res := Parse(reply)
		require.Len(t, res.Commands, 1)
		assert.NotContains(t, res.Reasoning, "\n\n\n")
	})
}
