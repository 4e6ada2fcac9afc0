// Package command extracts typed drafting commands from raw assistant text.
//
// The assistant is prompted to embed pseudo-function calls in its replies:
//
//	initializeDraft("Drone Build", "a 5-inch freestyle quad")
//	addPart("drone-motor-1", 4)
//	removePart("b1f0c2...")
//
// Parse splits a reply into (reasoning text, ordered commands). It is
// deliberately tolerant: quoting is permissive, trailing semicolons are
// optional, malformed calls are left in the reasoning text untouched, and
// parsing never fails the caller.
package command

import (
	"regexp"
	"strconv"
	"strings"

	"partforge/internal/logging"
)

// Kind discriminates the command union.
type Kind string

const (
	KindInitDraft  Kind = "init_draft"
	KindAddPart    Kind = "add_part"
	KindRemovePart Kind = "remove_part"
)

// Command is one typed operation extracted from assistant text.
type Command struct {
	Kind Kind

	// KindInitDraft
	Name         string
	Requirements string

	// KindAddPart
	PartID   string
	Quantity int

	// KindRemovePart
	InstanceID string
}

// Result is the outcome of parsing one assistant reply.
type Result struct {
	Reasoning string
	Commands  []Command
}

// FallbackReasoning is returned when the assistant produced no usable text.
const FallbackReasoning = "I've updated the draft as requested."

// arg matches one call argument: double-quoted, single-quoted, or bare.
const arg = `\s*(?:"([^"]*)"|'([^']*)'|([^,()"']*?))\s*`

var (
	reInit   = regexp.MustCompile(`initializeDraft\s*\(` + arg + `,` + arg + `\)\s*;?`)
	reAdd    = regexp.MustCompile(`addPart\s*\(` + arg + `(?:,` + arg + `)?\)\s*;?`)
	reRemove = regexp.MustCompile(`removePart\s*\(` + arg + `\)\s*;?`)
)

type span struct {
	start, end int
	cmd        Command
}

// Parse extracts all commands from text in first-seen order and returns the
// remaining prose, scrubbed of formatting artifacts. Pure function; never
// returns an error.
func Parse(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Reasoning: FallbackReasoning}
	}

	var spans []span
	spans = append(spans, collect(reInit, text, buildInit)...)
	spans = append(spans, collect(reAdd, text, buildAdd)...)
	spans = append(spans, collect(reRemove, text, buildRemove)...)
	sortSpans(spans)

	commands := make([]Command, 0, len(spans))
	var reasoning strings.Builder
	last := 0
	for _, s := range spans {
		reasoning.WriteString(text[last:s.start])
		commands = append(commands, s.cmd)
		last = s.end
	}
	reasoning.WriteString(text[last:])

	out := scrub(reasoning.String())
	if out == "" {
		out = FallbackReasoning
	}

	logging.ParserDebug("parsed reply: commands=%d reasoning_len=%d", len(commands), len(out))
	return Result{Reasoning: out, Commands: commands}
}

type builder func(args []string) (Command, bool)

// collect runs one grammar over the text and yields the matched spans.
// Submatch triples (dquote, squote, bare) are flattened to one value each.
func collect(re *regexp.Regexp, text string, build builder) []span {
	var spans []span
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		argCount := (len(m) - 2) / 6
		args := make([]string, argCount)
		for i := 0; i < argCount; i++ {
			args[i] = pickGroup(text, m, i)
		}
		cmd, ok := build(args)
		if !ok {
			continue // Malformed call stays in the reasoning text
		}
		spans = append(spans, span{start: m[0], end: m[1], cmd: cmd})
	}
	return spans
}

// pickGroup returns the first present alternative of argument i.
func pickGroup(text string, m []int, i int) string {
	base := 2 + i*6
	for g := 0; g < 3; g++ {
		lo, hi := m[base+g*2], m[base+g*2+1]
		if lo >= 0 && hi > lo {
			return strings.TrimSpace(text[lo:hi])
		}
	}
	return ""
}

func buildInit(args []string) (Command, bool) {
	if len(args) < 2 || args[0] == "" {
		return Command{}, false
	}
	return Command{Kind: KindInitDraft, Name: args[0], Requirements: args[1]}, true
}

func buildAdd(args []string) (Command, bool) {
	if len(args) < 1 || args[0] == "" {
		return Command{}, false
	}
	qty := 1
	if len(args) > 1 && args[1] != "" {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			qty = n
		}
	}
	return Command{Kind: KindAddPart, PartID: args[0], Quantity: qty}, true
}

func buildRemove(args []string) (Command, bool) {
	if len(args) < 1 || args[0] == "" {
		return Command{}, false
	}
	return Command{Kind: KindRemovePart, InstanceID: args[0]}, true
}

func sortSpans(spans []span) {
	// Insertion sort keeps first-seen order stable; command lists are short.
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j].start < spans[j-1].start; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
}

// =============================================================================
// RESIDUAL NOISE SCRUBBING
// =============================================================================
// After excision the assistant often leaves behind headers announcing a tool
// section, empty code fences, stray JSON arrays, or dangling punctuation.

var (
	reToolHeading  = regexp.MustCompile(`(?mi)^#{0,6}\s*\**\s*(tool|function)\s*calls?\s*\**\s*:?\s*$\n?`)
	reCommandFence = regexp.MustCompile("(?s)```[a-zA-Z]*\n?.*?```")
	reToolJSON     = regexp.MustCompile(`(?m)^\s*\[\s*\{[^\n]*"tool"[^\n]*\}\s*\]\s*$\n?`)
	reEmptyFence   = regexp.MustCompile("```[a-zA-Z]*\\s*```")
	reEmptyComment = regexp.MustCompile(`(?m)^\s*(//|#)\s*$\n?`)
	reLoneSemi     = regexp.MustCompile(`(?m)^\s*;\s*$\n?`)
	reTrailingWS   = regexp.MustCompile(`(?m)[ \t]+$`)
	reBlankRuns    = regexp.MustCompile(`\n{3,}`)
)

var commandKeywords = []string{"initializeDraft", "addPart", "removePart"}

func scrub(text string) string {
	text = reToolHeading.ReplaceAllString(text, "")
	text = reCommandFence.ReplaceAllStringFunc(text, func(block string) string {
		for _, kw := range commandKeywords {
			if strings.Contains(block, kw) {
				return ""
			}
		}
		return block // Unrelated code fences are real content
	})
	// Excised commands can leave a fence holding nothing but whitespace.
	text = reEmptyFence.ReplaceAllString(text, "")
	text = reToolJSON.ReplaceAllString(text, "")
	text = reEmptyComment.ReplaceAllString(text, "")
	text = reLoneSemi.ReplaceAllString(text, "")
	text = reTrailingWS.ReplaceAllString(text, "")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
