package usecase

import (
	"strings"
	"unicode/utf8"

	"shorts-studio/internal/domain/model"
)

// DefaultMinNarration is the shortest narration kept by the parser.
const DefaultMinNarration = 10

type tokenRole int

const (
	roleAny tokenRole = iota
	roleVisual
	roleNarration
)

type scriptToken struct {
	text string
	role tokenRole
}

type pairState int

const (
	expectVisual pairState = iota
	expectNarration
)

// ScriptParser extracts "<visual> <narration>" scene pairs from generated text.
// It never fails: malformed fragments are skipped.
type ScriptParser struct {
	minNarration int
}

func NewScriptParser(minNarration int) *ScriptParser {
	if minNarration <= 0 {
		minNarration = DefaultMinNarration
	}
	return &ScriptParser{minNarration: minNarration}
}

// Parse returns the valid scenes in source order with dense indexes.
func (p *ScriptParser) Parse(raw string) []model.Scene {
	scenes := []model.Scene{}
	state := expectVisual
	var visual string

	for _, tok := range scanTokens(raw) {
		switch state {
		case expectVisual:
			if tok.role == roleNarration {
				continue
			}
			visual = tok.text
			state = expectNarration
		case expectNarration:
			if tok.role == roleVisual {
				visual = tok.text
				continue
			}
			if p.keep(visual, tok.text) {
				scenes = append(scenes, model.Scene{Index: len(scenes), Visual: visual, Narration: tok.text})
			}
			visual = ""
			state = expectVisual
		}
	}
	return scenes
}

func (p *ScriptParser) keep(visual, narration string) bool {
	return visual != "" && narration != "" && utf8.RuneCountInString(narration) >= p.minNarration
}

// scanTokens returns the bodies of every closed <...> token. A '<' inside an
// open token restarts it; an unterminated token at the end is dropped.
func scanTokens(raw string) []scriptToken {
	var (
		out  []scriptToken
		buf  strings.Builder
		open bool
	)
	for _, r := range raw {
		switch {
		case r == '<':
			buf.Reset()
			open = true
		case r == '>' && open:
			out = append(out, classifyToken(buf.String()))
			buf.Reset()
			open = false
		case open:
			buf.WriteRune(r)
		}
	}
	return out
}

var tokenLabels = []struct {
	prefix string
	role   tokenRole
}{
	{"visual:", roleVisual},
	{"visual description:", roleVisual},
	{"narration:", roleNarration},
	{"dialogue:", roleNarration},
}

func classifyToken(body string) scriptToken {
	text := collapseSpace(body)
	lower := strings.ToLower(text)
	for _, l := range tokenLabels {
		if strings.HasPrefix(lower, l.prefix) {
			return scriptToken{text: strings.TrimSpace(text[len(l.prefix):]), role: l.role}
		}
	}
	return scriptToken{text: text, role: roleAny}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
