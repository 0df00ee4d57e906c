//go:build !integration

package usecase_test

import (
	"testing"

	"shorts-studio/internal/usecase"
)

func TestScriptParser_Parse(t *testing.T) {
	p := usecase.NewScriptParser(0)

	t.Run("skips pairs with short narration", func(t *testing.T) {
		raw := `<A sunrise over the ocean> <Every morning the sea wakes up slowly.>
<A cat on a roof> <Meow.>
<City lights at night> <The city never really sleeps, it just dims.>`

		scenes := p.Parse(raw)
		if len(scenes) != 2 {
			t.Fatalf("expected 2 scenes, got %d: %+v", len(scenes), scenes)
		}
		if scenes[0].Visual != "A sunrise over the ocean" || scenes[1].Visual != "City lights at night" {
			t.Errorf("unexpected visuals: %+v", scenes)
		}
		for i, s := range scenes {
			if s.Index != i {
				t.Errorf("scene %d has index %d", i, s.Index)
			}
		}
	})

	t.Run("labels pin roles and are stripped", func(t *testing.T) {
		raw := `<Narration: orphan narration without a visual>
<Visual: a red kite> <narration: The kite climbs higher than anyone expected.>`

		scenes := p.Parse(raw)
		if len(scenes) != 1 {
			t.Fatalf("expected 1 scene, got %d", len(scenes))
		}
		if scenes[0].Visual != "a red kite" {
			t.Errorf("visual = %q", scenes[0].Visual)
		}
		if scenes[0].Narration != "The kite climbs higher than anyone expected." {
			t.Errorf("narration = %q", scenes[0].Narration)
		}
	})

	t.Run("second visual label replaces the first", func(t *testing.T) {
		raw := `<Visual description: draft> <Visual: final shot> <Dialogue: Here is the final narration.>`
		scenes := p.Parse(raw)
		if len(scenes) != 1 || scenes[0].Visual != "final shot" {
			t.Fatalf("unexpected scenes: %+v", scenes)
		}
	})

	t.Run("malformed tokens are dropped", func(t *testing.T) {
		raw := "<broken <A forest path> <Leaves whisper secrets to those who listen.> <unterminated"
		scenes := p.Parse(raw)
		if len(scenes) != 1 {
			t.Fatalf("expected 1 scene, got %d: %+v", len(scenes), scenes)
		}
		if scenes[0].Visual != "A forest path" {
			t.Errorf("visual = %q", scenes[0].Visual)
		}
	})

	t.Run("whitespace is collapsed", func(t *testing.T) {
		scenes := p.Parse("<  two\n  spaces >\n<  narration   spread\n over lines  >")
		if len(scenes) != 1 || scenes[0].Visual != "two spaces" || scenes[0].Narration != "narration spread over lines" {
			t.Fatalf("unexpected scenes: %+v", scenes)
		}
	})

	t.Run("no tokens yields empty non-nil slice", func(t *testing.T) {
		scenes := p.Parse("just prose, no brackets")
		if scenes == nil || len(scenes) != 0 {
			t.Fatalf("expected empty slice, got %#v", scenes)
		}
	})

	t.Run("narration length counts runes", func(t *testing.T) {
		// 10 runes, more bytes
		scenes := p.Parse("<visual> <éééééééééé>")
		if len(scenes) != 1 {
			t.Fatalf("expected 1 scene, got %d", len(scenes))
		}
	})
}
