package ai

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"strings"

	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/adapter"
)

var (
	_ adapter.ImageGenerator = (*NoopAIAdapter)(nil)
	_ adapter.VoiceGenerator = (*NoopAIAdapter)(nil)
	_ adapter.TextGenerator  = (*NoopAIAdapter)(nil)
)

// NoopAIAdapter produces deterministic placeholder media for local runs:
// a solid-color frame per prompt, a silent WAV sized to the narration and a
// canned script.
type NoopAIAdapter struct {
	Width, Height int
}

func NewNoopAIAdapter() *NoopAIAdapter {
	return &NoopAIAdapter{Width: 360, Height: 640}
}

func (a *NoopAIAdapter) GenerateImage(ctx context.Context, prompt, style string) (*adapter.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := fnv.New32a()
	h.Write([]byte(prompt))
	sum := h.Sum32()
	fill := color.RGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 255}

	img := image.NewRGBA(image.Rect(0, 0, a.Width, a.Height))
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &adapter.Media{Data: buf.Bytes(), ContentType: "image/png"}, nil
}

// GenerateVoice returns silence lasting roughly as long as the text would
// take to read at 2.5 words per second.
func (a *NoopAIAdapter) GenerateVoice(ctx context.Context, text string, p model.VoiceParams) (*adapter.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	secs := float64(len(strings.Fields(text))) / 2.5
	if secs < 1 {
		secs = 1
	}
	return &adapter.Media{Data: silentWAV(secs, 16000), ContentType: "audio/wav"}, nil
}

func (a *NoopAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	n := 0
	for _, m := range messages {
		n += len(strings.Fields(m.Content))
	}
	return n, nil
}

func (a *NoopAIAdapter) Complete(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	topic := "the ocean"
	if len(messages) > 0 {
		topic = truncate(messages[len(messages)-1].Content, 60)
	}
	script := fmt.Sprintf(`<A wide establishing shot introducing %s> <Here is a short story about something worth your attention.>
<A close-up detail, warm light> <Small details are where the real story hides.>
<A slow pull back to the horizon> <Follow for more short stories like this one.>`, topic)
	return script, adapter.Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2}, nil
}

// silentWAV builds a mono 16-bit PCM WAV of the given length.
func silentWAV(seconds float64, rate int) []byte {
	samples := int(seconds * float64(rate))
	dataLen := samples * 2
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}
