package usecase

import (
	"math"
	"strings"

	"shorts-studio/internal/domain/model"
)

const (
	DefaultMinCaptionSeconds = 2.0

	captionLeadIn     = 0.5
	captionGap        = 0.2
	captionTailMargin = 0.1
	captionMinWords   = 4
)

// ChunkCaptions splits narration into ordered, non-overlapping caption
// segments that end before total seconds. Words that no longer fit are left
// uncaptioned; the narration audio itself is unaffected.
func ChunkCaptions(narration string, total, minSegment float64) []model.CaptionSegment {
	words := strings.Fields(narration)
	if len(words) == 0 || total <= 0 {
		return nil
	}
	if minSegment <= 0 {
		minSegment = DefaultMinCaptionSeconds
	}

	wps := math.Max(1, float64(len(words))/total)
	size := int(math.Max(captionMinWords, math.Round(wps*minSegment)))

	var segs []model.CaptionSegment
	start := captionLeadIn
	for i := 0; i < len(words); i += size {
		end := min(i+size, len(words))
		dur := math.Max(minSegment, float64(end-i)/wps)
		if start+dur > total {
			dur = total - start - captionTailMargin
		}
		if dur <= 0 {
			break
		}
		segs = append(segs, model.CaptionSegment{
			Text:     strings.Join(words[i:end], " "),
			Start:    start,
			Duration: dur,
		})
		start += dur + captionGap
	}
	return segs
}
