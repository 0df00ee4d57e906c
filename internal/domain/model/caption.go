package model

// CaptionSegment is a timed slice of narration shown on screen.
type CaptionSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

func (c CaptionSegment) End() float64 { return c.Start + c.Duration }
