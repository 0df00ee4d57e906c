package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"shorts-studio/internal/domain"
)

// VoiceParams select and tune a text-to-speech voice.
type VoiceParams struct {
	Name         string  `json:"name,omitempty"`
	LanguageCode string  `json:"language_code,omitempty"`
	SpeakingRate float64 `json:"speaking_rate,omitempty"`
	Pitch        float64 `json:"pitch,omitempty"`
	VolumeGainDb float64 `json:"volume_gain_db,omitempty"`
}

// Validate checks provider-independent ranges. Zero values mean defaults.
func (p VoiceParams) Validate() error {
	if p.SpeakingRate != 0 && (p.SpeakingRate < 0.25 || p.SpeakingRate > 4) {
		return fmt.Errorf("speaking_rate %.2f out of range 0.25-4: %w", p.SpeakingRate, domain.ErrInvalidArgument)
	}
	if p.Pitch < -20 || p.Pitch > 20 {
		return fmt.Errorf("pitch %.1f out of range -20..20: %w", p.Pitch, domain.ErrInvalidArgument)
	}
	if p.VolumeGainDb < -96 || p.VolumeGainDb > 16 {
		return fmt.Errorf("volume_gain_db %.1f out of range -96..16: %w", p.VolumeGainDb, domain.ErrInvalidArgument)
	}
	return nil
}

// Encode renders the params as a metadata value.
func (p VoiceParams) Encode() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// DecodeVoiceParams reads a value written by Encode.
func DecodeVoiceParams(s string) (VoiceParams, error) {
	var p VoiceParams
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return VoiceParams{}, fmt.Errorf("decode voice params: %w", err)
	}
	return p, nil
}

// VoiceSample is a catalog entry a user can pick a voice from.
type VoiceSample struct {
	VoiceName    string `json:"voiceName"`
	LanguageCode string `json:"languageCode"`
	Gender       string `json:"gender"`
	Type         string `json:"type"`
	PreviewURL   string `json:"previewUrl"`
}

// Matches reports whether the sample fits every non-empty criterion.
func (v VoiceSample) Matches(language, gender, typ string) bool {
	eq := func(want, got string) bool {
		return want == "" || strings.EqualFold(strings.TrimSpace(want), got)
	}
	return eq(language, v.LanguageCode) && eq(gender, v.Gender) && eq(typ, v.Type)
}
