package usecase

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
)

// VoiceCatalog is a read-only list of selectable voices.
type VoiceCatalog struct {
	samples []model.VoiceSample
}

// LoadVoiceCatalog reads a JSON array of voice samples. An empty path yields
// an empty catalog.
func LoadVoiceCatalog(path string) (*VoiceCatalog, error) {
	if path == "" {
		return &VoiceCatalog{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open voice catalog: %w", err)
	}
	defer f.Close()
	return ReadVoiceCatalog(f)
}

func ReadVoiceCatalog(r io.Reader) (*VoiceCatalog, error) {
	var samples []model.VoiceSample
	if err := json.NewDecoder(r).Decode(&samples); err != nil {
		return nil, fmt.Errorf("decode voice catalog: %w", err)
	}
	return &VoiceCatalog{samples: samples}, nil
}

// Filter returns samples matching every non-empty criterion, case-insensitively.
func (c *VoiceCatalog) Filter(language, gender, typ string) []model.VoiceSample {
	out := []model.VoiceSample{}
	if c == nil {
		return out
	}
	for _, s := range c.samples {
		if s.Matches(language, gender, typ) {
			out = append(out, s)
		}
	}
	return out
}

func (c *VoiceCatalog) Find(name string) (model.VoiceSample, error) {
	if c != nil {
		for _, s := range c.samples {
			if strings.EqualFold(s.VoiceName, strings.TrimSpace(name)) {
				return s, nil
			}
		}
	}
	return model.VoiceSample{}, domain.ErrNotFound
}
