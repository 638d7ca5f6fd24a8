package contextual

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the static generation configuration attached to a label.
type Profile struct {
	Label     Label    `json:"label" yaml:"-"`
	Phrases   []string `json:"phrases" yaml:"phrases"`
	Formality string   `json:"formality" yaml:"formality"`
	MaxLength int      `json:"max_length" yaml:"max_length"`
}

// Profiles maps every label to its profile.
type Profiles map[Label]Profile

func DefaultProfiles() Profiles {
	return Profiles{
		LabelWork: {
			Label:     LabelWork,
			Phrases:   []string{"Could you please clarify", "I'll follow up on that", "Let's schedule a meeting"},
			Formality: "high",
			MaxLength: 15,
		},
		LabelSocial: {
			Label:     LabelSocial,
			Phrases:   []string{"How are you doing", "Want to grab coffee", "That sounds fun"},
			Formality: "casual",
			MaxLength: 25,
		},
		LabelGeneral: {
			Label:     LabelGeneral,
			Phrases:   []string{"I need help with", "Could you please", "Thank you"},
			Formality: "medium",
			MaxLength: 20,
		},
	}
}

// For returns the profile of l, falling back to the general profile.
func (p Profiles) For(l Label) Profile {
	if prof, ok := p[l]; ok {
		return prof
	}
	if prof, ok := p[LabelGeneral]; ok {
		return prof
	}
	return DefaultProfiles()[LabelGeneral]
}

// LoadProfiles reads a YAML document keyed by label and overlays it on the defaults.
// Fields left empty keep their default value.
func LoadProfiles(path string) (Profiles, error) {
	out := DefaultProfiles()
	path = strings.TrimSpace(path)
	if path == "" {
		return out, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	return overlayProfiles(out, raw)
}

func overlayProfiles(base Profiles, raw []byte) (Profiles, error) {
	var doc map[string]Profile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse profiles file: %w", err)
	}
	for key, override := range doc {
		label, err := ParseLabel(key)
		if err != nil {
			return nil, err
		}
		prof := base[label]
		if len(override.Phrases) > 0 {
			prof.Phrases = append([]string(nil), override.Phrases...)
		}
		if strings.TrimSpace(override.Formality) != "" {
			prof.Formality = strings.TrimSpace(override.Formality)
		}
		if override.MaxLength < 0 {
			return nil, fmt.Errorf("profile %q: max_length must be positive", key)
		}
		if override.MaxLength > 0 {
			prof.MaxLength = override.MaxLength
		}
		base[label] = prof
	}
	return base, nil
}
