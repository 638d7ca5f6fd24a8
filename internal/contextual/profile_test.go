package contextual

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultProfiles(t *testing.T) {
	p := DefaultProfiles()
	if got := p.For(LabelWork); got.Formality != "high" || got.MaxLength != 15 || len(got.Phrases) != 3 {
		t.Fatalf("work profile = %+v", got)
	}
	if got := p.For(Label("bogus")); got.Label != LabelGeneral {
		t.Fatalf("For(bogus).Label = %q, want general", got.Label)
	}
}

func TestLoadProfilesOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	doc := "social:\n  formality: relaxed\n  max_length: 30\nWORK:\n  phrases:\n    - Noted\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}
	social := p.For(LabelSocial)
	if social.Formality != "relaxed" || social.MaxLength != 30 || len(social.Phrases) != 3 {
		t.Fatalf("social profile = %+v", social)
	}
	work := p.For(LabelWork)
	if len(work.Phrases) != 1 || work.Phrases[0] != "Noted" || work.MaxLength != 15 {
		t.Fatalf("work profile = %+v", work)
	}
}

func TestLoadProfilesRejectsUnknownLabel(t *testing.T) {
	_, err := overlayProfiles(DefaultProfiles(), []byte("sports:\n  formality: loud\n"))
	if !errors.Is(err, ErrUnknownLabel) {
		t.Fatalf("error = %v, want ErrUnknownLabel", err)
	}
}

func TestLoadProfilesEmptyPath(t *testing.T) {
	p, err := LoadProfiles("  ")
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}
	if len(p) != 3 {
		t.Fatalf("len(profiles) = %d, want 3", len(p))
	}
}
