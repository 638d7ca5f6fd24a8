package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilterEntities(t *testing.T) {
	in := []Entity{
		{Text: "John", Type: EntityPerson},
		{Text: "Monday", Type: "DATE"},
		{Text: "", Type: EntityOrg},
		{Text: "Paris", Type: EntityPlace},
	}
	want := []Entity{{Text: "John", Type: EntityPerson}, {Text: "Paris", Type: EntityPlace}}
	if diff := cmp.Diff(want, FilterEntities(in)); diff != "" {
		t.Fatalf("FilterEntities() mismatch (-want +got):\n%s", diff)
	}
}

func TestRuleExtractor(t *testing.T) {
	tests := []struct {
		text string
		want []Entity
	}{
		{
			text: "John from Microsoft wants to meet Sarah at Central Park tomorrow",
			want: []Entity{
				{Text: "John", Type: EntityPerson},
				{Text: "Microsoft", Type: EntityOrg},
				{Text: "Sarah", Type: EntityPerson},
				{Text: "Central Park", Type: EntityPlace},
			},
		},
		{
			text: "Can you email Acme Corp about Monday?",
			want: []Entity{{Text: "Acme Corp", Type: EntityOrg}},
		},
		{
			text: "I need help with this.",
			want: []Entity{},
		},
		{
			text: "Let's fly to New York. Maria will join",
			want: []Entity{
				{Text: "New York", Type: EntityPlace},
				{Text: "Maria", Type: EntityPerson},
			},
		},
	}
	x := NewRuleExtractor()
	for _, tt := range tests {
		got, err := x.Extract(context.Background(), tt.text)
		if err != nil {
			t.Fatalf("Extract(%q) error = %v", tt.text, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("Extract(%q) mismatch (-want +got):\n%s", tt.text, diff)
		}
	}
}

func TestStubGenerator(t *testing.T) {
	g := NewStubGenerator()
	got, err := g.Generate(context.Background(), "Current: hi", GenerationSettings{
		NumReturn: 3,
		Examples:  []string{"Thank you"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := []string{"Thank you", stubReplies[0], stubReplies[1]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Generate() mismatch (-want +got):\n%s", diff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Generate(ctx, "x", GenerationSettings{NumReturn: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Generate(canceled) error = %v, want context.Canceled", err)
	}
}

func TestFallbackGenerator(t *testing.T) {
	primary := &StaticGenerator{Err: ErrUnavailable}
	fallback := &StaticGenerator{Candidates: []string{"fallback reply"}}
	g := NewFallbackGenerator(primary, fallback)

	got, err := g.Generate(context.Background(), "p", GenerationSettings{NumReturn: 1})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if diff := cmp.Diff([]string{"fallback reply"}, got); diff != "" {
		t.Fatalf("Generate() mismatch (-want +got):\n%s", diff)
	}
	if p, _ := fallback.Last(); p != "p" {
		t.Fatalf("fallback prompt = %q, want p", p)
	}

	primary.Err = nil
	primary.Candidates = []string{"primary reply"}
	got, _ = g.Generate(context.Background(), "p", GenerationSettings{})
	if got[0] != "primary reply" {
		t.Fatalf("Generate() = %v, want primary reply", got)
	}
}

func TestFallbackGeneratorBothFail(t *testing.T) {
	g := NewFallbackGenerator(&StaticGenerator{Err: ErrUnavailable}, &StaticGenerator{Err: errors.New("boom")})
	if _, err := g.Generate(context.Background(), "p", GenerationSettings{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want wrapped ErrUnavailable", err)
	}
}

func TestMockClassifier(t *testing.T) {
	c := NewMockClassifier("work", 0.8)
	got, err := c.Classify(context.Background(), "x")
	if err != nil || got.Label != "work" || got.Confidence != 0.8 {
		t.Fatalf("Classify() = %+v, %v", got, err)
	}
	if c.Calls() != 1 {
		t.Fatalf("Calls() = %d, want 1", c.Calls())
	}
}
