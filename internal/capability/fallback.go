package capability

import (
	"context"
	"errors"
	"fmt"
)

// FallbackGenerator tries a primary generator first and falls back on error.
type FallbackGenerator struct {
	primary  Generator
	fallback Generator
}

func NewFallbackGenerator(primary, fallback Generator) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, fallback: fallback}
}

func (g *FallbackGenerator) Generate(ctx context.Context, prompt string, settings GenerationSettings) ([]string, error) {
	if g == nil || g.primary == nil {
		if g != nil && g.fallback != nil {
			return g.fallback.Generate(ctx, prompt, settings)
		}
		return nil, fmt.Errorf("fallback generator misconfigured: %w", ErrUnavailable)
	}
	out, err := g.primary.Generate(ctx, prompt, settings)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if g.fallback == nil {
		return nil, err
	}
	fbOut, fbErr := g.fallback.Generate(ctx, prompt, settings)
	if fbErr != nil {
		return nil, fmt.Errorf("primary generator error: %w; fallback generator error: %v", err, fbErr)
	}
	return fbOut, nil
}
