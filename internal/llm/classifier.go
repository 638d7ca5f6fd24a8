package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/ent0n29/aac/internal/capability"
)

const classifierPrompt = `You label short messages typed by a user of a communication aid.
Choose exactly one context: "work" (office, colleagues, meetings, deadlines), "social" (friends, family, leisure) or "general" (anything else).
Reply with a JSON object {"label": string, "confidence": number between 0 and 1}.`

// Classifier labels utterances with a chat model.
type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) Classify(ctx context.Context, text string) (capability.Prediction, error) {
	content, err := c.client.completeJSON(ctx, "classify", completion{
		system:    classifierPrompt,
		user:      text,
		maxTokens: 32,
	})
	if err != nil {
		return capability.Prediction{}, err
	}
	return parsePrediction(content)
}

func parsePrediction(content string) (capability.Prediction, error) {
	var pred capability.Prediction
	if err := sonic.UnmarshalString(strings.TrimSpace(content), &pred); err != nil {
		return capability.Prediction{}, fmt.Errorf("decode classification: %w", err)
	}
	pred.Label = strings.ToLower(strings.TrimSpace(pred.Label))
	if pred.Label == "" {
		return capability.Prediction{}, fmt.Errorf("decode classification: missing label")
	}
	pred.Confidence = clamp01(pred.Confidence)
	return pred, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
