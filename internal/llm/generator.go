package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/ent0n29/aac/internal/capability"
)

// Generator produces phrase suggestions with a chat model.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

type suggestionsReply struct {
	Suggestions []string `json:"suggestions"`
}

func (g *Generator) Generate(ctx context.Context, prompt string, settings capability.GenerationSettings) ([]string, error) {
	n := settings.NumReturn
	if n <= 0 {
		n = 1
	}
	maxWords := settings.MaxLength
	if maxWords <= 0 {
		maxWords = 20
	}
	content, err := g.client.completeJSON(ctx, "generate", completion{
		system:      generatorPrompt(n, maxWords, settings),
		user:        prompt,
		temperature: float32(settings.Temperature),
		topP:        float32(settings.TopP),
		maxTokens:   64 + n*maxWords*3,
	})
	if err != nil {
		return nil, err
	}
	var reply suggestionsReply
	if err := sonic.UnmarshalString(strings.TrimSpace(content), &reply); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	out := make([]string, 0, len(reply.Suggestions))
	for _, s := range reply.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func generatorPrompt(n, maxWords int, settings capability.GenerationSettings) string {
	var b strings.Builder
	b.WriteString("You suggest short phrases a person could say next, for someone using a communication aid.\n")
	fmt.Fprintf(&b, "Write %d distinct suggestions of at most %d words each.\n", n, maxWords)
	if f := strings.TrimSpace(settings.Formality); f != "" {
		fmt.Fprintf(&b, "Formality: %s.\n", f)
	}
	if len(settings.Examples) > 0 {
		fmt.Fprintf(&b, "Typical phrases in this context: %s.\n", strings.Join(settings.Examples, "; "))
	}
	b.WriteString(`Reply with a JSON object {"suggestions": [string, ...]}.`)
	return b.String()
}
