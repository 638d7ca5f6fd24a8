package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/ent0n29/aac/internal/capability"
)

const extractorPrompt = `Extract named entities from the user's message.
Only use the types PERSON, ORG and GPE (countries, cities, places).
Reply with a JSON object {"entities": [{"text": string, "type": string}, ...]} in order of appearance.`

// Extractor finds named entities with a chat model.
type Extractor struct {
	client *Client
}

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

type entitiesReply struct {
	Entities []capability.Entity `json:"entities"`
}

func (x *Extractor) Extract(ctx context.Context, text string) ([]capability.Entity, error) {
	content, err := x.client.completeJSON(ctx, "extract", completion{
		system:    extractorPrompt,
		user:      text,
		maxTokens: 256,
	})
	if err != nil {
		return nil, err
	}
	var reply entitiesReply
	if err := sonic.UnmarshalString(strings.TrimSpace(content), &reply); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	for i := range reply.Entities {
		reply.Entities[i].Text = strings.TrimSpace(reply.Entities[i].Text)
		reply.Entities[i].Type = strings.ToUpper(strings.TrimSpace(reply.Entities[i].Type))
	}
	return capability.FilterEntities(reply.Entities), nil
}
