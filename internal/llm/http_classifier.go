package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ent0n29/aac/internal/capability"
)

// HTTPClassifier calls a self-hosted text-classification server.
//
// Accepted reply shapes:
//
//	{"label": "work", "confidence": 0.92}
//	{"label": "work", "score": 0.92}
//	[{"label": "work", "score": 0.92}, ...]
//	[[{"label": "work", "score": 0.92}, ...]]
//
// For lists the highest score wins.
type HTTPClassifier struct {
	url    string
	client *http.Client
	retry  *Client
}

func NewHTTPClassifier(url string, maxRetries int, logger *zap.Logger) (*HTTPClassifier, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("classifier url missing: %w", capability.ErrUnavailable)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &HTTPClassifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		retry: &Client{
			attempts:  uint(maxRetries + 1),
			retryBase: defaultRetryBase,
			retryCap:  defaultRetryCap,
			logger:    logger,
		},
	}, nil
}

type classifyRequest struct {
	Text   string `json:"text"`
	Inputs string `json:"inputs"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, text string) (capability.Prediction, error) {
	payload, err := sonic.Marshal(classifyRequest{Text: text, Inputs: text})
	if err != nil {
		return capability.Prediction{}, fmt.Errorf("marshal request: %w", err)
	}
	var body []byte
	err = c.retry.do(ctx, "classify", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		res, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("send request: %w", err)
		}
		defer res.Body.Close()
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
			return &statusError{code: res.StatusCode, body: strings.TrimSpace(string(snippet))}
		}
		body, err = io.ReadAll(io.LimitReader(res.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		return nil
	})
	if err != nil {
		return capability.Prediction{}, err
	}
	return parseServerPrediction(body)
}

func parseServerPrediction(body []byte) (capability.Prediction, error) {
	if !gjson.ValidBytes(body) {
		return capability.Prediction{}, fmt.Errorf("decode classification: invalid json")
	}
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		first := root.Get("0")
		if first.IsArray() {
			root = first
		}
		best := capability.Prediction{Confidence: -1}
		root.ForEach(func(_, item gjson.Result) bool {
			if p, ok := predictionFrom(item); ok && p.Confidence > best.Confidence {
				best = p
			}
			return true
		})
		if best.Confidence < 0 {
			return capability.Prediction{}, fmt.Errorf("decode classification: no labels")
		}
		return best, nil
	}
	p, ok := predictionFrom(root)
	if !ok {
		return capability.Prediction{}, fmt.Errorf("decode classification: missing label")
	}
	return p, nil
}

func predictionFrom(item gjson.Result) (capability.Prediction, bool) {
	label := strings.ToLower(strings.TrimSpace(item.Get("label").String()))
	if label == "" {
		return capability.Prediction{}, false
	}
	score := item.Get("confidence")
	if !score.Exists() {
		score = item.Get("score")
	}
	return capability.Prediction{Label: label, Confidence: clamp01(score.Float())}, true
}
