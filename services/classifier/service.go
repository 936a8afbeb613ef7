package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/inboxkit/mailsort/config"
	"github.com/inboxkit/mailsort/interfaces"
	"github.com/inboxkit/mailsort/internal/enum"
	"github.com/inboxkit/mailsort/internal/logger"
	"github.com/inboxkit/mailsort/internal/tracing"
)

const (
	anthropicVersion = "2023-06-01"

	// maxAnswerTokens is sized for a single word answer.
	maxAnswerTokens = 10

	classifierPrompt = "Based on this email and its thread:\n" +
		"- If it asks the user to perform an action → respond with 'action_needed'\n" +
		"- If it provides useful information → respond with 'FYI'\n" +
		"- If it contains suspicious files or short URLs → respond with 'spam'\n" +
		"- Otherwise → respond with 'extra'\n\n" +
		"Return only one word: action_needed, FYI, spam, or extra.\n\n" +
		"Email content:\n"
)

type anthropicClassifier struct {
	log    logger.Logger
	config *config.AnthropicConfig
	client *http.Client
}

func NewClassifierService(cfg *config.AnthropicConfig, log logger.Logger) interfaces.ClassifierService {
	return &anthropicClassifier{
		log:    log,
		config: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ClassifyThread sends the combined conversation text for completion and maps
// the answer onto the label enum. Provider failures, unexpected answers and
// empty responses all degrade to the default label, never to an error.
func (s *anthropicClassifier) ClassifyThread(ctx context.Context, content string) enum.EmailLabel {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AnthropicClassifier.ClassifyThread")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	answer, err := s.complete(ctx, classifierPrompt+content)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Warnf("Classification failed, defaulting to %s: %v", enum.LabelExtra, err)
		return enum.LabelExtra
	}

	label, ok := enum.GetEmailLabel(strings.ToLower(strings.TrimSpace(answer)))
	if !ok {
		s.log.Warnf("Classifier answered %q, defaulting to %s", answer, enum.LabelExtra)
	}

	span.LogKV("result.label", label)
	return label
}

func (s *anthropicClassifier) complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(apiRequest{
		Model:     s.config.Model,
		MaxTokens: maxAnswerTokens,
		Messages:  []apiMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+"/v1/messages", bytes.NewBuffer(payload))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "unable to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	var response apiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal response")
	}
	if len(response.Content) == 0 {
		return "", errors.New("empty completion response")
	}

	return response.Content[0].Text, nil
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
