package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sailing-innocent/SailZen/internal/pkg/apperr"
	"github.com/sailing-innocent/SailZen/internal/pkg/httpx"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
	"github.com/sailing-innocent/SailZen/internal/utils"
)

// EntityProposal is one extracted-entity suggestion from the extraction
// source. Confidence 0 means "not supplied"; ingestion applies the default.
type EntityProposal struct {
	CanonicalName    string   `json:"canonical_name"`
	EntityType       string   `json:"entity_type"`
	Aliases          []string `json:"aliases"`
	FirstMentionText string   `json:"first_mention_text"`
	Confidence       float64  `json:"confidence"`
}

// ExtractionClient is the only contract the pipeline has with the language
// model: text plus optional surrounding context in, proposals out.
type ExtractionClient interface {
	Extract(ctx context.Context, text, contextText string) ([]EntityProposal, error)
	Model() string
}

type openaiExtractionClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
	prompts    *extractionPrompts
}

// NewOpenAIExtractionClient builds an extraction client against any
// OpenAI-compatible chat-completions endpoint.
func NewOpenAIExtractionClient(log *logger.Logger) (ExtractionClient, error) {
	apiKey := utils.GetEnv("EXTRACTOR_API_KEY", "", log)
	if apiKey == "" {
		return nil, fmt.Errorf("missing EXTRACTOR_API_KEY")
	}
	baseURL := utils.GetEnv("EXTRACTOR_BASE_URL", "https://api.openai.com/v1", log)
	model := utils.GetEnv("EXTRACTOR_MODEL", "gpt-4o-mini", log)
	timeoutSec := utils.GetEnvAsInt("EXTRACTOR_TIMEOUT_SECONDS", 60, log)
	maxRetries := utils.GetEnvAsInt("EXTRACTOR_MAX_RETRIES", 3, log)

	prompts, err := loadExtractionPrompts(log)
	if err != nil {
		return nil, fmt.Errorf("load extraction prompts: %w", err)
	}

	return &openaiExtractionClient{
		log:        log.With("service", "ExtractionClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
		prompts:    prompts,
	}, nil
}

func (c *openaiExtractionClient) Model() string { return c.model }

type extractorHTTPError struct {
	StatusCode int
	Body       string
}

func (e *extractorHTTPError) Error() string {
	return fmt.Sprintf("extractor http %d: %s", e.StatusCode, e.Body)
}

func (e *extractorHTTPError) HTTPStatusCode() int { return e.StatusCode }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *openaiExtractionClient) Extract(ctx context.Context, text, contextText string) ([]EntityProposal, error) {
	system, user, err := c.prompts.render(text, contextText)
	if err != nil {
		return nil, err
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.3,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := httpx.JitterSleep(time.Duration(attempt) * time.Second)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		content, err := c.callOnce(ctx, payload)
		if err != nil {
			lastErr = err
			if errors.Is(err, context.Canceled) || !httpx.IsRetryableError(err) {
				break
			}
			c.log.Warn("extraction call failed, retrying", "attempt", attempt+1, "error", err)
			continue
		}

		proposals, err := parseProposals(content)
		if err != nil {
			return nil, err
		}
		c.log.Info("extraction finished", "proposals", len(proposals), "text_chars", len(text))
		return proposals, nil
	}

	return nil, apperr.Unavailablef("extraction source unavailable: %v", lastErr)
}

func (c *openaiExtractionClient) callOnce(ctx context.Context, payload chatRequest) (string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &extractorHTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode extractor response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("extractor response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// parseProposals decodes the model's JSON answer, tolerating markdown code
// fences around the payload, and drops malformed entries.
func parseProposals(content string) ([]EntityProposal, error) {
	raw := strings.TrimSpace(content)

	var decoded []map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		stripped := stripCodeFences(raw)
		if err := json.Unmarshal([]byte(stripped), &decoded); err != nil {
			return nil, fmt.Errorf("could not parse proposals from extractor response: %w", err)
		}
	}

	proposals := make([]EntityProposal, 0, len(decoded))
	for _, entry := range decoded {
		name, _ := entry["canonical_name"].(string)
		entityType, _ := entry["entity_type"].(string)
		if name == "" || entityType == "" {
			continue
		}
		p := EntityProposal{
			CanonicalName: name,
			EntityType:    entityType,
		}
		if mention, ok := entry["first_mention_text"].(string); ok {
			p.FirstMentionText = mention
		}
		if conf, ok := entry["confidence"].(float64); ok {
			p.Confidence = conf
		}
		if aliases, ok := entry["aliases"].([]any); ok {
			for _, a := range aliases {
				if s, ok := a.(string); ok {
					p.Aliases = append(p.Aliases, s)
				}
			}
		}
		proposals = append(proposals, p)
	}
	return proposals, nil
}

func stripCodeFences(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
