package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"deskcore/pkg/domain"
)

// OpenAIConfig configures the OpenAI responses endpoint and HTTP behavior.
type OpenAIConfig struct {
	APIKey       string
	Model        string
	ResponsesURL string
	HTTPClient   *http.Client
}

type openAISuggester struct {
	cfg OpenAIConfig
}

// NewOpenAI builds a Suggester backed by the OpenAI responses API.
func NewOpenAI(cfg OpenAIConfig) (Suggester, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if strings.TrimSpace(cfg.ResponsesURL) == "" {
		cfg.ResponsesURL = "https://api.openai.com/v1/responses"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &openAISuggester{cfg: cfg}, nil
}

func (s *openAISuggester) Suggest(ctx context.Context, m domain.ModuleInstance) ([]string, error) {
	requestBody, err := json.Marshal(map[string]any{
		"model": s.cfg.Model,
		"input": prompt(m),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal suggest request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ResponsesURL, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("build suggest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Credential material is sent only as an Authorization header and is
	// never echoed in errors.
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	res, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("suggest request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, readErr := io.ReadAll(io.LimitReader(res.Body, 4096))
		if readErr != nil {
			return nil, fmt.Errorf("read suggest error body: %w", readErr)
		}
		return nil, fmt.Errorf("suggest request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode suggest response: %w", err)
	}
	outputText := strings.TrimSpace(payload.OutputText)
	if outputText == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if strings.TrimSpace(content.Text) != "" {
					outputText = strings.TrimSpace(content.Text)
					break
				}
			}
			if outputText != "" {
				break
			}
		}
	}
	if outputText == "" {
		return nil, fmt.Errorf("suggest response missing output text")
	}
	return splitSuggestions(outputText), nil
}
