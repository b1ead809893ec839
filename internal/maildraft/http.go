package maildraft

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

// HTTPConfig configures delivery of drafts to an external mail gateway.
type HTTPConfig struct {
	DraftURL   string
	AuthToken  string
	HTTPClient *http.Client
}

type httpDrafter struct {
	cfg HTTPConfig
}

// NewHTTP builds a Drafter that POSTs rendered drafts to a mail gateway.
func NewHTTP(cfg HTTPConfig) (Drafter, error) {
	if strings.TrimSpace(cfg.DraftURL) == "" {
		return nil, fmt.Errorf("draft url is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &httpDrafter{cfg: cfg}, nil
}

func (d *httpDrafter) Draft(ctx context.Context, m domain.ModuleInstance) (Draft, error) {
	draft, err := Render(m)
	if err != nil {
		return Draft{}, err
	}
	requestBody, err := json.Marshal(draft)
	if err != nil {
		return Draft{}, fmt.Errorf("marshal draft request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.DraftURL, bytes.NewReader(requestBody))
	if err != nil {
		return Draft{}, fmt.Errorf("build draft request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.cfg.AuthToken)
	}
	res, err := d.cfg.HTTPClient.Do(req)
	if err != nil {
		return Draft{}, fmt.Errorf("draft request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, readErr := io.ReadAll(io.LimitReader(res.Body, 4096))
		if readErr != nil {
			return Draft{}, fmt.Errorf("read draft error body: %w", readErr)
		}
		return Draft{}, fmt.Errorf("draft request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return draft, nil
}
