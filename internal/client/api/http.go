package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jobrefme/jobrefme-cli/internal/common"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

const defaultTimeout = 30 * time.Second

// HTTPClient is the concrete Client. Safe for concurrent use; holds no
// per-session state beyond the TokenSource callback.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     logging.Logger
}

type HTTPOption func(*HTTPClient)

// WithHTTPClient substitutes the underlying *http.Client (tests, proxies).
func WithHTTPClient(h *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.http = h }
}

// WithLogger attaches a logger; by default the client is silent.
func WithLogger(l logging.Logger) HTTPOption {
	return func(c *HTTPClient) { c.log = l }
}

// NewHTTPClient builds a client for the backend at baseURL. tokens may
// return "" to issue unauthenticated requests.
func NewHTTPClient(baseURL string, tokens TokenSource, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
		log:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do issues one JSON request and returns the raw response body for 2xx
// responses. 401 maps to common.ErrUnauthorized regardless of body.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.tokens(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, common.ErrUnauthorized
	case resp.StatusCode >= 400:
		var er errorResponse
		if err := json.Unmarshal(raw, &er); err == nil {
			if er.Error != "" {
				return nil, fmt.Errorf("%s %s: %s", method, path, er.Error)
			}
			if er.Message != "" {
				return nil, fmt.Errorf("%s %s: %s", method, path, er.Message)
			}
		}
		return nil, fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}

	return raw, nil
}

func (c *HTTPClient) FetchProfile(ctx context.Context) (*Profile, error) {
	raw, err := c.do(ctx, http.MethodGet, "/auth/profile", nil)
	if err != nil {
		return nil, err
	}
	return normalizeProfile(raw)
}

func (c *HTTPClient) StoreAPIKey(ctx context.Context, apiKey string) error {
	raw, err := c.do(ctx, http.MethodPost, "/user/gemini-key", map[string]string{"apiKey": apiKey})
	if err != nil {
		return err
	}
	return requireSuccess(raw, "store api key")
}

func (c *HTTPClient) DeleteAPIKey(ctx context.Context) error {
	raw, err := c.do(ctx, http.MethodDelete, "/user/gemini-key", nil)
	if err != nil {
		return err
	}
	return requireSuccess(raw, "delete api key")
}

func (c *HTTPClient) VerifyAPIKey(ctx context.Context) (bool, error) {
	raw, err := c.do(ctx, http.MethodGet, "/user/gemini-key/verify", nil)
	if err != nil {
		return false, err
	}
	var out struct {
		Success bool `json:"success"`
		HasKey  bool `json:"hasKey"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, err
	}
	return out.Success && out.HasKey, nil
}

func (c *HTTPClient) ListTemplates(ctx context.Context) ([]Template, error) {
	raw, err := c.do(ctx, http.MethodGet, "/user/templates", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []templateDTO `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	templates := make([]Template, 0, len(out.Data))
	for _, dto := range out.Data {
		templates = append(templates, dto.normalize())
	}
	return templates, nil
}

func (c *HTTPClient) CreateTemplate(ctx context.Context, t NewTemplate) (*Template, error) {
	raw, err := c.do(ctx, http.MethodPost, "/user/templates", t)
	if err != nil {
		return nil, err
	}
	return unmarshalTemplate(raw)
}

func (c *HTTPClient) UpdateTemplate(ctx context.Context, id string, patch TemplatePatch) (*Template, error) {
	raw, err := c.do(ctx, http.MethodPut, "/user/templates/"+id, patch)
	if err != nil {
		return nil, err
	}
	return unmarshalTemplate(raw)
}

func (c *HTTPClient) DeleteTemplate(ctx context.Context, id string) error {
	raw, err := c.do(ctx, http.MethodDelete, "/user/templates/"+id, nil)
	if err != nil {
		return err
	}
	return requireSuccess(raw, "delete template")
}

func (c *HTTPClient) ValidateJobURL(ctx context.Context, jobURL string) (bool, error) {
	raw, err := c.do(ctx, http.MethodPost, "/validate-job-url", map[string]string{"jobUrl": jobURL})
	if err != nil {
		return false, err
	}
	var out struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

func (c *HTTPClient) InitiateGeneration(ctx context.Context, jobURL string, templateID string) error {
	payload := map[string]string{"jobUrl": jobURL}
	if templateID != "" {
		payload["templateId"] = templateID
	}
	_, err := c.do(ctx, http.MethodPost, "/generate-referral", payload)
	return err
}

func (c *HTTPClient) FetchGenerationResult(ctx context.Context, jobURL string) (*Referral, error) {
	raw, err := c.do(ctx, http.MethodPost, "/generate-referral/result", map[string]string{"jobUrl": jobURL})
	if err != nil {
		return nil, err
	}

	var probe struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if probe.Status == "processing" {
		return nil, ErrProcessing
	}

	var referral Referral
	if err := json.Unmarshal(raw, &referral); err != nil {
		return nil, err
	}
	return &referral, nil
}

func (c *HTTPClient) GenerateFromContent(ctx context.Context, jobContent string) (*Referral, error) {
	raw, err := c.do(ctx, http.MethodPost, "/generate-referral/content", map[string]string{"jobContent": jobContent})
	if err != nil {
		return nil, err
	}
	var referral Referral
	if err := json.Unmarshal(raw, &referral); err != nil {
		return nil, err
	}
	return &referral, nil
}

func (c *HTTPClient) ClearCache(ctx context.Context, jobURL string) (bool, error) {
	raw, err := c.do(ctx, http.MethodPost, "/clear-cache", map[string]string{"jobUrl": jobURL})
	if err != nil {
		return false, err
	}
	var out struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

func unmarshalTemplate(raw []byte) (*Template, error) {
	var out struct {
		Data templateDTO `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	t := out.Data.normalize()
	return &t, nil
}

func requireSuccess(raw []byte, op string) error {
	var out struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("%s: backend reported failure", op)
	}
	return nil
}
