// Package client talks to the insurance portal's HTTP API: form schemas,
// submission, the submissions listing and the states lookup.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/devotel/go-insurance-forms/pkg/model"
	"github.com/devotel/go-insurance-forms/pkg/session"
	"github.com/devotel/go-insurance-forms/pkg/submissions"
)

const (
	formsPath       = "/api/insurance/forms"
	submitPath      = "/api/insurance/forms/submit"
	submissionsPath = "/api/insurance/forms/submissions"
	statesPath      = "/api/getStates"

	defaultTimeout = 15 * time.Second
)

// Client is the portal API client. It implements session.Submitter and, via
// FetchOptions, the dependent-options fetcher.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger overrides the slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a Client for the given portal base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// FetchForms retrieves every published form schema, normalized and validated.
func (c *Client) FetchForms(ctx context.Context) ([]model.FormSchema, error) {
	body, err := c.get(ctx, formsPath, nil)
	if err != nil {
		return nil, err
	}
	schemas, err := model.ParseFormSchemas(body)
	if err != nil {
		return nil, fmt.Errorf("client: decode forms: %w", err)
	}
	return schemas, nil
}

// FetchForm retrieves one schema. An empty formType selects the first
// published form; otherwise the form whose id matches is returned.
func (c *Client) FetchForm(ctx context.Context, formType string) (model.FormSchema, error) {
	schemas, err := c.FetchForms(ctx)
	if err != nil {
		return model.FormSchema{}, err
	}
	if len(schemas) == 0 {
		return model.FormSchema{}, fmt.Errorf("client: portal published no forms")
	}
	if formType == "" {
		return schemas[0], nil
	}
	for _, schema := range schemas {
		if schema.FormID == formType {
			return schema, nil
		}
	}
	return model.FormSchema{}, fmt.Errorf("client: no form with id %q", formType)
}

// SubmitForm posts finished form values. It satisfies session.Submitter.
func (c *Client) SubmitForm(ctx context.Context, values model.FormValues) (session.Receipt, error) {
	payload, err := json.Marshal(values)
	if err != nil {
		return session.Receipt{}, fmt.Errorf("client: encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(payload))
	if err != nil {
		return session.Receipt{}, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return session.Receipt{}, err
	}

	var receipt session.Receipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		return session.Receipt{}, fmt.Errorf("client: decode submit response: %w", err)
	}
	if !receipt.Success {
		return session.Receipt{}, fmt.Errorf("client: portal rejected submission")
	}
	return receipt, nil
}

// FetchSubmissions retrieves the full submissions table.
func (c *Client) FetchSubmissions(ctx context.Context) (submissions.TableResponse, error) {
	body, err := c.get(ctx, submissionsPath, nil)
	if err != nil {
		return submissions.TableResponse{}, err
	}
	var resp submissions.TableResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return submissions.TableResponse{}, fmt.Errorf("client: decode submissions: %w", err)
	}
	return resp, nil
}

// statesResponse tolerates both string lists and value/label objects.
type statesResponse struct {
	Country string         `json:"country"`
	States  []model.Option `json:"states"`
}

// FetchOptions resolves the states for a country. It satisfies the
// dependent-options fetcher contract: an error leaves the caller's current
// options untouched.
func (c *Client) FetchOptions(ctx context.Context, country string) ([]model.Option, error) {
	body, err := c.get(ctx, statesPath, url.Values{"country": {country}})
	if err != nil {
		return nil, err
	}
	var resp statesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("client: decode states: %w", err)
	}
	return resp.States, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("client: read %s response: %w", req.URL.Path, err)
	}
	c.logger.Debug("portal request",
		"method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("client: %s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return body, nil
}
