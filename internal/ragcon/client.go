// Package ragcon is the client for the construction-safety generation service.
package ragcon

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ragcon/safety-assistant/internal/fetch"
	"github.com/ragcon/safety-assistant/internal/parsing"
	"github.com/ragcon/safety-assistant/internal/types"
)

// Endpoint paths of the generation service.
const (
	PathRiskAssessment = "/risk-assessment"
	PathAccidentCases  = "/accident-cases"
	PathPrecautions    = "/precautions"
	PathChecklist      = "/checklist"
	PathManagement     = "/management"
	PathChat           = "/ragcon"
)

var sectionPaths = map[types.TbmKey]string{
	types.TbmPrecautions: PathPrecautions,
	types.TbmChecklist:   PathChecklist,
	types.TbmManagement:  PathManagement,
}

// Client calls the generation service endpoints.
type Client struct {
	baseURL string
	opts    *fetch.Options
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts *fetch.Options) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	if opts == nil {
		opts = fetch.DefaultOptions()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		opts:    opts,
	}, nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RiskAssessment asks for the hazards of a work process.
func (c *Client) RiskAssessment(ctx context.Context, process string) (*parsing.HazardPayload, error) {
	result, err := c.generate(ctx, PathRiskAssessment, process)
	if err != nil {
		return nil, err
	}
	return parsing.DecodeHazards(result.Body)
}

// AccidentCaseIDs asks for the case numbers of accidents relevant to a work
// process.
func (c *Client) AccidentCaseIDs(ctx context.Context, process string) ([]types.CaseNumber, error) {
	result, err := c.generate(ctx, PathAccidentCases, process)
	if err != nil {
		return nil, err
	}
	return parsing.DecodeCaseIDs(result.Body)
}

// TbmSection asks for one section of a TBM briefing. The response object is
// returned undecoded so the caller can merge sections.
func (c *Client) TbmSection(ctx context.Context, key types.TbmKey, process string) (map[string]any, error) {
	path, ok := sectionPaths[key]
	if !ok {
		return nil, fmt.Errorf("unknown TBM section %q", key)
	}
	result, err := c.generate(ctx, path, process)
	if err != nil {
		return nil, err
	}
	return parsing.DecodeObject(result.Body)
}

// Ask sends a free-text question to the chat endpoint.
func (c *Client) Ask(ctx context.Context, question string) (*types.ChatAnswer, error) {
	req := types.ChatRequest{Question: strings.TrimSpace(question)}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chat request: %w", err)
	}
	result, err := c.post(ctx, PathChat, req)
	if err != nil {
		return nil, err
	}
	return parsing.DecodeChatAnswer(result.Body)
}

func (c *Client) generate(ctx context.Context, path, process string) (*fetch.Result, error) {
	req := types.NewGenerationRequest(strings.TrimSpace(process))
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation request: %w", err)
	}
	return c.post(ctx, path, req)
}

// post sends payload and insists on a JSON response; every endpoint of the
// service is structured.
func (c *Client) post(ctx context.Context, path string, payload any) (*fetch.Result, error) {
	endpoint := c.baseURL + path
	result, err := fetch.PostJSON(ctx, endpoint, payload, c.opts)
	if err != nil {
		return result, err
	}
	if !result.IsJSON() {
		return result, &parsing.ShapeError{
			Message: fmt.Sprintf("%s answered with %q instead of JSON", path, result.ContentType),
		}
	}
	return result, nil
}
