// Package fetch provides the JSON-over-HTTP transport used to reach the safety
// generation service.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTimeout is the default HTTP request timeout. Generation endpoints run
// a model per request and can take a while.
const DefaultTimeout = 90 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "SafetyAgent/1.0"

// DefaultMaxBodyBytes caps how much of a response body is read.
const DefaultMaxBodyBytes = 10 << 20

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// snippetLimit bounds the response text carried in error messages.
const snippetLimit = 200

// Result holds the raw response of a POST.
type Result struct {
	URL         string
	RequestID   string
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsJSON reports whether the response declared a JSON content type.
func (r *Result) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(r.ContentType))
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// IsHTML reports whether the response declared an HTML content type.
func (r *Result) IsHTML() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "text/html")
}

// Text returns the body as text. HTML bodies are reduced to their main text.
func (r *Result) Text() string {
	if r.IsHTML() {
		if text, err := ExtractMainText(string(r.Body), DefaultTextSelectors()); err == nil {
			return text
		}
	}
	return strings.TrimSpace(string(r.Body))
}

// RemoteFailure is returned when the service answered with a non-2xx status.
type RemoteFailure struct {
	URL        string
	StatusCode int
	Snippet    string
}

func (e *RemoteFailure) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("API Error: %d from %s: %s", e.StatusCode, e.URL, e.Snippet)
	}
	return fmt.Sprintf("API Error: %d from %s", e.StatusCode, e.URL)
}

// RequestFailed is returned when the request could not be completed.
type RequestFailed struct {
	URL     string
	Message string
	Cause   error
}

func (e *RequestFailed) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("request to %s failed: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("request to %s failed: %s", e.URL, e.Message)
}

func (e *RequestFailed) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	Headers      map[string]string
	MaxBodyBytes int64
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// PostJSON posts payload as JSON to urlStr.
//
// A non-2xx status yields *RemoteFailure together with the result. Transport
// and read failures yield *RequestFailed. When ctx is cancelled the returned
// error is context.Canceled itself, so callers can tell a user abort apart
// from a failure.
func PostJSON(ctx context.Context, urlStr string, payload any, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &RequestFailed{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &RequestFailed{URL: urlStr, Message: "failed to encode request body", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, bytes.NewReader(body))
	if err != nil {
		return nil, &RequestFailed{URL: urlStr, Message: "failed to create request", Cause: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}
	if id := req.Header.Get(RequestIDHeader); id != "" {
		requestID = id
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if cancelled(ctx) {
			return nil, context.Canceled
		}
		return nil, &RequestFailed{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	limit := opts.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		if cancelled(ctx) {
			return nil, context.Canceled
		}
		return nil, &RequestFailed{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	zerolog.Ctx(ctx).Debug().
		Str("url", urlStr).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("request finished")

	result := &Result{
		URL:         urlStr,
		RequestID:   requestID,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        bodyBytes,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &RemoteFailure{
			URL:        urlStr,
			StatusCode: resp.StatusCode,
			Snippet:    truncate(result.Text(), snippetLimit),
		}
	}

	return result, nil
}

func cancelled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// ExtractMainText parses HTML and returns the main body text.
// It removes navigation and script noise, then finds content using contentSelectors.
// If no content selectors match, it falls back to the body element.
func ExtractMainText(html string, contentSelectors []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("nav, footer, header, script, style, noscript").Remove()

	var mainContent *goquery.Selection
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			mainContent = selection.First()
			break
		}
	}

	if mainContent == nil {
		mainContent = doc.Find("body")
	}

	return cleanWhitespace(mainContent.Text()), nil
}

// DefaultTextSelectors returns selectors for error pages served by proxies
// and application servers in front of the generation service.
func DefaultTextSelectors() []string {
	return []string{
		"main",
		"article",
		".error",
		"#error",
		"h1",
	}
}

// cleanWhitespace drops blank lines and trims the rest.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
