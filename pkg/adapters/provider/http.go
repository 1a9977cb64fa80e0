// Package provider implements data providers that answer data nodes over HTTP,
// such as member services and FHIR servers.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// maxBody bounds the size of a provider response.
const maxBody = 4 << 20

// HTTP calls a REST or FHIR endpoint. The call resource is resolved against
// BaseURL; params become query parameters.
type HTTP struct {
	baseURL *url.URL
	client  *http.Client
	headers http.Header
	logger  *slog.Logger
}

type Option func(*HTTP)

// WithClient sets the HTTP client. The default is http.DefaultClient; timeouts
// come from the per-call context.
func WithClient(c *http.Client) Option {
	return func(h *HTTP) {
		h.client = c
	}
}

// WithHeader adds a header sent on every request, for example an API key.
func WithHeader(key, value string) Option {
	return func(h *HTTP) {
		h.headers.Add(key, value)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *HTTP) {
		h.logger = l
	}
}

// NewHTTP creates a provider for baseURL.
func NewHTTP(baseURL string, opts ...Option) (*HTTP, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	h := &HTTP{
		baseURL: u,
		client:  http.DefaultClient,
		headers: make(http.Header),
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Call implements ports.DataProvider.
func (h *HTTP) Call(ctx context.Context, call domain.ProviderCall) (json.RawMessage, error) {
	req, err := h.request(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderRejected, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	h.logger.Debug("provider response", "node_id", call.NodeID, "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, fmt.Errorf("%s %s returned %s", req.Method, req.URL.Path, resp.Status)
	default:
		return nil, fmt.Errorf("%w: %s %s returned %s", domain.ErrProviderRejected, req.Method, req.URL.Path, resp.Status)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), nil
	}
	return body, nil
}

func (h *HTTP) request(ctx context.Context, call domain.ProviderCall) (*http.Request, error) {
	ref, err := url.Parse(strings.TrimPrefix(call.Resource, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid resource %q: %w", call.Resource, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("resource %q must be relative to the provider base url", call.Resource)
	}
	u := h.baseURL.ResolveReference(ref)

	q := u.Query()
	keys := make([]string, 0, len(call.Params))
	for k := range call.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, fmt.Sprint(call.Params[k]))
	}
	u.RawQuery = q.Encode()

	method := call.Method
	if method == "" {
		method = http.MethodGet
		if len(call.Body) > 0 {
			method = http.MethodPost
		}
	}

	var body io.Reader
	if len(call.Body) > 0 {
		body = bytes.NewReader(call.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	for k, vs := range h.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	accept := "application/json"
	if call.NodeType == domain.NodeTypeFHIRQuery {
		accept = "application/fhir+json"
	}
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", accept)
	}
	req.Header.Set("X-Lettergraph-Node", call.NodeID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}
