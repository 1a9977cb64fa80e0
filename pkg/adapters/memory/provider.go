package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// Provider is a canned data provider that answers by resource. It is meant for
// tests, demos and the CLI's --fixtures mode.
type Provider struct {
	mu        sync.RWMutex
	responses map[string]json.RawMessage
	calls     []domain.ProviderCall
}

// NewProvider creates a provider answering resource -> response.
func NewProvider(responses map[string]json.RawMessage) *Provider {
	p := &Provider{responses: make(map[string]json.RawMessage, len(responses))}
	for k, v := range responses {
		p.responses[k] = v
	}
	return p
}

// Call returns the response registered for call.Resource.
func (p *Provider) Call(ctx context.Context, call domain.ProviderCall) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	out, ok := p.responses[call.Resource]
	if !ok {
		return nil, fmt.Errorf("no canned response for %s %q", call.Provider, call.Resource)
	}
	return out, nil
}

// Calls returns the calls received so far.
func (p *Provider) Calls() []domain.ProviderCall {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.ProviderCall(nil), p.calls...)
}
