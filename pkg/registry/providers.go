package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/ports"
)

// ProviderFunc adapts a plain function to ports.DataProvider.
type ProviderFunc func(ctx context.Context, call domain.ProviderCall) (json.RawMessage, error)

func (f ProviderFunc) Call(ctx context.Context, call domain.ProviderCall) (json.RawMessage, error) {
	return f(ctx, call)
}

// Providers routes data node calls to named providers. It is itself a
// ports.DataProvider keyed on ProviderCall.Provider.
type Providers struct {
	mu        sync.RWMutex
	providers map[string]ports.DataProvider
}

// NewProviders creates an empty provider registry.
func NewProviders() *Providers {
	return &Providers{
		providers: make(map[string]ports.DataProvider),
	}
}

// Register adds a provider. A provider with the same name is overwritten.
func (r *Providers) Register(name string, p ports.DataProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Names lists the registered providers, sorted.
func (r *Providers) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Call looks up call.Provider and forwards the call.
// Returns domain.ErrProviderNotFound if the provider is not registered.
func (r *Providers) Call(ctx context.Context, call domain.ProviderCall) (json.RawMessage, error) {
	r.mu.RLock()
	p, ok := r.providers[call.Provider]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, call.Provider)
	}
	return p.Call(ctx, call)
}
