package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lettergraph/pkg/adapters/provider"
	"github.com/aretw0/lettergraph/pkg/domain"
)

func TestHTTP_GetWithParams(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"coverage":"active"}`))
	}))
	defer srv.Close()

	p, err := provider.NewHTTP(srv.URL+"/api", provider.WithHeader("X-Api-Key", "k1"))
	require.NoError(t, err)

	out, err := p.Call(context.Background(), domain.ProviderCall{
		NodeID:   "lookup",
		NodeType: domain.NodeTypeQuery,
		Resource: "/members/M1",
		Params:   map[string]any{"plan": "HMO", "limit": 5},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"coverage":"active"}`, string(out))

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/members/M1", got.URL.Path)
	assert.Equal(t, "limit=5&plan=HMO", got.URL.RawQuery)
	assert.Equal(t, "k1", got.Header.Get("X-Api-Key"))
	assert.Equal(t, "lookup", got.Header.Get("X-Lettergraph-Node"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
}

func TestHTTP_PostBodyAndFHIRAccept(t *testing.T) {
	var body []byte
	var accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		accept = r.Header.Get("Accept")
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p, err := provider.NewHTTP(srv.URL)
	require.NoError(t, err)

	out, err := p.Call(context.Background(), domain.ProviderCall{
		NodeType: domain.NodeTypeFHIRQuery,
		Resource: "Bundle",
		Body:     json.RawMessage(`{"resourceType":"Bundle"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
	assert.JSONEq(t, `{"resourceType":"Bundle"}`, string(body))
	assert.Equal(t, "application/fhir+json", accept)
}

func TestHTTP_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		permanent bool
	}{
		{http.StatusNotFound, true},
		{http.StatusBadRequest, true},
		{http.StatusTooManyRequests, false},
		{http.StatusServiceUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p, err := provider.NewHTTP(srv.URL)
			require.NoError(t, err)
			_, err = p.Call(context.Background(), domain.ProviderCall{Resource: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.permanent, errors.Is(err, domain.ErrProviderRejected))
		})
	}
}

func TestHTTP_RejectsAbsoluteResources(t *testing.T) {
	p, err := provider.NewHTTP("https://members.example.org")
	require.NoError(t, err)
	_, err = p.Call(context.Background(), domain.ProviderCall{Resource: "https://evil.example.com/x"})
	assert.ErrorIs(t, err, domain.ErrProviderRejected)
}

func TestNewHTTP_InvalidBaseURL(t *testing.T) {
	_, err := provider.NewHTTP("members")
	assert.Error(t, err)
}
