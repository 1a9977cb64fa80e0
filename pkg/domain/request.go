package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Request asks for one letter to be evaluated.
type Request struct {
	GraphID   string          `json:"graphId"`
	Data      json.RawMessage `json:"dataContext"`
	Channel   string          `json:"channel"`
	Language  string          `json:"language,omitempty"`
	Variation string          `json:"variation,omitempty"`
	// Format is html (default), markdown or text.
	Format string `json:"format,omitempty"`
	// AsOf fixes "today" for date helpers. Zero means the engine clock.
	AsOf time.Time `json:"asOf,omitempty"`
}

// Variant keys a content lookup.
type Variant struct {
	Language  string `json:"language,omitempty"`
	Variation string `json:"variation,omitempty"`
}

// Fallbacks lists the variants to try, most specific first:
// (lang, variation), (lang, ""), (base lang, variation), (base lang, ""), ("", variation), ("", "").
func (v Variant) Fallbacks() []Variant {
	var out []Variant
	seen := map[Variant]bool{}
	add := func(c Variant) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	langs := []string{v.Language}
	if base, _, ok := strings.Cut(v.Language, "-"); ok {
		langs = append(langs, base)
	}
	langs = append(langs, "")
	for _, l := range langs {
		add(Variant{Language: l, Variation: v.Variation})
		add(Variant{Language: l})
	}
	return out
}

// Content is a block or component body resolved from the repository.
type Content struct {
	ID              string   `json:"id"`
	Body            string   `json:"body"`
	Language        string   `json:"language,omitempty"`
	Variation       string   `json:"variation,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	ComplianceFlags []string `json:"complianceFlags,omitempty"`
}

// ProviderCall is what a data node asks an external data provider for.
type ProviderCall struct {
	NodeID   string          `json:"nodeId"`
	NodeType NodeType        `json:"nodeType"`
	Provider string          `json:"provider"`
	Resource string          `json:"resource,omitempty"`
	Method   string          `json:"method,omitempty"`
	Params   map[string]any  `json:"params,omitempty"`
	Body     json.RawMessage `json:"body,omitempty"`
}
