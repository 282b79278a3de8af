package backends

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"loom/internal/models"
)

// Hosted talks to an OpenAI-compatible hosted API. Readiness is a pure
// configuration check (base URL and key present); the actual call either
// works or errors into the chain's advance path.
type Hosted struct {
	desc   models.BackendDescriptor
	client *http.Client

	once  sync.Once
	ready bool
}

// NewHosted creates the adapter.
func NewHosted(desc models.BackendDescriptor) *Hosted {
	if desc.Confidence == 0 {
		desc.Confidence = 0.85
	}
	return &Hosted{
		desc:   desc,
		client: newHTTPClient(),
	}
}

func (h *Hosted) Name() string                         { return h.desc.Name }
func (h *Hosted) Descriptor() models.BackendDescriptor { return h.desc }

func (h *Hosted) Ready() bool {
	h.once.Do(h.check)
	return h.ready
}

func (h *Hosted) EnsureReady(ctx context.Context) error {
	h.once.Do(h.check)
	if !h.ready {
		return fmt.Errorf("%w: hosted backend %s missing base URL or API key", ErrUnavailable, h.desc.Name)
	}
	return nil
}

func (h *Hosted) check() {
	h.ready = h.desc.BaseURL != "" && h.desc.APIKey != ""
}

func (h *Hosted) Generate(ctx context.Context, req Request) (string, error) {
	baseURL := h.desc.BaseURL
	if !strings.HasSuffix(strings.TrimSuffix(baseURL, "/"), "/v1") {
		baseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	}
	return chatCompletion(ctx, h.client, baseURL, h.desc.APIKey, h.desc.Model, req.SystemPrompt, req.Prompt)
}
