package backends

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"loom/internal/models"
)

const ollamaProbeInterval = 30 * time.Second

// Ollama talks to a local Ollama daemon through its OpenAI-compatible
// /v1 endpoint. Readiness is probed against /api/tags and cached so the
// hot path never blocks on a dead daemon.
type Ollama struct {
	desc   models.BackendDescriptor
	client *http.Client

	mu        sync.Mutex
	ready     bool
	lastProbe time.Time
}

// NewOllama creates the adapter. The daemon is probed lazily on first use.
func NewOllama(desc models.BackendDescriptor) *Ollama {
	if desc.Model == "" {
		desc.Model = "llama3.2:3b"
	}
	if desc.Confidence == 0 {
		desc.Confidence = 0.9
	}
	return &Ollama{
		desc:   desc,
		client: newHTTPClient(),
	}
}

func (o *Ollama) Name() string                         { return o.desc.Name }
func (o *Ollama) Descriptor() models.BackendDescriptor { return o.desc }

func (o *Ollama) Ready() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ready
}

// EnsureReady probes /api/tags at most once per probe interval. The mutex
// makes concurrent callers share a single probe instead of stampeding a
// daemon that is still loading a model.
func (o *Ollama) EnsureReady(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ready {
		return nil
	}
	if time.Since(o.lastProbe) < ollamaProbeInterval && !o.lastProbe.IsZero() {
		return fmt.Errorf("%w: ollama at %s not ready", ErrUnavailable, o.desc.BaseURL)
	}
	o.lastProbe = time.Now()

	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	url := strings.TrimSuffix(o.desc.BaseURL, "/") + "/api/tags"
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama probe failed: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama probe status %d", ErrUnavailable, resp.StatusCode)
	}

	o.ready = true
	log.Printf("✅ [BACKEND] Ollama ready at %s (model %s)", o.desc.BaseURL, o.desc.Model)
	return nil
}

func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	baseURL := strings.TrimSuffix(o.desc.BaseURL, "/") + "/v1"
	text, err := chatCompletion(ctx, o.client, baseURL, "", o.desc.Model, req.SystemPrompt, req.Prompt)
	if err != nil {
		// A failed generation invalidates cached readiness so the next
		// turn re-probes instead of trusting a stale flag.
		o.mu.Lock()
		o.ready = false
		o.mu.Unlock()
		return "", err
	}
	return text, nil
}
