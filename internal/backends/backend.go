package backends

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"loom/internal/models"
)

// Recoverable backend failures. The orchestrator logs these and advances
// to the next backend in the chain; they are never surfaced to the caller.
var (
	// ErrUnavailable means the backend's process or API is not reachable
	// or not ready to serve (e.g. Ollama not running, model not loaded).
	ErrUnavailable = errors.New("backend unavailable")

	// ErrMalformedResponse means the backend answered but the payload
	// could not be parsed or contained no usable text.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// Request carries everything a backend needs to produce a reply.
// The terminal rule-based backend reads TaskType and Context directly;
// model backends only see the rendered prompts.
type Request struct {
	Message      string
	Prompt       string
	SystemPrompt string
	TaskType     models.TaskType
	Context      *models.ConversationContext
}

// Backend is one adapter in the ordered response chain.
type Backend interface {
	Name() string
	Descriptor() models.BackendDescriptor

	// Ready reports the cached readiness state without blocking.
	Ready() bool

	// EnsureReady probes the backend at most once per probe interval.
	// It is safe to call concurrently; concurrent callers share one probe.
	EnsureReady(ctx context.Context) error

	// Generate produces a reply. Errors wrap ErrUnavailable or
	// ErrMalformedResponse; network failures are reported as
	// ErrUnavailable so the chain can advance uniformly.
	Generate(ctx context.Context, req Request) (string, error)
}

// New constructs a backend from its descriptor.
func New(desc models.BackendDescriptor) (Backend, error) {
	switch desc.Type {
	case "ollama":
		return NewOllama(desc), nil
	case "openai":
		return NewHosted(desc), nil
	case "rules":
		return NewRuleBased(desc), nil
	default:
		return nil, fmt.Errorf("unknown backend type %q", desc.Type)
	}
}

// newHTTPClient builds the shared client for model backends. Local models
// can take a long time to produce a first token, hence the generous timeout.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
