package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"loom/internal/backends"
	"loom/internal/logging"
	"loom/internal/models"
)

// InterruptedResponse is the fixed text returned for interrupted turns.
const InterruptedResponse = "Okay, I've stopped. What would you like instead?"

const preferenceLookupConfidence = 0.9

// Narrow views of the collaborating services. The orchestrator only needs
// these slices, and tests swap them freely.
type prefExtractor interface {
	Extract(ctx context.Context, userID, message string) []models.Preference
}

type contextSource interface {
	Build(ctx context.Context, userID string) *models.ConversationContext
}

type memoryStore interface {
	Retrieve(ctx context.Context, userID, query string) ([]models.MemoryRecord, error)
	Append(ctx context.Context, userID, content string, meta models.MemoryMetadata) error
}

type eventRecorder interface {
	Record(ctx context.Context, event models.LearningEvent) error
}

// Orchestrator runs the full chat turn: extraction, context assembly,
// classification, backend chain walk, and the post-turn writes. Its one
// promise: every non-interrupted turn with a valid message gets a
// non-empty response, whatever is down.
type Orchestrator struct {
	classifier *TaskClassifier
	extractor  prefExtractor
	contexts   contextSource
	memory     memoryStore
	events     eventRecorder
	search     searcher
	interrupts *InterruptRegistry
	metrics    *Metrics

	mu    sync.RWMutex
	chain []backends.Backend

	// terminal answers when the configured chain is exhausted or empty;
	// it is what makes the response guarantee unconditional.
	terminal backends.Backend
}

// NewOrchestrator wires the turn pipeline. search and metrics may be nil.
func NewOrchestrator(
	classifier *TaskClassifier,
	extractor prefExtractor,
	contexts contextSource,
	memory memoryStore,
	events eventRecorder,
	search searcher,
	interrupts *InterruptRegistry,
	metrics *Metrics,
) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		extractor:  extractor,
		contexts:   contexts,
		memory:     memory,
		events:     events,
		search:     search,
		interrupts: interrupts,
		metrics:    metrics,
		terminal: backends.NewRuleBased(models.BackendDescriptor{
			Name: "rules", Type: "rules", Priority: 1 << 30,
		}),
	}
}

// SetChain replaces the backend chain, e.g. after a backends.json reload.
// Backends run in ascending priority order.
func (o *Orchestrator) SetChain(chain []backends.Backend) {
	sorted := make([]backends.Backend, len(chain))
	copy(sorted, chain)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Descriptor().Priority < sorted[j].Descriptor().Priority
	})

	o.mu.Lock()
	o.chain = sorted
	o.mu.Unlock()
}

// Chain returns the current backend chain.
func (o *Orchestrator) Chain() []backends.Backend {
	o.mu.RLock()
	defer o.mu.RUnlock()
	chain := make([]backends.Backend, len(o.chain))
	copy(chain, o.chain)
	return chain
}

// Interrupt raises the stop flag for a user's in-flight turn.
func (o *Orchestrator) Interrupt(ctx context.Context, userID string) bool {
	return o.interrupts.Interrupt(ctx, userID)
}

// HandleChat runs one turn end to end.
func (o *Orchestrator) HandleChat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	started := time.Now()
	logger := logging.WithRequest(uuid.NewString(), req.UserID)
	logger.Info("turn started", "state", "dispatching")

	flag := o.interrupts.Begin(ctx, req.UserID)
	defer o.interrupts.End(req.UserID, flag)

	var toolsUsed []string

	// Preference extraction is a side effect of every turn; its failures
	// never fail the turn.
	if o.extractor != nil {
		if created := o.extractor.Extract(ctx, req.UserID, message); len(created) > 0 {
			toolsUsed = append(toolsUsed, "preference_analysis")
			if o.metrics != nil {
				for range created {
					o.metrics.RecordPreferenceExtracted()
				}
			}
			logger.Info("preferences extracted", "count", len(created))
		}
	}

	cc := o.contexts.Build(ctx, req.UserID)
	taskType := o.classifier.Classify(message)
	if o.metrics != nil {
		o.metrics.RecordChatRequest(string(taskType))
	}
	logger.Info("message classified", "task_type", taskType)

	// Direct answers for preference questions: if the user asks about
	// something we've stored, the store answers without a model call.
	if answer, key := answerFromPreferences(message, cc.Preferences); answer != "" {
		logger.Info("answered from preference store", "key", key, "state", "complete")
		toolsUsed = append(toolsUsed, "preference_lookup")
		resp := &models.ChatResponse{
			Response:   answer,
			Confidence: preferenceLookupConfidence,
			TaskType:   taskType,
			ToolsUsed:  toolsUsed,
		}
		resp.MemoryUpdated = o.recordTurn(ctx, logger, req.UserID, message, resp)
		if o.metrics != nil {
			o.metrics.RecordChatLatency(time.Since(started).Seconds())
		}
		return resp, nil
	}

	prompt := message

	// Fold relevant past exchanges in ahead of generation.
	if memories, err := o.memory.Retrieve(ctx, req.UserID, message); err != nil {
		logger.Warn("memory retrieval failed", "error", err)
	} else if len(memories) > 0 {
		toolsUsed = append(toolsUsed, "memory_retrieval")
		var b strings.Builder
		b.WriteString("Relevant past exchanges:\n")
		for _, m := range memories {
			fmt.Fprintf(&b, "- User said: %s\n", truncatePrompt(m.Content, 150))
		}
		b.WriteString("\n")
		b.WriteString(prompt)
		prompt = b.String()
	}

	// Search turns lead with fresh snippets.
	if taskType == models.TaskSearch && o.search != nil {
		if results, err := o.search.Search(ctx, message); err != nil {
			logger.Warn("web search failed", "error", err)
		} else if len(results) > 0 {
			toolsUsed = append(toolsUsed, "web_search")
			prompt = FormatSnippets(results) + "\n" + prompt
		}
	}

	genReq := backends.Request{
		Message:      message,
		Prompt:       prompt,
		SystemPrompt: BuildSystemPrompt(taskType, cc),
		TaskType:     taskType,
		Context:      cc,
	}

	text, backend, interrupted := o.walkChain(ctx, logger, req.UserID, flag, genReq)
	if interrupted {
		logger.Info("turn interrupted", "state", "interrupted")
		if o.metrics != nil {
			o.metrics.RecordInterrupt()
			o.metrics.RecordChatLatency(time.Since(started).Seconds())
		}
		return &models.ChatResponse{
			Response:   InterruptedResponse,
			Confidence: 0,
			TaskType:   taskType,
			ToolsUsed:  toolsUsed,
		}, nil
	}

	toolsUsed = append(toolsUsed, toolNameFor(backend))
	if o.metrics != nil {
		o.metrics.RecordBackendResponse(backend.Name())
	}

	resp := &models.ChatResponse{
		Response:   text,
		Confidence: backend.Descriptor().Confidence,
		TaskType:   taskType,
		ToolsUsed:  toolsUsed,
	}
	resp.MemoryUpdated = o.recordTurn(ctx, logger, req.UserID, message, resp)

	if o.metrics != nil {
		o.metrics.RecordChatLatency(time.Since(started).Seconds())
	}
	logger.Info("turn complete", "state", "complete", "backend", backend.Name(), "duration", time.Since(started))
	return resp, nil
}

// walkChain tries each backend in priority order. The interrupt flag is
// polled before every dispatch; generation in flight is left to finish on
// its own and its result discarded.
func (o *Orchestrator) walkChain(ctx context.Context, logger *slog.Logger, userID string, flag *atomic.Bool, req backends.Request) (string, backends.Backend, bool) {
	chain := o.Chain()

	hasTerminal := false
	for _, b := range chain {
		if b.Descriptor().Type == "rules" {
			hasTerminal = true
		}
	}
	if !hasTerminal {
		chain = append(chain, o.terminal)
	}

	for _, b := range chain {
		if o.interrupts.Interrupted(ctx, userID, flag) {
			return "", nil, true
		}

		blog := logging.WithBackend(logger, b.Name(), b.Descriptor().Type)
		if !b.Ready() {
			if err := b.EnsureReady(ctx); err != nil {
				blog.Warn("backend not ready, advancing", "error", err)
				if o.metrics != nil {
					o.metrics.RecordBackendFallback()
				}
				continue
			}
		}

		text, err := b.Generate(ctx, req)
		if err != nil {
			blog.Warn("backend failed, advancing", "error", err)
			if o.metrics != nil {
				o.metrics.RecordBackendFallback()
			}
			continue
		}
		if o.interrupts.Interrupted(ctx, userID, flag) {
			return "", nil, true
		}
		return text, b, false
	}

	// Unreachable with the appended terminal, but never return silence.
	text, _ := o.terminal.Generate(ctx, req)
	return text, o.terminal, false
}

// recordTurn appends the exchange to memory and the learning log. Failures
// degrade to an unrecorded turn, never a failed one.
func (o *Orchestrator) recordTurn(ctx context.Context, logger *slog.Logger, userID, message string, resp *models.ChatResponse) bool {
	updated := true
	if err := o.memory.Append(ctx, userID, message, models.MemoryMetadata{
		TaskType:  resp.TaskType,
		ToolsUsed: resp.ToolsUsed,
		Response:  resp.Response,
	}); err != nil {
		logger.Warn("memory append failed", "error", err)
		updated = false
	} else if o.metrics != nil {
		o.metrics.RecordMemoryAppended()
	}

	if o.events != nil {
		if err := o.events.Record(ctx, models.LearningEvent{
			UserID:   userID,
			AppType:  "chat",
			DataType: "chat_message",
			Payload: map[string]interface{}{
				"task_type":  string(resp.TaskType),
				"tools_used": resp.ToolsUsed,
			},
		}); err != nil {
			logger.Warn("learning event record failed", "error", err)
		}
	}
	return updated
}

// answerFromPreferences answers direct questions like "what's my favorite
// album?" straight from the stored preferences. Statements don't trigger
// it; only question-shaped messages do.
func answerFromPreferences(message string, prefs []models.Preference) (answer, key string) {
	msg := strings.ToLower(message)
	if !strings.Contains(msg, "favorite") && !strings.Contains(msg, "favourite") && !strings.Contains(msg, "prefer") {
		return "", ""
	}
	isQuestion := strings.Contains(msg, "what") || strings.Contains(msg, "which") ||
		strings.Contains(msg, "who") || strings.HasSuffix(strings.TrimSpace(msg), "?")
	if !isQuestion {
		return "", ""
	}

	for _, p := range prefs {
		noun := strings.ReplaceAll(strings.TrimPrefix(p.Key, "favorite_"), "_", " ")
		if noun == "" || noun == p.Key {
			continue
		}
		if strings.Contains(msg, noun) {
			return fmt.Sprintf("Your favorite %s is %s.", noun, p.Value), p.Key
		}
	}
	return "", ""
}

func toolNameFor(b backends.Backend) string {
	switch b.Descriptor().Type {
	case "ollama":
		return "ollama"
	case "openai":
		return "hosted_api"
	default:
		return "rule_based_responder"
	}
}
