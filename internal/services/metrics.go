package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Chat metrics
	ChatRequests       *prometheus.CounterVec
	ChatRequestLatency prometheus.Histogram
	ChatInterrupts     prometheus.Counter

	// Backend chain metrics
	BackendResponses *prometheus.CounterVec
	BackendFallbacks prometheus.Counter

	// Extraction and memory metrics
	PreferencesExtracted prometheus.Counter
	MemoriesAppended     prometheus.Counter
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		// Chat requests by resolved task type
		ChatRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "loom_chat_requests_total",
			Help: "Total number of chat requests by task type",
		}, []string{"task_type"}),

		// Chat request latency histogram
		ChatRequestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loom_chat_request_duration_seconds",
			Help:    "Chat request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for LLM responses
		}),

		// Interrupted turns
		ChatInterrupts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loom_chat_interrupts_total",
			Help: "Total number of chat turns ended by user interrupt",
		}),

		// Which backend produced each answer
		BackendResponses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "loom_backend_responses_total",
			Help: "Total responses produced per backend",
		}, []string{"backend"}),

		// Chain advances past a failed or unready backend
		BackendFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loom_backend_fallbacks_total",
			Help: "Total number of advances to the next backend in the chain",
		}),

		PreferencesExtracted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loom_preferences_extracted_total",
			Help: "Total preferences extracted from chat messages",
		}),

		MemoriesAppended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loom_memories_appended_total",
			Help: "Total interaction memories appended",
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordChatRequest records a chat request for a task type
func (m *Metrics) RecordChatRequest(taskType string) {
	m.ChatRequests.WithLabelValues(taskType).Inc()
}

// RecordChatLatency records chat request latency
func (m *Metrics) RecordChatLatency(seconds float64) {
	m.ChatRequestLatency.Observe(seconds)
}

// RecordInterrupt records an interrupted turn
func (m *Metrics) RecordInterrupt() {
	m.ChatInterrupts.Inc()
}

// RecordBackendResponse records which backend answered
func (m *Metrics) RecordBackendResponse(backend string) {
	m.BackendResponses.WithLabelValues(backend).Inc()
}

// RecordBackendFallback records an advance past a backend
func (m *Metrics) RecordBackendFallback() {
	m.BackendFallbacks.Inc()
}

// RecordPreferenceExtracted records one stored preference
func (m *Metrics) RecordPreferenceExtracted() {
	m.PreferencesExtracted.Inc()
}

// RecordMemoryAppended records one appended memory
func (m *Metrics) RecordMemoryAppended() {
	m.MemoriesAppended.Inc()
}
