package models

// BackendsConfig mirrors backends.json: the ordered chain of response
// backends the orchestrator walks on each turn.
type BackendsConfig struct {
	Backends []BackendDescriptor `json:"backends"`
}

// BackendDescriptor describes one configured backend. Lower Priority runs
// first. Confidence is the fixed score reported when this backend answers.
type BackendDescriptor struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"` // "ollama", "openai", "rules"
	BaseURL    string  `json:"base_url,omitempty"`
	APIKey     string  `json:"api_key,omitempty"`
	Model      string  `json:"model,omitempty"`
	Priority   int     `json:"priority"`
	Confidence float64 `json:"confidence,omitempty"`
}
