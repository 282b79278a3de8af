package models

// TaskType classifies a chat message into one of the orchestration lanes.
type TaskType string

const (
	TaskSearch    TaskType = "search"
	TaskAnalytics TaskType = "analytics"
	TaskData      TaskType = "data"
	TaskContent   TaskType = "content"
	TaskInterface TaskType = "interface"
	TaskChat      TaskType = "chat"
)

// ChatRequest is the inbound payload for POST /api/chat.
type ChatRequest struct {
	Message     string                 `json:"message"`
	UserID      string                 `json:"user_id"`
	UserContext map[string]interface{} `json:"user_context,omitempty"`
}

// ChatResponse is the orchestration result returned to the caller.
type ChatResponse struct {
	Response      string   `json:"response"`
	Confidence    float64  `json:"confidence"`
	TaskType      TaskType `json:"task_type"`
	ToolsUsed     []string `json:"tools_used"`
	MemoryUpdated bool     `json:"memory_updated"`
}

// InterruptRequest asks the orchestrator to abandon a user's in-flight turn.
type InterruptRequest struct {
	UserID string `json:"user_id"`
}
