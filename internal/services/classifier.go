package services

import (
	"strings"

	"loom/internal/models"
)

// classifierRule pairs a set of trigger keywords with the lane they select.
// Rules are evaluated in order; the first rule with any matching keyword
// wins, so earlier lanes deliberately shadow later ones.
type classifierRule struct {
	taskType models.TaskType
	keywords []string
}

var classifierRules = []classifierRule{
	{models.TaskSearch, []string{"search", "web", "current events", "news", "weather", "look up", "google"}},
	{models.TaskAnalytics, []string{"pattern", "trend", "statistic", "analyz", "analysis", "insight into"}},
	{models.TaskData, []string{"my notes", "my data", "my events", "my files", "my calendar", "my emails"}},
	{models.TaskContent, []string{"write", "create", "summarize", "draft", "compose"}},
	{models.TaskInterface, []string{"ui", "design", "interface", "layout", "theme"}},
}

// TaskClassifier routes a chat message to one orchestration lane.
// Classification is pure string matching; the same message always maps to
// the same lane regardless of any stored state.
type TaskClassifier struct{}

// NewTaskClassifier creates a classifier.
func NewTaskClassifier() *TaskClassifier {
	return &TaskClassifier{}
}

// Classify returns the lane for a message. Messages matching no rule fall
// through to general chat.
func (c *TaskClassifier) Classify(message string) models.TaskType {
	msg := strings.ToLower(message)
	for _, rule := range classifierRules {
		for _, kw := range rule.keywords {
			if containsKeyword(msg, kw) {
				return rule.taskType
			}
		}
	}
	return models.TaskChat
}

// containsKeyword matches multi-word phrases as substrings and single words
// on word boundaries, so "ui" does not fire inside "quite" or "build".
func containsKeyword(msg, kw string) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(msg, kw)
	}
	for _, word := range strings.FieldsFunc(msg, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if word == kw || word == kw+"s" || (len(kw) >= 6 && strings.HasPrefix(word, kw)) {
			return true
		}
	}
	return false
}
