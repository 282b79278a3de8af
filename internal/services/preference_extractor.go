package services

import (
	"context"
	"log"
	"regexp"
	"strings"

	"loom/internal/models"
)

const extractedConfidence = 0.8

// preferenceCreator is the slice of PreferenceService the extractor needs.
type preferenceCreator interface {
	CreateIfAbsent(ctx context.Context, req models.CreatePreferenceRequest) (*models.Preference, bool, error)
}

// extractionRule matches one phrasing of a stated preference. Rules run in
// order and each fires at most once per message; a single message can
// therefore yield several preferences if it matches several rules.
type extractionRule struct {
	name    string
	pattern *regexp.Regexp
	// build turns the regex groups into a storable preference, or returns
	// false when the captured text is unusable.
	build func(groups []string) (category, key, value string, ok bool)
}

var extractionRules = []extractionRule{
	{
		name:    "favorite_of",
		pattern: regexp.MustCompile(`(?i)\bmy favou?rite ([a-z ]+?) (?:of all time )?is ([^.!?\n]+)`),
		build: func(g []string) (string, string, string, bool) {
			noun := strings.TrimSpace(strings.ToLower(g[1]))
			value := cleanValue(g[2])
			if noun == "" || value == "" {
				return "", "", "", false
			}
			return categoryForNoun(noun), "favorite_" + slug(noun), value, true
		},
	},
	{
		name:    "favorite_reversed",
		pattern: regexp.MustCompile(`(?i)^(.{1,80}?) (?:is|are) my favou?rite ([a-z ]+?)[.!?]*$`),
		build: func(g []string) (string, string, string, bool) {
			noun := strings.TrimSpace(strings.ToLower(g[2]))
			value := cleanValue(g[1])
			if noun == "" || value == "" {
				return "", "", "", false
			}
			return categoryForNoun(noun), "favorite_" + slug(noun), value, true
		},
	},
	{
		name:    "likes",
		pattern: regexp.MustCompile(`(?i)\bi (?:really |absolutely )?(?:love|like|enjoy) ([^.!?\n]+)`),
		build: func(g []string) (string, string, string, bool) {
			value := cleanValue(g[1])
			if value == "" {
				return "", "", "", false
			}
			return "interest", "likes", value, true
		},
	},
	{
		name:    "dislikes",
		pattern: regexp.MustCompile(`(?i)\bi (?:really |absolutely )?(?:hate|dislike|can't stand) ([^.!?\n]+)`),
		build: func(g []string) (string, string, string, bool) {
			value := cleanValue(g[1])
			if value == "" {
				return "", "", "", false
			}
			return "interest", "dislikes", value, true
		},
	},
}

// PreferenceExtractor scans chat messages for stated preferences and
// persists the new ones. Running the same message twice changes nothing:
// dedup happens in the store on (user, category, normalized value).
type PreferenceExtractor struct {
	store preferenceCreator
}

// NewPreferenceExtractor creates a new extractor backed by the given store.
func NewPreferenceExtractor(store preferenceCreator) *PreferenceExtractor {
	return &PreferenceExtractor{store: store}
}

// Extract runs every rule against the message and stores whatever matched.
// It returns only the preferences that were newly created this call.
// Storage failures are logged and skipped; extraction must never fail a
// chat turn.
func (e *PreferenceExtractor) Extract(ctx context.Context, userID, message string) []models.Preference {
	var created []models.Preference
	for _, rule := range extractionRules {
		groups := rule.pattern.FindStringSubmatch(message)
		if groups == nil {
			continue
		}
		category, key, value, ok := rule.build(groups)
		if !ok {
			continue
		}

		pref, isNew, err := e.store.CreateIfAbsent(ctx, models.CreatePreferenceRequest{
			UserID:     userID,
			Category:   category,
			Key:        key,
			Value:      value,
			Source:     "chat",
			Confidence: extractedConfidence,
		})
		if err != nil {
			log.Printf("⚠️ [PREFERENCES] Rule %s failed to store %s/%s: %v", rule.name, category, key, err)
			continue
		}
		if isNew {
			created = append(created, *pref)
		}
	}
	return created
}

// cleanValue trims whitespace, wrapping quotes, and trailing punctuation.
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Trim(v, `"'`)
	v = strings.TrimRight(v, ".!?,;: ")
	return strings.Join(strings.Fields(v), " ")
}

func slug(noun string) string {
	return strings.Join(strings.Fields(strings.ToLower(noun)), "_")
}

func categoryForNoun(noun string) string {
	switch {
	case containsAny(noun, "singer", "artist", "band", "album", "song", "genre", "musician"):
		return "music"
	case containsAny(noun, "movie", "film", "show", "series", "actor", "actress"):
		return "entertainment"
	case containsAny(noun, "food", "dish", "meal", "cuisine", "snack", "restaurant"):
		return "food"
	case containsAny(noun, "color", "colour", "style"):
		return "style"
	case containsAny(noun, "book", "author", "writer"):
		return "reading"
	default:
		return "general"
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
