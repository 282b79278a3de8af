package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"loom/internal/models"
)

// memoryIndex is the derived, in-process keyword index over the append-only
// memory log. Mongo is the source of truth; this structure is rebuilt from
// it per user and exists only to make retrieval cheap. Reads never mutate.
type memoryIndex struct {
	mu     sync.RWMutex
	users  map[string][]indexedMemory
	loaded map[string]bool
}

type indexedMemory struct {
	record models.MemoryRecord
	tokens map[string]struct{}
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{
		users:  make(map[string][]indexedMemory),
		loaded: make(map[string]bool),
	}
}

// add appends one record to a user's index.
func (idx *memoryIndex) add(userID string, record models.MemoryRecord) {
	tokens := make(map[string]struct{})
	for _, t := range tokenize(record.Content) {
		tokens[t] = struct{}{}
	}
	// Metadata participates in matching too: the lane name, the tools that
	// ran, and the reply text are all searchable.
	for _, t := range tokenize(string(record.Metadata.TaskType)) {
		tokens[t] = struct{}{}
	}
	for _, tool := range record.Metadata.ToolsUsed {
		for _, t := range tokenize(tool) {
			tokens[t] = struct{}{}
		}
	}
	for _, t := range tokenize(record.Metadata.Response) {
		tokens[t] = struct{}{}
	}

	idx.mu.Lock()
	idx.users[userID] = append(idx.users[userID], indexedMemory{record: record, tokens: tokens})
	idx.mu.Unlock()
}

// retrieve returns up to limit records ranked by the number of distinct
// query tokens they match, ties broken by newest first. A record with zero
// matching tokens never appears.
func (idx *memoryIndex) retrieve(userID, query string, limit int) []models.MemoryRecord {
	queryTokens := dedupe(tokenize(query))
	if len(queryTokens) == 0 || limit <= 0 {
		return nil
	}

	idx.mu.RLock()
	entries := idx.users[userID]

	type scored struct {
		record models.MemoryRecord
		count  int
	}
	var candidates []scored
	for _, e := range entries {
		count := 0
		for _, qt := range queryTokens {
			if _, ok := e.tokens[qt]; ok {
				count++
			}
		}
		if count > 0 {
			candidates = append(candidates, scored{record: e.record, count: count})
		}
	}
	idx.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].record.Timestamp.After(candidates[j].record.Timestamp)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	results := make([]models.MemoryRecord, len(candidates))
	for i, c := range candidates {
		results[i] = c.record
	}
	return results
}

// stats reports how many records a user has in the index and the newest
// timestamp among them.
func (idx *memoryIndex) stats(userID string) (int, time.Time) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entries := idx.users[userID]
	var latest time.Time
	for _, e := range entries {
		if e.record.Timestamp.After(latest) {
			latest = e.record.Timestamp
		}
	}
	return len(entries), latest
}

func (idx *memoryIndex) isLoaded(userID string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.loaded[userID]
}

func (idx *memoryIndex) markLoaded(userID string) {
	idx.mu.Lock()
	idx.loaded[userID] = true
	idx.mu.Unlock()
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// tokenize lowercases and splits on non-alphanumeric runes, dropping
// single-character fragments.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
