package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"loom/internal/models"
)

func record(content string, ts time.Time) models.MemoryRecord {
	return models.MemoryRecord{
		UserID:    "user-1",
		Content:   content,
		Timestamp: ts,
	}
}

func TestRetrieveRanksByMatchCountThenRecency(t *testing.T) {
	idx := newMemoryIndex()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	idx.add("user-1", record("booked flight to Lisbon", base))
	idx.add("user-1", record("Lisbon trip packing list with flight times", base.Add(time.Hour)))
	idx.add("user-1", record("grocery list", base.Add(2*time.Hour)))
	idx.add("user-1", record("flight refund policy", base.Add(3*time.Hour)))

	got := idx.retrieve("user-1", "flight to Lisbon", 5)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	// Two-token match first; among them, "to" only appears in the first.
	if got[0].Content != "booked flight to Lisbon" {
		t.Errorf("top result = %q", got[0].Content)
	}
	// Newer beats older on equal match count.
	if got[1].Content != "Lisbon trip packing list with flight times" {
		t.Errorf("second result = %q", got[1].Content)
	}
	if got[2].Content != "flight refund policy" {
		t.Errorf("third result = %q", got[2].Content)
	}
}

func TestRetrieveTieBrokenByRecency(t *testing.T) {
	idx := newMemoryIndex()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	idx.add("user-1", record("jazz playlist", base))
	idx.add("user-1", record("jazz concert tickets", base.Add(time.Hour)))

	got := idx.retrieve("user-1", "jazz", 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Content != "jazz concert tickets" {
		t.Errorf("expected newest first on tie, got %q", got[0].Content)
	}
}

func TestRetrieveHonorsLimit(t *testing.T) {
	idx := newMemoryIndex()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		idx.add("user-1", record(fmt.Sprintf("meeting notes %d", i), base.Add(time.Duration(i)*time.Minute)))
	}

	got := idx.retrieve("user-1", "meeting", 5)
	if len(got) != 5 {
		t.Fatalf("expected 5 results, got %d", len(got))
	}
}

func TestRetrieveNoMatches(t *testing.T) {
	idx := newMemoryIndex()
	idx.add("user-1", record("grocery list", time.Now()))

	if got := idx.retrieve("user-1", "quantum chromodynamics", 5); len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
	if got := idx.retrieve("user-1", "", 5); len(got) != 0 {
		t.Errorf("expected no results for empty query, got %d", len(got))
	}
}

func TestRetrieveIsolatesUsers(t *testing.T) {
	idx := newMemoryIndex()
	idx.add("user-1", record("shared topic jazz", time.Now()))

	other := models.MemoryRecord{UserID: "user-2", Content: "jazz for someone else", Timestamp: time.Now()}
	idx.add("user-2", other)

	got := idx.retrieve("user-1", "jazz", 5)
	if len(got) != 1 || got[0].Content != "shared topic jazz" {
		t.Errorf("retrieval crossed user boundary: %+v", got)
	}
}

func TestRetrieveMatchesMetadata(t *testing.T) {
	idx := newMemoryIndex()
	rec := models.MemoryRecord{
		UserID:  "user-1",
		Content: "asked about dinner spots",
		Metadata: models.MemoryMetadata{
			TaskType:  models.TaskSearch,
			ToolsUsed: []string{"web_search"},
			Response:  "Top pick: the ramen place on 5th",
		},
		Timestamp: time.Now(),
	}
	idx.add("user-1", rec)

	if got := idx.retrieve("user-1", "ramen", 5); len(got) != 1 {
		t.Errorf("expected metadata response text to be searchable, got %d results", len(got))
	}
	if got := idx.retrieve("user-1", "web search", 5); len(got) != 1 {
		t.Errorf("expected tool names to be searchable, got %d results", len(got))
	}
}

func TestIndexConcurrentReadsAndWrites(t *testing.T) {
	idx := newMemoryIndex()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				idx.add("user-1", record(fmt.Sprintf("entry %d-%d", i, j), time.Now()))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				idx.retrieve("user-1", "entry", 5)
			}
		}()
	}
	wg.Wait()

	if count, _ := idx.stats("user-1"); count != 8*50 {
		t.Errorf("expected 400 records after concurrent writes, got %d", count)
	}
}
