package services

import (
	"context"
	"testing"
	"time"

	"loom/internal/models"
)

// fakeDurableLog stands in for the Mongo collection: Append writes land in
// it, and the lazy rebuild reads whatever it holds at that moment.
type fakeDurableLog struct {
	records []models.MemoryRecord
	loads   int
}

func (f *fakeDurableLog) wire(s *MemoryService) {
	s.insert = func(_ context.Context, r models.MemoryRecord) error {
		f.records = append(f.records, r)
		return nil
	}
	s.load = func(_ context.Context, userID string) ([]models.MemoryRecord, error) {
		f.loads++
		var out []models.MemoryRecord
		for _, r := range f.records {
			if r.UserID == userID {
				out = append(out, r)
			}
		}
		return out, nil
	}
}

func TestAppendDoesNotDoubleIndexFirstRecord(t *testing.T) {
	durable := &fakeDurableLog{}
	svc := NewMemoryService(nil, 5)
	durable.wire(svc)

	// First append for this user in this process: the durable write and
	// the lazy index rebuild touch the same record.
	err := svc.Append(context.Background(), "user-1", "booked flight to Lisbon", models.MemoryMetadata{
		TaskType: models.TaskChat,
	})
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	got, err := svc.Retrieve(context.Background(), "user-1", "lisbon flight")
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the exchange exactly once, got %d copies", len(got))
	}
}

func TestAppendAfterRestartIndexesLogOnce(t *testing.T) {
	durable := &fakeDurableLog{records: []models.MemoryRecord{
		{UserID: "user-1", Content: "asked about Lisbon weather", Timestamp: time.Now().Add(-time.Hour)},
	}}
	svc := NewMemoryService(nil, 5)
	durable.wire(svc)

	err := svc.Append(context.Background(), "user-1", "booked flight to Lisbon", models.MemoryMetadata{})
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	got, err := svc.Retrieve(context.Background(), "user-1", "lisbon")
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 distinct exchanges, got %d", len(got))
	}
	if got[0].Content == got[1].Content {
		t.Errorf("same exchange returned twice: %q", got[0].Content)
	}
	if durable.loads != 1 {
		t.Errorf("durable log loaded %d times, want 1", durable.loads)
	}
}
