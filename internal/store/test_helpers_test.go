package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/racksim/internal/record"
)

// createTestStore creates a new file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a rack record with inputs set and no results.
func createTestRecord(groupID string, timestamp string, workload float64) record.Record {
	rec := record.Record{
		EntityType: "rack",
		EntityID:   groupID,
		Inputs: record.Inputs{
			ServerWorkloadPercent: record.Float(workload),
			InletTempC:            record.Float(22),
			AmbientTempC:          record.Float(19),
		},
	}
	if timestamp != "" {
		rec.Timestamp = record.String(timestamp)
	}
	return rec
}

// mustInsert inserts rec and returns its id, failing the test on error.
func mustInsert(t *testing.T, s *Store, rec record.Record) int64 {
	t.Helper()
	id, err := s.InsertRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("InsertRecord() failed: %v", err)
	}
	return id
}

// mustSelect logs a selection of recordID in its own transaction.
func mustSelect(t *testing.T, s *Store, recordID int64, groupID string) int64 {
	t.Helper()
	var id int64
	err := s.WithinTx(context.Background(), func(tx *Tx) error {
		var err error
		id, err = tx.InsertSelection(context.Background(), record.Selection{
			RecordID:    recordID,
			DisplayName: record.DisplayName(recordID),
			GroupID:     groupID,
			RunID:       "test-run",
		})
		return err
	})
	if err != nil {
		t.Fatalf("InsertSelection() failed: %v", err)
	}
	return id
}
