package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racksim/internal/record"
)

func TestReadRecord_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRecord(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.LatestRecord(ctx, "")
	require.ErrorIs(t, err, ErrNotFound)

	mustInsert(t, s, createTestRecord("rack-1", "2025-01-01T00:00:00Z", 10))
	newest := mustInsert(t, s, createTestRecord("rack-2", "2025-01-03T00:00:00Z", 30))
	mustInsert(t, s, createTestRecord("rack-1", "2025-01-02T00:00:00Z", 20))
	mustInsert(t, s, createTestRecord("rack-3", "", 40))

	got, err := s.LatestRecord(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, newest, got.ID)
}

func TestLatestRecord_TieBreaksOnID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustInsert(t, s, createTestRecord("rack-1", "2025-01-01T00:00:00Z", 10))
	second := mustInsert(t, s, createTestRecord("rack-2", "2025-01-01T00:00:00Z", 20))

	got, err := s.LatestRecord(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, second, got.ID)
}

func TestLatestRecord_FiltersEntityType(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rack := mustInsert(t, s, createTestRecord("rack-1", "2025-01-01T00:00:00Z", 10))
	pdu := createTestRecord("pdu-1", "2025-02-01T00:00:00Z", 10)
	pdu.EntityType = "pdu"
	mustInsert(t, s, pdu)

	got, err := s.LatestRecord(ctx, "rack")
	require.NoError(t, err)
	assert.Equal(t, rack, got.ID)

	_, err = s.LatestRecord(ctx, "crac")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestPerGroup(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.LatestPerGroup(ctx, "rack")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, ts := range []string{"2025-01-01T00:00:00Z", "2025-01-02T00:00:00Z", "2025-01-03T00:00:00Z"} {
		mustInsert(t, s, createTestRecord("rack-b", ts, 10))
	}
	latestB, err := s.LatestRecord(ctx, "rack")
	require.NoError(t, err)

	mustInsert(t, s, createTestRecord("rack-a", "2025-01-05T00:00:00Z", 10))
	latestA := mustInsert(t, s, createTestRecord("rack-a", "2025-01-05T00:00:00Z", 20))

	got, err := s.LatestPerGroup(ctx, "rack")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "rack-a", got[0].EntityID)
	assert.Equal(t, latestA, got[0].ID)
	assert.Equal(t, "rack-b", got[1].EntityID)
	assert.Equal(t, latestB.ID, got[1].ID)
	assert.Equal(t, "2025-01-03T00:00:00Z", *got[1].Timestamp)
}

func TestGroups(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustInsert(t, s, createTestRecord("rack-b", "", 1))
	mustInsert(t, s, createTestRecord("rack-a", "", 1))
	mustInsert(t, s, createTestRecord("rack-b", "", 2))
	pdu := createTestRecord("pdu-1", "", 1)
	pdu.EntityType = "pdu"
	mustInsert(t, s, pdu)

	all, err := s.Groups(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"pdu-1", "rack-a", "rack-b"}, all)

	racks, err := s.Groups(ctx, "rack")
	require.NoError(t, err)
	assert.Equal(t, []string{"rack-a", "rack-b"}, racks)

	none, err := s.Groups(ctx, "crac")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUnselectedCandidates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := mustInsert(t, s, createTestRecord("rack-1", "", 1))
	b := mustInsert(t, s, createTestRecord("rack-1", "", 2))
	c := mustInsert(t, s, createTestRecord("rack-1", "", 3))
	mustInsert(t, s, createTestRecord("rack-2", "", 4))
	mustSelect(t, s, b, "rack-1")

	var ids []int64
	require.NoError(t, s.WithinTx(ctx, func(tx *Tx) error {
		recs, err := tx.UnselectedCandidates(ctx, "", "rack-1")
		if err != nil {
			return err
		}
		for _, r := range recs {
			ids = append(ids, r.ID)
		}
		return nil
	}))
	assert.Equal(t, []int64{a, c}, ids)
}

func TestUnselectedCandidates_Exhausted(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id := mustInsert(t, s, createTestRecord("rack-1", "", 1))
	mustSelect(t, s, id, "rack-1")

	require.NoError(t, s.WithinTx(ctx, func(tx *Tx) error {
		recs, err := tx.UnselectedCandidates(ctx, "", "rack-1")
		require.NoError(t, err)
		assert.Empty(t, recs)

		recs, err = tx.UnselectedCandidates(ctx, "", "missing")
		require.NoError(t, err)
		assert.Empty(t, recs)
		return nil
	}))
}

func TestUnselectedCandidates_EntityType(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	server := createTestRecord("r1", "", 1)
	server.EntityType = "server"
	mustInsert(t, s, server)
	rack := mustInsert(t, s, createTestRecord("r1", "", 2))

	require.NoError(t, s.WithinTx(ctx, func(tx *Tx) error {
		all, err := tx.UnselectedCandidates(ctx, "", "r1")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		racks, err := tx.UnselectedCandidates(ctx, "rack", "r1")
		require.NoError(t, err)
		require.Len(t, racks, 1)
		assert.Equal(t, rack, racks[0].ID)
		assert.Equal(t, "rack", racks[0].EntityType)
		return nil
	}))
}

func TestReadSelections_FiltersGroup(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := mustInsert(t, s, createTestRecord("rack-1", "", 1))
	b := mustInsert(t, s, createTestRecord("rack-2", "", 1))
	mustSelect(t, s, a, "rack-1")
	mustSelect(t, s, b, "rack-2")

	all, err := s.ReadSelections(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := s.ReadSelections(ctx, "rack-2")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, b, one[0].RecordID)
	assert.Equal(t, record.DisplayName(b), one[0].DisplayName)
}
