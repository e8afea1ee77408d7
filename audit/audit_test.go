package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/sxyafiq/easyflake/clock"
	"github.com/sxyafiq/easyflake/easyflake"
)

var testLayout = easyflake.BitLayout{NodeBits: 10, SequenceBits: 9, Scale: clock.Milli, Epoch: easyflake.DefaultEpoch}

func packID(timestamp, node, sequence int64) easyflake.ID {
	shift := uint(testLayout.SequenceBits + testLayout.NodeBits)
	nodeShift := uint(testLayout.SequenceBits)
	return easyflake.ID((timestamp << shift) | (node << nodeShift) | sequence)
}

func TestRecordAndLookupRoundTrip(t *testing.T) {
	log, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	ctx := context.Background()
	nowTicks := int64(time.Since(time.Unix(int64(easyflake.DefaultEpoch), 0)) / time.Millisecond)
	id := packID(nowTicks, 7, 3)

	if err := log.Record(ctx, id, testLayout); err != nil {
		t.Fatal(err)
	}

	entry, err := log.Lookup(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if entry.NodeID != 7 || entry.Sequence != 3 {
		t.Fatalf("expected node 7 sequence 3, got %+v", entry)
	}
	if entry.ID != id {
		t.Fatalf("expected id %d, got %d", id, entry.ID)
	}
}

func TestLookupMissingIDReturnsErrNoRows(t *testing.T) {
	log, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	if _, err := log.Lookup(context.Background(), easyflake.ID(999)); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestByNodeFiltersAndOrdersByIssueTime(t *testing.T) {
	log, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	ctx := context.Background()
	base := int64(1_000_000)
	ids := []easyflake.ID{
		packID(base, 1, 0),
		packID(base+1, 1, 0),
		packID(base+2, 2, 0),
	}
	for _, id := range ids {
		if err := log.Record(ctx, id, testLayout); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := log.ByNode(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for node 1, got %d", len(entries))
	}
	if entries[0].IssuedAt.Before(entries[1].IssuedAt) {
		t.Fatal("expected entries ordered most-recent-first")
	}
}

func TestBetweenFiltersByTimeRange(t *testing.T) {
	log, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	ctx := context.Background()
	epoch := time.Unix(int64(easyflake.DefaultEpoch), 0)

	early := packID(1000, 1, 0) // 1s after epoch
	late := packID(10_000_000, 1, 0)

	if err := log.Record(ctx, early, testLayout); err != nil {
		t.Fatal(err)
	}
	if err := log.Record(ctx, late, testLayout); err != nil {
		t.Fatal(err)
	}

	entries, err := log.Between(ctx, epoch, epoch.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != early {
		t.Fatalf("expected only the early entry in range, got %+v", entries)
	}
}
