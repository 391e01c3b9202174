package postgres

import (
	"testing"
	"time"
)

func TestSortByInsertion_TieBreaksOnID(t *testing.T) {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := []row{
		{ID: "c3000000-0000-0000-0000-000000000000", InsertedAt: t0.Add(time.Second)},
		{ID: "b2000000-0000-0000-0000-000000000000", InsertedAt: t0},
		{ID: "a1000000-0000-0000-0000-000000000000", InsertedAt: t0},
		{ID: "0f000000-0000-0000-0000-000000000000", InsertedAt: t0.Add(-time.Second)},
	}

	sortByInsertion(rows)

	want := []string{
		"0f000000-0000-0000-0000-000000000000",
		"a1000000-0000-0000-0000-000000000000",
		"b2000000-0000-0000-0000-000000000000",
		"c3000000-0000-0000-0000-000000000000",
	}
	for i, id := range want {
		if rows[i].ID != id {
			t.Fatalf("rows[%d]: want %s, got %s", i, id, rows[i].ID)
		}
	}
}

func TestSortByInsertion_SameInstantDifferentZones(t *testing.T) {
	utc := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	local := utc.In(time.FixedZone("UTC+3", 3*60*60))
	rows := []row{
		{ID: "bb", InsertedAt: utc},
		{ID: "aa", InsertedAt: local},
	}

	sortByInsertion(rows)

	if rows[0].ID != "aa" || rows[1].ID != "bb" {
		t.Fatalf("equal instants must order by id, got %s, %s", rows[0].ID, rows[1].ID)
	}
}
