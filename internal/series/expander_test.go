package series

import (
	"errors"
	"testing"
	"time"

	"github.com/example/meetingsync/internal/meeting"
)

var seriesBase = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC) // a Monday

func weeklySeries(id string) meeting.SlotSeries {
	return meeting.SlotSeries{
		Slot: meeting.Slot{
			ID:             id,
			AccountAddress: "0xA",
			Start:          seriesBase,
			End:            seriesBase.Add(time.Hour),
			Version:        3,
			Ciphertext:     "sealed",
			ContentHash:    "hash",
		},
		RRule: "RRULE:FREQ=WEEKLY;INTERVAL=1;BYDAY=MO",
	}
}

func threeWeekWindow() ExpandOptions {
	return ExpandOptions{
		WindowStart: seriesBase.Add(-24 * time.Hour),
		WindowEnd:   seriesBase.Add(20 * 24 * time.Hour),
	}
}

func TestExpandSynthesizesWeeklyGhosts(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC, nil)
	result, err := engine.Expand(nil, []meeting.SlotSeries{weeklySeries("series-1")}, nil, threeWeekWindow())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(result))
	}

	for i, occurrence := range result {
		wantStart := seriesBase.AddDate(0, 0, 7*i)
		if !occurrence.Start.Equal(wantStart) {
			t.Fatalf("occurrence %d start = %v, want %v", i, occurrence.Start, wantStart)
		}
		if !occurrence.Ghost {
			t.Fatalf("occurrence %d is not a ghost", i)
		}
		if occurrence.Cancelled {
			t.Fatalf("ghost %d is cancelled", i)
		}
		if occurrence.SeriesID != "series-1" {
			t.Fatalf("occurrence %d series = %q", i, occurrence.SeriesID)
		}
		if occurrence.ID != meeting.GhostInstanceID("series-1", wantStart) {
			t.Fatalf("occurrence %d id = %q", i, occurrence.ID)
		}
		if occurrence.Ciphertext != "sealed" || occurrence.ContentHash != "hash" || occurrence.Version != 3 {
			t.Fatalf("ghost %d does not inherit series payload: %+v", i, occurrence.Slot)
		}
		if occurrence.Duration() != time.Hour {
			t.Fatalf("ghost %d duration = %v, want 1h", i, occurrence.Duration())
		}
	}
}

func TestExpandMaterializedInstanceSuppressesGhost(t *testing.T) {
	t.Parallel()

	series := weeklySeries("series-1")
	secondStart := seriesBase.AddDate(0, 0, 7)
	movedStart := secondStart.Add(2 * time.Hour)
	rescheduled := meeting.SlotInstance{
		Slot: meeting.Slot{
			ID:         meeting.GhostInstanceID("series-1", secondStart),
			Start:      movedStart,
			End:        movedStart.Add(time.Hour),
			Version:    4,
			Ciphertext: "sealed-v4",
		},
		SeriesID: "series-1",
	}

	engine := NewEngine(time.UTC, nil)
	result, err := engine.Expand(nil, []meeting.SlotSeries{series}, []meeting.SlotInstance{rescheduled}, threeWeekWindow())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(result))
	}

	// The materialized record replaces the second ghost: the moved start is
	// present, the original second occurrence is not.
	var sawMoved, sawOriginalSecond bool
	for _, occurrence := range result {
		if occurrence.Start.Equal(movedStart) {
			sawMoved = true
			if occurrence.Ghost {
				t.Fatal("materialized occurrence flagged as ghost")
			}
			if occurrence.Version != 4 {
				t.Fatalf("materialized version = %d, want 4", occurrence.Version)
			}
		}
		if occurrence.Start.Equal(secondStart) && occurrence.Ghost {
			sawOriginalSecond = true
		}
	}
	if !sawMoved {
		t.Fatal("rescheduled occurrence missing from result")
	}
	if sawOriginalSecond {
		t.Fatal("ghost emitted for a materialized occurrence")
	}
}

func TestExpandCancelledInstanceRemovesOccurrence(t *testing.T) {
	t.Parallel()

	series := weeklySeries("series-1")
	secondStart := seriesBase.AddDate(0, 0, 7)
	cancelled := meeting.SlotInstance{
		Slot: meeting.Slot{
			ID:         meeting.GhostInstanceID("series-1", secondStart),
			Start:      secondStart,
			End:        secondStart.Add(time.Hour),
			Ciphertext: "sealed",
		},
		SeriesID:  "series-1",
		Cancelled: true,
	}

	engine := NewEngine(time.UTC, nil)
	result, err := engine.Expand(nil, []meeting.SlotSeries{series}, []meeting.SlotInstance{cancelled}, threeWeekWindow())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("got %d occurrences, want 2 after cancellation", len(result))
	}
	for _, occurrence := range result {
		if occurrence.Start.Equal(secondStart) {
			t.Fatal("cancelled occurrence still present")
		}
	}
}

func TestExpandIncludesPlainSlots(t *testing.T) {
	t.Parallel()

	inside := meeting.Slot{
		ID:         "slot-1",
		Start:      seriesBase.Add(26 * time.Hour),
		End:        seriesBase.Add(27 * time.Hour),
		Ciphertext: "sealed",
	}
	outside := meeting.Slot{
		ID:         "slot-2",
		Start:      seriesBase.AddDate(0, 2, 0),
		End:        seriesBase.AddDate(0, 2, 0).Add(time.Hour),
		Ciphertext: "sealed",
	}
	empty := meeting.Slot{
		ID:    "slot-3",
		Start: inside.Start,
		End:   inside.End,
	}

	engine := NewEngine(time.UTC, nil)
	result, err := engine.Expand([]meeting.Slot{inside, outside, empty}, nil, nil, threeWeekWindow())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(result))
	}
	if result[0].ID != "slot-1" || result[0].Ghost || result[0].SeriesID != "" {
		t.Fatalf("unexpected occurrence: %+v", result[0])
	}
}

func TestExpandSkipsUnparsableRule(t *testing.T) {
	t.Parallel()

	broken := weeklySeries("series-broken")
	broken.RRule = "RRULE:FREQ=SOMETIMES"

	engine := NewEngine(time.UTC, nil)
	result, err := engine.Expand(nil, []meeting.SlotSeries{broken, weeklySeries("series-ok")}, nil, threeWeekWindow())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	for _, occurrence := range result {
		if occurrence.SeriesID == "series-broken" {
			t.Fatal("occurrence emitted for unparsable series")
		}
	}
	if len(result) != 3 {
		t.Fatalf("got %d occurrences from the healthy series, want 3", len(result))
	}
}

func TestExpandResultIsChronological(t *testing.T) {
	t.Parallel()

	slot := meeting.Slot{
		ID:         "slot-wed",
		Start:      seriesBase.Add(50 * time.Hour),
		End:        seriesBase.Add(51 * time.Hour),
		Ciphertext: "sealed",
	}

	engine := NewEngine(time.UTC, nil)
	result, err := engine.Expand([]meeting.Slot{slot}, []meeting.SlotSeries{weeklySeries("series-1")}, nil, threeWeekWindow())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	for i := 1; i < len(result); i++ {
		if result[i].Start.Before(result[i-1].Start) {
			t.Fatalf("result not chronological at %d: %v before %v", i, result[i].Start, result[i-1].Start)
		}
	}
}

func TestExpandRejectsInvalidWindow(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC, nil)
	_, err := engine.Expand(nil, nil, nil, ExpandOptions{
		WindowStart: seriesBase,
		WindowEnd:   seriesBase,
	})
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("err = %v, want ErrInvalidWindow", err)
	}
}
