package series

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/meetingsync/internal/meeting"
)

// ErrInvalidWindow indicates the expansion window is empty or inverted.
var ErrInvalidWindow = errors.New("series: window end must be after window start")

// Engine expands slot series into concrete occurrences. Results are
// normalized to the engine's location.
type Engine struct {
	location *time.Location
	logger   *slog.Logger
}

// NewEngine constructs an Engine. When loc is nil, UTC is used; when logger is
// nil, unparsable rules are skipped silently.
func NewEngine(loc *time.Location, logger *slog.Logger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc, logger: logger}
}

// ExpandOptions bounds occurrence generation.
type ExpandOptions struct {
	WindowStart time.Time
	WindowEnd   time.Time
}

// Expand merges plain slots, materialized instances, and synthesized ghost
// occurrences for the given window into one chronological list.
//
// Semantics:
//   - Each series' rule is anchored at the series' own start.
//   - An occurrence whose derived instance id exists as a materialized record
//     never yields a ghost; the instance wins even when it was rescheduled to
//     a different time.
//   - Ghosts share the series' ciphertext, content hash, version, and
//     duration, and are never cancelled.
//   - Records without ciphertext and materialized instances marked cancelled
//     are dropped from the result.
func (e *Engine) Expand(slots []meeting.Slot, seriesList []meeting.SlotSeries, instances []meeting.SlotInstance, opts ExpandOptions) ([]meeting.SlotInstance, error) {
	if !opts.WindowEnd.After(opts.WindowStart) {
		return nil, ErrInvalidWindow
	}

	materialized := make(map[string]struct{}, len(instances))
	for _, instance := range instances {
		materialized[instance.ID] = struct{}{}
	}

	result := make([]meeting.SlotInstance, 0, len(slots)+len(instances))

	for _, slot := range slots {
		if slot.Ciphertext == "" {
			continue
		}
		if !overlapsWindow(slot.Start, slot.End, opts) {
			continue
		}
		result = append(result, meeting.SlotInstance{Slot: normalizeSlot(slot, e.location)})
	}

	for _, instance := range instances {
		if instance.Ciphertext == "" || instance.Cancelled {
			continue
		}
		if !overlapsWindow(instance.Start, instance.End, opts) {
			continue
		}
		instance.Slot = normalizeSlot(instance.Slot, e.location)
		instance.Ghost = false
		result = append(result, instance)
	}

	for _, series := range seriesList {
		if series.Ciphertext == "" {
			continue
		}
		ghosts, err := e.expandSeries(series, materialized, opts)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn("skipping series with unparsable recurrence rule",
					"series_id", series.ID, "rrule", series.RRule, "error", err)
			}
			continue
		}
		result = append(result, ghosts...)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Start.Equal(result[j].Start) {
			return result[i].ID < result[j].ID
		}
		return result[i].Start.Before(result[j].Start)
	})

	return result, nil
}

func (e *Engine) expandSeries(series meeting.SlotSeries, materialized map[string]struct{}, opts ExpandOptions) ([]meeting.SlotInstance, error) {
	rule, err := rrule.StrToRRule(strings.TrimPrefix(series.RRule, "RRULE:"))
	if err != nil {
		return nil, err
	}
	rule.DTStart(series.Start.In(e.location))

	duration := series.Duration()
	occurrences := rule.Between(opts.WindowStart.In(e.location), opts.WindowEnd.In(e.location), true)

	ghosts := make([]meeting.SlotInstance, 0, len(occurrences))
	for _, start := range occurrences {
		start = start.In(e.location)
		ghostID := meeting.GhostInstanceID(series.ID, start)
		if _, exists := materialized[ghostID]; exists {
			continue
		}
		ghost := meeting.SlotInstance{
			Slot: meeting.Slot{
				ID:             ghostID,
				AccountAddress: series.AccountAddress,
				GuestEmail:     series.GuestEmail,
				Start:          start,
				End:            start.Add(duration),
				Version:        series.Version,
				Ciphertext:     series.Ciphertext,
				ContentHash:    series.ContentHash,
			},
			SeriesID: series.ID,
			Ghost:    true,
		}
		ghosts = append(ghosts, ghost)
	}
	return ghosts, nil
}

func normalizeSlot(slot meeting.Slot, loc *time.Location) meeting.Slot {
	slot.Start = slot.Start.In(loc)
	slot.End = slot.End.In(loc)
	return slot
}

func overlapsWindow(start, end time.Time, opts ExpandOptions) bool {
	if end.Before(opts.WindowStart) {
		return false
	}
	if start.After(opts.WindowEnd) {
		return false
	}
	return true
}
