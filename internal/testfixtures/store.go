package testfixtures

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/example/meetingsync/internal/application"
	"github.com/example/meetingsync/internal/meeting"
	"github.com/example/meetingsync/internal/persistence"
)

// MemoryStore is an in-memory application.SlotStore for tests. Apply mirrors
// the sqlite adapter's semantics: all-or-nothing, compare-and-swap updates,
// upserting instance creation.
type MemoryStore struct {
	mu        sync.Mutex
	slots     map[string]meeting.Slot
	series    map[string]meeting.SlotSeries
	instances map[string]meeting.SlotInstance

	// ApplyErr, when set, fails the next Apply call.
	ApplyErr error
	// Applied records every mutation set in order.
	Applied []application.MutationSet
}

var _ application.SlotStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:     make(map[string]meeting.Slot),
		series:    make(map[string]meeting.SlotSeries),
		instances: make(map[string]meeting.SlotInstance),
	}
}

// GetSlot fetches a record of any kind by id.
func (s *MemoryStore) GetSlot(ctx context.Context, id string) (meeting.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[id]; ok {
		return slot, nil
	}
	if series, ok := s.series[id]; ok {
		return series.Slot, nil
	}
	if instance, ok := s.instances[id]; ok {
		return instance.Slot, nil
	}
	return meeting.Slot{}, persistence.ErrNotFound
}

// GetSlots resolves ids, skipping missing records.
func (s *MemoryStore) GetSlots(ctx context.Context, ids []string) ([]meeting.Slot, error) {
	result := make([]meeting.Slot, 0, len(ids))
	for _, id := range ids {
		slot, err := s.GetSlot(ctx, id)
		if err != nil {
			continue
		}
		result = append(result, slot)
	}
	return result, nil
}

// GetSeries fetches a series record by id.
func (s *MemoryStore) GetSeries(ctx context.Context, id string) (meeting.SlotSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if series, ok := s.series[id]; ok {
		return series, nil
	}
	return meeting.SlotSeries{}, persistence.ErrNotFound
}

// ListWindow returns the identity's records intersecting the window plus all
// owned series.
func (s *MemoryStore) ListWindow(ctx context.Context, identity string, start, end time.Time) (application.SlotWindow, error) {
	identity = strings.ToLower(identity)
	s.mu.Lock()
	defer s.mu.Unlock()

	var window application.SlotWindow
	for _, slot := range s.slots {
		if slot.Owner() == identity && overlaps(slot, start, end) {
			window.Slots = append(window.Slots, slot)
		}
	}
	for _, series := range s.series {
		if series.Owner() == identity {
			window.Series = append(window.Series, series)
		}
	}
	for _, instance := range s.instances {
		if instance.Owner() == identity && overlaps(instance.Slot, start, end) {
			window.Instances = append(window.Instances, instance)
		}
	}
	return window, nil
}

// Apply persists a mutation set atomically.
func (s *MemoryStore) Apply(ctx context.Context, set application.MutationSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ApplyErr != nil {
		err := s.ApplyErr
		s.ApplyErr = nil
		return err
	}

	// Validate compare-and-swap updates before touching state.
	for _, slot := range set.Updates {
		current, err := s.lookupLocked(slot.ID)
		if err != nil {
			return persistence.ErrConflict
		}
		if current.Version != slot.Version-1 {
			return persistence.ErrConflict
		}
	}
	for _, slot := range set.Creates {
		if _, err := s.lookupLocked(slot.ID); err == nil {
			return persistence.ErrDuplicate
		}
	}

	for _, slot := range set.Creates {
		s.slots[slot.ID] = slot
	}
	for _, series := range set.CreateSeries {
		s.series[series.ID] = series
	}
	for _, instance := range set.CreateInstances {
		s.instances[instance.ID] = instance
	}
	for _, slot := range set.Updates {
		s.updateLocked(slot)
	}
	for _, id := range set.Removes {
		delete(s.slots, id)
		delete(s.series, id)
		delete(s.instances, id)
	}

	s.Applied = append(s.Applied, set)
	return nil
}

// Slot returns the stored record with the given id, if any.
func (s *MemoryStore) Slot(id string) (meeting.Slot, bool) {
	slot, err := s.GetSlot(context.Background(), id)
	return slot, err == nil
}

// Count returns the number of stored records across all kinds.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots) + len(s.series) + len(s.instances)
}

// SeedSlots inserts plain records directly.
func (s *MemoryStore) SeedSlots(slots ...meeting.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range slots {
		s.slots[slot.ID] = slot
	}
}

// SeedSeries inserts series records directly.
func (s *MemoryStore) SeedSeries(series ...meeting.SlotSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range series {
		s.series[entry.ID] = entry
	}
}

// SeedInstances inserts instance records directly.
func (s *MemoryStore) SeedInstances(instances ...meeting.SlotInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, instance := range instances {
		s.instances[instance.ID] = instance
	}
}

func (s *MemoryStore) lookupLocked(id string) (meeting.Slot, error) {
	if slot, ok := s.slots[id]; ok {
		return slot, nil
	}
	if series, ok := s.series[id]; ok {
		return series.Slot, nil
	}
	if instance, ok := s.instances[id]; ok {
		return instance.Slot, nil
	}
	return meeting.Slot{}, persistence.ErrNotFound
}

func (s *MemoryStore) updateLocked(slot meeting.Slot) {
	if _, ok := s.slots[slot.ID]; ok {
		s.slots[slot.ID] = slot
		return
	}
	if series, ok := s.series[slot.ID]; ok {
		series.Slot = slot
		s.series[slot.ID] = series
		return
	}
	if instance, ok := s.instances[slot.ID]; ok {
		instance.Slot = slot
		s.instances[slot.ID] = instance
	}
}

func overlaps(slot meeting.Slot, start, end time.Time) bool {
	return !slot.End.Before(start) && !slot.Start.After(end)
}
