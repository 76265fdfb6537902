package application

import (
	"context"
	"time"

	"github.com/example/meetingsync/internal/meeting"
)

// SlotStore captures the persistence interactions needed by the service.
// Apply is the single write entry point: the store persists every record
// change of a mutation atomically or not at all. Instance creation upserts,
// since materializing an occurrence may target an id that already exists.
type SlotStore interface {
	GetSlot(ctx context.Context, id string) (meeting.Slot, error)
	// GetSlots resolves the given ids, skipping records that cannot be
	// found. Guest slots may be unresolvable by id; a missing sibling is
	// not fatal.
	GetSlots(ctx context.Context, ids []string) ([]meeting.Slot, error)
	GetSeries(ctx context.Context, id string) (meeting.SlotSeries, error)
	// ListWindow returns every record owned by the identity that
	// intersects the window, grouped by kind. Series records are returned
	// regardless of window so they can be expanded.
	ListWindow(ctx context.Context, identity string, start, end time.Time) (SlotWindow, error)
	Apply(ctx context.Context, set MutationSet) error
}

// AccountDirectory resolves addresses to display names and public keys.
type AccountDirectory interface {
	ResolveAccount(ctx context.Context, address string) (Account, error)
	ResolveAccounts(ctx context.Context, addresses []string) ([]Account, error)
}

// AvailabilityChecker reports whether a participant's calendar is free for
// the requested interval.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, identity string, start, end time.Time) (bool, error)
}
