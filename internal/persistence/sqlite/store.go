// Package sqlite persists slot records in a single discriminated table using
// the pure-Go sqlite driver. All writes of one mutation run in a single
// transaction; versioned updates are compare-and-swap so concurrent writers
// collide deterministically.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/meetingsync/internal/application"
	"github.com/example/meetingsync/internal/meeting"
	"github.com/example/meetingsync/internal/persistence"
)

const (
	kindSingle   = "single"
	kindSeries   = "series"
	kindInstance = "instance"
)

const schema = `
CREATE TABLE IF NOT EXISTS slots (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL CHECK (kind IN ('single', 'series', 'instance')),
	account_address TEXT NOT NULL DEFAULT '',
	guest_email     TEXT NOT NULL DEFAULT '',
	start_time      TEXT NOT NULL,
	end_time        TEXT NOT NULL,
	version         INTEGER NOT NULL,
	ciphertext      TEXT NOT NULL,
	content_hash    TEXT NOT NULL DEFAULT '',
	rrule           TEXT NOT NULL DEFAULT '',
	series_id       TEXT NOT NULL DEFAULT '',
	cancelled       INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_slots_owner ON slots (account_address, guest_email);
CREATE INDEX IF NOT EXISTS idx_slots_series ON slots (series_id);
`

// Store implements application.SlotStore on a sqlite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ application.SlotStore = (*Store)(nil)

// Open connects to the database behind dsn and applies the schema. When now
// is nil, time.Now is used for record timestamps.
func Open(dsn string, now func() time.Time) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", dsn, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, now: now}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetSlot fetches one record by id regardless of kind.
func (s *Store) GetSlot(ctx context.Context, id string) (meeting.Slot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_address, guest_email, start_time, end_time, version, ciphertext, content_hash
		FROM slots WHERE id = ?`, id)
	slot, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return meeting.Slot{}, persistence.ErrNotFound
	}
	return slot, err
}

// GetSlots resolves ids individually, skipping records that do not exist.
func (s *Store) GetSlots(ctx context.Context, ids []string) ([]meeting.Slot, error) {
	slots := make([]meeting.Slot, 0, len(ids))
	for _, id := range ids {
		slot, err := s.GetSlot(ctx, id)
		if errors.Is(err, persistence.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// GetSeries fetches a series record by id.
func (s *Store) GetSeries(ctx context.Context, id string) (meeting.SlotSeries, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_address, guest_email, start_time, end_time, version, ciphertext, content_hash, rrule
		FROM slots WHERE id = ? AND kind = ?`, id, kindSeries)

	var (
		slot               meeting.Slot
		rrule              string
		startText, endText string
	)
	err := row.Scan(&slot.ID, &slot.AccountAddress, &slot.GuestEmail, &startText, &endText,
		&slot.Version, &slot.Ciphertext, &slot.ContentHash, &rrule)
	if errors.Is(err, sql.ErrNoRows) {
		return meeting.SlotSeries{}, persistence.ErrNotFound
	}
	if err != nil {
		return meeting.SlotSeries{}, err
	}
	if slot.Start, err = parseTime(startText); err != nil {
		return meeting.SlotSeries{}, err
	}
	if slot.End, err = parseTime(endText); err != nil {
		return meeting.SlotSeries{}, err
	}
	return meeting.SlotSeries{Slot: slot, RRule: rrule}, nil
}

// ListWindow returns the identity's records for a listing window: single
// slots and instances intersecting the window, plus every series the
// identity owns so the caller can expand them.
func (s *Store) ListWindow(ctx context.Context, identity string, start, end time.Time) (application.SlotWindow, error) {
	identity = strings.ToLower(identity)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, account_address, guest_email, start_time, end_time, version,
		       ciphertext, content_hash, rrule, series_id, cancelled
		FROM slots
		WHERE (LOWER(account_address) = ? OR LOWER(guest_email) = ?)
		  AND (kind = ? OR (end_time >= ? AND start_time <= ?))
		ORDER BY start_time, id`,
		identity, identity, kindSeries, formatTime(start), formatTime(end))
	if err != nil {
		return application.SlotWindow{}, err
	}
	defer rows.Close()

	var window application.SlotWindow
	for rows.Next() {
		var (
			slot               meeting.Slot
			kind, rrule        string
			seriesID           string
			cancelled          int
			startText, endText string
		)
		if err := rows.Scan(&slot.ID, &kind, &slot.AccountAddress, &slot.GuestEmail,
			&startText, &endText, &slot.Version, &slot.Ciphertext, &slot.ContentHash,
			&rrule, &seriesID, &cancelled); err != nil {
			return application.SlotWindow{}, err
		}
		if slot.Start, err = parseTime(startText); err != nil {
			return application.SlotWindow{}, err
		}
		if slot.End, err = parseTime(endText); err != nil {
			return application.SlotWindow{}, err
		}
		switch kind {
		case kindSeries:
			window.Series = append(window.Series, meeting.SlotSeries{Slot: slot, RRule: rrule})
		case kindInstance:
			window.Instances = append(window.Instances, meeting.SlotInstance{
				Slot:      slot,
				SeriesID:  seriesID,
				Cancelled: cancelled != 0,
			})
		default:
			window.Slots = append(window.Slots, slot)
		}
	}
	return window, rows.Err()
}

// Apply persists a full mutation set in one transaction. Updates are
// compare-and-swap on version-1; a miss rolls everything back with
// ErrConflict.
func (s *Store) Apply(ctx context.Context, set application.MutationSet) error {
	if set.Empty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(s.now().UTC())

	for _, slot := range set.Creates {
		if err := s.insert(ctx, tx, slot, kindSingle, "", "", false, now); err != nil {
			return err
		}
	}
	for _, series := range set.CreateSeries {
		if err := s.insert(ctx, tx, series.Slot, kindSeries, series.RRule, "", false, now); err != nil {
			return err
		}
	}
	for _, instance := range set.CreateInstances {
		if err := s.upsertInstance(ctx, tx, instance, now); err != nil {
			return err
		}
	}
	for _, slot := range set.Updates {
		result, err := tx.ExecContext(ctx, `
			UPDATE slots
			SET start_time = ?, end_time = ?, version = ?, ciphertext = ?, content_hash = ?, updated_at = ?
			WHERE id = ? AND version = ?`,
			formatTime(slot.Start), formatTime(slot.End), slot.Version,
			slot.Ciphertext, slot.ContentHash, now, slot.ID, slot.Version-1)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return persistence.ErrConflict
		}
	}
	if len(set.Removes) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(set.Removes)), ",")
		args := make([]any, len(set.Removes))
		for i, id := range set.Removes {
			args[i] = id
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM slots WHERE id IN ("+placeholders+")", args...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, slot meeting.Slot, kind, rrule, seriesID string, cancelled bool, now string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO slots (id, kind, account_address, guest_email, start_time, end_time,
			version, ciphertext, content_hash, rrule, series_id, cancelled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slot.ID, kind, slot.AccountAddress, slot.GuestEmail,
		formatTime(slot.Start), formatTime(slot.End), slot.Version,
		slot.Ciphertext, slot.ContentHash, rrule, seriesID, boolToInt(cancelled), now, now)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return persistence.ErrDuplicate
	}
	return err
}

func (s *Store) upsertInstance(ctx context.Context, tx *sql.Tx, instance meeting.SlotInstance, now string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO slots (id, kind, account_address, guest_email, start_time, end_time,
			version, ciphertext, content_hash, rrule, series_id, cancelled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			version = excluded.version,
			ciphertext = excluded.ciphertext,
			content_hash = excluded.content_hash,
			cancelled = excluded.cancelled,
			updated_at = excluded.updated_at`,
		instance.ID, kindInstance, instance.AccountAddress, instance.GuestEmail,
		formatTime(instance.Start), formatTime(instance.End), instance.Version,
		instance.Ciphertext, instance.ContentHash, instance.SeriesID,
		boolToInt(instance.Cancelled), now, now)
	return err
}

func scanSlot(row *sql.Row) (meeting.Slot, error) {
	var (
		slot               meeting.Slot
		startText, endText string
	)
	err := row.Scan(&slot.ID, &slot.AccountAddress, &slot.GuestEmail, &startText, &endText,
		&slot.Version, &slot.Ciphertext, &slot.ContentHash)
	if err != nil {
		return meeting.Slot{}, err
	}
	if slot.Start, err = parseTime(startText); err != nil {
		return meeting.Slot{}, err
	}
	if slot.End, err = parseTime(endText); err != nil {
		return meeting.Slot{}, err
	}
	return slot, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(text string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", text, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
