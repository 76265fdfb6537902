// Command meetingsync wires the scheduling engine against the sqlite slot
// store and runs a schedule/update/cancel round-trip, demonstrating how an
// application layer composes the engine. It exits non-zero on the first
// failure.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/meetingsync/internal/application"
	"github.com/example/meetingsync/internal/config"
	"github.com/example/meetingsync/internal/cryptobox"
	"github.com/example/meetingsync/internal/envelope"
	"github.com/example/meetingsync/internal/ics"
	"github.com/example/meetingsync/internal/logging"
	"github.com/example/meetingsync/internal/meeting"
	"github.com/example/meetingsync/internal/persistence/sqlite"
	"github.com/example/meetingsync/internal/roster"
	"github.com/example/meetingsync/internal/series"
)

// staticDirectory resolves demo accounts from a fixed table.
type staticDirectory map[string]application.Account

func (d staticDirectory) ResolveAccount(ctx context.Context, address string) (application.Account, error) {
	account, ok := d[strings.ToLower(address)]
	if !ok {
		return application.Account{}, nil
	}
	return account, nil
}

func (d staticDirectory) ResolveAccounts(ctx context.Context, addresses []string) ([]application.Account, error) {
	accounts := make([]application.Account, 0, len(addresses))
	for _, address := range addresses {
		if account, ok := d[strings.ToLower(address)]; ok {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := logging.ContextWithLogger(context.Background(), logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.Open(cfg.SQLiteDSN, time.Now)
	if err != nil {
		logger.Error("failed to open slot store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close slot store", "error", cerr)
		}
	}()

	aliceKeys, err := cryptobox.GenerateKeyPair()
	if err != nil {
		logger.Error("failed to generate keys", "error", err)
		os.Exit(1)
	}
	bobKeys, err := cryptobox.GenerateKeyPair()
	if err != nil {
		logger.Error("failed to generate keys", "error", err)
		os.Exit(1)
	}

	const (
		aliceAddress = "0xa11ce00000000000000000000000000000000001"
		bobAddress   = "0xb0b0000000000000000000000000000000000002"
	)

	directory := staticDirectory{
		aliceAddress: {Address: aliceAddress, DisplayName: "Alice", PublicKey: aliceKeys.PublicKey},
		bobAddress:   {Address: bobAddress, DisplayName: "Bob", PublicKey: bobKeys.PublicKey},
	}

	service := application.NewMeetingService(application.MeetingServiceDeps{
		Slots:        store,
		Directory:    directory,
		Builder:      envelope.NewBuilder(cryptobox.Encrypt, cfg.FallbackPublicKey),
		Decryptor:    envelope.NewDecryptor(cryptobox.Decrypt),
		Expander:     series.NewEngine(cfg.Location(), logger),
		Reconciler:   roster.NewReconciler(nil),
		IDGenerator:  uuid.NewString,
		Now:          time.Now,
		Logger:       logger,
		CacheTTL:     cfg.EnvelopeCacheTTL,
		CacheEntries: cfg.EnvelopeCacheEntries,
	})

	actor := application.Actor{
		AccountAddress: aliceAddress,
		Keys:           envelope.KeyMaterial{PublicKey: aliceKeys.PublicKey, PrivateKey: aliceKeys.PrivateKey},
	}

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	input := application.MeetingInput{
		Title: "Demo sync",
		Start: start,
		End:   start.Add(30 * time.Minute),
		Participants: []meeting.ParticipantInfo{
			{AccountAddress: aliceAddress, Name: "Alice", Type: meeting.ParticipantTypeScheduler},
			{AccountAddress: bobAddress, Name: "Bob", Type: meeting.ParticipantTypeOwner},
		},
	}

	scheduled, err := service.ScheduleMeeting(ctx, application.ScheduleMeetingParams{Actor: actor, Input: input})
	if err != nil {
		logger.Error("schedule failed", "error", err)
		os.Exit(1)
	}

	ownSlotID := ""
	for _, slot := range scheduled.Slots {
		if slot.Owner() == actor.Identity() {
			ownSlotID = slot.ID
		}
	}

	input.Title = "Demo sync (moved)"
	input.Start = start.Add(time.Hour)
	input.End = input.Start.Add(30 * time.Minute)
	updated, err := service.UpdateMeeting(ctx, application.UpdateMeetingParams{
		Actor:   actor,
		SlotID:  ownSlotID,
		Version: scheduled.Version,
		Input:   input,
	})
	if err != nil {
		logger.Error("update failed", "error", err)
		os.Exit(1)
	}

	listed, err := service.ListMeetings(ctx, application.ListMeetingsParams{
		Actor:       actor,
		WindowStart: time.Now(),
		WindowEnd:   time.Now().Add(7 * 24 * time.Hour),
	})
	if err != nil {
		logger.Error("list failed", "error", err)
		os.Exit(1)
	}

	feed, err := ics.Export(listed)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}

	if _, err := service.CancelMeeting(ctx, application.CancelMeetingParams{
		Actor:   actor,
		SlotID:  ownSlotID,
		Version: updated.Version,
	}); err != nil {
		logger.Error("cancel failed", "error", err)
		os.Exit(1)
	}

	logger.Info("round-trip complete",
		"meeting_id", scheduled.MeetingID,
		"final_version", updated.Version,
		"listed", len(listed),
		"ics_bytes", len(feed),
	)
}
