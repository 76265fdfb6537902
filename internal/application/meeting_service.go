// Package application orchestrates meeting mutations: reconciliation, the
// optimistic version gate, roster diffing, envelope encryption, and the
// single persistence call. Atomicity across the physical records of one
// mutation is pushed to the slot store; the service rejects every invalid
// mutation before any write is issued.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/example/meetingsync/internal/envelope"
	"github.com/example/meetingsync/internal/meeting"
	"github.com/example/meetingsync/internal/persistence"
	"github.com/example/meetingsync/internal/roster"
	"github.com/example/meetingsync/internal/series"
	"github.com/example/meetingsync/internal/slotdiff"
)

// conferenceSlotSuffix marks the shared envelope copy readable with the
// fallback key, created for meetings that include guests.
const conferenceSlotSuffix = "_conference"

// MutationSet bundles every physical record change of one mutation so the
// store can persist them atomically.
type MutationSet struct {
	Creates         []meeting.Slot
	CreateSeries    []meeting.SlotSeries
	CreateInstances []meeting.SlotInstance
	Updates         []meeting.Slot
	Removes         []string
}

// Empty reports whether the set carries no changes.
func (m MutationSet) Empty() bool {
	return len(m.Creates) == 0 && len(m.CreateSeries) == 0 &&
		len(m.CreateInstances) == 0 && len(m.Updates) == 0 && len(m.Removes) == 0
}

// MeetingServiceDeps wires the collaborators of a MeetingService.
type MeetingServiceDeps struct {
	Slots        SlotStore
	Directory    AccountDirectory
	Availability AvailabilityChecker
	Builder      *envelope.Builder
	Decryptor    *envelope.Decryptor
	Expander     *series.Engine
	Reconciler   *roster.Reconciler
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
	CacheTTL     time.Duration
	CacheEntries int
}

// MeetingService coordinates validation, diffing, and encryption for meeting
// operations.
type MeetingService struct {
	slots        SlotStore
	directory    AccountDirectory
	availability AvailabilityChecker
	builder      *envelope.Builder
	decryptor    *envelope.Decryptor
	expander     *series.Engine
	reconciler   *roster.Reconciler
	cache        *envelopeCache
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewMeetingService constructs a service from its dependencies. Nil
// IDGenerator, Now, and Reconciler fall back to sensible defaults.
func NewMeetingService(deps MeetingServiceDeps) *MeetingService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Reconciler == nil {
		deps.Reconciler = roster.NewReconciler(nil)
	}
	if deps.Expander == nil {
		deps.Expander = series.NewEngine(nil, deps.Logger)
	}
	return &MeetingService{
		slots:        deps.Slots,
		directory:    deps.Directory,
		availability: deps.Availability,
		builder:      deps.Builder,
		decryptor:    deps.Decryptor,
		expander:     deps.Expander,
		reconciler:   deps.Reconciler,
		cache:        newEnvelopeCache(deps.CacheTTL, deps.CacheEntries, deps.Now),
		idGenerator:  deps.IDGenerator,
		now:          deps.Now,
		logger:       deps.Logger,
	}
}

// ScheduleMeeting creates a new logical meeting: one physical record per
// participant, all at version 0, plus a conference copy when guests are
// present. Recurring meetings persist as series records carrying the derived
// recurrence rule.
func (s *MeetingService) ScheduleMeeting(ctx context.Context, params ScheduleMeetingParams) (MutationResult, error) {
	logger := serviceLogger(ctx, s.logger, "schedule_meeting")
	input := params.Input

	if err := validateMeetingInput(input); err != nil {
		return MutationResult{}, err
	}

	participants, err := s.reconciler.Reconcile(params.Actor.Identity(), input.Participants)
	if err != nil {
		logger.Warn("roster rejected", "error_kind", meeting.ErrorKind(err))
		return MutationResult{}, err
	}

	if err := s.ensureAvailability(ctx, params.Actor.Identity(), participants, input.Start, input.End); err != nil {
		return MutationResult{}, err
	}

	keys, err := s.resolvePublicKeys(ctx, participants)
	if err != nil {
		return MutationResult{}, err
	}

	meetingID := s.idGenerator()
	env := envelopeFromInput(meetingID, input, participants)

	sealed, err := s.builder.Build(env, keys)
	if err != nil {
		return MutationResult{}, err
	}

	const initialVersion = 0
	set := MutationSet{}
	result := MutationResult{MeetingID: meetingID, Version: initialVersion}

	var rule string
	if input.Repeat != meeting.RepeatNone {
		rule, err = series.RuleForRepeat(input.Repeat, input.Start)
		if err != nil {
			return MutationResult{}, err
		}
	}

	for _, sealedCopy := range sealed {
		slot := slotFromSealed(sealedCopy, input.Start, input.End, initialVersion)
		result.Slots = append(result.Slots, slot)
		if rule != "" {
			set.CreateSeries = append(set.CreateSeries, meeting.SlotSeries{Slot: slot, RRule: rule})
		} else {
			set.Creates = append(set.Creates, slot)
		}
	}

	if hasGuests(participants) {
		conference, err := s.builder.BuildConference(env)
		if err != nil {
			return MutationResult{}, err
		}
		set.Creates = append(set.Creates, meeting.Slot{
			ID:          meetingID + conferenceSlotSuffix,
			Start:       input.Start,
			End:         input.End,
			Version:     initialVersion,
			Ciphertext:  conference.Ciphertext,
			ContentHash: conference.ContentHash,
		})
	}

	if err := s.persist(ctx, set); err != nil {
		return MutationResult{}, err
	}

	logger.Info("meeting scheduled", "meeting_id", meetingID, "records", len(result.Slots), "recurring", rule != "")
	return result, nil
}

// UpdateMeeting rewrites every physical record of a meeting after validating
// the actor's permissions and the submitted version. Records for removed
// participants are deleted, surviving records are replaced in place, and
// newly invited participants get fresh records, all at serverVersion+1.
func (s *MeetingService) UpdateMeeting(ctx context.Context, params UpdateMeetingParams) (MutationResult, error) {
	logger := serviceLogger(ctx, s.logger, "update_meeting")
	input := params.Input

	if err := validateMeetingInput(input); err != nil {
		return MutationResult{}, err
	}

	own, env, existing, err := s.loadMeetingState(ctx, params.Actor, params.SlotID, params.Version)
	if err != nil {
		logger.Warn("meeting state rejected", "slot_id", params.SlotID, "error_kind", meeting.ErrorKind(err))
		return MutationResult{}, err
	}

	timeChanged := !input.Start.Equal(own.Start) || !input.End.Equal(own.End)
	if params.Actor.IsGuest() && timeChanged && len(existing) > 1 {
		return MutationResult{}, meeting.ErrGuestRescheduleForbidden
	}

	participants, err := s.reconciler.Reconcile(params.Actor.Identity(), input.Participants)
	if err != nil {
		return MutationResult{}, err
	}

	diff := slotdiff.Compute(params.Actor.AccountAddress, existing, participants)

	if err := s.checkMutationPolicy(params.Actor, env, input, diff); err != nil {
		logger.Warn("mutation denied", "slot_id", params.SlotID, "error_kind", meeting.ErrorKind(err))
		return MutationResult{}, err
	}

	if err := s.ensureAvailability(ctx, params.Actor.Identity(), participants, input.Start, input.End); err != nil {
		return MutationResult{}, err
	}

	keys, err := s.resolvePublicKeys(ctx, participants)
	if err != nil {
		return MutationResult{}, err
	}

	participants = assignKeptSlotIDs(participants, diff.KeptSlots)
	newVersion := own.Version + 1
	newEnv := envelopeFromInput(env.MeetingID, input, participants)

	sealed, err := s.builder.Build(newEnv, keys)
	if err != nil {
		return MutationResult{}, err
	}

	set := MutationSet{Removes: slotdiff.RemovedSlotIDs(existing, diff)}
	result := MutationResult{
		MeetingID:      env.MeetingID,
		Version:        newVersion,
		ToAdd:          diff.ToAdd,
		GuestsToAdd:    diff.GuestsToAdd,
		RemovedSlotIDs: set.Removes,
	}

	kept := make(map[string]struct{}, len(diff.KeptSlots))
	for identity := range diff.KeptSlots {
		kept[identity] = struct{}{}
	}

	for _, sealedCopy := range sealed {
		slot := slotFromSealed(sealedCopy, input.Start, input.End, newVersion)
		result.Slots = append(result.Slots, slot)
		if _, ok := kept[sealedCopy.Recipient.Identity()]; ok {
			set.Updates = append(set.Updates, slot)
		} else {
			set.Creates = append(set.Creates, slot)
		}
	}

	if err := s.refreshConference(ctx, &set, env.MeetingID+conferenceSlotSuffix, newEnv, input.Start, input.End, newVersion); err != nil {
		return MutationResult{}, err
	}

	if err := s.persist(ctx, set); err != nil {
		return MutationResult{}, err
	}

	logger.Info("meeting updated", "meeting_id", env.MeetingID, "version", newVersion,
		"kept", len(set.Updates), "added", len(set.Creates), "removed", len(set.Removes))
	return result, nil
}

// UpdateInstance rewrites a single occurrence of a recurring meeting. The
// occurrence is materialized as instance records when it only existed as a
// ghost; the parent series is never mutated. ToAdd/GuestsToAdd are threaded
// through so newly invited participants get per-occurrence records.
func (s *MeetingService) UpdateInstance(ctx context.Context, params UpdateInstanceParams) (MutationResult, error) {
	logger := serviceLogger(ctx, s.logger, "update_instance")
	input := params.Input

	if err := validateMeetingInput(input); err != nil {
		return MutationResult{}, err
	}

	base, materialized, err := s.loadInstanceState(ctx, params.SeriesID, params.OccurrenceStart, params.Version)
	if err != nil {
		logger.Warn("instance state rejected", "series_id", params.SeriesID, "error_kind", meeting.ErrorKind(err))
		return MutationResult{}, err
	}

	env, err := s.openEnvelope(base, params.Actor.Keys)
	if err != nil {
		return MutationResult{}, err
	}

	siblings, err := s.mapRelatedSlots(ctx, env.RelatedSlotIDs)
	if err != nil {
		return MutationResult{}, err
	}
	existing := append([]meeting.Slot{base}, siblings...)

	timeChanged := !input.Start.Equal(base.Start) || !input.End.Equal(base.End)
	if params.Actor.IsGuest() && timeChanged && len(existing) > 1 {
		return MutationResult{}, meeting.ErrGuestRescheduleForbidden
	}

	participants, err := s.reconciler.Reconcile(params.Actor.Identity(), input.Participants)
	if err != nil {
		return MutationResult{}, err
	}

	diff := slotdiff.Compute(params.Actor.AccountAddress, existing, participants)

	if err := s.checkMutationPolicy(params.Actor, env, input, diff); err != nil {
		return MutationResult{}, err
	}

	if err := s.ensureAvailability(ctx, params.Actor.Identity(), participants, input.Start, input.End); err != nil {
		return MutationResult{}, err
	}

	keys, err := s.resolvePublicKeys(ctx, participants)
	if err != nil {
		return MutationResult{}, err
	}

	participants = assignKeptSlotIDs(participants, diff.KeptSlots)
	newVersion := base.Version + 1

	// On the first edit of an occurrence the kept slots are series records.
	// The new envelopes must address the instance records being materialized,
	// so surviving participants are re-pointed at derived instance ids before
	// sealing; parentSeries remembers where each instance hangs.
	parentSeries := make(map[string]string, len(diff.KeptSlots))
	if !materialized {
		for i, participant := range participants {
			keptSlot, ok := diff.KeptSlots[participant.Identity()]
			if !ok {
				continue
			}
			parentSeries[participant.Identity()] = keptSlot.ID
			participants[i].SlotID = meeting.GhostInstanceID(keptSlot.ID, params.OccurrenceStart)
		}
	}

	newEnv := envelopeFromInput(env.MeetingID, input, participants)

	sealed, err := s.builder.Build(newEnv, keys)
	if err != nil {
		return MutationResult{}, err
	}

	set := MutationSet{}
	result := MutationResult{
		MeetingID:   env.MeetingID,
		Version:     newVersion,
		ToAdd:       diff.ToAdd,
		GuestsToAdd: diff.GuestsToAdd,
	}

	for _, sealedCopy := range sealed {
		identity := sealedCopy.Recipient.Identity()
		_, survivor := diff.KeptSlots[identity]
		slot := slotFromSealed(sealedCopy, input.Start, input.End, newVersion)
		result.Slots = append(result.Slots, slot)
		switch {
		case survivor && materialized:
			// The occurrence already has physical instance records;
			// replace their content in place.
			set.Updates = append(set.Updates, slot)
		case survivor:
			// First edit of this occurrence: materialize one instance
			// per surviving series record.
			set.CreateInstances = append(set.CreateInstances, meeting.SlotInstance{
				Slot:     slot,
				SeriesID: parentSeries[identity],
			})
		default:
			// Newly invited for this occurrence only: a standalone
			// record not attached to any series.
			set.Creates = append(set.Creates, slot)
		}
	}

	// Participants removed from this occurrence keep their series. When the
	// occurrence was still a ghost they get a cancelled instance so the
	// expander stops synthesizing it for them; materialized records are
	// simply deleted.
	for _, slot := range existing {
		if !slotdiff.Removed(diff, slot.Owner()) {
			continue
		}
		if materialized {
			set.Removes = append(set.Removes, slot.ID)
			result.RemovedSlotIDs = append(result.RemovedSlotIDs, slot.ID)
			continue
		}
		set.CreateInstances = append(set.CreateInstances, meeting.SlotInstance{
			Slot: meeting.Slot{
				ID:             meeting.GhostInstanceID(slot.ID, params.OccurrenceStart),
				AccountAddress: slot.AccountAddress,
				GuestEmail:     slot.GuestEmail,
				Start:          params.OccurrenceStart,
				End:            params.OccurrenceStart.Add(slot.Duration()),
				Version:        newVersion,
				Ciphertext:     slot.Ciphertext,
				ContentHash:    slot.ContentHash,
			},
			SeriesID:  slot.ID,
			Cancelled: true,
		})
	}

	// The occurrence gets its own conference copy, keyed like the instance
	// records, so guest slots of an edited occurrence resolve siblings
	// without touching the series-level copy.
	conferenceID := meeting.GhostInstanceID(env.MeetingID+conferenceSlotSuffix, params.OccurrenceStart)
	if err := s.refreshConference(ctx, &set, conferenceID, newEnv, input.Start, input.End, newVersion); err != nil {
		return MutationResult{}, err
	}

	if err := s.persist(ctx, set); err != nil {
		return MutationResult{}, err
	}

	logger.Info("instance updated", "meeting_id", env.MeetingID, "series_id", params.SeriesID,
		"occurrence", params.OccurrenceStart, "version", newVersion)
	return result, nil
}

// CancelMeeting removes every physical record of a meeting. Only the
// meeting's owner or scheduler may cancel.
func (s *MeetingService) CancelMeeting(ctx context.Context, params CancelMeetingParams) (CancelResult, error) {
	logger := serviceLogger(ctx, s.logger, "cancel_meeting")

	own, env, existing, err := s.loadMeetingState(ctx, params.Actor, params.SlotID, params.Version)
	if err != nil {
		return CancelResult{}, err
	}

	if err := ensureCancelAllowed(env, params.Actor); err != nil {
		logger.Warn("cancel denied", "slot_id", params.SlotID, "error_kind", meeting.ErrorKind(err))
		return CancelResult{}, err
	}

	removed := make([]string, 0, len(existing)+1)
	for _, slot := range existing {
		removed = append(removed, slot.ID)
	}
	if hasGuests(env.Participants) {
		removed = append(removed, env.MeetingID+conferenceSlotSuffix)
	}

	if err := s.persist(ctx, MutationSet{Removes: removed}); err != nil {
		return CancelResult{}, err
	}

	logger.Info("meeting cancelled", "meeting_id", env.MeetingID, "records", len(removed), "actor", own.Owner())
	return CancelResult{RemovedSlotIDs: removed}, nil
}

// CancelInstance cancels one occurrence of a recurring meeting by
// materializing a cancelled instance per series record. Ghosts are never
// cancelled directly; cancellation always materializes first.
func (s *MeetingService) CancelInstance(ctx context.Context, params CancelInstanceParams) (CancelResult, error) {
	logger := serviceLogger(ctx, s.logger, "cancel_instance")

	base, materialized, err := s.loadInstanceState(ctx, params.SeriesID, params.OccurrenceStart, params.Version)
	if err != nil {
		return CancelResult{}, err
	}

	env, err := s.openEnvelope(base, params.Actor.Keys)
	if err != nil {
		return CancelResult{}, err
	}

	if err := ensureCancelAllowed(env, params.Actor); err != nil {
		return CancelResult{}, err
	}

	siblings, err := s.mapRelatedSlots(ctx, env.RelatedSlotIDs)
	if err != nil {
		return CancelResult{}, err
	}
	existing := append([]meeting.Slot{base}, siblings...)

	newVersion := base.Version + 1
	set := MutationSet{}
	cancelled := make([]string, 0, len(existing))

	for _, slot := range existing {
		seriesID := slot.ID
		instanceID := meeting.GhostInstanceID(seriesID, params.OccurrenceStart)
		if materialized {
			// Records of a materialized occurrence are already
			// instance records; cancel them under their own ids.
			instanceID = slot.ID
			if parent, ok := meeting.SeriesIDFromInstanceID(slot.ID); ok {
				seriesID = parent
			} else {
				seriesID = params.SeriesID
			}
		}
		set.CreateInstances = append(set.CreateInstances, meeting.SlotInstance{
			Slot: meeting.Slot{
				ID:             instanceID,
				AccountAddress: slot.AccountAddress,
				GuestEmail:     slot.GuestEmail,
				Start:          params.OccurrenceStart,
				End:            params.OccurrenceStart.Add(slot.Duration()),
				Version:        newVersion,
				Ciphertext:     slot.Ciphertext,
				ContentHash:    slot.ContentHash,
			},
			SeriesID:  seriesID,
			Cancelled: true,
		})
		cancelled = append(cancelled, instanceID)
	}

	// A materialized occurrence may carry its own conference copy; it goes
	// away with the occurrence.
	conferenceID := meeting.GhostInstanceID(env.MeetingID+conferenceSlotSuffix, params.OccurrenceStart)
	if _, err := s.slots.GetSlot(ctx, conferenceID); err == nil {
		set.Removes = append(set.Removes, conferenceID)
	}

	if err := s.persist(ctx, set); err != nil {
		return CancelResult{}, err
	}

	logger.Info("instance cancelled", "meeting_id", env.MeetingID, "series_id", params.SeriesID,
		"occurrence", params.OccurrenceStart)
	return CancelResult{RemovedSlotIDs: cancelled}, nil
}

// GetMeeting fetches and decrypts a single slot record for the actor.
func (s *MeetingService) GetMeeting(ctx context.Context, actor Actor, slotID string) (Meeting, error) {
	slot, err := s.slots.GetSlot(ctx, slotID)
	if err != nil {
		return Meeting{}, meeting.ErrMeetingChangeConflict
	}
	env, err := s.openEnvelope(slot, actor.Keys)
	if err != nil {
		return Meeting{}, err
	}
	return Meeting{Slot: slot, Envelope: env}, nil
}

// ListMeetings returns the actor's decrypted meetings within the window,
// expanding recurring series into ghost occurrences. Records the actor
// cannot decrypt are skipped rather than failing the whole listing.
func (s *MeetingService) ListMeetings(ctx context.Context, params ListMeetingsParams) ([]Meeting, error) {
	logger := serviceLogger(ctx, s.logger, "list_meetings")

	window, err := s.slots.ListWindow(ctx, params.Actor.Identity(), params.WindowStart, params.WindowEnd)
	if err != nil {
		return nil, err
	}

	expanded, err := s.expander.Expand(window.Slots, window.Series, window.Instances, series.ExpandOptions{
		WindowStart: params.WindowStart,
		WindowEnd:   params.WindowEnd,
	})
	if err != nil {
		return nil, err
	}

	meetings := make([]Meeting, 0, len(expanded))
	skipped := 0
	for _, instance := range expanded {
		env, err := s.openEnvelope(instance.Slot, params.Actor.Keys)
		if err != nil {
			skipped++
			continue
		}
		meetings = append(meetings, Meeting{
			Slot:     instance.Slot,
			Envelope: env,
			SeriesID: instance.SeriesID,
			Ghost:    instance.Ghost,
		})
	}
	if skipped > 0 {
		logger.Debug("skipped undecryptable records", "count", skipped)
	}
	return meetings, nil
}

// loadMeetingState fetches the actor's authoritative record, enforces the
// version gate, opens the envelope, and resolves sibling slots. A missing
// record and a stale version both surface as a change conflict.
func (s *MeetingService) loadMeetingState(ctx context.Context, actor Actor, slotID string, version int64) (meeting.Slot, meeting.MeetingEnvelope, []meeting.Slot, error) {
	own, err := s.slots.GetSlot(ctx, slotID)
	if err != nil {
		return meeting.Slot{}, meeting.MeetingEnvelope{}, nil, meeting.ErrMeetingChangeConflict
	}
	if own.Version != version {
		return meeting.Slot{}, meeting.MeetingEnvelope{}, nil, meeting.ErrMeetingChangeConflict
	}

	env, err := s.openEnvelope(own, actor.Keys)
	if err != nil {
		return meeting.Slot{}, meeting.MeetingEnvelope{}, nil, err
	}

	siblings, err := s.mapRelatedSlots(ctx, env.RelatedSlotIDs)
	if err != nil {
		return meeting.Slot{}, meeting.MeetingEnvelope{}, nil, err
	}

	return own, env, append([]meeting.Slot{own}, siblings...), nil
}

// loadInstanceState resolves the authoritative record for one occurrence of a
// series: the materialized instance when it exists, else the parent series
// record. The returned flag reports which one the version gate ran against.
func (s *MeetingService) loadInstanceState(ctx context.Context, seriesID string, occurrenceStart time.Time, version int64) (meeting.Slot, bool, error) {
	instanceID := meeting.GhostInstanceID(seriesID, occurrenceStart)
	if instance, err := s.slots.GetSlot(ctx, instanceID); err == nil {
		if instance.Version != version {
			return meeting.Slot{}, false, meeting.ErrMeetingChangeConflict
		}
		return instance, true, nil
	}

	base, err := s.slots.GetSeries(ctx, seriesID)
	if err != nil {
		return meeting.Slot{}, false, meeting.ErrMeetingChangeConflict
	}
	if base.Version != version {
		return meeting.Slot{}, false, meeting.ErrMeetingChangeConflict
	}
	slot := base.Slot
	slot.Start = occurrenceStart
	slot.End = occurrenceStart.Add(base.Duration())
	return slot, false, nil
}

// mapRelatedSlots resolves sibling records by id. Individual missing records
// are tolerated; guest slots may be unresolvable.
func (s *MeetingService) mapRelatedSlots(ctx context.Context, ids []string) ([]meeting.Slot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.slots.GetSlots(ctx, ids)
}

// checkMutationPolicy enforces the field level permissions for non-scheduler
// actors.
func (s *MeetingService) checkMutationPolicy(actor Actor, env meeting.MeetingEnvelope, input MeetingInput, diff slotdiff.Result) error {
	scheduler, ok := env.Scheduler()
	if ok && scheduler.Identity() == actor.Identity() {
		return nil
	}
	if slotdiff.ChangesParticipantCount(diff) && !env.HasPermission(meeting.PermissionInviteGuests) {
		return meeting.ErrGuestListModificationDenied
	}
	if detailsChanged(env, input) && !env.HasPermission(meeting.PermissionEditDetails) {
		return meeting.ErrMeetingDetailsModificationDenied
	}
	return nil
}

// ensureAvailability fans out one availability check per non-acting
// registered participant and awaits them together. Any busy participant
// rejects the whole mutation; there is no partial booking.
func (s *MeetingService) ensureAvailability(ctx context.Context, actorIdentity string, participants []meeting.ParticipantInfo, start, end time.Time) error {
	if s.availability == nil {
		return nil
	}

	targets := make([]string, 0, len(participants))
	for _, participant := range participants {
		if participant.AccountAddress == "" {
			continue
		}
		identity := participant.Identity()
		if identity == actorIdentity {
			continue
		}
		targets = append(targets, identity)
	}
	if len(targets) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		busy     bool
	)
	for _, target := range targets {
		wg.Add(1)
		go func(identity string) {
			defer wg.Done()
			available, err := s.availability.IsAvailable(ctx, identity, start, end)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("availability check for %s: %w", identity, err)
			}
			if err == nil && !available {
				busy = true
			}
		}(target)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if busy {
		return meeting.ErrTimeNotAvailable
	}
	return nil
}

// resolvePublicKeys batch-resolves directory keys for registered
// participants. Unresolvable accounts are tolerated; they fall back to the
// shared key at encryption time.
func (s *MeetingService) resolvePublicKeys(ctx context.Context, participants []meeting.ParticipantInfo) (map[string]string, error) {
	keys := make(map[string]string)
	if s.directory == nil {
		return keys, nil
	}

	addresses := make([]string, 0, len(participants))
	for _, participant := range participants {
		if participant.AccountAddress != "" {
			addresses = append(addresses, participant.AccountAddress)
		}
	}
	if len(addresses) == 0 {
		return keys, nil
	}

	accounts, err := s.directory.ResolveAccounts(ctx, addresses)
	if err != nil {
		return nil, fmt.Errorf("resolve accounts: %w", err)
	}
	for _, account := range accounts {
		if account.PublicKey != "" {
			keys[strings.ToLower(account.Address)] = account.PublicKey
		}
	}
	return keys, nil
}

// refreshConference keeps the shared conference copy in step with a mutation.
// The copy exists exactly while the roster includes guests: it is created when
// guests first appear, replaced in place on every edit so it carries the
// current ciphertext and version, and removed when the last guest leaves.
func (s *MeetingService) refreshConference(ctx context.Context, set *MutationSet, conferenceID string, env meeting.MeetingEnvelope, start, end time.Time, version int64) error {
	_, err := s.slots.GetSlot(ctx, conferenceID)
	exists := err == nil

	if !hasGuests(env.Participants) {
		if exists {
			set.Removes = append(set.Removes, conferenceID)
		}
		return nil
	}

	conference, err := s.builder.BuildConference(env)
	if err != nil {
		return err
	}
	slot := meeting.Slot{
		ID:          conferenceID,
		Start:       start,
		End:         end,
		Version:     version,
		Ciphertext:  conference.Ciphertext,
		ContentHash: conference.ContentHash,
	}
	if exists {
		set.Updates = append(set.Updates, slot)
	} else {
		set.Creates = append(set.Creates, slot)
	}
	return nil
}

// persist applies the mutation set and flushes the envelope cache. A
// compare-and-swap rejection from the store means another writer advanced a
// record between the version gate and the write; that surfaces as the same
// change conflict the gate reports.
func (s *MeetingService) persist(ctx context.Context, set MutationSet) error {
	if err := s.slots.Apply(ctx, set); err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			return meeting.ErrMeetingChangeConflict
		}
		return err
	}
	s.cache.Invalidate()
	return nil
}

func (s *MeetingService) openEnvelope(slot meeting.Slot, material envelope.KeyMaterial) (meeting.MeetingEnvelope, error) {
	if env, ok := s.cache.Get(slot, material); ok {
		return env, nil
	}
	if s.decryptor == nil {
		return meeting.MeetingEnvelope{}, meeting.ErrDecryptionFailed
	}
	env, err := s.decryptor.Open(slot, material)
	if err != nil {
		return meeting.MeetingEnvelope{}, err
	}
	s.cache.Store(slot, material, env)
	return env, nil
}

func envelopeFromInput(meetingID string, input MeetingInput, participants []meeting.ParticipantInfo) meeting.MeetingEnvelope {
	return meeting.MeetingEnvelope{
		MeetingID:    meetingID,
		Title:        strings.TrimSpace(input.Title),
		Content:      input.Content,
		MeetingURL:   input.MeetingURL,
		Provider:     input.Provider,
		Recurrence:   input.Repeat,
		Permissions:  input.Permissions,
		Reminders:    input.Reminders,
		Participants: participants,
	}
}

func slotFromSealed(copy envelope.Sealed, start, end time.Time, version int64) meeting.Slot {
	return meeting.Slot{
		ID:             copy.SlotID,
		AccountAddress: copy.Recipient.AccountAddress,
		GuestEmail:     copy.Recipient.GuestEmail,
		Start:          start,
		End:            end,
		Version:        version,
		Ciphertext:     copy.Ciphertext,
		ContentHash:    copy.ContentHash,
	}
}

func assignKeptSlotIDs(participants []meeting.ParticipantInfo, kept map[string]meeting.Slot) []meeting.ParticipantInfo {
	result := make([]meeting.ParticipantInfo, len(participants))
	copy(result, participants)
	for i, participant := range result {
		if slot, ok := kept[participant.Identity()]; ok {
			result[i].SlotID = slot.ID
		}
	}
	return result
}

func ensureCancelAllowed(env meeting.MeetingEnvelope, actor Actor) error {
	participant, ok := env.Participant(actor.Identity())
	if !ok {
		return meeting.ErrMeetingCancelForbidden
	}
	if participant.Type != meeting.ParticipantTypeScheduler && participant.Type != meeting.ParticipantTypeOwner {
		return meeting.ErrMeetingCancelForbidden
	}
	return nil
}

func detailsChanged(env meeting.MeetingEnvelope, input MeetingInput) bool {
	if strings.TrimSpace(input.Title) != env.Title {
		return true
	}
	if input.Content != env.Content {
		return true
	}
	if input.MeetingURL != env.MeetingURL {
		return true
	}
	return false
}

func hasGuests(participants []meeting.ParticipantInfo) bool {
	for _, participant := range participants {
		if participant.IsGuest() {
			return true
		}
	}
	return false
}

func validateMeetingInput(input MeetingInput) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}
	if input.MeetingURL != "" {
		if _, err := url.ParseRequestURI(input.MeetingURL); err != nil {
			vErr.add("meeting_url", "must be a valid URL")
		}
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
