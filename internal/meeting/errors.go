package meeting

import "errors"

// The engine's failure taxonomy. Every sentinel is constructed locally and
// propagates unmodified to the caller; transport failures are translated into
// the closest sentinel where a mapping exists.
var (
	// ErrMeetingWithYourself is returned when reconciliation reduces the
	// roster to just the acting account.
	ErrMeetingWithYourself = errors.New("meeting: cannot schedule a meeting with yourself")
	// ErrMeetingCreation is returned when fewer than two distinct
	// participants remain after reconciliation.
	ErrMeetingCreation = errors.New("meeting: at least two distinct participants are required")
	// ErrMultipleSchedulers is returned when the reconciled roster does not
	// contain exactly one scheduler.
	ErrMultipleSchedulers = errors.New("meeting: exactly one scheduler is required")
	// ErrMeetingChangeConflict is returned when the submitted version does
	// not match the authoritative record, or the record cannot be located.
	ErrMeetingChangeConflict = errors.New("meeting: version conflict, re-fetch and retry")
	// ErrGuestListModificationDenied is returned when the actor may not
	// change the participant roster.
	ErrGuestListModificationDenied = errors.New("meeting: actor may not modify the guest list")
	// ErrMeetingDetailsModificationDenied is returned when the actor may not
	// change the meeting details.
	ErrMeetingDetailsModificationDenied = errors.New("meeting: actor may not modify meeting details")
	// ErrTimeNotAvailable is returned when any non-acting participant is
	// busy for the requested interval.
	ErrTimeNotAvailable = errors.New("meeting: requested time is not available for all participants")
	// ErrMeetingCancelForbidden is returned when the actor is neither the
	// meeting's owner nor its scheduler.
	ErrMeetingCancelForbidden = errors.New("meeting: actor may not cancel this meeting")
	// ErrDecryptionFailed is returned when a ciphertext cannot be opened
	// with the caller's key material.
	ErrDecryptionFailed = errors.New("meeting: payload could not be decrypted")
	// ErrGuestRescheduleForbidden is returned when a guest attempts to
	// reschedule a meeting with more than one physical slot.
	ErrGuestRescheduleForbidden = errors.New("meeting: guests cannot reschedule multi-slot meetings")
)

// ErrorKind maps taxonomy errors to a stable logging label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMeetingWithYourself):
		return "meeting_with_yourself"
	case errors.Is(err, ErrMeetingCreation):
		return "meeting_creation"
	case errors.Is(err, ErrMultipleSchedulers):
		return "multiple_schedulers"
	case errors.Is(err, ErrMeetingChangeConflict):
		return "change_conflict"
	case errors.Is(err, ErrGuestListModificationDenied):
		return "guest_list_denied"
	case errors.Is(err, ErrMeetingDetailsModificationDenied):
		return "details_denied"
	case errors.Is(err, ErrTimeNotAvailable):
		return "time_not_available"
	case errors.Is(err, ErrMeetingCancelForbidden):
		return "cancel_forbidden"
	case errors.Is(err, ErrDecryptionFailed):
		return "decryption_failed"
	case errors.Is(err, ErrGuestRescheduleForbidden):
		return "guest_reschedule_forbidden"
	default:
		return "unexpected"
	}
}
