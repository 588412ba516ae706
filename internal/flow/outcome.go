package flow

import (
	"errors"

	"github.com/vbonduro/scaninv/internal/domain"
)

var (
	// ErrLookupFailed marks a failure to reach the store during a lookup. It is
	// never reported as "not found".
	ErrLookupFailed   = errors.New("lookup failed")
	ErrUnknownSession = errors.New("unknown scan session")
)

// State is a step of a scan session.
type State int

const (
	StateIdle State = iota
	StateScanned
	StateResolving
	StateResolvedExisting
	StateResolvedAbsent
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanned:
		return "scanned"
	case StateResolving:
		return "resolving"
	case StateResolvedExisting:
		return "resolved_existing"
	case StateResolvedAbsent:
		return "resolved_absent"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// OutcomeKind is what the presentation layer should do after a scan.
type OutcomeKind int

const (
	NavigateToExisting OutcomeKind = iota + 1
	NavigateToCreate
	LookupFailed
	// Ignored is returned for a scan that arrived while another was resolving.
	Ignored
	// Discarded is returned to a scan whose session was reset before its
	// lookup finished.
	Discarded
)

func (k OutcomeKind) String() string {
	switch k {
	case NavigateToExisting:
		return "navigate_to_existing"
	case NavigateToCreate:
		return "navigate_to_create"
	case LookupFailed:
		return "lookup_failed"
	case Ignored:
		return "ignored"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// ModeView opens an existing record read-only.
const ModeView = "view"

type Outcome struct {
	Kind    OutcomeKind
	Barcode string
	// RecordID and Mode are set for NavigateToExisting.
	RecordID string
	Mode     string
	// Err is set for LookupFailed and wraps ErrLookupFailed.
	Err error
}

// SaveKind is the result of a conflict-checked save.
type SaveKind int

const (
	SaveSucceeded SaveKind = iota + 1
	BarcodeConflict
	SaveFailed
)

func (k SaveKind) String() string {
	switch k {
	case SaveSucceeded:
		return "save_succeeded"
	case BarcodeConflict:
		return "barcode_conflict"
	case SaveFailed:
		return "save_failed"
	default:
		return "unknown"
	}
}

type SaveResult struct {
	Kind SaveKind
	// Record is the written record for SaveSucceeded.
	Record *domain.Record
	// Existing is the record already holding the barcode for BarcodeConflict.
	Existing *domain.Record
	// Err is set for SaveFailed. A failed conflict check wraps ErrLookupFailed.
	Err error
}
