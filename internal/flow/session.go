package flow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Session is one scan session. At most one lookup is in flight per session:
// scans arriving while one resolves are ignored rather than queued, so results
// can never be applied out of order.
type Session struct {
	id       string
	resolver *Resolver
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	barcode string
	// generation is bumped by Reset. A lookup started under an older
	// generation has its result discarded.
	generation uint64
}

func NewSession(id string, resolver *Resolver, logger *slog.Logger) *Session {
	return &Session{
		id:       id,
		resolver: resolver,
		logger:   logger.With("session_id", id),
		state:    StateIdle,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Barcode returns the barcode the session is resolving or last resolved.
func (s *Session) Barcode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.barcode
}

// Scan captures barcode and resolves it against the store. It blocks for the
// duration of the lookup.
func (s *Session) Scan(ctx context.Context, barcode string) Outcome {
	barcode = strings.TrimSpace(barcode)

	s.mu.Lock()
	if barcode == "" || s.state == StateScanned || s.state == StateResolving {
		s.logger.Debug("scan ignored", "barcode", barcode, "state", s.state)
		s.mu.Unlock()
		return Outcome{Kind: Ignored, Barcode: barcode}
	}
	s.barcode = barcode
	s.setState(StateScanned)
	s.setState(StateResolving)
	gen := s.generation
	s.mu.Unlock()

	rec, err := s.resolver.LookupBarcode(ctx, barcode)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.Info("stale lookup discarded", "barcode", barcode)
		return Outcome{Kind: Discarded, Barcode: barcode}
	}

	if err != nil {
		s.logger.Error("barcode lookup failed", "barcode", barcode, "error", err)
		s.setState(StateIdle)
		return Outcome{Kind: LookupFailed, Barcode: barcode, Err: err}
	}

	var out Outcome
	if rec != nil {
		s.setState(StateResolvedExisting)
		out = Outcome{Kind: NavigateToExisting, Barcode: barcode, RecordID: rec.ID, Mode: ModeView}
	} else {
		s.setState(StateResolvedAbsent)
		out = Outcome{Kind: NavigateToCreate, Barcode: barcode}
	}
	s.setState(StateTerminal)
	return out
}

// Reset returns the session to Idle from any state. Any lookup still in flight
// will have its result discarded, and the cached answer for the previous
// barcode is dropped so the next scan asks the store again.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	prev := s.barcode
	s.generation++
	s.barcode = ""
	s.setState(StateIdle)
	s.mu.Unlock()

	if prev != "" {
		s.resolver.Forget(ctx, prev)
	}
}

// setState must be called with mu held.
func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug("session transition", "from", s.state.String(), "to", next.String())
	s.state = next
}
