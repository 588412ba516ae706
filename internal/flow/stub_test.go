package flow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/vbonduro/scaninv/internal/cache"
	"github.com/vbonduro/scaninv/internal/domain"
)

// stubStore is an in-memory recordStore. Lookups for barcodes in gates block
// until the gate is closed, regardless of the context.
type stubStore struct {
	mu        sync.Mutex
	records   []*domain.Record
	nextID    int
	findErr   error
	writeErr  error
	gates     map[string]chan struct{}
	started   chan string
	findCalls int
	writes    int
}

func newStubStore(records ...*domain.Record) *stubStore {
	return &stubStore{
		records: records,
		nextID:  len(records) + 1,
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 8),
	}
}

// gate makes lookups for barcode block until the returned func is called.
func (s *stubStore) gate(barcode string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[barcode] = ch
	s.mu.Unlock()
	return func() { close(ch) }
}

func (s *stubStore) FindByBarcode(_ context.Context, barcode string) ([]*domain.Record, error) {
	s.mu.Lock()
	s.findCalls++
	gate := s.gates[barcode]
	s.mu.Unlock()

	if gate != nil {
		s.started <- barcode
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []*domain.Record
	for _, r := range s.records {
		if r.Barcode == barcode {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *stubStore) FindByID(_ context.Context, id string) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, r := range s.records {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (s *stubStore) Create(_ context.Context, f domain.Fields) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	s.writes++
	r := &domain.Record{
		ID:          strconv.Itoa(s.nextID),
		Name:        f.Name,
		Barcode:     f.Barcode,
		Category:    f.Category,
		Quantity:    f.Quantity,
		Price:       f.Price,
		LastUpdated: time.Now(),
	}
	s.nextID++
	s.records = append(s.records, r)
	c := *r
	return &c, nil
}

func (s *stubStore) Update(_ context.Context, id string, p domain.Patch) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	for i, r := range s.records {
		if r.ID == id {
			s.writes++
			next := p.Apply(*r)
			next.LastUpdated = time.Now()
			s.records[i] = &next
			c := next
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

// put inserts a record behind the resolver's back, as another client would.
func (s *stubStore) put(r *domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

func (s *stubStore) setFindErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findErr = err
}

func (s *stubStore) counts() (finds, writes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCalls, s.writes
}

var errStoreDown = errors.New("service unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestResolver(s *stubStore) *Resolver {
	return NewResolver(s, cache.NewMemory(64, time.Minute), time.Second, discardLogger())
}
