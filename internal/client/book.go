package client

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jesser-selmi/idos-front/internal/request"
)

// State tracks whether a locally cached record matches the server.
type State int

const (
	Confirmed State = iota
	Pending
	Failed
)

func (s State) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type Entry struct {
	Request request.RequestResponse
	State   State
	// Err is the failure that left the entry Failed.
	Err error
}

// ValidationError carries the field errors found before any call was made.
type ValidationError struct {
	Fields request.FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "client: invalid request: " + strings.Join(parts, "; ")
}

type RequestAPI interface {
	SubmitRequest(ctx context.Context, in request.CreateRequestInput) (request.RequestResponse, error)
	ListOwnRequests(ctx context.Context) ([]request.RequestResponse, error)
}

// RequestBook is the caller's own request list.
type RequestBook struct {
	api RequestAPI
	now func() time.Time

	mu      sync.Mutex
	entries []Entry
}

func NewRequestBook(api RequestAPI, now func() time.Time) *RequestBook {
	if now == nil {
		now = time.Now
	}
	return &RequestBook{api: api, now: now}
}

// Entries returns a snapshot of the cache.
func (b *RequestBook) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Submit validates in against the cached requests, records a Pending entry
// and sends it. The entry becomes Confirmed with the server record, or
// Failed until Rollback removes it. Local validation errors never reach
// the API.
func (b *RequestBook) Submit(ctx context.Context, in request.CreateRequestInput) (Entry, error) {
	b.mu.Lock()

	candidate, fieldErrs := b.candidate(in)
	if !fieldErrs.OK() {
		b.mu.Unlock()
		return Entry{}, &ValidationError{Fields: fieldErrs}
	}

	localID := "local-" + uuid.NewString()
	iv := request.NewInterval(candidate.Date, candidate.Duration)
	b.entries = append([]Entry{{
		Request: request.RequestResponse{
			ID:          localID,
			Type:        candidate.Type,
			Date:        iv.Start.Format(request.DateLayout),
			Duration:    candidate.Duration,
			EndDate:     iv.End.Format(request.DateLayout),
			Status:      request.StatusPending,
			StatusLabel: request.Display(request.StatusPending),
		},
		State: Pending,
	}}, b.entries...)
	b.mu.Unlock()

	in.Type = string(candidate.Type)
	in.Date = candidate.Date.Format(request.DateLayout)
	in.Duration = request.Days(candidate.Duration)

	created, err := b.api.SubmitRequest(ctx, in)

	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(localID)
	if i < 0 {
		// Refresh replaced the cache while the call was in flight.
		if err != nil {
			return Entry{}, err
		}
		return Entry{Request: created, State: Confirmed}, nil
	}

	if err != nil {
		b.entries[i].State = Failed
		b.entries[i].Err = err
		return b.entries[i], err
	}

	b.entries[i] = Entry{Request: created, State: Confirmed}
	return b.entries[i], nil
}

// Rollback drops a Failed entry. It reports whether one was removed.
func (b *RequestBook) Rollback(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 || b.entries[i].State != Failed {
		return false
	}
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	return true
}

// Refresh replaces the cache with the server's list. On error the cache is
// left as is.
func (b *RequestBook) Refresh(ctx context.Context) error {
	reqs, err := b.api.ListOwnRequests(ctx)
	if err != nil {
		return err
	}

	entries := make([]Entry, 0, len(reqs))
	for _, r := range reqs {
		entries = append(entries, Entry{Request: r, State: Confirmed})
	}

	b.mu.Lock()
	b.entries = entries
	b.mu.Unlock()
	return nil
}

func (b *RequestBook) candidate(in request.CreateRequestInput) (request.Candidate, request.FieldErrors) {
	c, errs := request.ParseCandidate(in)
	if !errs.OK() {
		return c, errs
	}

	existing := make([]request.Interval, 0, len(b.entries))
	for _, e := range b.entries {
		if e.State == Failed {
			continue
		}
		start, err := request.ParseDate(e.Request.Date)
		if err != nil {
			continue
		}
		existing = append(existing, request.NewInterval(start, e.Request.Duration))
	}

	for field, msg := range request.Validate(c, existing, b.now()) {
		errs[field] = msg
	}
	return c, errs
}

func (b *RequestBook) indexOf(id string) int {
	for i, e := range b.entries {
		if e.Request.ID == id {
			return i
		}
	}
	return -1
}
