package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jesser-selmi/idos-front/internal/request"
	"github.com/jesser-selmi/idos-front/internal/session"
	"go.uber.org/zap"
)

var ErrUnknownRequest = errors.New("client: request is not on the board")

type ReviewAPI interface {
	ListRequests(ctx context.Context, filter request.ListFilter) ([]request.RequestResponse, error)
	ReviewRequest(ctx context.Context, id string, action request.Action) (request.RequestResponse, error)
}

// ReviewBoard is a reviewer's listing of every request, optionally narrowed
// to one type.
type ReviewBoard struct {
	api    ReviewAPI
	role   session.Role
	filter request.ListFilter
	logger *zap.Logger

	mu      sync.Mutex
	entries []Entry
}

func NewReviewBoard(api ReviewAPI, role session.Role, filter request.ListFilter, logger ...*zap.Logger) *ReviewBoard {
	l := zap.L().Named("client.review_board")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("client.review_board")
	}
	return &ReviewBoard{api: api, role: role, filter: filter, logger: l}
}

func (b *ReviewBoard) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

func (b *ReviewBoard) Refresh(ctx context.Context) error {
	reqs, err := b.api.ListRequests(ctx, b.filter)
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

// Review shows the predicted next status at once and sends the decision.
// A transition refused locally makes no call. When the server refuses, the
// previous record is restored and the board re-fetched, since another
// reviewer may have decided first.
func (b *ReviewBoard) Review(ctx context.Context, id string, action request.Action) (Entry, error) {
	b.mu.Lock()
	i := b.indexOf(id)
	if i < 0 {
		b.mu.Unlock()
		return Entry{}, ErrUnknownRequest
	}

	prev := b.entries[i]
	next, err := request.Next(prev.Request.Status, b.role, action)
	if err != nil {
		b.mu.Unlock()
		return prev, fmt.Errorf("client: review %s: %w", id, err)
	}
	if next == prev.Request.Status {
		b.mu.Unlock()
		return prev, nil
	}

	optimistic := prev.Request
	optimistic.Status = next
	optimistic.StatusLabel = request.Display(next)
	optimistic.Reviewable = next.Reviewable()
	b.entries[i] = Entry{Request: optimistic, State: Pending}
	b.mu.Unlock()

	updated, err := b.api.ReviewRequest(ctx, id, action)
	if err == nil {
		b.mu.Lock()
		defer b.mu.Unlock()

		entry := Entry{Request: updated, State: Confirmed}
		if j := b.indexOf(id); j >= 0 {
			b.entries[j] = entry
		}
		return entry, nil
	}

	b.mu.Lock()
	if j := b.indexOf(id); j >= 0 {
		b.entries[j] = prev
	}
	b.mu.Unlock()

	if refreshErr := b.Refresh(ctx); refreshErr != nil {
		b.logger.Warn("re-fetch after failed review failed",
			zap.String("request_id", id),
			zap.Error(refreshErr),
		)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if j := b.indexOf(id); j >= 0 {
		return b.entries[j], err
	}
	return prev, err
}

func (b *ReviewBoard) indexOf(id string) int {
	for i, e := range b.entries {
		if e.Request.ID == id {
			return i
		}
	}
	return -1
}
