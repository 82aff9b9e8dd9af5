package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pavelzubkov/qrlink/internal/entity"
)

type linkFetcher interface {
	RetrieveByLinkID(ctx context.Context, linkID string) (*entity.Link, error)
}

type linkCache interface {
	Get(ctx context.Context, linkID string) (*entity.Link, error)
	Set(ctx context.Context, link *entity.Link) error
	Invalidate(ctx context.Context, linkID string) error
}

type scanSink interface {
	Track(event entity.ScanEvent) bool
}

// ClientInfo carries the request context used to pick a destination and to
// account for the scan.
type ClientInfo struct {
	UserAgent string
	SourceIP  string
}

// Resolver turns a link identifier and client context into a routing
// decision. It never mutates the record; accounting happens asynchronously
// through the scan sink and is never waited on.
type Resolver struct {
	repo         linkFetcher
	cache        linkCache
	tracker      scanSink
	logger       *slog.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

// NewResolver creates a Resolver. cache may be nil, in which case every
// fetch goes straight to the record store.
func NewResolver(repo linkFetcher, cache linkCache, tracker scanSink, logger *slog.Logger, storeTimeout time.Duration) *Resolver {
	return &Resolver{
		repo:         repo,
		cache:        cache,
		tracker:      tracker,
		logger:       logger,
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

// Resolve classifies a resolution attempt into exactly one terminal outcome.
// A scan event is emitted only for redirect outcomes, and the caller never
// waits on it.
func (r *Resolver) Resolve(ctx context.Context, linkID string, client ClientInfo) *entity.Decision {
	const op = "usecase.Resolver.Resolve"

	if linkID == "" {
		return &entity.Decision{Outcome: entity.OutcomeNotFound}
	}

	link, err := r.fetch(ctx, linkID)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			return &entity.Decision{Outcome: entity.OutcomeNotFound, LinkID: linkID}
		}

		r.logger.Error("record store fetch failed",
			slog.Group(op, slog.String("link_id", linkID), slog.Any("err", err)),
		)

		return &entity.Decision{Outcome: entity.OutcomeStoreUnavailable, LinkID: linkID}
	}

	if link.Expired(r.now()) {
		return &entity.Decision{Outcome: entity.OutcomeExpired, LinkID: linkID}
	}

	device := entity.ClassifyDevice(client.UserAgent)

	r.tracker.Track(entity.ScanEvent{
		LinkID:    linkID,
		ScannedAt: r.now().UTC(),
		Device:    device,
		SourceIP:  client.SourceIP,
		UserAgent: client.UserAgent,
	})

	return &entity.Decision{
		Outcome:     entity.OutcomeRedirect,
		LinkID:      linkID,
		Destination: link.DestinationFor(device),
		Device:      device,
	}
}

// fetch reads the record through the cache, bounded by the store timeout.
// Cache failures fall through to the store; cache write-back is best effort.
func (r *Resolver) fetch(ctx context.Context, linkID string) (*entity.Link, error) {
	const op = "usecase.Resolver.fetch"

	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()

	if r.cache != nil {
		if link, err := r.cache.Get(ctx, linkID); err == nil {
			return link, nil
		}
	}

	link, err := r.repo.RetrieveByLinkID(ctx, linkID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, link); err != nil {
			r.logger.Warn("failed to cache link",
				slog.Group(op, slog.String("link_id", linkID), slog.Any("err", err)),
			)
		}
	}

	return link, nil
}
