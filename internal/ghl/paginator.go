package ghl

import (
	"context"
	"time"

	"github.com/straye-as/opportunity-sync/internal/config"
	"github.com/straye-as/opportunity-sync/internal/retrier"
	"go.uber.org/zap"
)

// Cursor marks the resume position of a paged listing
type Cursor struct {
	AfterID string
	After   Timestamp
}

// PageFunc fetches the page following cursor
type PageFunc func(ctx context.Context, cursor Cursor, limit int) ([]RawOpportunity, error)

// StopReason explains why pagination ended
type StopReason string

const (
	StopEndOfData StopReason = "end_of_data"
	StopShortPage StopReason = "short_page"
	StopCapped    StopReason = "record_cap"
	StopStalled   StopReason = "cursor_unchanged"
	StopDuplicate StopReason = "duplicate_records"
	StopMaxPages  StopReason = "max_pages"
	StopFailed    StopReason = "request_failed"
	StopCanceled  StopReason = "canceled"
)

// PaginateResult is everything collected before pagination stopped
type PaginateResult struct {
	Items  []RawOpportunity
	Pages  int
	Reason StopReason
	// Err is the request failure behind StopFailed
	Err error
}

// Paginator walks a cursor-paged listing to the end and always terminates
type Paginator struct {
	limit      int
	maxRecords int
	maxPages   int
	delay      time.Duration
	policy     *retrier.Policy
	logger     *zap.Logger
}

// NewPaginator creates a paginator from the provider configuration
func NewPaginator(cfg *config.GHLConfig, policy *retrier.Policy, logger *zap.Logger) *Paginator {
	limit := cfg.PageSize
	if limit <= 0 {
		limit = 100
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 100
	}
	return &Paginator{
		limit:      limit,
		maxRecords: cfg.MaxRecords,
		maxPages:   maxPages,
		delay:      cfg.PageDelayDuration(),
		policy:     policy,
		logger:     logger,
	}
}

// WithMaxRecords returns a copy capped at n records; n <= 0 keeps the configured cap
func (p *Paginator) WithMaxRecords(n int) *Paginator {
	cp := *p
	if n > 0 {
		cp.maxRecords = n
	}
	return &cp
}

// Paginate fetches pages until the data ends, the cap is reached, the
// provider repeats itself, or a request fails. A 429 is retried on the same
// page within the retry policy. Any other failure ends pagination with the
// records collected so far; only a canceled ctx is returned as an error.
func (p *Paginator) Paginate(ctx context.Context, fetch PageFunc) (PaginateResult, error) {
	var (
		res    PaginateResult
		cursor Cursor
		seen   = make(map[string]struct{})
	)

	for res.Pages < p.maxPages {
		var batch []RawOpportunity
		err := p.policy.Do(ctx, IsRateLimited, func(ctx context.Context) error {
			var err error
			batch, err = fetch(ctx, cursor, p.limit)
			return err
		})
		res.Pages++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				res.Reason = StopCanceled
				return res, ctxErr
			}
			p.logger.Warn("Page request failed, keeping partial results",
				zap.Int("page", res.Pages),
				zap.Int("collected", len(res.Items)),
				zap.Error(err),
			)
			res.Reason, res.Err = StopFailed, err
			return res, nil
		}

		if len(batch) == 0 {
			res.Reason = StopEndOfData
			return res, nil
		}

		for _, item := range batch {
			if _, dup := seen[item.ID]; dup && item.ID != "" {
				p.logger.Warn("Provider returned records already collected, stopping",
					zap.Int("page", res.Pages),
					zap.String("opportunity_id", item.ID),
				)
				res.Reason = StopDuplicate
				return res, nil
			}
		}
		for _, item := range batch {
			seen[item.ID] = struct{}{}
		}
		res.Items = append(res.Items, batch...)

		if p.maxRecords > 0 && len(res.Items) >= p.maxRecords {
			res.Items = res.Items[:p.maxRecords]
			res.Reason = StopCapped
			return res, nil
		}

		if len(batch) < p.limit {
			res.Reason = StopShortPage
			return res, nil
		}

		last := batch[len(batch)-1]
		next := Cursor{AfterID: last.ID, After: last.DateAdded}
		if next == cursor {
			p.logger.Warn("Pagination cursor unchanged, stopping",
				zap.Int("page", res.Pages),
				zap.String("start_after_id", next.AfterID),
			)
			res.Reason = StopStalled
			return res, nil
		}
		cursor = next

		if p.delay > 0 && res.Pages < p.maxPages {
			timer := time.NewTimer(p.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				res.Reason = StopCanceled
				return res, ctx.Err()
			case <-timer.C:
			}
		}
	}

	p.logger.Warn("Reached maximum page limit, stopping pagination",
		zap.Int("max_pages", p.maxPages),
		zap.Int("collected", len(res.Items)),
	)
	res.Reason = StopMaxPages
	return res, nil
}
