package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/opportunity-sync/internal/config"
	"github.com/straye-as/opportunity-sync/internal/domain"
	"github.com/straye-as/opportunity-sync/internal/ghl"
	"github.com/straye-as/opportunity-sync/internal/logger"
	"github.com/straye-as/opportunity-sync/internal/matching"
	"github.com/straye-as/opportunity-sync/internal/progress"
	"github.com/straye-as/opportunity-sync/internal/retrier"
	"github.com/straye-as/opportunity-sync/internal/stages"
	"github.com/straye-as/opportunity-sync/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// archivePrefix names sync result documents
const archivePrefix = "master_child_opportunity_update_"

// OpportunityUpdater applies changes to master opportunities
type OpportunityUpdater interface {
	stages.PipelineSource
	UpdateOpportunityStage(ctx context.Context, apiKey, pipelineID, opportunityID, stageID, status string) error
	UpdateOpportunityValue(ctx context.Context, apiKey, pipelineID, opportunityID string, value decimal.Decimal, title, status string) error
}

// SyncOptions tune one sync run; zero values fall back to configuration
type SyncOptions struct {
	DryRun      bool
	BatchSize   int
	Concurrency int
	ExactOnly   bool
	MatchingID  *uuid.UUID
}

// SyncService pushes child stage and value changes to matched master
// opportunities. Runs execute in the background; batches run one after
// another with bounded concurrency inside each batch.
type SyncService struct {
	client   OpportunityUpdater
	keys     AccountKeys
	resolver *stages.Resolver
	policy   *retrier.Policy
	store    *progress.Store[domain.SyncOperation]
	archive  storage.Storage
	cfg      config.SyncConfig
	logger   *zap.Logger

	// baseCtx is canceled by Shutdown; it only aborts outbound calls
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// sleep waits between batches
	sleep func(ctx context.Context, d time.Duration)
}

// NewSyncService creates a new sync service
func NewSyncService(
	client OpportunityUpdater,
	keys AccountKeys,
	resolver *stages.Resolver,
	policy *retrier.Policy,
	store *progress.Store[domain.SyncOperation],
	archive storage.Storage,
	cfg *config.SyncConfig,
	logger *zap.Logger,
) *SyncService {
	ctx, cancel := context.WithCancel(context.Background())
	if archive == nil {
		archive = storage.DiscardStorage{}
	}
	return &SyncService{
		client:   client,
		keys:     keys,
		resolver: resolver,
		policy:   policy,
		store:    store,
		archive:  archive,
		cfg:      *cfg,
		logger:   logger,
		baseCtx:  ctx,
		cancel:   cancel,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// SetSleep replaces the inter-batch wait
func (s *SyncService) SetSleep(fn func(ctx context.Context, d time.Duration)) {
	s.sleep = fn
}

// EligibleRecords drops unmatched records, and fuzzy ones when exactOnly is set
func EligibleRecords(records []domain.MatchRecord, exactOnly bool) []domain.MatchRecord {
	out := make([]domain.MatchRecord, 0, len(records))
	for _, rec := range records {
		if rec.MatchType == domain.MatchTypeNoMatch {
			continue
		}
		if exactOnly && rec.MatchType != domain.MatchTypeExact {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// StartSync registers a sync operation over records and runs it in the
// background. The returned id can be polled immediately.
func (s *SyncService) StartSync(records []domain.MatchRecord, opts SyncOptions) (uuid.UUID, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = s.cfg.BatchSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = s.cfg.Concurrency
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	eligible := EligibleRecords(records, opts.ExactOnly)

	id := uuid.New()
	s.store.Create(id, domain.SyncOperation{
		ID:           id,
		MatchingID:   opts.MatchingID,
		Status:       domain.StatusInitializing,
		Total:        len(eligible),
		TotalBatches: (len(eligible) + opts.BatchSize - 1) / opts.BatchSize,
		RecentErrors: []domain.SyncError{},
		Rate:         "0.0",
		DryRun:       opts.DryRun,
		ExactOnly:    opts.ExactOnly,
		StartedAt:    time.Now(),
	})

	s.logger.Info("Starting opportunity sync",
		zap.String("sync_id", id.String()),
		zap.Int("records", len(records)),
		zap.Int("eligible", len(eligible)),
		zap.Int("batch_size", opts.BatchSize),
		zap.Int("concurrency", opts.Concurrency),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("exact_only", opts.ExactOnly),
	)

	s.wg.Add(1)
	go s.run(id, eligible, opts)

	return id, nil
}

// GetSyncStatus returns a snapshot of a sync operation
func (s *SyncService) GetSyncStatus(id uuid.UUID) (domain.SyncOperation, error) {
	op, ok := s.store.Get(id)
	if !ok {
		return domain.SyncOperation{}, ErrSyncNotFound
	}
	return op, nil
}

// Wait blocks until every background run has finished
func (s *SyncService) Wait() {
	s.wg.Wait()
}

// Shutdown aborts in-flight outbound calls and waits for runs to wind down
// or ctx to expire. Remaining records fail fast and are counted as errors.
func (s *SyncService) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recordOutcome is the archived result of one record
type recordOutcome struct {
	OpportunityID string   `json:"opportunity_id,omitempty"`
	ContactName   string   `json:"contact_name"`
	Score         float64  `json:"score"`
	MatchType     string   `json:"match_type"`
	Result        string   `json:"result"`
	Applied       []string `json:"applied,omitempty"`
	Error         string   `json:"error,omitempty"`
}

const (
	resultSuccess = "success"
	resultError   = "error"
	resultSkipped = "skipped"
)

type syncRun struct {
	svc     *SyncService
	id      uuid.UUID
	opts    SyncOptions
	total   int
	started time.Time
	cache   *stages.MappingCache
	log     *zap.Logger
}

func (s *SyncService) run(id uuid.UUID, records []domain.MatchRecord, opts SyncOptions) {
	defer s.wg.Done()
	log := logger.WithOperation(s.logger, "sync", id.String())

	r := &syncRun{
		svc:     s,
		id:      id,
		opts:    opts,
		total:   len(records),
		started: time.Now(),
		log:     log,
	}
	outcomes := make([]recordOutcome, len(records))

	defer func() {
		if p := recover(); p != nil {
			log.Error("Sync run failed", zap.Any("panic", p))
			now := time.Now()
			s.store.Update(id, func(op *domain.SyncOperation) {
				op.Status = domain.StatusFailed
				op.FailureReason = fmt.Sprint(p)
				op.CompletedAt = &now
			})
		}
	}()

	s.store.Update(id, func(op *domain.SyncOperation) {
		op.Status = domain.StatusLoadingMapping
	})
	r.cache = stages.NewMappingCache(retryingPipelines{src: s.client, policy: s.policy}, s.keys.Lookup, log)
	r.cache.Preload(s.baseCtx, masterAccounts(records))

	batches := 0
	for start := 0; start < len(records); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(records))
		batches++
		batch := batches

		s.store.Update(id, func(op *domain.SyncOperation) {
			op.Status = domain.ProcessingBatchStatus(batch)
			op.CurrentBatch = batch
		})
		log.Info("Processing batch",
			zap.Int("batch", batch),
			zap.Int("from", start+1),
			zap.Int("to", end),
			zap.Int("total", len(records)),
		)

		var g errgroup.Group
		g.SetLimit(opts.Concurrency)
		for i := start; i < end; i++ {
			g.Go(func() error {
				outcomes[i] = r.process(i, records[i])
				return nil
			})
		}
		_ = g.Wait()

		if end < len(records) {
			s.sleep(s.baseCtx, s.cfg.BatchDelayDuration())
		}
	}

	now := time.Now()
	s.store.Update(id, func(op *domain.SyncOperation) {
		op.Status = domain.StatusCompleted
		op.ETA = "Complete"
		op.CompletedAt = &now
	})

	final, _ := s.store.Get(id)
	log.Info("Sync completed",
		zap.Int("total", final.Total),
		zap.Int("success", final.Success),
		zap.Int("errors", final.Errors),
		zap.Int("skipped", final.Skipped),
		zap.Duration("elapsed", time.Since(r.started)),
	)

	if path, err := s.writeArchive(final, outcomes); err != nil {
		log.Warn("Failed to archive sync results", zap.Error(err))
	} else {
		s.store.Update(id, func(op *domain.SyncOperation) {
			op.ArchivePath = path
		})
	}
}

func masterAccounts(records []domain.MatchRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range records {
		if rec.Master == nil || rec.Master.AccountID == "" || seen[rec.Master.AccountID] {
			continue
		}
		seen[rec.Master.AccountID] = true
		out = append(out, rec.Master.AccountID)
	}
	return out
}

// process handles one record and publishes the result. It never panics.
func (r *syncRun) process(index int, rec domain.MatchRecord) (out recordOutcome) {
	out = recordOutcome{
		ContactName: rec.Child.ContactName,
		Score:       rec.Score,
		MatchType:   string(rec.MatchType),
	}
	if rec.Master != nil {
		out.OpportunityID = rec.Master.ID
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Unexpected failure processing record",
				zap.Int("index", index),
				zap.String("opportunity_id", out.OpportunityID),
				zap.Any("panic", p),
			)
			out.Result = resultError
			out.Error = fmt.Sprintf("unexpected failure: %v", p)
		}
		r.publish(index, out)
	}()

	if rec.Master == nil {
		out.Result = resultSkipped
		return out
	}

	applied, err := r.apply(rec)
	out.Applied = applied
	if err != nil {
		out.Result = resultError
		out.Error = err.Error()
		return out
	}
	out.Result = resultSuccess
	r.log.Debug("Opportunity processed",
		zap.String("opportunity_id", out.OpportunityID),
		zap.String("applied", describeApplied(applied)),
		zap.Bool("dry_run", r.opts.DryRun),
	)
	return out
}

// apply computes the selective diff and pushes each changed field group.
// A failure in one group does not prevent the other.
func (r *syncRun) apply(rec domain.MatchRecord) ([]string, error) {
	master, child := rec.Master, rec.Child
	ctx := r.svc.baseCtx

	apiKey, err := r.svc.keys.Lookup(master.AccountID)
	if err != nil {
		return nil, err
	}

	diff := matching.DiffOf(master, &child)
	if diff.IsEmpty() {
		r.log.Debug("No changes needed",
			zap.String("opportunity_id", master.ID),
		)
		return nil, nil
	}

	var (
		applied []string
		errs    []error
	)

	if diff.TargetStageName != "" {
		stageID, ok, err := r.resolveStage(ctx, master, diff.TargetStageName)
		switch {
		case err != nil:
			errs = append(errs, err)
		case !ok:
			// unresolvable stage leaves the field untouched
		case r.opts.DryRun:
			applied = append(applied, "stage")
			r.log.Info("Dry run: would update stage",
				zap.String("opportunity_id", master.ID),
				zap.String("from", master.Stage),
				zap.String("to", diff.TargetStageName),
				zap.String("stage_id", stageID),
			)
		default:
			err := r.svc.policy.Do(ctx, ghl.IsRetryable, func(ctx context.Context) error {
				return r.svc.client.UpdateOpportunityStage(ctx, apiKey, master.PipelineID, master.ID, stageID, master.Status)
			})
			if err != nil {
				errs = append(errs, err)
			} else {
				applied = append(applied, "stage")
			}
		}
	}

	if diff.TargetValue != nil {
		value := *diff.TargetValue
		title := master.Name
		if title == "" {
			title = master.ContactName
		}
		if r.opts.DryRun {
			applied = append(applied, "value")
			r.log.Info("Dry run: would update value",
				zap.String("opportunity_id", master.ID),
				zap.String("to", value.String()),
			)
		} else {
			err := r.svc.policy.Do(ctx, ghl.IsRetryable, func(ctx context.Context) error {
				return r.svc.client.UpdateOpportunityValue(ctx, apiKey, master.PipelineID, master.ID, value, title, master.Status)
			})
			if err != nil {
				errs = append(errs, err)
			} else {
				applied = append(applied, "value")
			}
		}
	}

	return applied, errors.Join(errs...)
}

func (r *syncRun) resolveStage(ctx context.Context, master *domain.Opportunity, stageName string) (string, bool, error) {
	mapping, err := r.cache.Get(ctx, master.AccountID)
	if err != nil {
		// a dry run only reports what it would do
		if r.opts.DryRun {
			return "", true, nil
		}
		return "", false, fmt.Errorf("pipeline mapping unavailable: %w", err)
	}
	stageID, ok := r.svc.resolver.Resolve(stageName, master.PipelineID, mapping)
	return stageID, ok, nil
}

// publish counts the outcome and refreshes rate and ETA
func (r *syncRun) publish(index int, out recordOutcome) {
	limit := r.svc.cfg.RecentErrorsLimit
	if limit <= 0 {
		limit = 10
	}

	r.svc.store.Update(r.id, func(op *domain.SyncOperation) {
		op.Completed++
		switch out.Result {
		case resultSuccess:
			op.Success++
		case resultSkipped:
			op.Skipped++
		default:
			op.Errors++
			op.PushError(domain.SyncError{
				OpportunityID: out.OpportunityID,
				ContactName:   out.ContactName,
				Message:       fmt.Sprintf("[%d/%d] %s", index+1, r.total, out.Error),
				OccurredAt:    time.Now(),
			}, limit)
		}
		op.Rate, op.ETA = rateAndETA(op.Completed, op.Total, time.Since(r.started))
	})

	if out.Result == resultError {
		r.log.Error("Failed to update opportunity",
			zap.String("opportunity_id", out.OpportunityID),
			zap.String("error", out.Error),
		)
	}
}

// rateAndETA renders records per minute and the remaining time
func rateAndETA(completed, total int, elapsed time.Duration) (string, string) {
	secs := elapsed.Seconds()
	if completed >= total {
		if secs <= 0 {
			return "0.0", "Complete"
		}
		return fmt.Sprintf("%.1f", float64(completed)/secs*60), "Complete"
	}
	if secs <= 0 || completed == 0 {
		return "0.0", ""
	}
	perSecond := float64(completed) / secs
	remaining := float64(total-completed) / perSecond
	eta := fmt.Sprintf("%.0f seconds", remaining)
	if remaining >= 60 {
		eta = fmt.Sprintf("%.1f minutes", remaining/60)
	}
	return fmt.Sprintf("%.1f", perSecond*60), eta
}

// archiveDocument is the stored summary of a finished run
type archiveDocument struct {
	ProcessingID     string          `json:"processing_id"`
	MatchingID       string          `json:"matching_id,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
	Summary          archiveSummary  `json:"summary"`
	MatchesProcessed []recordOutcome `json:"matches_processed"`
	FinalErrors      []string        `json:"final_errors"`
}

type archiveSummary struct {
	TotalMatches      int  `json:"total_matches"`
	SuccessfulUpdates int  `json:"successful_updates"`
	FailedUpdates     int  `json:"failed_updates"`
	Skipped           int  `json:"skipped"`
	DryRun            bool `json:"dry_run"`
}

func (s *SyncService) writeArchive(op domain.SyncOperation, outcomes []recordOutcome) (string, error) {
	doc := archiveDocument{
		ProcessingID: op.ID.String(),
		Timestamp:    time.Now().UTC(),
		Summary: archiveSummary{
			TotalMatches:      op.Total,
			SuccessfulUpdates: op.Success,
			FailedUpdates:     op.Errors,
			Skipped:           op.Skipped,
			DryRun:            op.DryRun,
		},
		MatchesProcessed: outcomes,
		FinalErrors:      make([]string, 0, len(op.RecentErrors)),
	}
	if op.MatchingID != nil {
		doc.MatchingID = op.MatchingID.String()
	}
	for _, e := range op.RecentErrors {
		doc.FinalErrors = append(doc.FinalErrors, e.Message)
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode archive: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	path, _, err := s.archive.Upload(ctx, ArchiveName(op.ID), "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	return path, nil
}

// ArchiveName is the document name of a sync run's archive
func ArchiveName(id uuid.UUID) string {
	return archivePrefix + id.String() + ".json"
}

// retryingPipelines applies the retry policy to pipeline listing
type retryingPipelines struct {
	src    stages.PipelineSource
	policy *retrier.Policy
}

func (p retryingPipelines) ListPipelines(ctx context.Context, apiKey string) ([]domain.Pipeline, error) {
	var pipelines []domain.Pipeline
	err := p.policy.Do(ctx, ghl.IsRetryable, func(ctx context.Context) error {
		var err error
		pipelines, err = p.src.ListPipelines(ctx, apiKey)
		return err
	})
	return pipelines, err
}

func describeApplied(applied []string) string {
	if len(applied) == 0 {
		return "none"
	}
	return strings.Join(applied, ",")
}
