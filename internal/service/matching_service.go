package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/opportunity-sync/internal/config"
	"github.com/straye-as/opportunity-sync/internal/domain"
	"github.com/straye-as/opportunity-sync/internal/logger"
	"github.com/straye-as/opportunity-sync/internal/matching"
	"github.com/straye-as/opportunity-sync/internal/progress"
	"go.uber.org/zap"
)

// MatchingRequest describes one matching pass
type MatchingRequest struct {
	Masters  []domain.Opportunity
	Children []domain.Opportunity
	// Thresholds overrides the configured thresholds when set
	Thresholds *matching.Thresholds
	// Strategy overrides the configured strategy when set
	Strategy string
}

// MatchingService runs matching passes in the background and exposes
// their progress for polling
type MatchingService struct {
	store    *progress.Store[domain.MatchingOperation]
	defaults matching.Thresholds
	strategy string
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewMatchingService creates a new matching service
func NewMatchingService(cfg *config.MatchingConfig, store *progress.Store[domain.MatchingOperation], logger *zap.Logger) *MatchingService {
	defaults := matching.Thresholds{Match: cfg.MatchThreshold, HighConfidence: cfg.HighConfidenceThreshold}
	if defaults.Match <= 0 {
		defaults.Match = matching.DefaultThresholds.Match
	}
	if defaults.HighConfidence <= 0 {
		defaults.HighConfidence = matching.DefaultThresholds.HighConfidence
	}
	return &MatchingService{
		store:    store,
		defaults: defaults,
		strategy: cfg.Strategy,
		logger:   logger,
	}
}

// Defaults returns the configured thresholds
func (s *MatchingService) Defaults() matching.Thresholds {
	return s.defaults
}

// StartMatching validates the request, registers an operation and runs the
// pass in the background. The returned id can be polled immediately.
func (s *MatchingService) StartMatching(req MatchingRequest) (uuid.UUID, error) {
	if len(req.Masters) == 0 || len(req.Children) == 0 {
		return uuid.Nil, fmt.Errorf("%w: masters and children are required", ErrInvalidInput)
	}
	for i := range req.Masters {
		if !req.Masters[i].IsMaster() {
			return uuid.Nil, fmt.Errorf("%w: masters[%d] is not a master opportunity", ErrInvalidInput, i)
		}
	}
	for i := range req.Children {
		if req.Children[i].Side != domain.SideChild {
			return uuid.Nil, fmt.Errorf("%w: children[%d] is not a child opportunity", ErrInvalidInput, i)
		}
	}

	th := s.defaults
	if req.Thresholds != nil {
		th = *req.Thresholds
	}
	if th.HighConfidence < th.Match {
		return uuid.Nil, ErrInvalidThresholds
	}

	name := req.Strategy
	if name == "" {
		name = s.strategy
	}
	strategy, err := matching.StrategyByName(name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	id := uuid.New()
	s.store.Create(id, domain.MatchingOperation{
		ID:          id,
		Status:      domain.StatusInitializing,
		Strategy:    strategy.Name(),
		TotalMaster: len(req.Masters),
		TotalChild:  len(req.Children),
		Records:     make([]domain.MatchRecord, 0, len(req.Children)),
		StartedAt:   time.Now(),
	})

	s.logger.Info("Starting opportunity matching",
		zap.String("matching_id", id.String()),
		zap.Int("masters", len(req.Masters)),
		zap.Int("children", len(req.Children)),
		zap.Float64("match_threshold", th.Match),
		zap.Float64("high_confidence_threshold", th.HighConfidence),
		zap.String("strategy", strategy.Name()),
	)

	s.wg.Add(1)
	go s.run(id, strategy, req.Masters, req.Children, th)

	return id, nil
}

func (s *MatchingService) run(id uuid.UUID, strategy matching.Strategy, masters, children []domain.Opportunity, th matching.Thresholds) {
	defer s.wg.Done()
	log := logger.WithOperation(s.logger, "matching", id.String())

	defer func() {
		if r := recover(); r != nil {
			log.Error("Matching pass failed", zap.Any("panic", r))
			now := time.Now()
			s.store.Update(id, func(op *domain.MatchingOperation) {
				op.Status = domain.StatusFailed
				op.FailureReason = fmt.Sprint(r)
				op.CompletedAt = &now
			})
		}
	}()

	total := len(children)
	engine := matching.NewEngine(strategy, log)
	res := engine.Run(masters, children, th, func(processed int, rec domain.MatchRecord) {
		s.store.Update(id, func(op *domain.MatchingOperation) {
			op.Status = domain.ProcessingChildStatus(processed, total)
			op.Processed = processed
			op.Records = append(op.Records, rec)
			switch rec.MatchType {
			case domain.MatchTypeExact:
				op.Exact++
				op.MatchesFound++
			case domain.MatchTypeFuzzy:
				op.Fuzzy++
				op.MatchesFound++
			default:
				op.NoMatch++
			}
		})
	})

	now := time.Now()
	summary := res.Summary
	s.store.Update(id, func(op *domain.MatchingOperation) {
		op.Status = domain.StatusCompleted
		op.RecordErrors = res.RecordErrors
		op.UnmatchedSummary = &summary
		op.CompletedAt = &now
	})
}

// GetMatchingStatus returns a snapshot of a matching operation
func (s *MatchingService) GetMatchingStatus(id uuid.UUID) (domain.MatchingOperation, error) {
	op, ok := s.store.Get(id)
	if !ok {
		return domain.MatchingOperation{}, ErrMatchingNotFound
	}
	return op, nil
}

// CompletedRecords returns the records of a completed matching operation
func (s *MatchingService) CompletedRecords(id uuid.UUID) ([]domain.MatchRecord, error) {
	op, err := s.GetMatchingStatus(id)
	if err != nil {
		return nil, err
	}
	if op.Status != domain.StatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrMatchingNotComplete, op.Status)
	}
	return op.Records, nil
}

// Wait blocks until every background pass has finished
func (s *MatchingService) Wait() {
	s.wg.Wait()
}
