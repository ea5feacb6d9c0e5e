package service

import (
	"context"
	"fmt"

	"github.com/straye-as/opportunity-sync/internal/config"
	"github.com/straye-as/opportunity-sync/internal/domain"
	"github.com/straye-as/opportunity-sync/internal/ghl"
	"github.com/straye-as/opportunity-sync/internal/normalize"
	"github.com/straye-as/opportunity-sync/internal/retrier"
	"github.com/straye-as/opportunity-sync/internal/stages"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OpportunityLister lists pipelines and pages through their opportunities
type OpportunityLister interface {
	stages.PipelineSource
	PageFunc(apiKey, pipelineID string) ghl.PageFunc
}

// OpportunityLoader fetches the opportunities of an account straight from
// the CRM as an alternative to supplying them in the request body
type OpportunityLoader struct {
	client      OpportunityLister
	paginator   *ghl.Paginator
	policy      *retrier.Policy
	keys        AccountKeys
	concurrency int
	logger      *zap.Logger
}

// NewOpportunityLoader creates a new loader
func NewOpportunityLoader(client OpportunityLister, paginator *ghl.Paginator, policy *retrier.Policy, keys AccountKeys, cfg *config.GHLConfig, logger *zap.Logger) *OpportunityLoader {
	concurrency := cfg.PipelineConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &OpportunityLoader{
		client:      client,
		paginator:   paginator,
		policy:      policy,
		keys:        keys,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Load fetches the opportunities of the given pipelines, or of every
// pipeline of the account when pipelineIDs is empty. maxRecords caps each
// pipeline; zero keeps the configured cap. Pagination stops early on a
// failed page and the records collected so far are kept.
func (l *OpportunityLoader) Load(ctx context.Context, accountID string, side domain.Side, pipelineIDs []string, maxRecords int) ([]domain.Opportunity, error) {
	apiKey, err := l.keys.Lookup(accountID)
	if err != nil {
		return nil, err
	}

	var pipelines []domain.Pipeline
	err = l.policy.Do(ctx, ghl.IsRetryable, func(ctx context.Context) error {
		var err error
		pipelines, err = l.client.ListPipelines(ctx, apiKey)
		return err
	})
	if err != nil {
		return nil, err
	}

	selected, err := selectPipelines(pipelines, pipelineIDs)
	if err != nil {
		return nil, err
	}

	paginator := l.paginator.WithMaxRecords(maxRecords)
	results := make([][]domain.Opportunity, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, p := range selected {
		g.Go(func() error {
			res, err := paginator.Paginate(gctx, l.client.PageFunc(apiKey, p.ID))
			if err != nil {
				return err
			}
			log := l.logger.With(
				zap.String("account_id", accountID),
				zap.String("pipeline_id", p.ID),
				zap.Int("records", len(res.Items)),
				zap.Int("pages", res.Pages),
				zap.String("stop_reason", string(res.Reason)),
			)
			if res.Err != nil {
				log.Warn("Pipeline listing ended early", zap.Error(res.Err))
			} else {
				log.Info("Pipeline listing complete")
			}
			results[i] = convertOpportunities(res.Items, p, accountID, side)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []domain.Opportunity
	for _, part := range results {
		out = append(out, part...)
	}
	for i := range out {
		out[i].RowNumber = i + 1
	}
	return out, nil
}

func selectPipelines(all []domain.Pipeline, ids []string) ([]domain.Pipeline, error) {
	if len(ids) == 0 {
		return all, nil
	}
	byID := make(map[string]domain.Pipeline, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}
	out := make([]domain.Pipeline, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPipelineNotFound, id)
		}
		out = append(out, p)
	}
	return out, nil
}

func convertOpportunities(raw []ghl.RawOpportunity, p domain.Pipeline, accountID string, side domain.Side) []domain.Opportunity {
	stageNames := make(map[string]string, len(p.Stages))
	for _, s := range p.Stages {
		stageNames[s.ID] = s.Name
	}

	out := make([]domain.Opportunity, 0, len(raw))
	for _, r := range raw {
		created := string(r.CreatedAt)
		if created == "" {
			created = string(r.DateAdded)
		}
		contact := r.Contact.Name
		if contact == "" {
			contact = r.Name
		}
		opp := domain.Opportunity{
			ID:              r.ID,
			Side:            side,
			AccountID:       accountID,
			PipelineID:      p.ID,
			PipelineName:    p.Name,
			Stage:           stageNames[r.PipelineStageID],
			StageID:         r.PipelineStageID,
			ContactName:     contact,
			Phone:           r.Contact.Phone,
			NormalizedPhone: normalize.Phone(r.Contact.Phone),
			Name:            r.Name,
			Value:           domain.ParseValue(r.MonetaryValue),
			Status:          r.Status,
			Source:          r.Source,
			CreatedAt:       created,
			AssignedTo:      r.AssignedTo,
		}
		if opp.IsMaster() {
			opp.HasAssignment = r.AssignedTo != ""
		}
		out = append(out, opp)
	}
	return out
}
