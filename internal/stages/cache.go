package stages

import (
	"context"
	"fmt"
	"sync"

	"github.com/straye-as/opportunity-sync/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// PipelineSource lists the pipelines of an account
type PipelineSource interface {
	ListPipelines(ctx context.Context, apiKey string) ([]domain.Pipeline, error)
}

// KeyFunc returns the API key of an account
type KeyFunc func(accountID string) (string, error)

type entry struct {
	mapping *domain.PipelineMapping
	err     error
}

// MappingCache holds one PipelineMapping per account for the lifetime of a
// single sync run. Failed loads are cached too so a broken account is not
// retried for every record. Create a new cache per run.
type MappingCache struct {
	source PipelineSource
	keys   KeyFunc
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

// NewMappingCache creates an empty cache
func NewMappingCache(source PipelineSource, keys KeyFunc, logger *zap.Logger) *MappingCache {
	return &MappingCache{
		source:  source,
		keys:    keys,
		logger:  logger,
		entries: make(map[string]entry),
	}
}

// Preload loads the mapping of every account, logging failures
func (c *MappingCache) Preload(ctx context.Context, accountIDs []string) {
	for _, id := range accountIDs {
		if _, err := c.Get(ctx, id); err != nil {
			c.logger.Warn("Failed to preload pipeline mapping",
				zap.String("account_id", id),
				zap.Error(err),
			)
		}
	}
}

// Get returns the mapping of an account, loading it on first use
func (c *MappingCache) Get(ctx context.Context, accountID string) (*domain.PipelineMapping, error) {
	c.mu.RLock()
	e, ok := c.entries[accountID]
	c.mu.RUnlock()
	if ok {
		return e.mapping, e.err
	}

	v, _, _ := c.group.Do(accountID, func() (interface{}, error) {
		c.mu.RLock()
		e, ok := c.entries[accountID]
		c.mu.RUnlock()
		if ok {
			return e, nil
		}

		e = c.load(ctx, accountID)
		c.mu.Lock()
		c.entries[accountID] = e
		c.mu.Unlock()
		return e, nil
	})
	e = v.(entry)
	return e.mapping, e.err
}

func (c *MappingCache) load(ctx context.Context, accountID string) entry {
	apiKey, err := c.keys(accountID)
	if err != nil {
		return entry{err: err}
	}

	pipelines, err := c.source.ListPipelines(ctx, apiKey)
	if err != nil {
		return entry{err: fmt.Errorf("failed to list pipelines for account %s: %w", accountID, err)}
	}

	mapping := domain.NewPipelineMapping(pipelines)
	c.logger.Info("Pipeline mapping loaded",
		zap.String("account_id", accountID),
		zap.Int("pipelines", len(mapping.Pipelines)),
		zap.Int("stages", len(mapping.Stages)),
	)
	return entry{mapping: mapping}
}

// Len returns the number of accounts loaded or attempted
func (c *MappingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
