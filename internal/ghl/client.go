// Package ghl is the client of the CRM opportunity API: pipeline listing,
// paged opportunity listing and the two update endpoints.
package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/straye-as/opportunity-sync/internal/config"
	"github.com/straye-as/opportunity-sync/internal/domain"
	"go.uber.org/zap"
)

// maxErrorBody bounds how much of an error response is kept
const maxErrorBody = 2048

// Client calls the provider API. Every method makes exactly one attempt;
// retries belong to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient creates a client with the configured per-call timeout
func NewClient(cfg *config.GHLConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.TimeoutDuration(),
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

// ListPipelines returns the pipelines of the account owning apiKey
func (c *Client) ListPipelines(ctx context.Context, apiKey string) ([]domain.Pipeline, error) {
	var resp pipelinesResponse
	if err := c.do(ctx, apiKey, http.MethodGet, "/pipelines/", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}
	return resp.Pipelines, nil
}

// ListOpportunitiesPage fetches one page of a pipeline's opportunities
// starting after cursor.
func (c *Client) ListOpportunitiesPage(ctx context.Context, apiKey, pipelineID string, cursor Cursor, limit int) (*OpportunityPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if cursor.AfterID != "" {
		query.Set("startAfterId", cursor.AfterID)
	}
	if cursor.After != "" {
		query.Set("startAfter", string(cursor.After))
	}

	var page OpportunityPage
	path := "/pipelines/" + url.PathEscape(pipelineID) + "/opportunities"
	if err := c.do(ctx, apiKey, http.MethodGet, path, query, nil, &page); err != nil {
		return nil, fmt.Errorf("failed to list opportunities of pipeline %s: %w", pipelineID, err)
	}
	return &page, nil
}

// PageFunc binds the page listing of one pipeline for the Paginator
func (c *Client) PageFunc(apiKey, pipelineID string) PageFunc {
	return func(ctx context.Context, cursor Cursor, limit int) ([]RawOpportunity, error) {
		page, err := c.ListOpportunitiesPage(ctx, apiKey, pipelineID, cursor, limit)
		if err != nil {
			return nil, err
		}
		return page.Opportunities, nil
	}
}

// UpdateOpportunityStage moves an opportunity through the status endpoint
func (c *Client) UpdateOpportunityStage(ctx context.Context, apiKey, pipelineID, opportunityID, stageID, status string) error {
	path := "/pipelines/" + url.PathEscape(pipelineID) + "/opportunities/" + url.PathEscape(opportunityID) + "/status"
	body := stageUpdateRequest{StageID: stageID, Status: status}
	if err := c.do(ctx, apiKey, http.MethodPut, path, nil, body, nil); err != nil {
		return fmt.Errorf("failed to update stage of opportunity %s: %w", opportunityID, err)
	}
	return nil
}

// UpdateOpportunityValue sets the monetary value through the record endpoint.
// title and status are echoed back so the provider keeps them.
func (c *Client) UpdateOpportunityValue(ctx context.Context, apiKey, pipelineID, opportunityID string, value decimal.Decimal, title, status string) error {
	path := "/pipelines/" + url.PathEscape(pipelineID) + "/opportunities/" + url.PathEscape(opportunityID)
	body := valueUpdateRequest{Value: json.Number(value.String()), Title: title, Status: status}
	if err := c.do(ctx, apiKey, http.MethodPut, path, nil, body, nil); err != nil {
		return fmt.Errorf("failed to update value of opportunity %s: %w", opportunityID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, apiKey, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       strings.TrimSpace(string(snippet)),
		}
		c.logger.Debug("Provider returned error status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
