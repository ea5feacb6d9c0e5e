package ghl_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/straye-as/opportunity-sync/internal/config"
	"github.com/straye-as/opportunity-sync/internal/ghl"
	"github.com/straye-as/opportunity-sync/internal/retrier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPaginator(limit, maxRecords, maxPages int) *ghl.Paginator {
	return ghl.NewPaginator(&config.GHLConfig{PageSize: limit, MaxRecords: maxRecords, MaxPages: maxPages}, retrier.NoDelay(3), zap.NewNop())
}

func records(from, n int) []ghl.RawOpportunity {
	out := make([]ghl.RawOpportunity, n)
	for i := range out {
		id := from + i
		out[i] = ghl.RawOpportunity{ID: fmt.Sprintf("opp-%d", id), DateAdded: ghl.Timestamp(fmt.Sprintf("2024-01-01T00:00:%02dZ", id%60))}
	}
	return out
}

// pages serves pre-built pages in order and then empty pages
func pages(all ...[]ghl.RawOpportunity) (ghl.PageFunc, *[]ghl.Cursor) {
	var cursors []ghl.Cursor
	i := 0
	return func(ctx context.Context, cursor ghl.Cursor, limit int) ([]ghl.RawOpportunity, error) {
		cursors = append(cursors, cursor)
		if i >= len(all) {
			return nil, nil
		}
		i++
		return all[i-1], nil
	}, &cursors
}

func TestPaginator_ShortPageEndsBeforeCursorAdvance(t *testing.T) {
	fetch, cursors := pages(records(0, 3), records(3, 2))
	res, err := newPaginator(3, 0, 100).Paginate(context.Background(), fetch)
	require.NoError(t, err)

	assert.Len(t, res.Items, 5)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, ghl.StopShortPage, res.Reason)
	require.Len(t, *cursors, 2)
	assert.Equal(t, ghl.Cursor{}, (*cursors)[0])
	assert.Equal(t, "opp-2", (*cursors)[1].AfterID)
	assert.Equal(t, ghl.Timestamp("2024-01-01T00:00:02Z"), (*cursors)[1].After)
}

func TestPaginator_EmptyPageEnds(t *testing.T) {
	fetch, _ := pages(records(0, 2))
	res, err := newPaginator(2, 0, 100).Paginate(context.Background(), fetch)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, ghl.StopEndOfData, res.Reason)
}

func TestPaginator_CapTruncates(t *testing.T) {
	fetch, _ := pages(records(0, 3), records(3, 3), records(6, 3))
	res, err := newPaginator(3, 4, 100).Paginate(context.Background(), fetch)
	require.NoError(t, err)
	assert.Len(t, res.Items, 4)
	assert.Equal(t, "opp-3", res.Items[3].ID)
	assert.Equal(t, ghl.StopCapped, res.Reason)

	fetch, _ = pages(records(0, 3), records(3, 3))
	res, err = newPaginator(3, 10, 100).WithMaxRecords(2).Paginate(context.Background(), fetch)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
}

func TestPaginator_TerminatesOnRepeatedPage(t *testing.T) {
	page := records(0, 5)
	calls := 0
	fetch := func(ctx context.Context, cursor ghl.Cursor, limit int) ([]ghl.RawOpportunity, error) {
		calls++
		return page, nil
	}

	res, err := newPaginator(5, 0, 1000).Paginate(context.Background(), fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, res.Items, 5)
	assert.Equal(t, ghl.StopDuplicate, res.Reason)
}

func TestPaginator_TerminatesOnUnchangedCursor(t *testing.T) {
	// records without ids cannot be deduplicated; only the cursor guard stops this
	page := []ghl.RawOpportunity{{DateAdded: "2024-01-01"}, {DateAdded: "2024-01-01"}}
	calls := 0
	fetch := func(ctx context.Context, cursor ghl.Cursor, limit int) ([]ghl.RawOpportunity, error) {
		calls++
		return page, nil
	}

	res, err := newPaginator(2, 0, 1000).Paginate(context.Background(), fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, res.Items, 4)
	assert.Equal(t, ghl.StopStalled, res.Reason)
}

func TestPaginator_MaxPages(t *testing.T) {
	n := 0
	fetch := func(ctx context.Context, cursor ghl.Cursor, limit int) ([]ghl.RawOpportunity, error) {
		n++
		return records(n*10, 2), nil
	}
	res, err := newPaginator(2, 0, 4).Paginate(context.Background(), fetch)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Pages)
	assert.Len(t, res.Items, 8)
	assert.Equal(t, ghl.StopMaxPages, res.Reason)
}

func TestPaginator_AgainstServer(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		assert.Equal(t, "/pipelines/p1/opportunities", r.URL.Path)
		n := hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case n == 1:
			assert.Empty(t, r.URL.Query().Get("startAfterId"))
			fmt.Fprint(w, `{"opportunities":[{"id":"a","dateAdded":1700000000000},{"id":"b","dateAdded":1700000000001}],"meta":{"total":5}}`)
		case n == 2:
			w.WriteHeader(http.StatusTooManyRequests)
		case n == 3:
			assert.Equal(t, "b", r.URL.Query().Get("startAfterId"))
			assert.Equal(t, "1700000000001", r.URL.Query().Get("startAfter"))
			fmt.Fprint(w, `{"opportunities":[{"id":"c","dateAdded":"x"},{"id":"d","dateAdded":"y"}]}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := ghl.NewClient(&config.GHLConfig{BaseURL: srv.URL, Timeout: 5}, zap.NewNop())
	res, err := newPaginator(2, 0, 100).Paginate(context.Background(), client.PageFunc("key-1", "p1"))
	require.NoError(t, err)

	assert.Len(t, res.Items, 4)
	assert.Equal(t, ghl.StopFailed, res.Reason)
	assert.ErrorIs(t, res.Err, ghl.ErrTransient)
	// the 500 is not retried by the page loop
	assert.Equal(t, int32(4), hits.Load())
}

func TestPaginator_RateLimitBudgetExhausted(t *testing.T) {
	fetch := func(ctx context.Context, cursor ghl.Cursor, limit int) ([]ghl.RawOpportunity, error) {
		return nil, &ghl.APIError{StatusCode: http.StatusTooManyRequests, Method: http.MethodGet, Path: "/x"}
	}
	res, err := newPaginator(2, 0, 100).Paginate(context.Background(), fetch)
	require.NoError(t, err)
	assert.Equal(t, ghl.StopFailed, res.Reason)
	assert.ErrorIs(t, res.Err, ghl.ErrRateLimited)
}

func TestPaginator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(ctx context.Context, cursor ghl.Cursor, limit int) ([]ghl.RawOpportunity, error) {
		cancel()
		return nil, ctx.Err()
	}
	res, err := newPaginator(2, 0, 100).Paginate(ctx, fetch)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ghl.StopCanceled, res.Reason)
}
