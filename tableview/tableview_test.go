package tableview

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/suiscope/querycache"
)

type fakeItem struct {
	ID uint64
}

// fakeSource serves descending pages of items total-1 ... 0. A cursor is the
// id of the last item of the previous page.
type fakeSource struct {
	mutex      sync.Mutex
	total      uint64
	requests   []PageRequest
	blockers   map[string]chan struct{}
	pageErrs   map[string]error
	countErr   error
	countCalls int32
}

func newFakeSource(total uint64) *fakeSource {
	return &fakeSource{
		total:    total,
		blockers: map[string]chan struct{}{},
		pageErrs: map[string]error{},
	}
}

func (f *fakeSource) block(cursor string) chan struct{} {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	release := make(chan struct{})
	f.blockers[cursor] = release
	return release
}

func (f *fakeSource) requestCount(cursor string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	count := 0
	for _, req := range f.requests {
		if req.Cursor == cursor {
			count++
		}
	}
	return count
}

func (f *fakeSource) lastRequest() PageRequest {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeSource) fetchCount(ctx context.Context) (uint64, error) {
	atomic.AddInt32(&f.countCalls, 1)
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.total, nil
}

func (f *fakeSource) fetchPage(ctx context.Context, req PageRequest) (*Page[fakeItem], error) {
	f.mutex.Lock()
	f.requests = append(f.requests, req)
	release := f.blockers[req.Cursor]
	err := f.pageErrs[req.Cursor]
	f.mutex.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	start := f.total
	if req.Cursor != "" {
		parsed, err := strconv.ParseUint(req.Cursor, 10, 64)
		if err != nil {
			return nil, err
		}
		start = parsed
	}

	page := &Page[fakeItem]{}
	for id := start; id > 0 && uint64(len(page.Items)) < req.Limit; id-- {
		page.Items = append(page.Items, fakeItem{ID: id - 1})
	}
	if len(page.Items) > 0 {
		last := page.Items[len(page.Items)-1].ID
		page.NextCursor = strconv.FormatUint(last, 10)
		page.HasNextPage = last > 0
	}
	return page, nil
}

func (f *fakeSource) definition() *Definition[fakeItem] {
	return &Definition[fakeItem]{
		Resource:            "items",
		Label:               "Items",
		Columns:             []Column{{Header: "Id", AccessorKey: "id"}},
		PlaceholderHeadings: []string{"Id"},
		MapRow: func(item *fakeItem) Row {
			return Row{"id": NumberCell(item.ID)}
		},
		FetchCount: f.fetchCount,
		FetchPage:  f.fetchPage,
	}
}

func newTestView(t *testing.T, src *fakeSource, opts Options) (*TableView[fakeItem], *querycache.QueryCache) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	queries := querycache.NewQueryCache(querycache.Config{}, logger, nil)
	tv, err := New(src.definition(), queries, opts, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		tv.Close()
		queries.Close()
	})
	return tv, queries
}

func firstRowId(view *View) string {
	if view.Table == nil || len(view.Table.Rows) == 0 {
		return ""
	}
	return view.Table.Rows[0]["id"].Text
}

func waitFirstRow(t *testing.T, tv *TableView[fakeItem], id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return firstRowId(tv.Render()) == id
	}, time.Second, 5*time.Millisecond)
}

func TestNewRejectsInvalidInput(t *testing.T) {
	logger, _ := test.NewNullLogger()
	queries := querycache.NewQueryCache(querycache.Config{}, logger, nil)
	defer queries.Close()
	src := newFakeSource(10)

	_, err := New(src.definition(), queries, Options{}, logger)
	assert.ErrorIs(t, err, ErrInvalidPageSize)

	_, err = New(&Definition[fakeItem]{Resource: "items"}, queries, Options{InitialLimit: 10}, logger)
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestPlaceholderUntilFirstPage(t *testing.T) {
	src := newFakeSource(100)
	release := src.block("")
	tv, _ := newTestView(t, src, Options{InitialLimit: 25})
	tv.Start()

	view := tv.Render()
	assert.Nil(t, view.Table)
	require.NotNil(t, view.Placeholder)
	assert.Equal(t, uint64(25), view.Placeholder.RowCount)
	assert.Equal(t, []string{"Id"}, view.Placeholder.Headings)
	assert.False(t, view.Footer.HasData)
	assert.Equal(t, "Items", view.Footer.Label)
	assert.Nil(t, tv.Model())

	close(release)
	waitFirstRow(t, tv, "99")

	view = tv.Render()
	assert.Nil(t, view.Placeholder)
	assert.Len(t, view.Table.Rows, 25)
	assert.Equal(t, 25, view.Footer.PageItems)
	require.NotNil(t, view.Footer.Pagination)
	assert.True(t, view.Footer.Pagination.HasNext)
	assert.Equal(t, "75", view.Footer.Pagination.NextCursor)
	assert.Equal(t, 1, view.Footer.Pagination.PageIndex)
	assert.False(t, view.Footer.Pagination.HasPrev)
}

func TestCountIsFetchedOnce(t *testing.T) {
	src := newFakeSource(100)
	tv, _ := newTestView(t, src, Options{InitialLimit: 10})
	tv.Start()

	require.Eventually(t, func() bool {
		count, ok := tv.Count()
		return ok && count == 100
	}, time.Second, 5*time.Millisecond)
	waitFirstRow(t, tv, "99")

	_, err := tv.NextPage()
	require.NoError(t, err)
	waitFirstRow(t, tv, "89")
	require.NoError(t, tv.SetPageSize(20))
	waitFirstRow(t, tv, "89")

	assert.Equal(t, int32(1), atomic.LoadInt32(&src.countCalls))
	assert.Equal(t, uint64(100), *tv.Render().Footer.Count)
}

func TestKeepsPreviousPageWhileLoading(t *testing.T) {
	src := newFakeSource(100)
	tv, _ := newTestView(t, src, Options{InitialLimit: 10})
	tv.Start()
	waitFirstRow(t, tv, "99")

	release := src.block("90")
	moved, err := tv.NextPage()
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, "90", tv.Cursor())

	view := tv.Render()
	assert.Equal(t, "99", firstRowId(view))
	assert.True(t, tv.IsLoading())
	assert.Equal(t, 2, view.Footer.Pagination.PageIndex)
	assert.False(t, view.Footer.Pagination.HasNext)
	assert.Empty(t, view.Footer.Pagination.NextCursor)

	// the displayed page is not the requested one, so it offers no next page
	moved, err = tv.NextPage()
	require.NoError(t, err)
	assert.False(t, moved)

	close(release)
	waitFirstRow(t, tv, "89")
	assert.False(t, tv.IsLoading())
}

func TestDiscardsResultOfAbandonedRequest(t *testing.T) {
	src := newFakeSource(100)
	tv, queries := newTestView(t, src, Options{InitialLimit: 10})
	tv.Start()
	waitFirstRow(t, tv, "99")

	release := src.block("90")
	_, err := tv.NextPage()
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return src.requestCount("90") == 1
	}, time.Second, 5*time.Millisecond)

	moved, err := tv.PrevPage()
	require.NoError(t, err)
	require.True(t, moved)

	// the first page is cached and shown right away
	assert.Equal(t, "99", firstRowId(tv.Render()))
	assert.False(t, tv.IsLoading())

	close(release)
	abandonedKey := querycache.NewQueryKey("items", querycache.Params{"limit": uint64(10), "cursor": "90"})
	require.Eventually(t, func() bool {
		_, found := querycache.PeekQuery[*Page[fakeItem]](queries, abandonedKey)
		return found
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, "", tv.Cursor())
	assert.Equal(t, "99", firstRowId(tv.Render()))

	// going forward again serves the cached result without a new request
	_, err = tv.NextPage()
	require.NoError(t, err)
	assert.Equal(t, "89", firstRowId(tv.Render()))
	assert.Equal(t, 1, src.requestCount("90"))
}

func TestSetPageSizeKeepsCursor(t *testing.T) {
	src := newFakeSource(100)
	tv, _ := newTestView(t, src, Options{InitialLimit: 10, LimitOptions: []uint64{10, 50}})
	tv.Start()
	waitFirstRow(t, tv, "99")

	_, err := tv.NextPage()
	require.NoError(t, err)
	waitFirstRow(t, tv, "89")

	require.NoError(t, tv.SetPageSize(5))
	assert.Equal(t, "90", tv.Cursor())
	require.Eventually(t, func() bool {
		page := tv.Page()
		return page != nil && len(page.Items) == 5
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, PageRequest{Limit: 5, Cursor: "90", DescendingOrder: true}, src.lastRequest())

	footer := tv.Render().Footer
	assert.Equal(t, uint64(5), footer.Limit)
	assert.Equal(t, []uint64{5, 10, 50}, footer.LimitOptions)
	assert.Equal(t, []string{"90"}, footer.Pagination.Stack)

	assert.ErrorIs(t, tv.SetPageSize(0), ErrInvalidPageSize)
	require.NoError(t, tv.SetPageSize(1000))
	assert.Equal(t, uint64(100), tv.Limit())
}

func TestAutoRefreshOnlyOnFirstPage(t *testing.T) {
	src := newFakeSource(100)
	tv, _ := newTestView(t, src, Options{InitialLimit: 10, RefetchInterval: 10 * time.Millisecond})
	tv.Start()
	waitFirstRow(t, tv, "99")
	assert.True(t, tv.Render().AutoRefresh)

	require.Eventually(t, func() bool {
		return src.requestCount("") >= 3
	}, time.Second, 5*time.Millisecond)

	_, err := tv.NextPage()
	require.NoError(t, err)
	waitFirstRow(t, tv, "89")
	assert.False(t, tv.Render().AutoRefresh)

	firstPageCalls := src.requestCount("")
	time.Sleep(80 * time.Millisecond)
	assert.LessOrEqual(t, src.requestCount(""), firstPageCalls+1)
	assert.Equal(t, 1, src.requestCount("90"))

	_, err = tv.PrevPage()
	require.NoError(t, err)
	resumed := src.requestCount("")
	require.Eventually(t, func() bool {
		return src.requestCount("") >= resumed+2
	}, time.Second, 5*time.Millisecond)

	tv.Close()
	time.Sleep(20 * time.Millisecond)
	closedCalls := src.requestCount("")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, closedCalls, src.requestCount(""))
}

func TestCursorFollowsConcurrentStackChanges(t *testing.T) {
	for i := 0; i < 50; i++ {
		src := newFakeSource(100)
		tv, _ := newTestView(t, src, Options{InitialLimit: 10})
		stack := tv.Stack()

		// hold the view so both notifications queue up behind it
		tv.mutex.Lock()
		var wg sync.WaitGroup
		for _, cursor := range []string{"50", "40"} {
			wg.Add(1)
			go func(cursor string) {
				defer wg.Done()
				stack.Next(cursor)
			}(cursor)
		}
		require.Eventually(t, func() bool {
			return stack.Depth() == 2
		}, time.Second, time.Millisecond)
		tv.mutex.Unlock()
		wg.Wait()

		assert.Equal(t, stack.Cursor(), tv.Cursor())
		assert.Equal(t, 3, tv.Render().Footer.Pagination.PageIndex)
	}
}

func TestCloseResetsStack(t *testing.T) {
	src := newFakeSource(100)
	tv, _ := newTestView(t, src, Options{InitialLimit: 10})
	require.NoError(t, tv.Load(context.Background()))

	moved, err := tv.NextPage()
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, 1, tv.Stack().Depth())

	tv.Close()
	assert.Equal(t, 0, tv.Stack().Depth())
	assert.Empty(t, tv.Stack().Cursor())
	assert.ErrorIs(t, tv.Refresh(context.Background()), ErrViewClosed)
}

func TestDisabledPagination(t *testing.T) {
	src := newFakeSource(100)
	tv, _ := newTestView(t, src, Options{InitialLimit: 5, DisablePagination: true})
	require.NoError(t, tv.Load(context.Background()))

	_, err := tv.NextPage()
	assert.ErrorIs(t, err, ErrPaginationDisabled)
	_, err = tv.PrevPage()
	assert.ErrorIs(t, err, ErrPaginationDisabled)
	assert.ErrorIs(t, tv.FirstPage(), ErrPaginationDisabled)

	view := tv.Render()
	assert.Nil(t, view.Footer.Pagination)
	assert.Len(t, view.Table.Rows, 5)
	assert.Equal(t, "", tv.Cursor())
}

func TestInitialCursorSeedsStack(t *testing.T) {
	src := newFakeSource(100)
	tv, _ := newTestView(t, src, Options{InitialLimit: 10, InitialCursor: "50", History: []string{"60"}})

	assert.Equal(t, "50", tv.Cursor())
	require.NoError(t, tv.Load(context.Background()))
	assert.Equal(t, "49", firstRowId(tv.Render()))

	controls := tv.Render().Footer.Pagination
	assert.Equal(t, 3, controls.PageIndex)
	assert.True(t, controls.HasPrev)
	assert.Equal(t, []string{"60", "50"}, controls.Stack)

	require.NoError(t, tv.FirstPage())
	assert.Equal(t, "", tv.Cursor())
}

func TestLoadErrors(t *testing.T) {
	src := newFakeSource(100)
	src.countErr = errors.New("count unavailable")
	pageErr := errors.New("page unavailable")
	src.pageErrs[""] = pageErr

	tv, _ := newTestView(t, src, Options{InitialLimit: 10})
	err := tv.Load(context.Background())
	assert.ErrorIs(t, err, pageErr)
	assert.ErrorIs(t, tv.Err(), pageErr)

	view := tv.Render()
	assert.NotNil(t, view.Placeholder)
	assert.Nil(t, view.Footer.Count)
	assert.Contains(t, view.Footer.Error, "page unavailable")

	src.mutex.Lock()
	delete(src.pageErrs, "")
	src.mutex.Unlock()
	require.NoError(t, tv.Refresh(context.Background()))
	view = tv.Render()
	assert.Empty(t, view.Footer.Error)
	assert.Equal(t, "99", firstRowId(view))
	_, hasCount := tv.Count()
	assert.False(t, hasCount)
}

func TestModelIsMemoizedPerPage(t *testing.T) {
	src := newFakeSource(100)
	tv, _ := newTestView(t, src, Options{InitialLimit: 10})
	require.NoError(t, tv.Load(context.Background()))

	first := tv.Model()
	require.NotNil(t, first)
	assert.Same(t, first, tv.Model())
	assert.Same(t, first, tv.Render().Table)

	require.NoError(t, tv.Refresh(context.Background()))
	assert.NotSame(t, first, tv.Model())
}

func TestOnChangeNotifications(t *testing.T) {
	src := newFakeSource(100)
	tv, _ := newTestView(t, src, Options{InitialLimit: 10})

	var changes int32
	unsubscribe := tv.OnChange(func() {
		atomic.AddInt32(&changes, 1)
	})
	tv.Start()
	waitFirstRow(t, tv, "99")
	assert.Greater(t, atomic.LoadInt32(&changes), int32(0))

	unsubscribe()
	seen := atomic.LoadInt32(&changes)
	require.NoError(t, tv.SetPageSize(20))
	waitFirstRow(t, tv, "99")
	assert.Equal(t, seen, atomic.LoadInt32(&changes))
}

func TestSharedCacheAcrossViews(t *testing.T) {
	src := newFakeSource(100)
	logger, _ := test.NewNullLogger()
	queries := querycache.NewQueryCache(querycache.Config{}, logger, nil)
	defer queries.Close()

	first, err := New(src.definition(), queries, Options{InitialLimit: 10}, logger)
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, first.Load(context.Background()))

	second, err := New(src.definition(), queries, Options{InitialLimit: 10}, logger)
	require.NoError(t, err)
	defer second.Close()

	// cached data is displayed before the second view loads anything
	assert.Equal(t, "99", firstRowId(second.Render()))
	count, ok := second.Count()
	assert.True(t, ok)
	assert.Equal(t, uint64(100), count)

	require.NoError(t, second.Load(context.Background()))
	assert.Equal(t, 1, src.requestCount(""))
}
