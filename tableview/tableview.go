package tableview

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/suiscope/pagination"
	"github.com/ethpandaops/suiscope/querycache"
)

// TableView coordinates one paginated table: page size, the cursor stack, the
// total count and the currently displayed page. While a new page is loading the
// previously displayed page stays visible.
type TableView[T any] struct {
	def     *Definition[T]
	queries *querycache.QueryCache
	opts    Options
	logger  logrus.FieldLogger
	stack   *pagination.Stack

	ctx    context.Context
	cancel context.CancelFunc

	mutex       sync.Mutex
	limit       uint64
	cursor      string
	count       *uint64
	page        *Page[T]
	pageKey     querycache.QueryKey
	wantKey     querycache.QueryKey
	pageErr     error
	memoPage    *Page[T]
	memoModel   *TableModel
	started     bool
	closed      bool
	refreshStop chan struct{}
	unsubscribe func()

	listenerMutex sync.Mutex
	listeners     map[uint64]func()
	nextListener  uint64
}

func New[T any](def *Definition[T], queries *querycache.QueryCache, opts Options, logger logrus.FieldLogger) (*TableView[T], error) {
	if err := def.validate(); err != nil {
		return nil, err
	}
	if opts.InitialLimit == 0 {
		return nil, ErrInvalidPageSize
	}
	if opts.MaxLimit == 0 {
		opts.MaxLimit = defaultPageSizeMaximum
	}
	if opts.InitialLimit > opts.MaxLimit {
		opts.InitialLimit = opts.MaxLimit
	}
	if len(opts.LimitOptions) == 0 {
		opts.LimitOptions = DefaultLimitOptions
	}

	cursors := make([]string, 0, len(opts.History)+1)
	cursors = append(cursors, opts.History...)
	cursors = append(cursors, opts.InitialCursor)

	tv := &TableView[T]{
		def:       def,
		queries:   queries,
		opts:      opts,
		logger:    logger.WithField("table", def.Resource),
		stack:     pagination.NewStack(cursors...),
		limit:     opts.InitialLimit,
		listeners: map[uint64]func(){},
	}
	tv.ctx, tv.cancel = context.WithCancel(context.Background())
	tv.cursor = tv.stack.Cursor()

	if count, found := querycache.PeekQuery[uint64](queries, tv.countKey()); found {
		tv.count = &count
	}
	tv.mutex.Lock()
	tv.requestPageLocked(false)
	tv.mutex.Unlock()

	tv.unsubscribe = tv.stack.Subscribe(tv.onCursorChange)
	return tv, nil
}

func (tv *TableView[T]) countKey() querycache.QueryKey {
	return querycache.NewQueryKey(tv.def.Resource, "count")
}

func (tv *TableView[T]) pageKeyFor(limit uint64, cursor string) querycache.QueryKey {
	return querycache.NewQueryKey(tv.def.Resource, querycache.Params{
		"limit":  limit,
		"cursor": cursor,
	})
}

func (tv *TableView[T]) currentRequestLocked() (querycache.QueryKey, PageRequest) {
	return tv.pageKeyFor(tv.limit, tv.cursor), PageRequest{
		Limit:           tv.limit,
		Cursor:          tv.cursor,
		DescendingOrder: true,
	}
}

// Start begins background loading of the count and the current page and
// enables auto refresh. Views rendered synchronously use Load instead.
func (tv *TableView[T]) Start() {
	tv.mutex.Lock()
	if tv.started || tv.closed {
		tv.mutex.Unlock()
		return
	}
	tv.started = true
	ctx := tv.ctx
	go func() {
		count, err := tv.fetchCount(ctx)
		tv.setCount(count, err)
	}()
	tv.requestPageLocked(false)
	tv.updateRefreshLocked()
	tv.mutex.Unlock()

	tv.notify()
}

// Load fetches the count and the current page and waits for both. The
// returned error is the page error, count failures are only logged.
func (tv *TableView[T]) Load(ctx context.Context) error {
	tv.mutex.Lock()
	if tv.closed {
		tv.mutex.Unlock()
		return ErrViewClosed
	}
	key, req := tv.currentRequestLocked()
	tv.wantKey = key
	tv.mutex.Unlock()

	var count uint64
	var countErr error
	var page *Page[T]

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, countErr = tv.fetchCount(gctx)
		return nil
	})
	g.Go(func() error {
		var err error
		page, err = tv.fetchPage(gctx, key, req, false)
		return err
	})
	err := g.Wait()

	tv.setCount(count, countErr)
	tv.applyPage(key, page, err)
	return err
}

// Refresh refetches the current page, bypassing cached data.
func (tv *TableView[T]) Refresh(ctx context.Context) error {
	tv.mutex.Lock()
	if tv.closed {
		tv.mutex.Unlock()
		return ErrViewClosed
	}
	key, req := tv.currentRequestLocked()
	tv.mutex.Unlock()

	page, err := tv.fetchPage(ctx, key, req, true)
	tv.applyPage(key, page, err)
	return err
}

func (tv *TableView[T]) fetchCount(ctx context.Context) (uint64, error) {
	return querycache.FetchQuery(ctx, tv.queries, tv.countKey(), tv.def.FetchCount)
}

func (tv *TableView[T]) fetchPage(ctx context.Context, key querycache.QueryKey, req PageRequest, force bool) (*Page[T], error) {
	fetchFn := func(ctx context.Context) (*Page[T], error) {
		return tv.def.FetchPage(ctx, req)
	}
	if force {
		return querycache.RefetchQuery(ctx, tv.queries, key, fetchFn)
	}
	return querycache.FetchQuery(ctx, tv.queries, key, fetchFn)
}

func (tv *TableView[T]) setCount(count uint64, err error) {
	tv.mutex.Lock()
	if tv.closed {
		tv.mutex.Unlock()
		return
	}
	if err != nil {
		tv.mutex.Unlock()
		if !errors.Is(err, context.Canceled) {
			tv.logger.Warnf("failed loading %v count: %v", tv.def.Resource, err)
		}
		return
	}
	tv.count = &count
	tv.mutex.Unlock()

	tv.notify()
}

// requestPageLocked switches the requested page to the current limit and
// cursor. Cached data for the new key is displayed immediately, otherwise the
// previous page stays visible until the fetch resolves.
func (tv *TableView[T]) requestPageLocked(force bool) {
	key, req := tv.currentRequestLocked()
	tv.wantKey = key

	if cached, found := querycache.PeekQuery[*Page[T]](tv.queries, key); found && cached != nil {
		tv.page = cached
		tv.pageKey = key
	}
	if !tv.started {
		return
	}

	ctx := tv.ctx
	go func() {
		page, err := tv.fetchPage(ctx, key, req, force)
		tv.applyPage(key, page, err)
	}()
}

func (tv *TableView[T]) applyPage(key querycache.QueryKey, page *Page[T], err error) {
	tv.mutex.Lock()
	if tv.closed {
		tv.mutex.Unlock()
		return
	}
	if key != tv.wantKey {
		tv.mutex.Unlock()
		tv.logger.Debugf("discarding result for %v, current request is %v", key, tv.wantKey)
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			tv.mutex.Unlock()
			return
		}
		tv.pageErr = err
		tv.mutex.Unlock()

		tv.logger.Warnf("failed loading %v: %v", key, err)
		tv.notify()
		return
	}
	if page == nil {
		page = &Page[T]{}
	}
	tv.page = page
	tv.pageKey = key
	tv.pageErr = nil
	tv.mutex.Unlock()

	tv.notify()
}

// onCursorChange ignores the notified cursor and reads the stack itself,
// notifications of concurrent stack changes can arrive out of order.
func (tv *TableView[T]) onCursorChange(string) {
	tv.mutex.Lock()
	cursor := tv.stack.Cursor()
	if tv.closed || tv.cursor == cursor {
		tv.mutex.Unlock()
		return
	}
	tv.cursor = cursor
	tv.pageErr = nil
	tv.requestPageLocked(false)
	tv.updateRefreshLocked()
	tv.mutex.Unlock()

	tv.notify()
}

func (tv *TableView[T]) refreshActiveLocked() bool {
	return !tv.closed && tv.opts.RefetchInterval > 0 && tv.cursor == ""
}

func (tv *TableView[T]) updateRefreshLocked() {
	active := tv.started && tv.refreshActiveLocked()
	if active && tv.refreshStop == nil {
		stop := make(chan struct{})
		tv.refreshStop = stop
		go tv.runRefresh(stop, tv.opts.RefetchInterval)
	} else if !active && tv.refreshStop != nil {
		close(tv.refreshStop)
		tv.refreshStop = nil
	}
}

func (tv *TableView[T]) runRefresh(stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		tv.mutex.Lock()
		active := tv.refreshActiveLocked()
		key, req := tv.currentRequestLocked()
		ctx := tv.ctx
		tv.mutex.Unlock()
		if !active {
			continue
		}

		page, err := tv.fetchPage(ctx, key, req, true)
		tv.applyPage(key, page, err)
	}
}

// SetPageSize changes the number of rows per page. The cursor stack is kept.
func (tv *TableView[T]) SetPageSize(limit uint64) error {
	if limit == 0 {
		return ErrInvalidPageSize
	}
	if limit > tv.opts.MaxLimit {
		limit = tv.opts.MaxLimit
	}

	tv.mutex.Lock()
	if tv.closed {
		tv.mutex.Unlock()
		return ErrViewClosed
	}
	if tv.limit == limit {
		tv.mutex.Unlock()
		return nil
	}
	tv.limit = limit
	tv.pageErr = nil
	tv.requestPageLocked(false)
	tv.mutex.Unlock()

	tv.notify()
	return nil
}

// NextPage navigates to the page following the displayed one. It returns false
// when there is no next page or the displayed page does not belong to the
// current request yet.
func (tv *TableView[T]) NextPage() (bool, error) {
	if tv.opts.DisablePagination {
		return false, ErrPaginationDisabled
	}

	tv.mutex.Lock()
	next := ""
	if tv.page != nil && tv.pageKey == tv.wantKey && tv.page.HasNextPage {
		next = tv.page.NextCursor
	}
	tv.mutex.Unlock()

	if next == "" {
		return false, nil
	}
	return tv.stack.Next(next), nil
}

func (tv *TableView[T]) PrevPage() (bool, error) {
	if tv.opts.DisablePagination {
		return false, ErrPaginationDisabled
	}
	return tv.stack.Back(), nil
}

func (tv *TableView[T]) FirstPage() error {
	if tv.opts.DisablePagination {
		return ErrPaginationDisabled
	}
	tv.stack.Reset()
	return nil
}

// Model returns the row model of the displayed page, or nil while no page has
// been loaded. The model is rebuilt only when the displayed page changes.
func (tv *TableView[T]) Model() *TableModel {
	tv.mutex.Lock()
	defer tv.mutex.Unlock()
	return tv.modelLocked()
}

func (tv *TableView[T]) modelLocked() *TableModel {
	if tv.page == nil {
		return nil
	}
	if tv.memoPage == tv.page && tv.memoModel != nil {
		return tv.memoModel
	}

	rows := make([]Row, 0, len(tv.page.Items))
	for i := range tv.page.Items {
		rows = append(rows, tv.def.MapRow(&tv.page.Items[i]))
	}
	tv.memoModel = &TableModel{
		Columns: tv.def.Columns,
		Rows:    rows,
	}
	tv.memoPage = tv.page
	return tv.memoModel
}

func (tv *TableView[T]) Render() *View {
	tv.mutex.Lock()
	defer tv.mutex.Unlock()

	view := &View{
		Resource:        tv.def.Resource,
		AutoRefresh:     tv.refreshActiveLocked(),
		RefetchInterval: tv.opts.RefetchInterval,
	}
	if model := tv.modelLocked(); model != nil {
		view.Table = model
	} else {
		view.Placeholder = &PlaceholderTable{
			RowCount: tv.limit,
			Headings: slices.Clone(tv.def.PlaceholderHeadings),
		}
	}

	footer := &Footer{
		Label:        tv.def.Label,
		Limit:        tv.limit,
		LimitOptions: tv.limitOptionsLocked(),
	}
	if tv.count != nil {
		count := *tv.count
		footer.Count = &count
	}
	if tv.page != nil {
		footer.HasData = true
		footer.PageItems = len(tv.page.Items)
	}
	if tv.pageErr != nil {
		footer.Error = tv.pageErr.Error()
	}
	if !tv.opts.DisablePagination {
		cursors := tv.stack.Cursors()
		controls := &PaginationControls{
			PageIndex: len(cursors) + 1,
			Cursor:    tv.cursor,
			HasPrev:   len(cursors) > 0,
			Stack:     cursors,
		}
		if tv.page != nil && tv.pageKey == tv.wantKey && tv.page.HasNextPage && tv.page.NextCursor != "" {
			controls.HasNext = true
			controls.NextCursor = tv.page.NextCursor
		}
		footer.Pagination = controls
	}
	view.Footer = footer

	return view
}

func (tv *TableView[T]) limitOptionsLocked() []uint64 {
	options := make([]uint64, 0, len(tv.opts.LimitOptions)+1)
	for _, option := range tv.opts.LimitOptions {
		if option > 0 && option <= tv.opts.MaxLimit {
			options = append(options, option)
		}
	}
	if !slices.Contains(options, tv.limit) {
		options = append(options, tv.limit)
	}
	slices.Sort(options)
	return slices.Compact(options)
}

func (tv *TableView[T]) Limit() uint64 {
	tv.mutex.Lock()
	defer tv.mutex.Unlock()
	return tv.limit
}

func (tv *TableView[T]) Cursor() string {
	tv.mutex.Lock()
	defer tv.mutex.Unlock()
	return tv.cursor
}

func (tv *TableView[T]) Count() (uint64, bool) {
	tv.mutex.Lock()
	defer tv.mutex.Unlock()
	if tv.count == nil {
		return 0, false
	}
	return *tv.count, true
}

// Page returns the displayed page, which may belong to a previous request.
func (tv *TableView[T]) Page() *Page[T] {
	tv.mutex.Lock()
	defer tv.mutex.Unlock()
	return tv.page
}

// IsLoading reports whether the displayed page differs from the requested one.
func (tv *TableView[T]) IsLoading() bool {
	tv.mutex.Lock()
	defer tv.mutex.Unlock()
	return tv.page == nil || tv.pageKey != tv.wantKey
}

func (tv *TableView[T]) Err() error {
	tv.mutex.Lock()
	defer tv.mutex.Unlock()
	return tv.pageErr
}

func (tv *TableView[T]) Stack() *pagination.Stack {
	return tv.stack
}

func (tv *TableView[T]) Options() Options {
	return tv.opts
}

// OnChange registers fn to be called after every state change of the view.
func (tv *TableView[T]) OnChange(fn func()) func() {
	tv.listenerMutex.Lock()
	id := tv.nextListener
	tv.nextListener++
	tv.listeners[id] = fn
	tv.listenerMutex.Unlock()

	return func() {
		tv.listenerMutex.Lock()
		delete(tv.listeners, id)
		tv.listenerMutex.Unlock()
	}
}

func (tv *TableView[T]) notify() {
	tv.listenerMutex.Lock()
	listeners := make([]func(), 0, len(tv.listeners))
	for _, fn := range tv.listeners {
		listeners = append(listeners, fn)
	}
	tv.listenerMutex.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Close stops auto refresh and all pending background loads and resets the
// cursor stack to the first page.
func (tv *TableView[T]) Close() {
	tv.mutex.Lock()
	if tv.closed {
		tv.mutex.Unlock()
		return
	}
	tv.closed = true
	tv.updateRefreshLocked()
	tv.cancel()
	unsubscribe := tv.unsubscribe
	tv.mutex.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	tv.stack.Reset()
}
