package scroll

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/Sternrassler/pokedex-scroll/internal/testutil"
	"github.com/Sternrassler/pokedex-scroll/pkg/assets"
	"github.com/Sternrassler/pokedex-scroll/pkg/client"
	"github.com/Sternrassler/pokedex-scroll/pkg/pagination"
	"github.com/Sternrassler/pokedex-scroll/pkg/pokedex"
	"github.com/Sternrassler/pokedex-scroll/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/net/html"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeLoader serves pages of one-type records and advances like the fetcher.
type fakeLoader struct {
	mu      sync.Mutex
	total   int
	fail    map[int]bool
	drop    map[int]bool
	offsets []int
	block   chan struct{}
}

func (l *fakeLoader) Load(ctx context.Context, state pagination.State) *pokedex.Page {
	l.mu.Lock()
	l.offsets = append(l.offsets, state.Offset)
	fail := l.fail[state.Offset]
	drop := l.drop[state.Offset]
	block := l.block
	l.mu.Unlock()

	if block != nil {
		<-block
	}
	if fail {
		return &pokedex.Page{State: state, Next: state}
	}

	var records []pokedex.Record
	for i := state.Offset; i < state.Offset+state.Limit && i < l.total && !drop; i++ {
		id := fmt.Sprint(i + 1)
		records = append(records, pokedex.Record{ID: id, Name: "p" + id, Types: []string{"water"}, ImgURL: "./assets/img/" + id + ".png"})
	}
	return &pokedex.Page{
		State:   state,
		Records: records,
		Next:    state.Advance().WithTotal(l.total).Capped(pagination.DefaultMaxItems),
	}
}

func (l *fakeLoader) Offsets() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.offsets...)
}

// recordingObserver keeps the set of observed nodes.
type recordingObserver struct {
	mu       sync.Mutex
	observed map[*html.Node]bool
	calls    []string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{observed: make(map[*html.Node]bool)}
}

func (o *recordingObserver) Observe(n *html.Node) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observed[n] = true
	o.calls = append(o.calls, "observe")
}

func (o *recordingObserver) Unobserve(n *html.Node) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.observed, n)
	o.calls = append(o.calls, "unobserve")
}

func (o *recordingObserver) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.observed)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "in_flight", InFlight.String())
	assert.Equal(t, "exhausted", Exhausted.String())
	assert.Equal(t, "state(7)", State(7).String())
}

func TestTrigger_StartRendersFirstPageAndArms(t *testing.T) {
	loader := &fakeLoader{total: 1302}
	doc := render.NewDocument()
	obs := newRecordingObserver()

	trig := NewTrigger(loader, doc, obs, pagination.New(15))
	require.NoError(t, trig.Start(context.Background()))

	assert.Equal(t, Idle, trig.State())
	assert.Equal(t, 15, doc.Len())
	assert.Equal(t, doc.LastItem(), trig.Target())
	assert.Equal(t, 1, obs.Len())
	assert.Equal(t, 15, trig.Pagination().Offset)

	assert.ErrorIs(t, trig.Start(context.Background()), ErrAlreadyStarted)
}

func TestTrigger_IntersectionLoadsNextPage(t *testing.T) {
	loader := &fakeLoader{total: 1302}
	doc := render.NewDocument()
	obs := newRecordingObserver()

	trig := NewTrigger(loader, doc, obs, pagination.New(15))
	require.NoError(t, trig.Start(context.Background()))

	first := trig.Target()
	trig.Handle(context.Background(), Entry{Target: first, Intersecting: true})

	assert.Equal(t, 30, doc.Len())
	assert.Equal(t, Idle, trig.State())
	assert.NotEqual(t, first, trig.Target(), "trigger must move to the new last card")
	assert.Equal(t, 1, obs.Len(), "old target must be unobserved")
	assert.Equal(t, []int{0, 15}, loader.Offsets())
	assert.Equal(t, []string{"observe", "unobserve", "observe"}, obs.calls)
}

func TestTrigger_IgnoresIrrelevantEntries(t *testing.T) {
	loader := &fakeLoader{total: 1302}
	doc := render.NewDocument()

	trig := NewTrigger(loader, doc, newRecordingObserver(), pagination.New(15))
	require.NoError(t, trig.Start(context.Background()))
	target := trig.Target()

	trig.Handle(context.Background(), Entry{Target: target, Intersecting: false})
	trig.Handle(context.Background(), Entry{Target: doc.List().FirstChild, Intersecting: true})
	trig.Handle(context.Background(), Entry{Target: nil, Intersecting: true})

	assert.Equal(t, 15, doc.Len())
	assert.Equal(t, []int{0}, loader.Offsets())
	assert.Equal(t, target, trig.Target())
}

func TestTrigger_NoTriggerWhileInFlight(t *testing.T) {
	loader := &fakeLoader{total: 1302}
	doc := render.NewDocument()

	trig := NewTrigger(loader, doc, newRecordingObserver(), pagination.New(15))
	require.NoError(t, trig.Start(context.Background()))
	target := trig.Target()

	loader.mu.Lock()
	loader.block = make(chan struct{})
	loader.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		trig.Handle(context.Background(), Entry{Target: target, Intersecting: true})
	}()

	require.Eventually(t, func() bool {
		return trig.State() == InFlight && len(loader.Offsets()) == 2
	}, time.Second, time.Millisecond)

	// the reader keeps scrolling while the page is loading
	trig.Handle(context.Background(), Entry{Target: target, Intersecting: true})
	assert.Equal(t, []int{0, 15}, loader.Offsets())

	close(loader.block)
	<-done

	assert.Equal(t, Idle, trig.State())
	assert.Equal(t, 30, doc.Len())
}

func TestTrigger_StopsAtTerminalOffset(t *testing.T) {
	loader := &fakeLoader{total: 1302}
	doc := render.NewDocument()
	obs := newRecordingObserver()

	trig := NewTrigger(loader, doc, obs, pagination.New(15))
	require.NoError(t, trig.Start(context.Background()))

	for i := 0; i < 20; i++ {
		trig.Handle(context.Background(), Entry{Target: trig.Target(), Intersecting: true})
	}

	assert.Equal(t, Exhausted, trig.State())
	assert.Equal(t, 150, doc.Len())
	assert.Equal(t, 150, trig.Pagination().Offset)
	assert.Len(t, loader.Offsets(), 10)
	assert.Equal(t, 0, obs.Len(), "exhausted trigger observes nothing")
	assert.Nil(t, trig.Target())
}

func TestTrigger_StopsAtAPICount(t *testing.T) {
	loader := &fakeLoader{total: 40}
	doc := render.NewDocument()
	scroller := NewAutoScroll()

	trig := NewTrigger(loader, doc, scroller, pagination.New(15))
	require.NoError(t, trig.Start(context.Background()))
	require.NoError(t, trig.Run(context.Background(), scroller.Entries()))

	assert.Equal(t, Exhausted, trig.State())
	assert.Equal(t, 40, doc.Len())
	assert.Equal(t, []int{0, 15, 30}, loader.Offsets())
}

func TestTrigger_FailedPageKeepsOffset(t *testing.T) {
	loader := &fakeLoader{total: 1302, fail: map[int]bool{15: true}}
	doc := render.NewDocument()
	obs := newRecordingObserver()

	trig := NewTrigger(loader, doc, obs, pagination.New(15))
	require.NoError(t, trig.Start(context.Background()))
	target := trig.Target()

	trig.Handle(context.Background(), Entry{Target: target, Intersecting: true})

	assert.Equal(t, 15, doc.Len(), "list must not grow on failure")
	assert.Equal(t, 15, trig.Pagination().Offset)
	assert.Equal(t, Idle, trig.State())
	assert.Equal(t, target, trig.Target(), "same last card is re-armed")
}

func TestTrigger_EmptyFirstPageArmsNothing(t *testing.T) {
	loader := &fakeLoader{total: 1302, fail: map[int]bool{0: true}}
	doc := render.NewDocument()
	scroller := NewAutoScroll()

	trig := NewTrigger(loader, doc, scroller, pagination.New(15))
	require.NoError(t, trig.Start(context.Background()))

	assert.Nil(t, trig.Target())
	require.NoError(t, trig.Run(context.Background(), scroller.Entries()))
	assert.Equal(t, []int{0}, loader.Offsets())
}

func TestTrigger_RunHonorsContext(t *testing.T) {
	loader := &fakeLoader{total: 1302}
	doc := render.NewDocument()

	trig := NewTrigger(loader, doc, newRecordingObserver(), pagination.New(15))
	require.NoError(t, trig.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// nobody ever scrolls
	err := trig.Run(ctx, make(chan Entry))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAutoScroll_ReportsEveryArmedCard(t *testing.T) {
	a := NewAutoScroll()
	n := &html.Node{}

	a.Observe(n)
	entry := <-a.Entries()
	assert.Equal(t, n, entry.Target)
	assert.True(t, entry.Intersecting)

	// same card again: a page that rendered nothing still scrolls on
	a.Observe(n)
	entry, ok := <-a.Entries()
	require.True(t, ok)
	assert.Equal(t, n, entry.Target)
	assert.Equal(t, 2, a.Observed())
}

func TestAutoScroll_StalledClosesStream(t *testing.T) {
	a := NewAutoScroll()
	n := &html.Node{}

	a.Stalled(n)
	_, ok := <-a.Entries()
	assert.False(t, ok)

	// further calls are no-ops
	a.Observe(&html.Node{})
	a.Stalled(n)
	a.Close()
	assert.Equal(t, 0, a.Observed())
}

func TestAutoScroll_NilTargetClosesStream(t *testing.T) {
	a := NewAutoScroll()

	a.Observe(nil)
	_, ok := <-a.Entries()
	assert.False(t, ok)
}

func TestTrigger_FullyDroppedPageKeepsScrolling(t *testing.T) {
	loader := &fakeLoader{total: 45, drop: map[int]bool{15: true}}
	doc := render.NewDocument()
	scroller := NewAutoScroll()

	trig := NewTrigger(loader, doc, scroller, pagination.New(15))
	require.NoError(t, trig.Start(context.Background()))
	require.NoError(t, trig.Run(context.Background(), scroller.Entries()))

	assert.Equal(t, Exhausted, trig.State())
	assert.Equal(t, []int{0, 15, 30}, loader.Offsets())
	assert.Equal(t, 30, doc.Len())
}

func TestTrigger_FailedPageStallsAutoScroll(t *testing.T) {
	loader := &fakeLoader{total: 1302, fail: map[int]bool{15: true}}
	doc := render.NewDocument()
	scroller := NewAutoScroll()

	trig := NewTrigger(loader, doc, scroller, pagination.New(15))
	require.NoError(t, trig.Start(context.Background()))
	require.NoError(t, trig.Run(context.Background(), scroller.Entries()))

	assert.Equal(t, Idle, trig.State())
	assert.Equal(t, []int{0, 15}, loader.Offsets())
	assert.Equal(t, 15, trig.Pagination().Offset)
	assert.NotNil(t, trig.Target(), "last card stays armed")
}

func imageFS(n int) fstest.MapFS {
	fsys := fstest.MapFS{}
	for i := 1; i <= n; i++ {
		fsys[fmt.Sprintf("assets/img/%d.png", i)] = &fstest.MapFile{Data: []byte("png")}
	}
	return fsys
}

func newPipeline(t *testing.T, mock *testutil.MockPokeAPI, images fstest.MapFS) (*Trigger, *render.Document, *AutoScroll) {
	t.Helper()

	c, err := client.New(client.Config{BaseURL: mock.BaseURL(), UserAgent: "TestApp/1.0.0"})
	require.NoError(t, err)

	fetcher, err := pokedex.New(c, assets.NewDirResolver(images), pokedex.DefaultConfig())
	require.NoError(t, err)

	doc := render.NewDocument()
	scroller := NewAutoScroll()
	return NewTrigger(fetcher, doc, scroller, pagination.New(15)), doc, scroller
}

func TestPipeline_EndToEnd(t *testing.T) {
	mock := testutil.NewMockPokeAPI(testutil.Roster(200))
	defer mock.Close()
	mock.SetCount(1302)

	trig, doc, scroller := newPipeline(t, mock, imageFS(200))

	require.NoError(t, trig.Start(context.Background()))
	require.NoError(t, trig.Run(context.Background(), scroller.Entries()))

	assert.Equal(t, Exhausted, trig.State())
	assert.Equal(t, 150, doc.Len())
	assert.Equal(t, []int{0, 15, 30, 45, 60, 75, 90, 105, 120, 135}, mock.GetListingOffsets())

	last := doc.LastItem()
	require.NotNil(t, last)
	assert.Equal(t, "150. Pokemon-150", last.FirstChild.NextSibling.FirstChild.Data)
}

func TestPipeline_DetailFailureYieldsFourteen(t *testing.T) {
	mock := testutil.NewMockPokeAPI(testutil.Roster(15))
	defer mock.Close()
	mock.FailDetail(5, http.StatusInternalServerError)

	trig, doc, _ := newPipeline(t, mock, imageFS(15))
	require.NoError(t, trig.Start(context.Background()))

	assert.Equal(t, 14, doc.Len())
	assert.Equal(t, 15, trig.Pagination().Offset)
}

func TestPipeline_FullyDroppedMiddlePage(t *testing.T) {
	mock := testutil.NewMockPokeAPI(testutil.Roster(45))
	defer mock.Close()

	images := imageFS(45)
	for id := 16; id <= 30; id++ {
		delete(images, fmt.Sprintf("assets/img/%d.png", id))
	}

	trig, doc, scroller := newPipeline(t, mock, images)
	require.NoError(t, trig.Start(context.Background()))
	require.NoError(t, trig.Run(context.Background(), scroller.Entries()))

	assert.Equal(t, Exhausted, trig.State())
	assert.Equal(t, []int{0, 15, 30}, mock.GetListingOffsets())
	assert.Equal(t, 30, doc.Len())
	assert.Equal(t, 45, trig.Pagination().Offset)
}

func TestPipeline_ListingNotFound(t *testing.T) {
	mock := testutil.NewMockPokeAPI(testutil.Roster(15))
	defer mock.Close()
	mock.SetListingResponse(http.StatusNotFound, "Not Found")

	trig, doc, scroller := newPipeline(t, mock, imageFS(15))
	require.NoError(t, trig.Start(context.Background()))
	require.NoError(t, trig.Run(context.Background(), scroller.Entries()))

	assert.Equal(t, 0, doc.Len())
	assert.Equal(t, 0, trig.Pagination().Offset)
}
