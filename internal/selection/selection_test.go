package selection

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"workpilot/internal/client"
	"workpilot/internal/domain"
)

type fakeSource struct {
	mu      sync.Mutex
	reports map[string]string
	err     error
	calls   atomic.Int32
	gate    chan struct{}
	// gates holds individual loads back by start date.
	gates map[string]chan struct{}
}

func (f *fakeSource) DailyReportsByRange(_ context.Context, start, end string) ([]domain.DailyReport, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if g, ok := f.gates[start]; ok {
		<-g
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.DailyReport
	for date, content := range f.reports {
		if date >= start && date <= end {
			out = append(out, domain.DailyReport{EntryDate: date, Content: content})
		}
	}
	return out, nil
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func newController(src ReportSource) *Controller {
	c := New(src, time.UTC)
	c.now = func() time.Time { return time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC) }
	return c
}

func january() *fakeSource {
	return &fakeSource{reports: map[string]string{
		"2025-01-01": "元旦值班",
		"2025-01-02": "修复接口超时",
		"2025-01-03": "周会",
		"2025-01-04": "   ",
		"2025-01-08": "下周内容",
	}}
}

func TestOpenSeedsCurrentWeekAndPreselects(t *testing.T) {
	c := newController(january())
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	snap := c.Snapshot()
	if snap.State != StateReportsLoaded {
		t.Fatalf("state = %s", snap.State)
	}
	if snap.Start != "2024-12-30" || snap.End != "2025-01-03" {
		t.Fatalf("unexpected range %s..%s", snap.Start, snap.End)
	}
	want := []string{"2025-01-01", "2025-01-02", "2025-01-03"}
	if !reflect.DeepEqual(snap.Available, want) || !reflect.DeepEqual(snap.Selected, want) {
		t.Fatalf("available=%v selected=%v, want %v", snap.Available, snap.Selected, want)
	}
}

func TestOpenFailureKeepsFlowOpen(t *testing.T) {
	src := january()
	src.fail(client.ErrUnavailable)
	c := newController(src)

	if err := c.Open(context.Background()); !errors.Is(err, client.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if c.State() != StateRangeChosen {
		t.Fatalf("flow must stay open, state = %s", c.State())
	}

	src.fail(nil)
	if err := c.SetRange(context.Background(), "2025-01-01", "2025-01-02"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if c.State() != StateReportsLoaded {
		t.Fatalf("state = %s", c.State())
	}
}

func TestToggleDateTwiceRestoresSelection(t *testing.T) {
	c := newController(january())
	_ = c.Open(context.Background())
	before := c.Snapshot().Selected

	c.ToggleDate("2025-01-02")
	if got := c.Snapshot().Selected; reflect.DeepEqual(got, before) {
		t.Fatalf("first toggle did nothing: %v", got)
	}
	c.ToggleDate("2025-01-02")
	if got := c.Snapshot().Selected; !reflect.DeepEqual(got, before) {
		t.Fatalf("double toggle = %v, want %v", got, before)
	}
}

func TestToggleDateWithoutContentIsNoop(t *testing.T) {
	c := newController(january())
	_ = c.Open(context.Background())
	before := c.Snapshot().Selected

	c.ToggleDate("2025-01-04")
	c.ToggleDate("2024-12-31")
	c.ToggleDate("garbage")
	if got := c.Snapshot().Selected; !reflect.DeepEqual(got, before) {
		t.Fatalf("selection changed to %v", got)
	}
}

func TestImportOrdersByDateNotClickOrder(t *testing.T) {
	c := newController(january())
	_ = c.Open(context.Background())
	c.ClearAll()
	for _, d := range []string{"2025-01-03", "2025-01-01", "2025-01-02"} {
		c.ToggleDate(d)
	}

	imp, err := c.Import()
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !reflect.DeepEqual(imp.Dates, []string{"2025-01-01", "2025-01-02", "2025-01-03"}) {
		t.Fatalf("dates = %v", imp.Dates)
	}
	want := "2025-01-01\n元旦值班\n\n2025-01-02\n修复接口超时\n\n2025-01-03\n周会"
	if imp.Content != want {
		t.Fatalf("content = %q, want %q", imp.Content, want)
	}
	if imp.Start != "2024-12-30" || imp.End != "2025-01-03" {
		t.Fatalf("imported range %s..%s", imp.Start, imp.End)
	}
	snap := c.Snapshot()
	if snap.State != StateImported || snap.Imported == nil || snap.Imported.Start != imp.Start {
		t.Fatalf("flow not closed as imported: %+v", snap)
	}
}

func TestSelectAllThenToggle(t *testing.T) {
	src := &fakeSource{reports: map[string]string{"2025-01-01": "a", "2025-01-02": "b"}}
	c := newController(src)
	_ = c.Open(context.Background())

	c.ClearAll()
	c.SelectAll()
	c.ToggleDate("2025-01-01")
	if got := c.Snapshot().Selected; !reflect.DeepEqual(got, []string{"2025-01-02"}) {
		t.Fatalf("selected = %v", got)
	}

	c.ToggleAll()
	if got := c.Snapshot().Selected; len(got) != 2 {
		t.Fatalf("ToggleAll from partial must fill, got %v", got)
	}
	c.ToggleAll()
	if got := c.Snapshot().Selected; len(got) != 0 {
		t.Fatalf("ToggleAll from full must clear, got %v", got)
	}
}

func TestImportRequiresSelection(t *testing.T) {
	src := january()
	c := newController(src)
	_ = c.Open(context.Background())
	c.ClearAll()
	calls := src.calls.Load()

	if _, err := c.Import(); !errors.Is(err, ErrEmptySelection) || !errors.Is(err, client.ErrValidation) {
		t.Fatalf("expected empty selection validation error, got %v", err)
	}
	if src.calls.Load() != calls {
		t.Fatal("validation failure must not issue a request")
	}
	if c.State() != StateReportsLoaded {
		t.Fatalf("flow must stay open, state = %s", c.State())
	}
}

func TestSetRangeValidationIssuesNoCall(t *testing.T) {
	src := january()
	c := newController(src)
	_ = c.Open(context.Background())
	calls := src.calls.Load()

	for _, r := range [][2]string{{"2025-01-05", "2025-01-01"}, {"nope", "2025-01-01"}} {
		if err := c.SetRange(context.Background(), r[0], r[1]); !errors.Is(err, client.ErrValidation) {
			t.Fatalf("SetRange(%v) = %v, want validation error", r, err)
		}
	}
	if src.calls.Load() != calls {
		t.Fatal("validation failure must not issue a request")
	}
}

func TestSetRangeFailureLeavesStateUntouched(t *testing.T) {
	src := january()
	c := newController(src)
	_ = c.Open(context.Background())
	c.ToggleDate("2025-01-03")
	before := c.Snapshot()

	src.fail(errors.New("connection reset"))
	if err := c.SetRange(context.Background(), "2025-01-06", "2025-01-10"); err == nil {
		t.Fatal("expected fetch error")
	}
	if after := c.Snapshot(); !reflect.DeepEqual(after, before) {
		t.Fatalf("state changed on failure:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestSetRangeResetsSelectionToAvailable(t *testing.T) {
	c := newController(january())
	_ = c.Open(context.Background())
	c.ClearAll()

	if err := c.SetRange(context.Background(), "2025-01-03", "2025-01-08"); err != nil {
		t.Fatalf("SetRange failed: %v", err)
	}
	snap := c.Snapshot()
	want := []string{"2025-01-03", "2025-01-08"}
	if snap.Start != "2025-01-03" || snap.End != "2025-01-08" || !reflect.DeepEqual(snap.Selected, want) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestOverlappingLoadsShareOneRequest(t *testing.T) {
	src := january()
	src.gate = make(chan struct{})
	c := newController(src)
	c.mu.Lock()
	c.state = StateRangeChosen
	c.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.SetRange(context.Background(), "2025-01-01", "2025-01-03"); err != nil {
				t.Errorf("SetRange failed: %v", err)
			}
		}()
	}
	deadline := time.Now().Add(2 * time.Second)
	for !c.loads.Busy("2025-01-01~2025-01-03") {
		if time.Now().After(deadline) {
			t.Fatal("load never started")
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	if n := src.calls.Load(); n != 1 {
		t.Fatalf("expected one shared request, got %d", n)
	}
	if got := c.Snapshot().Selected; len(got) != 3 {
		t.Fatalf("selected = %v", got)
	}
}

func TestCloseDiscardsLateLoad(t *testing.T) {
	src := january()
	src.gate = make(chan struct{})
	c := newController(src)

	done := make(chan error, 1)
	go func() { done <- c.Open(context.Background()) }()
	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("load never started")
		}
		time.Sleep(time.Millisecond)
	}
	c.Close()
	close(src.gate)
	if err := <-done; err != nil {
		t.Fatalf("Open returned %v", err)
	}

	snap := c.Snapshot()
	if snap.State != StateClosed || len(snap.Available) != 0 {
		t.Fatalf("late load leaked into closed flow: %+v", snap)
	}
	if err := c.SetRange(context.Background(), "2025-01-01", "2025-01-02"); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
	if !strings.Contains(ErrNotOpen.Error(), "not open") {
		t.Fatalf("unexpected message %q", ErrNotOpen)
	}
}

func TestLateSetRangeDoesNotOverwriteNewerRange(t *testing.T) {
	src := &fakeSource{reports: map[string]string{
		"2025-02-03": "二月需求评审",
		"2025-03-04": "三月上线",
		"2025-03-05": "三月复盘",
	}}
	c := newController(src)
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	feb := make(chan struct{})
	src.gates = map[string]chan struct{}{"2025-02-03": feb}
	done := make(chan error, 1)
	go func() { done <- c.SetRange(context.Background(), "2025-02-03", "2025-02-07") }()
	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("february load never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := c.SetRange(context.Background(), "2025-03-03", "2025-03-07"); err != nil {
		t.Fatalf("SetRange(March): %v", err)
	}
	close(feb)
	if err := <-done; err != nil {
		t.Fatalf("SetRange(February): %v", err)
	}

	snap := c.Snapshot()
	if snap.Start != "2025-03-03" || snap.End != "2025-03-07" {
		t.Fatalf("stale load replaced the range: %s..%s", snap.Start, snap.End)
	}
	want := []string{"2025-03-04", "2025-03-05"}
	if !reflect.DeepEqual(snap.Available, want) || !reflect.DeepEqual(snap.Selected, want) {
		t.Fatalf("available=%v selected=%v, want %v", snap.Available, snap.Selected, want)
	}
}
