// Package selection drives the "import daily reports from a date range" flow.
//
// A Controller moves through closed, rangeChosen and reportsLoaded. Dates can be
// toggled once reports are loaded, and the flow ends either imported or closed.
// Network calls never run under the controller's lock, and a failed fetch leaves
// the previous range, content and selection exactly as they were.
package selection

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"workpilot/internal/client"
	"workpilot/internal/domain"
	"workpilot/internal/inflight"
)

type State string

const (
	StateClosed        State = "closed"
	StateRangeChosen   State = "rangeChosen"
	StateReportsLoaded State = "reportsLoaded"
	StateImported      State = "imported"
)

var (
	ErrEmptySelection = fmt.Errorf("%w: select at least one date", client.ErrValidation)
	ErrNotOpen        = fmt.Errorf("%w: selection is not open", client.ErrValidation)
)

// ReportSource loads daily reports for an inclusive date range.
type ReportSource interface {
	DailyReportsByRange(ctx context.Context, start, end string) ([]domain.DailyReport, error)
}

// Import is what the flow hands back when it completes.
type Import struct {
	Start   string
	End     string
	Dates   []string
	Content string
}

// Snapshot is a copy of the controller state, safe to read without locking.
type Snapshot struct {
	State     State
	Start     string
	End       string
	Available []string
	Selected  []string
	Imported  *Import
}

type Controller struct {
	src ReportSource
	loc *time.Location
	now func() time.Time

	loads inflight.Guard

	mu        sync.Mutex
	epoch     int
	state     State
	start     string
	end       string
	content   map[string]string
	available []string
	selected  map[string]bool
	imported  *Import
}

func New(src ReportSource, loc *time.Location) *Controller {
	if loc == nil {
		loc = time.Local
	}
	return &Controller{
		src:      src,
		loc:      loc,
		now:      time.Now,
		state:    StateClosed,
		content:  map[string]string{},
		selected: map[string]bool{},
	}
}

// Open resets the flow, picks the current Monday to Friday and loads it. When the
// load fails the flow stays open in rangeChosen with nothing available.
func (c *Controller) Open(ctx context.Context) error {
	monday, friday := domain.WorkWeekAt(c.now().In(c.loc))
	start, end := monday.Format(domain.DateLayout), friday.Format(domain.DateLayout)

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.state = StateRangeChosen
	c.start, c.end = start, end
	c.content = map[string]string{}
	c.available = nil
	c.selected = map[string]bool{}
	c.imported = nil
	c.mu.Unlock()

	return c.load(ctx, epoch, start, end)
}

// SetRange validates and loads a new range. The range is committed together with
// its content only when the load succeeds and no later Open or SetRange started.
func (c *Controller) SetRange(ctx context.Context, start, end string) error {
	s, err := domain.NormalizeDate(strings.TrimSpace(start))
	if err != nil {
		return client.Validationf("start date: %v", err)
	}
	e, err := domain.NormalizeDate(strings.TrimSpace(end))
	if err != nil {
		return client.Validationf("end date: %v", err)
	}
	if s > e {
		return client.Validationf("start date %s is after end date %s", s, e)
	}

	c.mu.Lock()
	if !c.openLocked() {
		c.mu.Unlock()
		return ErrNotOpen
	}
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	return c.load(ctx, epoch, s, e)
}

func (c *Controller) load(ctx context.Context, epoch int, start, end string) error {
	reports, _, err := inflight.Do(&c.loads, start+"~"+end, func() ([]domain.DailyReport, error) {
		return c.src.DailyReportsByRange(ctx, start, end)
	})
	if err != nil {
		log.Printf("selection load failed start=%s end=%s err=%v", start, end, err)
		return err
	}

	content := map[string]string{}
	for _, r := range reports {
		date, err := domain.NormalizeDate(r.EntryDate)
		if err != nil || date < start || date > end || strings.TrimSpace(r.Content) == "" {
			continue
		}
		content[date] = r.Content
	}
	available := make([]string, 0, len(content))
	for date := range content {
		available = append(available, date)
	}
	sort.Strings(available)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || !c.openLocked() {
		return nil
	}
	c.start, c.end = start, end
	c.content = content
	c.available = available
	c.selected = map[string]bool{}
	for _, d := range available {
		c.selected[d] = true
	}
	c.state = StateReportsLoaded
	return nil
}

func (c *Controller) openLocked() bool {
	return c.state == StateRangeChosen || c.state == StateReportsLoaded
}

// ToggleDate flips one date. Dates without content are ignored.
func (c *Controller) ToggleDate(date string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.content[date]; !ok || c.state != StateReportsLoaded {
		return
	}
	if c.selected[date] {
		delete(c.selected, date)
	} else {
		c.selected[date] = true
	}
}

func (c *Controller) SelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.available {
		c.selected[d] = true
	}
}

func (c *Controller) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = map[string]bool{}
}

// ToggleAll clears when everything is selected and fills otherwise.
func (c *Controller) ToggleAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.available) > 0 && len(c.selected) == len(c.available) {
		c.selected = map[string]bool{}
		return
	}
	for _, d := range c.available {
		c.selected[d] = true
	}
}

// Import joins the selected days in date order, each under its own date line, and
// closes the flow.
func (c *Controller) Import() (Import, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReportsLoaded {
		return Import{}, ErrNotOpen
	}
	dates := c.selectedLocked()
	if len(dates) == 0 {
		return Import{}, ErrEmptySelection
	}

	blocks := make([]string, len(dates))
	for i, d := range dates {
		blocks[i] = d + "\n" + strings.TrimSpace(c.content[d])
	}
	imp := Import{Start: c.start, End: c.end, Dates: dates, Content: strings.Join(blocks, "\n\n")}

	c.epoch++
	c.imported = &imp
	c.state = StateImported
	log.Printf("selection imported start=%s end=%s days=%d", imp.Start, imp.End, len(dates))
	return imp, nil
}

// Close abandons the flow. A load still in flight is discarded when it returns.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.state = StateClosed
	c.content = map[string]string{}
	c.available = nil
	c.selected = map[string]bool{}
}

func (c *Controller) selectedLocked() []string {
	out := make([]string, 0, len(c.selected))
	for d := range c.selected {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:     c.state,
		Start:     c.start,
		End:       c.end,
		Available: append([]string(nil), c.available...),
		Selected:  c.selectedLocked(),
	}
	if c.imported != nil {
		imp := *c.imported
		snap.Imported = &imp
	}
	return snap
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
