// Package dedup keeps a cached view of projects and similarity groups and runs the
// merge, cleanup and delete actions against it.
//
// After every successful mutation the cache is pruned locally first and then
// replaced by fresh reloads, so no cached list, group or selected detail keeps
// pointing at a project that was deleted or merged away.
package dedup

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"sync"

	"workpilot/internal/client"
	"workpilot/internal/domain"
	"workpilot/internal/inflight"
)

const DefaultThreshold = 0.6

// ProjectAPI is the slice of the HTTP client the workflow needs.
type ProjectAPI interface {
	Projects(ctx context.Context, status string) ([]domain.Project, error)
	Project(ctx context.Context, id int64) (domain.ProjectDetail, error)
	SimilarProjects(ctx context.Context, threshold float64) ([]domain.SimilarityGroup, error)
	MergeProjects(ctx context.Context, targetID int64, sourceIDs []int64) (domain.MergeResult, error)
	CleanupNullProjects(ctx context.Context) (domain.CleanupResult, error)
	DeleteProject(ctx context.Context, id int64) error
	DeleteAllProjects(ctx context.Context) (domain.DeleteAllResult, error)
}

var (
	ErrNothingToMerge    = fmt.Errorf("%w: pick at least one project besides the target", client.ErrValidation)
	ErrDeleteAllNotAsked = fmt.Errorf("%w: delete-all was not requested or was already used", client.ErrValidation)
)

type Snapshot struct {
	Projects         []domain.Project
	Selected         *domain.ProjectDetail
	Groups           []domain.SimilarityGroup
	Threshold        float64
	PendingDeleteAll bool
	// ReloadErr is the last reload failure after a mutation; the cache was pruned but may be stale.
	ReloadErr error
}

type Workflow struct {
	api    ProjectAPI
	guards inflight.Guard

	mu        sync.Mutex
	projects  []domain.Project
	selected  *domain.ProjectDetail
	groups    []domain.SimilarityGroup
	threshold float64
	token     string
	reloadErr error
}

func New(api ProjectAPI) *Workflow {
	return &Workflow{api: api, threshold: DefaultThreshold, projects: []domain.Project{}, groups: []domain.SimilarityGroup{}}
}

func (w *Workflow) LoadProjects(ctx context.Context) ([]domain.Project, error) {
	projects, _, err := inflight.Do(&w.guards, "load-projects", func() ([]domain.Project, error) {
		return w.api.Projects(ctx, "")
	})
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.projects = projects
	w.reconcileLocked()
	return cloneProjects(w.projects), nil
}

// SelectProject loads and caches one project's detail.
func (w *Workflow) SelectProject(ctx context.Context, id int64) (domain.ProjectDetail, error) {
	detail, _, err := inflight.Do(&w.guards, fmt.Sprintf("project:%d", id), func() (domain.ProjectDetail, error) {
		return w.api.Project(ctx, id)
	})
	if err != nil {
		return domain.ProjectDetail{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selected = &detail
	return detail, nil
}

func (w *Workflow) ClearSelection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selected = nil
}

// LoadSimilarGroups fetches groups at threshold and remembers it for later reloads.
// No groups is a valid answer.
func (w *Workflow) LoadSimilarGroups(ctx context.Context, threshold float64) ([]domain.SimilarityGroup, error) {
	if threshold < 0 || threshold > 1 {
		return nil, client.Validationf("threshold must be between 0 and 1, got %g", threshold)
	}
	groups, _, err := inflight.Do(&w.guards, fmt.Sprintf("similar:%g", threshold), func() ([]domain.SimilarityGroup, error) {
		return w.api.SimilarProjects(ctx, threshold)
	})
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.threshold = threshold
	w.groups = groups
	if w.groups == nil {
		w.groups = []domain.SimilarityGroup{}
	}
	return cloneGroups(w.groups), nil
}

// Merge folds a group into its recommended target.
func (w *Workflow) Merge(ctx context.Context, g domain.SimilarityGroup) (domain.MergeResult, error) {
	return w.MergeInto(ctx, g.RecommendedTarget.ID, g.ProjectIDs)
}

// MergeInto moves the work items of every member except targetID into targetID. The
// server message is returned as is, including partial successes.
func (w *Workflow) MergeInto(ctx context.Context, targetID int64, memberIDs []int64) (domain.MergeResult, error) {
	sources := sourcesOf(targetID, memberIDs)
	if targetID <= 0 || len(sources) == 0 {
		return domain.MergeResult{}, ErrNothingToMerge
	}

	res, _, err := inflight.Do(&w.guards, fmt.Sprintf("merge:%d:%v", targetID, sources), func() (domain.MergeResult, error) {
		res, err := w.api.MergeProjects(ctx, targetID, sources)
		if err != nil {
			return res, err
		}
		log.Printf("dedup merged target=%d sources=%v merged_count=%d", targetID, sources, res.MergedCount)

		w.mu.Lock()
		w.pruneLocked(sources...)
		refreshTarget := w.selected != nil && w.selected.ID == targetID
		w.mu.Unlock()

		w.reload(ctx, true)
		if refreshTarget {
			if _, err := w.SelectProject(ctx, targetID); err != nil {
				w.noteReloadErr(err)
			}
		}
		return res, nil
	})
	return res, err
}

// CleanupUnassigned moves items without a usable project into the fallback project.
func (w *Workflow) CleanupUnassigned(ctx context.Context) (domain.CleanupResult, error) {
	res, _, err := inflight.Do(&w.guards, "cleanup", func() (domain.CleanupResult, error) {
		res, err := w.api.CleanupNullProjects(ctx)
		if err != nil {
			return res, err
		}
		w.mu.Lock()
		var invalid []int64
		for _, p := range w.projects {
			if !domain.IsValidProjectName(p.Name) {
				invalid = append(invalid, p.ID)
			}
		}
		w.pruneLocked(invalid...)
		w.mu.Unlock()

		w.reload(ctx, false)
		return res, nil
	})
	return res, err
}

func (w *Workflow) DeleteProject(ctx context.Context, id int64) error {
	_, _, err := inflight.Do(&w.guards, fmt.Sprintf("delete:%d", id), func() (struct{}, error) {
		if err := w.api.DeleteProject(ctx, id); err != nil {
			return struct{}{}, err
		}
		log.Printf("dedup deleted project=%d", id)
		w.mu.Lock()
		w.pruneLocked(id)
		w.mu.Unlock()

		w.reload(ctx, false)
		return struct{}{}, nil
	})
	return err
}

// RequestDeleteAll starts the two-step delete-all and returns the token that
// ConfirmDeleteAll expects. A new request replaces any earlier token.
func (w *Workflow) RequestDeleteAll() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate delete-all token: %w", err)
	}
	token := hex.EncodeToString(buf)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.token = token
	return token, nil
}

func (w *Workflow) CancelDeleteAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.token = ""
}

// ConfirmDeleteAll wipes every project and work item. The token is consumed even
// when the call fails.
func (w *Workflow) ConfirmDeleteAll(ctx context.Context, token string) (domain.DeleteAllResult, error) {
	w.mu.Lock()
	if w.token == "" || token != w.token {
		w.mu.Unlock()
		return domain.DeleteAllResult{}, ErrDeleteAllNotAsked
	}
	w.token = ""
	w.mu.Unlock()

	res, _, err := inflight.Do(&w.guards, "delete-all", func() (domain.DeleteAllResult, error) {
		res, err := w.api.DeleteAllProjects(ctx)
		if err != nil {
			return res, err
		}
		log.Printf("dedup deleted all projects=%d work_items=%d", res.DeletedProjects, res.DeletedWorkItems)
		w.mu.Lock()
		w.projects = []domain.Project{}
		w.groups = []domain.SimilarityGroup{}
		w.selected = nil
		w.mu.Unlock()

		w.reload(ctx, false)
		return res, nil
	})
	return res, err
}

func cloneProjects(src []domain.Project) []domain.Project {
	out := make([]domain.Project, len(src))
	copy(out, src)
	return out
}

func cloneGroups(src []domain.SimilarityGroup) []domain.SimilarityGroup {
	out := make([]domain.SimilarityGroup, len(src))
	copy(out, src)
	return out
}

// Busy reports whether an action key such as "cleanup" or "delete-all" is running.
func (w *Workflow) Busy(key string) bool {
	return w.guards.Busy(key)
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := Snapshot{
		Projects:         cloneProjects(w.projects),
		Groups:           cloneGroups(w.groups),
		Threshold:        w.threshold,
		PendingDeleteAll: w.token != "",
		ReloadErr:        w.reloadErr,
	}
	if w.selected != nil {
		d := *w.selected
		snap.Selected = &d
	}
	return snap
}

// reload refreshes the project list and, when asked, the similarity groups. Failures
// are kept on the snapshot; the pruned cache stays in place.
func (w *Workflow) reload(ctx context.Context, groups bool) {
	w.mu.Lock()
	w.reloadErr = nil
	threshold := w.threshold
	w.mu.Unlock()

	if groups {
		if _, err := w.LoadSimilarGroups(ctx, threshold); err != nil {
			w.noteReloadErr(err)
		}
	}
	if _, err := w.LoadProjects(ctx); err != nil {
		w.noteReloadErr(err)
	}
}

func (w *Workflow) noteReloadErr(err error) {
	log.Printf("dedup reload failed err=%v", err)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reloadErr = err
}

// pruneLocked drops ids from every cached view.
func (w *Workflow) pruneLocked(ids ...int64) {
	if len(ids) == 0 {
		return
	}
	gone := make(map[int64]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}

	projects := w.projects[:0:0]
	for _, p := range w.projects {
		if !gone[p.ID] {
			projects = append(projects, p)
		}
	}
	w.projects = projects

	if w.selected != nil && gone[w.selected.ID] {
		w.selected = nil
	}

	groups := []domain.SimilarityGroup{}
	for _, g := range w.groups {
		if gone[g.RecommendedTarget.ID] {
			continue
		}
		kept := domain.SimilarityGroup{RecommendedTarget: g.RecommendedTarget}
		for _, p := range g.Projects {
			if !gone[p.ID] {
				kept.Projects = append(kept.Projects, p)
			}
		}
		for _, id := range g.ProjectIDs {
			if !gone[id] {
				kept.ProjectIDs = append(kept.ProjectIDs, id)
			}
		}
		if len(kept.ProjectIDs) >= 2 {
			groups = append(groups, kept)
		}
	}
	w.groups = groups
}

// reconcileLocked prunes whatever the freshly loaded project list no longer has.
func (w *Workflow) reconcileLocked() {
	present := make(map[int64]bool, len(w.projects))
	for _, p := range w.projects {
		present[p.ID] = true
	}
	var gone []int64
	if w.selected != nil && !present[w.selected.ID] {
		gone = append(gone, w.selected.ID)
	}
	for _, g := range w.groups {
		for _, id := range g.ProjectIDs {
			if !present[id] {
				gone = append(gone, id)
			}
		}
	}
	w.pruneLocked(gone...)
}

func sourcesOf(targetID int64, members []int64) []int64 {
	seen := map[int64]bool{targetID: true}
	var out []int64
	for _, id := range members {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
