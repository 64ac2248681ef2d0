package sqlite

import (
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"workpilot/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "workpilot-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustProject(t *testing.T, db *sql.DB, name string) domain.Project {
	t.Helper()
	p, err := CreateProject(db, name, "", "")
	if err != nil {
		t.Fatalf("CreateProject(%q) failed: %v", name, err)
	}
	return p
}

func mustWorkItem(t *testing.T, db *sql.DB, date string, projectID *int64, skills ...string) domain.WorkItem {
	t.Helper()
	w, err := CreateWorkItem(db, domain.NewWorkItem{RawLogDate: date, ProjectID: projectID, Action: "work on " + date, Skills: skills})
	if err != nil {
		t.Fatalf("CreateWorkItem failed: %v", err)
	}
	return w
}

func idPtr(id int64) *int64 { return &id }

func TestInitDBAddsStarSummaryColumn(t *testing.T) {
	db := newTestDB(t)

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('projects') WHERE name = 'star_summary'`).Scan(&count); err != nil {
		t.Fatalf("query pragma_table_info failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected star_summary column to exist, count=%d", count)
	}
}

func TestDailyReportCRUD(t *testing.T) {
	db := newTestDB(t)

	for date, content := range map[string]string{
		"2025-01-01": "day one",
		"2025-01-02": "day two",
		"2025-01-05": "day five",
	} {
		if err := SaveDailyReport(db, date, content); err != nil {
			t.Fatalf("SaveDailyReport failed: %v", err)
		}
	}
	if err := SaveDailyReport(db, "2025-01-02", "day two, revised"); err != nil {
		t.Fatalf("SaveDailyReport upsert failed: %v", err)
	}

	got, err := GetDailyReport(db, "2025-01-02")
	if err != nil {
		t.Fatalf("GetDailyReport failed: %v", err)
	}
	if got.Content != "day two, revised" {
		t.Fatalf("expected upserted content, got %q", got.Content)
	}

	ranged, err := GetDailyReportsByRange(db, "2025-01-01", "2025-01-03")
	if err != nil {
		t.Fatalf("GetDailyReportsByRange failed: %v", err)
	}
	if len(ranged) != 2 || ranged[0].EntryDate != "2025-01-01" || ranged[1].EntryDate != "2025-01-02" {
		t.Fatalf("unexpected range result: %+v", ranged)
	}

	dates, err := GetDailyReportDates(db)
	if err != nil {
		t.Fatalf("GetDailyReportDates failed: %v", err)
	}
	if strings.Join(dates, ",") != "2025-01-05,2025-01-02,2025-01-01" {
		t.Fatalf("unexpected dates: %v", dates)
	}

	exists, err := DailyReportExists(db, "2025-01-05")
	if err != nil || !exists {
		t.Fatalf("expected report to exist, exists=%v err=%v", exists, err)
	}

	if err := DeleteDailyReport(db, "2025-01-05"); err != nil {
		t.Fatalf("DeleteDailyReport failed: %v", err)
	}
	if err := DeleteDailyReport(db, "2025-01-05"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := GetDailyReport(db, "2025-01-05"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWeeklyAndOKRReports(t *testing.T) {
	db := newTestDB(t)

	if err := SaveWeeklyReport(db, "2025-01-06", "2025-01-10", "week 2"); err != nil {
		t.Fatalf("SaveWeeklyReport failed: %v", err)
	}
	if err := SaveWeeklyReport(db, "2024-12-30", "2025-01-03", "week 1"); err != nil {
		t.Fatalf("SaveWeeklyReport failed: %v", err)
	}
	latest, err := GetLatestWeeklyReport(db)
	if err != nil {
		t.Fatalf("GetLatestWeeklyReport failed: %v", err)
	}
	if latest.Content != "week 2" {
		t.Fatalf("unexpected latest weekly report: %+v", latest)
	}
	found, err := SearchWeeklyReports(db, "2025-01-01", "")
	if err != nil {
		t.Fatalf("SearchWeeklyReports failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected overlapping week 1 and week 2, got %d", len(found))
	}
	found, _ = SearchWeeklyReports(db, "2025-01-04", "2025-01-05")
	if len(found) != 0 {
		t.Fatalf("expected no report over the weekend, got %+v", found)
	}
	if err := DeleteWeeklyReport(db, "2024-12-30", "2025-01-03"); err != nil {
		t.Fatalf("DeleteWeeklyReport failed: %v", err)
	}

	if err := SaveOKRReport(db, "2025-01-10", "O1"); err != nil {
		t.Fatalf("SaveOKRReport failed: %v", err)
	}
	if err := SaveOKRReport(db, "2025-04-01", "O2"); err != nil {
		t.Fatalf("SaveOKRReport failed: %v", err)
	}
	okr, err := GetLatestOKRReport(db)
	if err != nil || okr.Content != "O2" {
		t.Fatalf("unexpected latest OKR: %+v err=%v", okr, err)
	}
	all, err := GetAllOKRReports(db)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 OKRs, got %d err=%v", len(all), err)
	}
}

func TestTodoItems(t *testing.T) {
	db := newTestDB(t)

	first, err := CreateTodoItem(db, "write weekly report")
	if err != nil {
		t.Fatalf("CreateTodoItem failed: %v", err)
	}
	second, err := CreateTodoItem(db, "review OKR")
	if err != nil {
		t.Fatalf("CreateTodoItem failed: %v", err)
	}
	if second.SortOrder <= first.SortOrder {
		t.Fatalf("expected increasing sort order, got %d then %d", first.SortOrder, second.SortOrder)
	}

	done := true
	updated, err := UpdateTodoItem(db, first.ID, nil, &done)
	if err != nil {
		t.Fatalf("UpdateTodoItem failed: %v", err)
	}
	if updated.Completed != 1 || updated.Content != "write weekly report" {
		t.Fatalf("unexpected updated todo: %+v", updated)
	}

	items, err := GetTodoItems(db)
	if err != nil {
		t.Fatalf("GetTodoItems failed: %v", err)
	}
	if len(items) != 2 || items[0].ID != second.ID {
		t.Fatalf("expected open items before completed ones, got %+v", items)
	}

	if err := DeleteTodoItem(db, first.ID); err != nil {
		t.Fatalf("DeleteTodoItem failed: %v", err)
	}
	if _, err := UpdateTodoItem(db, first.ID, nil, &done); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProjectLifecycle(t *testing.T) {
	db := newTestDB(t)

	crm := mustProject(t, db, "CRM")
	if crm.Status != domain.ProjectStatusActive {
		t.Fatalf("expected default status active, got %q", crm.Status)
	}
	if _, err := CreateProject(db, "CRM", "", ""); err == nil {
		t.Fatal("expected duplicate project name to fail")
	}

	mustWorkItem(t, db, "2025-01-02", idPtr(crm.ID))
	mustWorkItem(t, db, "2025-01-09", idPtr(crm.ID))

	summary, err := GetProjectsSummary(db)
	if err != nil {
		t.Fatalf("GetProjectsSummary failed: %v", err)
	}
	if len(summary) != 1 || summary[0].WorkItemCount != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary[0].FirstWorkDate != "2025-01-02" || summary[0].LastWorkDate != "2025-01-09" {
		t.Fatalf("unexpected work date span: %+v", summary[0])
	}

	desc := "customer platform"
	updated, err := UpdateProject(db, crm.ID, domain.ProjectUpdate{Description: &desc})
	if err != nil {
		t.Fatalf("UpdateProject failed: %v", err)
	}
	if updated.Description != desc || updated.Name != "CRM" {
		t.Fatalf("unexpected updated project: %+v", updated)
	}

	starred, err := SetStarSummary(db, crm.ID, "S/T/A/R")
	if err != nil || starred.StarSummary != "S/T/A/R" {
		t.Fatalf("SetStarSummary failed: %+v err=%v", starred, err)
	}

	detail, err := GetProjectDetail(db, crm.ID)
	if err != nil {
		t.Fatalf("GetProjectDetail failed: %v", err)
	}
	if len(detail.WorkItems) != 2 || detail.WorkItems[0].ProjectName != "CRM" {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	if err := DeleteProject(db, crm.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	items, _ := GetAllWorkItems(db)
	if len(items) != 0 {
		t.Fatalf("expected project delete to cascade to work items, %d left", len(items))
	}
	if err := DeleteProject(db, crm.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteAllProjects(t *testing.T) {
	db := newTestDB(t)

	a := mustProject(t, db, "A")
	mustProject(t, db, "B")
	mustWorkItem(t, db, "2025-01-02", idPtr(a.ID), "Go")
	if _, _, err := UpsertSkill(db, "Go", ""); err != nil {
		t.Fatalf("UpsertSkill failed: %v", err)
	}

	res, err := DeleteAllProjects(db)
	if err != nil {
		t.Fatalf("DeleteAllProjects failed: %v", err)
	}
	if res.DeletedProjects != 2 || res.DeletedWorkItems != 1 || res.Message == "" {
		t.Fatalf("unexpected delete-all result: %+v", res)
	}
	skills, _ := GetSkills(db)
	if len(skills) != 0 {
		t.Fatalf("expected skills to be cleared, got %+v", skills)
	}
}

func TestMergeProjects(t *testing.T) {
	db := newTestDB(t)

	target := mustProject(t, db, "CRM系统")
	a := mustProject(t, db, "CRM系统升级")
	b := mustProject(t, db, "CRM系统重构")
	other := mustProject(t, db, "数据平台")
	mustWorkItem(t, db, "2025-01-02", idPtr(a.ID))
	mustWorkItem(t, db, "2025-01-03", idPtr(b.ID))
	mustWorkItem(t, db, "2025-01-04", idPtr(b.ID))
	mustWorkItem(t, db, "2025-01-05", idPtr(other.ID))

	res, err := MergeProjects(db, target.ID, []int64{target.ID, a.ID, b.ID})
	if err != nil {
		t.Fatalf("MergeProjects failed: %v", err)
	}
	if res.MergedCount != 3 || res.DeletedProjects != 2 {
		t.Fatalf("unexpected merge result: %+v", res)
	}
	if strings.Contains(res.Message, "no longer existed") {
		t.Fatalf("full merge must not report missing sources: %q", res.Message)
	}

	items, _ := GetWorkItemsByProject(db, target.ID)
	if len(items) != 3 {
		t.Fatalf("expected 3 items on target, got %d", len(items))
	}
	if _, err := GetProject(db, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected merged source to be deleted, got %v", err)
	}

	groups, err := SimilarProjectGroups(db, 0.6)
	if err != nil {
		t.Fatalf("SimilarProjectGroups failed: %v", err)
	}
	for _, g := range groups {
		if g.Contains(a.ID) || g.Contains(b.ID) {
			t.Fatalf("merged sources must not appear in similar groups: %+v", g)
		}
	}
}

func TestMergeProjectsEdgeCases(t *testing.T) {
	db := newTestDB(t)
	target := mustProject(t, db, "CRM")
	src := mustProject(t, db, "CRM 2")

	if _, err := MergeProjects(db, 999, []int64{src.ID}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing target, got %v", err)
	}

	res, err := MergeProjects(db, target.ID, []int64{target.ID})
	if err != nil {
		t.Fatalf("MergeProjects with only the target failed: %v", err)
	}
	if res.MergedCount != 0 || res.Message != "nothing to merge" {
		t.Fatalf("unexpected no-op merge result: %+v", res)
	}

	res, err = MergeProjects(db, target.ID, []int64{src.ID, 4242})
	if err != nil {
		t.Fatalf("partial merge failed: %v", err)
	}
	if res.DeletedProjects != 1 || !strings.Contains(res.Message, "1 of 2 source projects no longer existed") {
		t.Fatalf("expected partial success to be reported, got %+v", res)
	}
}

func TestCleanupUnassigned(t *testing.T) {
	db := newTestDB(t)
	now := timestamp()
	for _, name := range []any{nil, "null", "undefined", "   "} {
		if _, err := db.Exec(`INSERT INTO projects (name, status, created_at, updated_at) VALUES (?, 'active', ?, ?)`, name, now, now); err != nil {
			t.Fatalf("insert invalid project: %v", err)
		}
	}
	crm := mustProject(t, db, "CRM")

	projects, _ := GetProjects(db, "")
	for _, p := range projects {
		if p.ID != crm.ID {
			mustWorkItem(t, db, "2025-01-02", idPtr(p.ID))
		}
	}
	mustWorkItem(t, db, "2025-01-03", nil)
	mustWorkItem(t, db, "2025-01-04", idPtr(crm.ID))

	res, err := CleanupUnassigned(db)
	if err != nil {
		t.Fatalf("CleanupUnassigned failed: %v", err)
	}
	if res.MergedCount != 5 || res.DeletedProjects != 4 {
		t.Fatalf("unexpected cleanup result: %+v", res)
	}

	fallback, err := GetProjectByName(db, domain.FallbackProjectName)
	if err != nil {
		t.Fatalf("expected fallback project: %v", err)
	}
	items, _ := GetWorkItemsByProject(db, fallback.ID)
	if len(items) != 5 {
		t.Fatalf("expected 5 items in fallback project, got %d", len(items))
	}
	projects, _ = GetProjects(db, "")
	if len(projects) != 2 {
		t.Fatalf("expected only CRM and fallback to remain, got %+v", projects)
	}

	res, err = CleanupUnassigned(db)
	if err != nil {
		t.Fatalf("second CleanupUnassigned failed: %v", err)
	}
	if res.MergedCount != 0 || res.DeletedProjects != 0 {
		t.Fatalf("expected idempotent cleanup, got %+v", res)
	}
}

func TestSimilarProjectGroups(t *testing.T) {
	db := newTestDB(t)
	long := mustProject(t, db, "CRM系统升级")
	mustProject(t, db, "订单中心")
	short := mustProject(t, db, "CRM系统")
	mustProject(t, db, "数据平台")
	if _, err := db.Exec(`INSERT INTO projects (name, status, created_at, updated_at) VALUES ('null', 'active', ?, ?)`, timestamp(), timestamp()); err != nil {
		t.Fatalf("insert placeholder project: %v", err)
	}

	groups, err := SimilarProjectGroups(db, 0.6)
	if err != nil {
		t.Fatalf("SimilarProjectGroups failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %+v", groups)
	}
	g := groups[0]
	if g.RecommendedTarget.ID != short.ID {
		t.Fatalf("expected shortest name as target, got %+v", g.RecommendedTarget)
	}
	if !g.Contains(long.ID) || !g.Contains(short.ID) || len(g.ProjectIDs) != 2 {
		t.Fatalf("unexpected members: %v", g.ProjectIDs)
	}

	none, err := SimilarProjectGroups(db, 0.95)
	if err != nil {
		t.Fatalf("SimilarProjectGroups failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil groups at high threshold, got %+v", none)
	}
}

func TestSimilarProjectGroupsStartFromRecentlyUpdated(t *testing.T) {
	db := newTestDB(t)
	orders := mustProject(t, db, "订单中心")
	bridge := mustProject(t, db, "订单中心服务平台")
	platform := mustProject(t, db, "服务平台")
	for id, updated := range map[int64]string{
		orders.ID:   "2025-01-01T09:00:00Z",
		bridge.ID:   "2025-02-01T09:00:00Z",
		platform.ID: "2025-03-01T09:00:00Z",
	} {
		if _, err := db.Exec(`UPDATE projects SET updated_at = ? WHERE id = ?`, updated, id); err != nil {
			t.Fatalf("set updated_at: %v", err)
		}
	}

	groups, err := SimilarProjectGroups(db, 0.6)
	if err != nil {
		t.Fatalf("SimilarProjectGroups failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %+v", groups)
	}
	g := groups[0]
	if !g.Contains(platform.ID) || !g.Contains(bridge.ID) || g.Contains(orders.ID) {
		t.Fatalf("greedy pass must start from the most recent project, got %v", g.ProjectIDs)
	}
	if g.RecommendedTarget.ID != platform.ID {
		t.Fatalf("expected %q as target, got %+v", platform.Name, g.RecommendedTarget)
	}
}

func TestNameSimilarity(t *testing.T) {
	if got := NameSimilarity("CRM系统", "CRM系统"); got != 1 {
		t.Fatalf("identical names must score 1, got %f", got)
	}
	got := NameSimilarity("CRM系统", "CRM系统升级")
	if got < 0.83 || got > 0.84 {
		t.Fatalf("expected ratio 10/12, got %f", got)
	}
	if got := NameSimilarity("订单中心", "数据平台"); got != 0 {
		t.Fatalf("disjoint names must score 0, got %f", got)
	}
}

func TestSkills(t *testing.T) {
	db := newTestDB(t)
	restore := nowFunc
	nowFunc = func() time.Time { return time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { nowFunc = restore })

	for _, name := range []string{"Go", "Go", "沟通", "null", "待补充", ""} {
		if _, _, err := UpsertSkill(db, name, ""); err != nil {
			t.Fatalf("UpsertSkill(%q) failed: %v", name, err)
		}
	}
	skill, ok, err := UpsertSkill(db, "Go", "")
	if err != nil || !ok {
		t.Fatalf("UpsertSkill failed: ok=%v err=%v", ok, err)
	}
	if skill.Count != 3 || skill.LastUsedDate != "2025-03-04" {
		t.Fatalf("unexpected skill after upserts: %+v", skill)
	}
	if _, ok, _ := UpsertSkill(db, "None", ""); ok {
		t.Fatal("placeholder skill names must be skipped")
	}

	stats, err := GetSkillsStats(db)
	if err != nil {
		t.Fatalf("GetSkillsStats failed: %v", err)
	}
	if stats.TotalUnique != 2 || stats.TopSkills[0].Name != "Go" {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.ByCategory[domain.SkillCategorySoft] != 1 {
		t.Fatalf("expected 沟通 to count as soft, got %+v", stats.ByCategory)
	}

	mustWorkItem(t, db, "2025-01-02", nil, "Go", "Docker")
	mustWorkItem(t, db, "2025-01-03", nil, "Google Cloud")
	items, err := GetWorkItemsBySkill(db, "Go")
	if err != nil {
		t.Fatalf("GetWorkItemsBySkill failed: %v", err)
	}
	if len(items) != 1 || items[0].RawLogDate != "2025-01-02" {
		t.Fatalf("expected exact skill match only, got %+v", items)
	}
}

func TestRecategorizeSkills(t *testing.T) {
	db := newTestDB(t)
	if _, _, err := UpsertSkill(db, "Kubernetes", "soft"); err != nil {
		t.Fatalf("UpsertSkill failed: %v", err)
	}
	if _, _, err := UpsertSkill(db, "Origami", ""); err != nil {
		t.Fatalf("UpsertSkill failed: %v", err)
	}

	res, err := RecategorizeSkills(db)
	if err != nil {
		t.Fatalf("RecategorizeSkills failed: %v", err)
	}
	if res.UpdatedCount != 1 || res.TotalSkills != 2 {
		t.Fatalf("unexpected recategorize result: %+v", res)
	}
	skills, _ := GetSkills(db)
	for _, s := range skills {
		if s.Name == "Kubernetes" && s.Category != domain.SkillCategoryTech {
			t.Fatalf("expected Kubernetes to be recategorized as tech, got %q", s.Category)
		}
	}
}

func TestWorkItemUpdateAndRange(t *testing.T) {
	db := newTestDB(t)
	p := mustProject(t, db, "CRM")
	w := mustWorkItem(t, db, "2025-01-02", nil, "Go")
	if w.ExtractionStatus != domain.ExtractionPending {
		t.Fatalf("expected pending status by default, got %q", w.ExtractionStatus)
	}

	status := domain.ExtractionNeedsReview
	skills := []string{"SQL"}
	updated, err := UpdateWorkItem(db, w.ID, domain.WorkItemUpdate{ProjectID: idPtr(p.ID), ExtractionStatus: &status, Skills: &skills})
	if err != nil {
		t.Fatalf("UpdateWorkItem failed: %v", err)
	}
	if updated.ProjectID == nil || *updated.ProjectID != p.ID || updated.ProjectName != "CRM" {
		t.Fatalf("expected project to be assigned, got %+v", updated)
	}
	if tags := updated.Skills(); len(tags) != 1 || tags[0] != "SQL" {
		t.Fatalf("unexpected tags: %v", tags)
	}

	mustWorkItem(t, db, "2025-02-01", nil)
	ranged, err := GetWorkItemsByDateRange(db, "2025-01-01", "2025-01-31")
	if err != nil || len(ranged) != 1 {
		t.Fatalf("expected 1 item in January, got %d err=%v", len(ranged), err)
	}

	if err := DeleteWorkItem(db, w.ID); err != nil {
		t.Fatalf("DeleteWorkItem failed: %v", err)
	}
	if _, err := GetWorkItem(db, w.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
