package web

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"workpilot/internal/domain"
	"workpilot/internal/storage/sqlite"
)

// Projects.

func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := sqlite.GetProjects(s.db, c.Query("status"))
	if err != nil {
		respondErr(c, "list projects", err)
		return
	}
	okData(c, projects)
}

func (s *Server) handleProjectsSummary(c *gin.Context) {
	summary, err := sqlite.GetProjectsSummary(s.db)
	if err != nil {
		respondErr(c, "projects summary", err)
		return
	}
	okData(c, summary)
}

func (s *Server) handleGetProject(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	detail, err := sqlite.GetProjectDetail(s.db, id)
	if err != nil {
		respondErr(c, "get project", err)
		return
	}
	okData(c, detail)
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Status      string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !domain.IsValidProjectName(req.Name) {
		badRequest(c, "a valid project name is required")
		return
	}
	if _, err := sqlite.GetProjectByName(s.db, req.Name); err == nil {
		respondErr(c, "create project", fmt.Errorf("%w: project %q already exists", errBadRequest, strings.TrimSpace(req.Name)))
		return
	} else if !errors.Is(err, sqlite.ErrNotFound) {
		respondErr(c, "create project", err)
		return
	}
	p, err := sqlite.CreateProject(s.db, req.Name, req.Description, req.Status)
	if err != nil {
		respondErr(c, "create project", err)
		return
	}
	okData(c, p)
}

func (s *Server) handleUpdateProject(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var u domain.ProjectUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	if u.Name != nil && !domain.IsValidProjectName(*u.Name) {
		badRequest(c, "a valid project name is required")
		return
	}
	p, err := sqlite.UpdateProject(s.db, id, u)
	if err != nil {
		respondErr(c, "update project", err)
		return
	}
	okData(c, p)
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := sqlite.DeleteProject(s.db, id); err != nil {
		respondErr(c, "delete project", err)
		return
	}
	ok(c, gin.H{"message": "project deleted"})
}

func (s *Server) handleDeleteAllProjects(c *gin.Context) {
	res, err := sqlite.DeleteAllProjects(s.db)
	if err != nil {
		respondErr(c, "delete all projects", err)
		return
	}
	ok(c, gin.H{"message": res.Message, "deleted_projects": res.DeletedProjects, "deleted_work_items": res.DeletedWorkItems})
}

func (s *Server) handleGenerateStar(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	summary, err := s.gen.GenerateSTARSummary(c.Request.Context(), id)
	if err != nil {
		respondErr(c, "generate star summary", err)
		return
	}
	ok(c, gin.H{"summary": summary})
}

func (s *Server) handleSimilarProjects(c *gin.Context) {
	threshold := s.cfg.SimilarityThreshold
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			badRequest(c, "threshold must be a number between 0 and 1")
			return
		}
		threshold = v
	}
	groups, err := sqlite.SimilarProjectGroups(s.db, threshold)
	if err != nil {
		respondErr(c, "similar projects", err)
		return
	}
	ok(c, gin.H{"groups": groups})
}

func (s *Server) handleMergeProjects(c *gin.Context) {
	var req struct {
		TargetProjectID  int64   `json:"target_project_id"`
		SourceProjectIDs []int64 `json:"source_project_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetProjectID <= 0 {
		badRequest(c, "target_project_id is required")
		return
	}
	res, err := sqlite.MergeProjects(s.db, req.TargetProjectID, req.SourceProjectIDs)
	if err != nil {
		respondErr(c, "merge projects", err)
		return
	}
	ok(c, gin.H{"message": res.Message, "merged_count": res.MergedCount, "deleted_projects": res.DeletedProjects})
}

func (s *Server) handleCleanupNullProjects(c *gin.Context) {
	res, err := sqlite.CleanupUnassigned(s.db)
	if err != nil {
		respondErr(c, "cleanup unassigned", err)
		return
	}
	ok(c, gin.H{"message": res.Message, "merged_count": res.MergedCount, "deleted_projects": res.DeletedProjects})
}

// Work items.

func (s *Server) handleListWorkItems(c *gin.Context) {
	items, err := sqlite.GetAllWorkItems(s.db)
	if err != nil {
		respondErr(c, "list work items", err)
		return
	}
	okData(c, items)
}

func (s *Server) handleWorkItemsByRange(c *gin.Context) {
	start, end, valid := queryRange(c)
	if !valid {
		return
	}
	items, err := sqlite.GetWorkItemsByDateRange(s.db, start, end)
	if err != nil {
		respondErr(c, "work items by range", err)
		return
	}
	okData(c, items)
}

func (s *Server) handleCreateWorkItem(c *gin.Context) {
	var req domain.NewWorkItem
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	date, valid := normalizeDate(c, "raw_log_date", req.RawLogDate)
	if !valid {
		return
	}
	req.RawLogDate = date
	item, err := sqlite.CreateWorkItem(s.db, req)
	if err != nil {
		respondErr(c, "create work item", err)
		return
	}
	for _, skill := range req.Skills {
		if _, _, err := sqlite.UpsertSkill(s.db, skill, ""); err != nil {
			respondErr(c, "create work item", err)
			return
		}
	}
	okData(c, item)
}

func (s *Server) handleUpdateWorkItem(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var u domain.WorkItemUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	if u.RawLogDate != nil {
		date, valid := normalizeDate(c, "raw_log_date", *u.RawLogDate)
		if !valid {
			return
		}
		u.RawLogDate = &date
	}
	item, err := sqlite.UpdateWorkItem(s.db, id, u)
	if err != nil {
		respondErr(c, "update work item", err)
		return
	}
	okData(c, item)
}

func (s *Server) handleDeleteWorkItem(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := sqlite.DeleteWorkItem(s.db, id); err != nil {
		respondErr(c, "delete work item", err)
		return
	}
	ok(c, gin.H{"message": "work item deleted"})
}

// Extraction.

func (s *Server) handleExtractWorkItems(c *gin.Context) {
	var req struct {
		LogContent string `json:"log_content"`
		LogDate    string `json:"log_date"`
		AutoSave   bool   `json:"auto_save"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "log_content is required")
		return
	}
	res, err := s.gen.ExtractWorkItems(c.Request.Context(), req.LogContent, req.LogDate, req.AutoSave)
	if err != nil {
		respondErr(c, "extract work items", err)
		return
	}
	extractionOK(c, res)
}

func (s *Server) handleExtractRange(c *gin.Context) {
	var req struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		AutoSave  bool   `json:"auto_save"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "start_date and end_date are required")
		return
	}
	res, err := s.gen.ExtractRange(c.Request.Context(), req.StartDate, req.EndDate, req.AutoSave)
	if err != nil {
		respondErr(c, "extract work items range", err)
		return
	}
	extractionOK(c, res)
}

func extractionOK(c *gin.Context, res domain.ExtractionResult) {
	body := gin.H{"work_items": res.WorkItems, "extraction_quality": res.ExtractionQuality}
	if res.Notes != "" {
		body["notes"] = res.Notes
	}
	if res.SavedItems != nil {
		body["saved_items"] = res.SavedItems
	}
	ok(c, body)
}

// Skills.

func (s *Server) handleListSkills(c *gin.Context) {
	skills, err := sqlite.GetSkills(s.db)
	if err != nil {
		respondErr(c, "list skills", err)
		return
	}
	okData(c, skills)
}

func (s *Server) handleSkillsStats(c *gin.Context) {
	stats, err := sqlite.GetSkillsStats(s.db)
	if err != nil {
		respondErr(c, "skills stats", err)
		return
	}
	okData(c, stats)
}

func (s *Server) handleWorkItemsBySkill(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		badRequest(c, "skill name is required")
		return
	}
	items, err := sqlite.GetWorkItemsBySkill(s.db, name)
	if err != nil {
		respondErr(c, "work items by skill", err)
		return
	}
	okData(c, items)
}

func (s *Server) handleRecategorizeSkills(c *gin.Context) {
	res, err := sqlite.RecategorizeSkills(s.db)
	if err != nil {
		respondErr(c, "recategorize skills", err)
		return
	}
	ok(c, gin.H{"message": res.Message, "updated_count": res.UpdatedCount, "total_skills": res.TotalSkills})
}
