package domain

const (
	ExtractionPending     = "pending"
	ExtractionExtracted   = "extracted"
	ExtractionNeedsReview = "needs_review"
)

const (
	QualityGood         = "good"
	QualityPartial      = "partial"
	QualityInsufficient = "insufficient"
)

const ProjectStatusActive = "active"

// FallbackProjectName collects work items that lost their project.
const FallbackProjectName = "临时工作"

type DailyReport struct {
	EntryDate string `json:"entry_date"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type WeeklyReport struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type OKRReport struct {
	CreationDate string `json:"creation_date"`
	Content      string `json:"content"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

type TodoItem struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	Completed int    `json:"completed"`
	SortOrder int    `json:"sort_order"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	StarSummary string `json:"star_summary,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

type ProjectSummary struct {
	Project
	WorkItemCount int    `json:"work_item_count"`
	FirstWorkDate string `json:"first_work_date,omitempty"`
	LastWorkDate  string `json:"last_work_date,omitempty"`
}

type ProjectDetail struct {
	Project
	WorkItems []WorkItem `json:"work_items"`
}

type WorkItem struct {
	ID               int64  `json:"id"`
	RawLogDate       string `json:"raw_log_date"`
	ProjectID        *int64 `json:"project_id,omitempty"`
	ProjectName      string `json:"project_name,omitempty"`
	Action           string `json:"action,omitempty"`
	Problem          string `json:"problem,omitempty"`
	ResultMetric     string `json:"result_metric,omitempty"`
	SkillsTags       string `json:"skills_tags,omitempty"`
	ExtractionStatus string `json:"extraction_status"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

// Skills decodes SkillsTags, falling back to an empty list.
func (w WorkItem) Skills() []string {
	return ParseSkillTags(w.SkillsTags)
}

type Skill struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category,omitempty"`
	Count         int    `json:"count"`
	FirstUsedDate string `json:"first_used_date,omitempty"`
	LastUsedDate  string `json:"last_used_date,omitempty"`
}

type SkillCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type SkillsStats struct {
	TopSkills   []SkillCount   `json:"top_skills"`
	ByCategory  map[string]int `json:"by_category"`
	TotalUnique int            `json:"total_unique"`
}

type RecategorizeResult struct {
	Message      string `json:"message"`
	UpdatedCount int    `json:"updated_count"`
	TotalSkills  int    `json:"total_skills"`
}

// SimilarityGroup is a set of likely-duplicate projects. RecommendedTarget is always a member.
type SimilarityGroup struct {
	RecommendedTarget Project   `json:"recommended_target"`
	Projects          []Project `json:"projects"`
	ProjectIDs        []int64   `json:"project_ids"`
}

// Sources returns the member ids other than the recommended target.
func (g SimilarityGroup) Sources() []int64 {
	var out []int64
	for _, id := range g.ProjectIDs {
		if id != g.RecommendedTarget.ID {
			out = append(out, id)
		}
	}
	return out
}

func (g SimilarityGroup) Contains(id int64) bool {
	for _, member := range g.ProjectIDs {
		if member == id {
			return true
		}
	}
	return false
}

type MergeResult struct {
	Message         string `json:"message"`
	MergedCount     int    `json:"merged_count"`
	DeletedProjects int    `json:"deleted_projects"`
}

type CleanupResult struct {
	Message         string `json:"message"`
	MergedCount     int    `json:"merged_count"`
	DeletedProjects int    `json:"deleted_projects"`
}

type DeleteAllResult struct {
	Message          string `json:"message"`
	DeletedProjects  int    `json:"deleted_projects"`
	DeletedWorkItems int    `json:"deleted_work_items"`
}

type ExtractedWorkItem struct {
	Project      string   `json:"project,omitempty"`
	Action       string   `json:"action,omitempty"`
	Problem      string   `json:"problem,omitempty"`
	ResultMetric string   `json:"result_metric,omitempty"`
	Skills       []string `json:"skills,omitempty"`
}

type ExtractionResult struct {
	WorkItems         []ExtractedWorkItem `json:"work_items"`
	ExtractionQuality string              `json:"extraction_quality"`
	Notes             string              `json:"notes,omitempty"`
	SavedItems        []WorkItem          `json:"saved_items,omitempty"`
}

// WorstQuality ranks insufficient over partial over good.
func WorstQuality(a, b string) string {
	rank := func(q string) int {
		switch q {
		case QualityInsufficient:
			return 2
		case QualityPartial:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
