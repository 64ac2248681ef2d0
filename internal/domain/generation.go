package domain

// LogBlock is one dated section of a daily log. Date is nil for text before the first header.
type LogBlock struct {
	Date    *string  `json:"date"`
	Hours   float64  `json:"hours"`
	Content []string `json:"content"`
}

type LogCategories struct {
	Project      []string `json:"project"`
	Service      []string `json:"service"`
	Research     []string `json:"research"`
	OtherAffairs []string `json:"other_affairs"`
}

type WeekRange struct {
	Monday string `json:"monday"`
	Friday string `json:"friday"`
}

type ParsedLog struct {
	Blocks     []LogBlock    `json:"blocks"`
	Categories LogCategories `json:"categories"`
	WeekRange  WeekRange     `json:"week_range"`
}

type WeeklyValidation struct {
	Valid           bool     `json:"valid"`
	MissingSections []string `json:"missing_sections"`
	OrderValid      bool     `json:"order_valid"`
}

type OKRValidation struct {
	Valid                   bool     `json:"valid"`
	ObjectiveCount          int      `json:"objective_count"`
	ObjectivesValid         bool     `json:"objectives_valid"`
	DateNodesCount          int      `json:"date_nodes_count"`
	HasDateNodes            bool     `json:"has_date_nodes"`
	QuantitativeExpressions []string `json:"quantitative_expressions"`
	HasQuantitative         bool     `json:"has_quantitative"`
	HasMilestones           bool     `json:"has_milestones"`
}

type WeeklyResult struct {
	Report     string           `json:"report"`
	ParsedData ParsedLog        `json:"parsed_data"`
	Validation WeeklyValidation `json:"validation"`
}

type OKRResult struct {
	OKR         string        `json:"okr"`
	NextQuarter string        `json:"next_quarter"`
	Validation  OKRValidation `json:"validation"`
}

// NewWorkItem is the input for creating a work item. A nil ProjectID leaves it unassigned.
type NewWorkItem struct {
	RawLogDate       string   `json:"raw_log_date"`
	ProjectID        *int64   `json:"project_id"`
	Action           string   `json:"action"`
	Problem          string   `json:"problem"`
	ResultMetric     string   `json:"result_metric"`
	Skills           []string `json:"skills"`
	ExtractionStatus string   `json:"extraction_status"`
}

// WorkItemUpdate and ProjectUpdate change only the non-nil fields.
type WorkItemUpdate struct {
	RawLogDate       *string   `json:"raw_log_date"`
	ProjectID        *int64    `json:"project_id"`
	Action           *string   `json:"action"`
	Problem          *string   `json:"problem"`
	ResultMetric     *string   `json:"result_metric"`
	Skills           *[]string `json:"skills"`
	ExtractionStatus *string   `json:"extraction_status"`
}

type ProjectUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	StarSummary *string `json:"star_summary"`
}
