package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"workpilot/internal/domain"
	"workpilot/internal/parser"
)

// Mock answers every prompt with canned text shaped like a real reply, so generation
// works end to end without an API key.
type Mock struct{}

func (Mock) Provider() string { return "mock" }

var (
	mockWeekRange   = regexp.MustCompile(`周范围：(\d{4}-\d{2}-\d{2}) ~ (\d{4}-\d{2}-\d{2})`)
	mockQuarter     = regexp.MustCompile(`生成(\S+?)OKR`)
	mockProjectName = regexp.MustCompile(`项目名称：(.+)`)
	mockProjectHead = regexp.MustCompile(`^([^：:]{2,20})[：:]\s*(.+)$`)
)

var mockSkillWords = []string{"Go", "Python", "SQL", "Docker", "Kubernetes", "Redis", "Linux", "React", "沟通", "文档"}

func (Mock) Complete(_ context.Context, systemPrompt, userPrompt string) (string, Usage, error) {
	var text string
	switch {
	case strings.Contains(systemPrompt, okrAssistantMarker):
		text = mockOKR(userPrompt)
	case strings.Contains(systemPrompt, weeklyAssistantMarker):
		text = mockWeeklyReport(userPrompt)
	case strings.Contains(systemPrompt, extractionAssistantMarker):
		text = mockExtraction(userPrompt)
	case strings.Contains(systemPrompt, starAssistantMarker):
		text = mockSTAR(userPrompt)
	default:
		text = "Mock response: 收到您的请求，这是模拟响应。"
	}
	return text, Usage{}, nil
}

func mockWeeklyReport(userPrompt string) string {
	monday, friday := "", ""
	if m := mockWeekRange.FindStringSubmatch(userPrompt); m != nil {
		monday, friday = m[1], m[2]
	} else {
		mon, fri := domain.WorkWeekAt(time.Now())
		monday, friday = mon.Format(domain.DateLayout), fri.Format(domain.DateLayout)
	}
	return fmt.Sprintf(`周报（%s ~ %s）

本周一句话总结：本周完成了O类文档生产环境部署和服务器迁移配置工作，需关注I_C-I_E类文档准确率下降问题。

1、手上项目、服务化能力建设、预研的主要进展

手上项目
- 完成O类文档生产环境部署与联调，修复若干提取问题
- 根据业务方准确率报告，排查I_C-I_E类文档准确率下降原因

服务化能力建设

预研

2、是否有风险，哪些风险点？
- 资源紧张：准确率修复与新功能并行开发，建议优先级排序并集中资源
- I_C-I_E准确率下降原因未明确，需进一步定位根因

3、其他的事务性工作
- 完成17服务器迁移，配置nexus私服与rsync同步
- 完成服务器公网访问工单申请

4、下周大概的计划
- 继续排查并修复I_C-I_E准确率问题
- 监控O类生产环境运行稳定性
- 完善服务器配置与运维文档`, monday, friday)
}

func mockOKR(userPrompt string) string {
	quarter := "2026第一季度"
	if m := mockQuarter.FindStringSubmatch(userPrompt); m != nil {
		quarter = m[1]
	}
	return quarter + `OKR：

目标 O1：提升文档智能提取系统的准确率和稳定性
KR1：2026-01-31前完成I_C-I_E类文档准确率问题根因分析，准确率回升至≥90%；2026-02-28前完成优化验证，准确率稳定在≥92%；2026-03-31前全类型文档平均准确率≥93%；
KR2：2026-02-15前完成生产环境监控告警体系搭建，覆盖100%核心接口；2026-03-31前系统可用性≥99.5%；
KR3：2026-01-15前完成性能基准测试，2026-02-28前优化响应时间≤2秒（P95）；

目标 O2：推进服务化能力建设与基础设施优化
KR1：2026-02-01前完成服务接口化改造设计方案评审；2026-02-28前完成核心模块接口化开发，覆盖≥80%功能；2026-03-31前完成全量上线与文档交付；
KR2：2026-01-20前完成服务器环境标准化配置，覆盖100%生产节点；2026-03-15前完成自动化部署流程，部署时间缩短≥50%；`
}

type mockExtractedItem struct {
	Project      *string  `json:"project"`
	Action       string   `json:"action"`
	Problem      *string  `json:"problem"`
	ResultMetric *string  `json:"result_metric"`
	Skills       []string `json:"skills"`
}

// mockExtraction turns each log line into one work item. A "项目：事项" line names its project.
func mockExtraction(userPrompt string) string {
	content := userPrompt
	if i := strings.Index(userPrompt, "日志内容："); i >= 0 {
		content = userPrompt[i+len("日志内容："):]
	}

	items := []mockExtractedItem{}
	withProject := 0
	for _, block := range parser.ParseDateBlocks(content) {
		for _, line := range block.Content {
			item := mockExtractedItem{Action: line, Skills: []string{}}
			if m := mockProjectHead.FindStringSubmatch(line); m != nil {
				project := strings.TrimSpace(m[1])
				item.Project = &project
				item.Action = strings.TrimSpace(m[2])
				withProject++
			}
			for _, word := range mockSkillWords {
				if strings.Contains(strings.ToLower(line), strings.ToLower(word)) {
					item.Skills = append(item.Skills, word)
				}
			}
			items = append(items, item)
		}
	}

	quality, notes := domain.QualityGood, ""
	switch {
	case len(items) == 0:
		quality, notes = domain.QualityInsufficient, "日志内容为空，无法提取"
	case withProject < len(items):
		quality, notes = domain.QualityPartial, "部分条目无法判断所属项目"
	}
	out, _ := json.Marshal(map[string]any{
		"work_items":         items,
		"extraction_quality": quality,
		"notes":              notes,
	})
	return "```json\n" + string(out) + "\n```"
}

func mockSTAR(userPrompt string) string {
	name := "该项目"
	if m := mockProjectName.FindStringSubmatch(userPrompt); m != nil {
		name = strings.TrimSpace(m[1])
	}
	count := strings.Count(userPrompt, "\n- [")
	return fmt.Sprintf(`S：%s 面临交付周期紧、需求频繁变更的情况。
T：负责核心模块的设计与落地，保证按期上线。
A：梳理并推进了 %d 项关键工作，拆解任务、跟进风险并持续复盘。
R：项目按期交付，相关工作沉淀为可复用的经验与文档。`, name, count)
}
