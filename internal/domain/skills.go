package domain

import (
	"encoding/json"
	"strings"
)

const (
	SkillCategoryTech   = "tech"
	SkillCategorySoft   = "soft"
	SkillCategoryDomain = "domain"
)

// ParseSkillTags decodes a JSON-encoded list of skill names. Anything that is not a
// JSON array of strings yields an empty list.
func ParseSkillTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// EncodeSkillTags is the inverse of ParseSkillTags for valid skill names.
func EncodeSkillTags(skills []string) string {
	clean := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if IsValidSkillName(s) {
			clean = append(clean, s)
		}
	}
	data, _ := json.Marshal(clean)
	return string(data)
}

func IsValidSkillName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	switch strings.ToLower(name) {
	case "null", "none", "待补充":
		return false
	}
	return true
}

// IsValidProjectName rejects the placeholder names extraction produces for "no project".
func IsValidProjectName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && name != "null" && name != "undefined"
}

var techSkillKeywords = []string{
	"python", "java", "javascript", "typescript", "react", "vue", "angular",
	"node", "sql", "mysql", "postgresql", "mongodb", "redis", "docker",
	"kubernetes", "k8s", "aws", "azure", "gcp", "git", "linux", "shell",
	"api", "rest", "graphql", "json", "xml", "html", "css", "sass",
	"webpack", "nginx", "apache", "flask", "django", "spring", "golang",
	"rust", "c++", "c#", ".net", "swift", "kotlin", "flutter", "dart",
	"tensorflow", "pytorch", "ai", "ml", "机器学习", "深度学习", "算法",
	"前端", "后端", "全栈", "架构", "数据库", "缓存", "微服务", "容器",
	"代码", "开发", "编程", "测试", "自动化", "ci", "cd", "devops",
	"性能优化", "重构", "调试", "debug", "接口", "系统", "服务", "部署",
	"excel", "vba", "power bi", "tableau", "数据分析", "可视化",
}

var softSkillKeywords = []string{
	"沟通", "协调", "汇报", "表达", "演讲", "培训", "指导", "带教",
	"团队", "协作", "配合", "管理", "领导", "规划", "计划", "组织",
	"分析", "思考", "解决问题", "决策", "判断", "创新", "学习",
	"时间管理", "项目管理", "文档", "写作", "总结", "复盘", "反思",
	"跨部门", "对接", "推进", "跟进", "落地", "执行", "谈判", "需求分析",
}

var domainSkillKeywords = []string{
	"财务", "会计", "预算", "成本", "审计", "税务", "报表",
	"人力", "hr", "招聘", "绩效", "薪酬", "培训",
	"销售", "营销", "市场", "客户", "运营", "产品",
	"供应链", "采购", "物流", "仓储", "生产", "制造", "质量",
	"法务", "合规", "知识产权", "行政", "后勤",
	"业务", "流程", "制度", "标准", "规范",
	"汽车", "零部件", "检验", "控制计划", "工艺", "设备",
}

// InferSkillCategory returns tech, soft or domain by keyword, or "" when nothing matches.
// Keywords are checked in that order, so "ai" wins over later, longer matches.
func InferSkillCategory(name string) string {
	lower := strings.ToLower(name)
	if lower == "" {
		return ""
	}
	for _, kw := range techSkillKeywords {
		if strings.Contains(lower, kw) {
			return SkillCategoryTech
		}
	}
	for _, kw := range softSkillKeywords {
		if strings.Contains(lower, kw) {
			return SkillCategorySoft
		}
	}
	for _, kw := range domainSkillKeywords {
		if strings.Contains(lower, kw) {
			return SkillCategoryDomain
		}
	}
	return ""
}
