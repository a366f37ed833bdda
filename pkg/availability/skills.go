package availability

import (
	"strings"

	"github.com/paiban/crewdispatch/pkg/model"
)

// categorySkills 服务类别对应的技能关键词
var categorySkills = map[string][]string{
	"hvac":        {"hvac", "heating", "cooling"},
	"heating":     {"heating", "hvac"},
	"cooling":     {"cooling", "hvac"},
	"plumbing":    {"plumbing", "plumber"},
	"electrical":  {"electrical", "electrician"},
	"roofing":     {"roofing", "roofer"},
	"landscaping": {"landscaping", "lawn"},
	"painting":    {"painting", "painter"},
	"cleaning":    {"cleaning"},
	"appliance":   {"appliance"},
	"carpentry":   {"carpentry", "carpenter"},
}

// categoryOrder 匹配顺序，保证推导结果稳定
var categoryOrder = []string{
	"hvac", "heating", "cooling", "plumbing", "electrical", "roofing",
	"landscaping", "painting", "cleaning", "appliance", "carpentry",
}

// generalCategories 不要求特定技能的类别
var generalCategories = map[string]bool{
	"":            true,
	"general":     true,
	"other":       true,
	"maintenance": true,
}

// JobSkills 返回工单要求的技能
// 优先使用 RequiredSkills，其次根据 category/service_type 推导
func JobSkills(job model.Job) []string {
	if len(job.RequiredSkills) > 0 {
		return job.RequiredSkills
	}

	var skills []string
	seen := make(map[string]bool)
	add := func(list ...string) {
		for _, s := range list {
			if s != "" && !seen[s] {
				seen[s] = true
				skills = append(skills, s)
			}
		}
	}

	for _, raw := range []string{job.Category, job.ServiceType} {
		key := strings.ToLower(strings.TrimSpace(raw))
		if generalCategories[key] {
			continue
		}
		matched := false
		for _, cat := range categoryOrder {
			if strings.Contains(key, cat) {
				add(categorySkills[cat]...)
				matched = true
			}
		}
		if !matched {
			add(key)
		}
	}
	return skills
}

// SkillMatch 技能是否满足
// 无技能要求、技师未登记技能（通用技师）或任一技能双向包含匹配即视为满足
func SkillMatch(techSkills, required []string) bool {
	if len(required) == 0 || len(techSkills) == 0 {
		return true
	}
	for _, need := range required {
		need = strings.ToLower(strings.TrimSpace(need))
		if need == "" {
			continue
		}
		for _, have := range techSkills {
			have = strings.ToLower(strings.TrimSpace(have))
			if have == "" {
				continue
			}
			if strings.Contains(have, need) || strings.Contains(need, have) {
				return true
			}
		}
	}
	return false
}
