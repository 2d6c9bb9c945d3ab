package entity

import "fmt"

// Condition subjects.
const (
	SubjectSelf   = "self"
	SubjectTarget = "target"
)

// Condition metrics.
const (
	MetricHPPercent = "hp_percent"
	MetricHP        = "hp"
	MetricResource  = "resource"
	MetricEnemies   = "enemies"
	MetricRound     = "round"
)

// Condition compares one metric of a subject against a value.
// A zero Condition always holds.
type Condition struct {
	Subject string  `json:"subject,omitempty"`
	Metric  string  `json:"metric,omitempty"`
	Op      string  `json:"op,omitempty"`
	Value   float64 `json:"value,omitempty"`
}

// Holds evaluates the comparison against v.
func (c Condition) Holds(v float64) bool {
	switch c.Op {
	case "":
		return true
	case "<":
		return v < c.Value
	case "<=":
		return v <= c.Value
	case ">":
		return v > c.Value
	case ">=":
		return v >= c.Value
	case "=", "==":
		return v == c.Value
	case "!=":
		return v != c.Value
	}
	return false
}

func (c Condition) String() string {
	if c.Op == "" {
		return "always"
	}
	return fmt.Sprintf("%s.%s%s%g", c.Subject, c.Metric, c.Op, c.Value)
}

// StrategyRule fires SkillID when When holds. An empty SkillID is a basic attack.
type StrategyRule struct {
	When    Condition `json:"when"`
	SkillID string    `json:"skill_id,omitempty"`
}

// Strategy drives automatic action selection. Rules are tried in order,
// then SkillPriority, then any remaining ready skill.
type Strategy struct {
	Rules         []StrategyRule `json:"rules,omitempty"`
	SkillPriority []string       `json:"skill_priority,omitempty"`
}
