package runner

import (
	"time"

	"github.com/kasuganosora/battlerunner/harness/check"
)

// Result statuses.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
	StatusError  = "error"
)

// TestSuite is one yaml file of test cases.
type TestSuite struct {
	Name        string     `yaml:"test_suite"`
	Description string     `yaml:"description"`
	Version     string     `yaml:"version"`
	Tests       []TestCase `yaml:"tests"`

	// Path is the file the suite was loaded from.
	Path string `yaml:"-"`
}

// TestCase is a scenario: setup instructions, steps, final assertions and
// teardown.
type TestCase struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Category    string            `yaml:"category"`
	Priority    string            `yaml:"priority"`
	Setup       []string          `yaml:"setup"`
	Steps       []Step            `yaml:"steps"`
	Assertions  []check.Assertion `yaml:"assertions"`
	Teardown    []string          `yaml:"teardown"`
	// MaxRounds bounds every 继续战斗直到 step of the case unless the step
	// sets its own.
	MaxRounds int `yaml:"max_rounds"`
}

// Step is one instruction with optional inline assertions.
type Step struct {
	Action   string `yaml:"action"`
	Expected string `yaml:"expected"`
	// MaxRounds bounds a 继续战斗直到 action.
	MaxRounds  int      `yaml:"max_rounds"`
	Assertions []string `yaml:"assertions"`
}

// expectsError reports whether the step is written to fail.
func (s Step) expectsError() bool {
	switch s.Expected {
	case "error", "fail", "failed", "失败", "报错":
		return true
	}
	return false
}

// Result is the outcome of one test case.
type Result struct {
	Name       string         `json:"name"`
	Category   string         `json:"category"`
	Status     string         `json:"status"`
	Duration   time.Duration  `json:"duration"`
	Error      string         `json:"error,omitempty"`
	Assertions []check.Result `json:"assertions"`
}

// Passed reports whether every assertion held and no instruction failed.
func (r Result) Passed() bool { return r.Status == StatusPassed }

// SuiteResult aggregates the results of a suite.
type SuiteResult struct {
	RunID    string        `json:"run_id"`
	Suite    string        `json:"suite"`
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Errored  int           `json:"errored"`
	Duration time.Duration `json:"duration"`
	Results  []Result      `json:"results"`
}

func (s *SuiteResult) add(r Result) {
	s.Results = append(s.Results, r)
	s.Total++
	switch r.Status {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	default:
		s.Errored++
	}
}

// OK reports whether every case in the suite passed.
func (s *SuiteResult) OK() bool { return s.Passed == s.Total }

// Summary totals several suite results.
type Summary struct {
	Suites  int
	Total   int
	Passed  int
	Failed  int
	Errored int
}

// Summarize totals results.
func Summarize(results []*SuiteResult) Summary {
	var s Summary
	for _, r := range results {
		s.Suites++
		s.Total += r.Total
		s.Passed += r.Passed
		s.Failed += r.Failed
		s.Errored += r.Errored
	}
	return s
}

// OK reports whether every case passed.
func (s Summary) OK() bool { return s.Passed == s.Total }
