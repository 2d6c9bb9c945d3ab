package model

import (
	"time"

	"gorm.io/datatypes"
)

// TestRunRecord is one executed test case.
type TestRunRecord struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID      string         `gorm:"index:idx_run;size:36;not null" json:"run_id"`
	Suite      string         `gorm:"size:128" json:"suite"`
	CaseName   string         `gorm:"size:128;not null" json:"case_name"`
	Category   string         `gorm:"size:32" json:"category"`
	Status     string         `gorm:"index:idx_run_status;size:16;not null" json:"status"`
	Error      string         `gorm:"type:text" json:"error"`
	Assertions datatypes.JSON `json:"assertions"`
	DurationMs int            `json:"duration_ms"`
	CreatedAt  time.Time      `gorm:"index:idx_run_created;autoCreateTime:milli" json:"created_at"`
}
