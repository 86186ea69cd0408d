// pkg/model/summary.go
package model

import (
	"time"
)

// ScanStatus 扫描状态
type ScanStatus string

const (
	ScanCompleted ScanStatus = "completed"
	ScanDisabled  ScanStatus = "disabled"
	ScanFailed    ScanStatus = "failed"
)

// ScanSummary 单次策略扫描的汇总
type ScanSummary struct {
	RunID        string        `json:"run_id"`
	StrategyCode string        `json:"strategy_code"`
	TargetDate   time.Time     `json:"target_date"`
	Status       ScanStatus    `json:"status"`
	Error        string        `json:"error,omitempty"`
	Notify       bool          `json:"notify"`
	Candidates   int           `json:"candidates"`
	Evaluated    int           `json:"evaluated"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	Signals      int           `json:"signals"`
	Entries      int           `json:"entries"`
	Exits        int           `json:"exits"`
	Recorded     int           `json:"recorded"`
	Duplicates   int           `json:"duplicates"`
	RecordFailed int           `json:"record_failed"`
	Notified     int           `json:"notified"`
	NotifyFailed int           `json:"notify_failed"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
}
