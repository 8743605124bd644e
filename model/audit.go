package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records quest state transitions and account actions.
type AuditLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID    string         `gorm:"index:idx_audit_trace;size:36" json:"trace_id"`
	AccountID  *int64         `gorm:"index:idx_audit_account" json:"account_id"`
	Action     string         `gorm:"size:64;not null" json:"action"`
	QuestID    string         `gorm:"index:idx_audit_quest;size:96" json:"quest_id"`
	TemplateID string         `gorm:"size:64" json:"template_id"`
	FromStatus string         `gorm:"size:16" json:"from_status"`
	ToStatus   string         `gorm:"size:16" json:"to_status"`
	Detail     datatypes.JSON `json:"detail"`
	IP         string         `gorm:"size:45" json:"ip"`
	CreatedAt  time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
