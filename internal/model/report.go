package model

import (
	"fmt"
	"time"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "PENDING"
	ReportResolved  ReportStatus = "RESOLVED"
	ReportDismissed ReportStatus = "DISMISSED"
)

// ModerationAction 管理员处理举报时可选的动作（封闭集合）
type ModerationAction string

const (
	ActionNoAction      ModerationAction = "NO_ACTION"
	ActionWarning       ModerationAction = "WARNING"
	ActionBlockUser     ModerationAction = "BLOCK_USER"
	ActionRemoveRequest ModerationAction = "REMOVE_REQUEST"
)

func ParseModerationAction(s string) (ModerationAction, error) {
	switch a := ModerationAction(s); a {
	case ActionNoAction, ActionWarning, ActionBlockUser, ActionRemoveRequest:
		return a, nil
	}
	return "", fmt.Errorf("unknown moderation action %q", s)
}

// Report 举报，目标可以是用户或求助（至少一个）
// swagger:model Report
type Report struct {
	UUIDBase
	ReporterID      uint         `gorm:"not null;index" json:"reporterId"`
	Reporter        *User        `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	TargetUserID    *uint        `gorm:"index" json:"targetUserId,omitempty"`
	TargetUser      *User        `gorm:"foreignKey:TargetUserID" json:"targetUser,omitempty"`
	TargetRequestID *string      `gorm:"type:varchar(36);index" json:"targetRequestId,omitempty"`
	TargetRequest   *HelpRequest `gorm:"foreignKey:TargetRequestID" json:"targetRequest,omitempty"`
	Reason          string       `gorm:"size:100;not null" json:"reason"`
	Details         string       `gorm:"type:text" json:"details"`
	Status          ReportStatus `gorm:"type:varchar(20);index;not null;default:'PENDING';check:status IN ('PENDING','RESOLVED','DISMISSED')" json:"status"`
	Action          string       `gorm:"size:30" json:"action,omitempty"`
	AdminNotes      string       `gorm:"type:text" json:"adminNotes,omitempty"`
	HandledByID     *uint        `json:"handledById,omitempty"`
	HandledAt       *time.Time   `json:"handledAt,omitempty"`
}

func (Report) TableName() string {
	return "reports"
}
