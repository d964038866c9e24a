package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotifyNewApplication      NotificationType = "NEW_APPLICATION"
	NotifyOtherApplicant      NotificationType = "OTHER_APPLICANT"
	NotifyApplicationAccepted NotificationType = "APPLICATION_ACCEPTED"
	NotifyApplicationRejected NotificationType = "APPLICATION_REJECTED"
	NotifyApplicationRemoved  NotificationType = "APPLICATION_REMOVED"
	NotifyRequestStatus       NotificationType = "REQUEST_STATUS_CHANGED"
	NotifyNewMessage          NotificationType = "NEW_MESSAGE"
	NotifyNewReview           NotificationType = "NEW_REVIEW"
	NotifyReportReceived      NotificationType = "REPORT_RECEIVED"
	NotifyReportFiled         NotificationType = "REPORT_FILED"
	NotifyModerationWarning   NotificationType = "MODERATION_WARNING"
	NotifyAccountBlocked      NotificationType = "ACCOUNT_BLOCKED"
	NotifyRequestRemoved      NotificationType = "REQUEST_REMOVED"
	NotifyReportResolved      NotificationType = "REPORT_RESOLVED"
	NotifyReportDismissed     NotificationType = "REPORT_DISMISSED"
)

// Notification 站内通知
// swagger:model Notification
type Notification struct {
	ID        string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    uint             `gorm:"not null;index:idx_notification_user_read" json:"userId"`
	User      *User            `gorm:"foreignKey:UserID" json:"-"`
	Type      NotificationType `gorm:"type:varchar(40);not null" json:"type"`
	Title     string           `gorm:"size:200;not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	Payload   datatypes.JSON   `json:"payload,omitempty"`
	IsRead    bool             `gorm:"default:false;index:idx_notification_user_read" json:"isRead"`
	CreatedAt time.Time        `gorm:"index" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = GenerateUUID()
	}
	return nil
}
