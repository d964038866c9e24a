package model

type ApplicationStatus string

const (
	ApplicationApplied  ApplicationStatus = "APPLIED"
	ApplicationAccepted ApplicationStatus = "ACCEPTED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

// Application 帮助者对求助的申请，同一求助同一帮助者只允许一条
// swagger:model Application
type Application struct {
	UUIDBase
	RequestID string            `gorm:"type:varchar(36);not null;uniqueIndex:idx_application_request_helper" json:"requestId"`
	Request   *HelpRequest      `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	HelperID  uint              `gorm:"not null;index;uniqueIndex:idx_application_request_helper" json:"helperId"`
	Helper    *User             `gorm:"foreignKey:HelperID" json:"helper,omitempty"`
	Message   string            `gorm:"size:1000" json:"message"`
	Status    ApplicationStatus `gorm:"type:varchar(20);index;not null;default:'APPLIED';check:status IN ('APPLIED','ACCEPTED','REJECTED')" json:"status"`
}

func (Application) TableName() string {
	return "applications"
}

// Active 未进入终态（APPLIED 或 ACCEPTED）
func (a *Application) Active() bool {
	return a.Status == ApplicationApplied || a.Status == ApplicationAccepted
}
