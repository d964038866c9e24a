package model

// Review 求助完成后双方互评，(request, reviewer, reviewee) 唯一
// swagger:model Review
type Review struct {
	UUIDBase
	RequestID  string       `gorm:"type:varchar(36);not null;uniqueIndex:idx_review_triple" json:"requestId"`
	Request    *HelpRequest `gorm:"foreignKey:RequestID" json:"-"`
	ReviewerID uint         `gorm:"not null;uniqueIndex:idx_review_triple" json:"reviewerId"`
	Reviewer   *User        `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	RevieweeID uint         `gorm:"not null;index;uniqueIndex:idx_review_triple" json:"revieweeId"`
	Reviewee   *User        `gorm:"foreignKey:RevieweeID" json:"-"`
	Rating     int          `gorm:"not null;check:rating BETWEEN 1 AND 5" json:"rating"`
	Comment    string       `gorm:"size:1000" json:"comment"`
}

func (Review) TableName() string {
	return "reviews"
}

const (
	MinRating = 1
	MaxRating = 5
)
