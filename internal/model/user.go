package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserRole string

const (
	Resident UserRole = "resident"
	Admin    UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name        string          `gorm:"size:100;not null" json:"name"`
	Email       string          `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password    string          `gorm:"size:100;not null" json:"-"`
	Role        UserRole        `gorm:"type:varchar(20);default:'resident'" json:"role"`
	City        string          `gorm:"size:100" json:"city"`
	Bio         string          `gorm:"size:500" json:"bio"`
	Avatar      string          `gorm:"size:255" json:"avatar"`
	Language    string          `gorm:"size:10;default:'pt'" json:"language"`
	Disabled    bool            `gorm:"default:false;index" json:"disabled"`
	RatingAvg   decimal.Decimal `gorm:"type:decimal(3,2);default:0" json:"ratingAvg"`
	RatingCount int             `gorm:"default:0" json:"ratingCount"`
	LastLogin   *time.Time      `json:"lastLogin,omitempty"`
	LastSeen    *time.Time      `json:"lastSeen,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == Admin
}

// PublicUser 对外展示的用户信息（不含邮箱等隐私字段）
type PublicUser struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	City        string          `json:"city"`
	Bio         string          `json:"bio"`
	Avatar      string          `json:"avatar"`
	RatingAvg   decimal.Decimal `json:"ratingAvg"`
	RatingCount int             `json:"ratingCount"`
	Online      bool            `json:"online"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Name:        u.Name,
		City:        u.City,
		Bio:         u.Bio,
		Avatar:      u.Avatar,
		RatingAvg:   u.RatingAvg,
		RatingCount: u.RatingCount,
		CreatedAt:   u.CreatedAt,
	}
}
