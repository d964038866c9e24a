package model

import (
	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	RequestOpen       RequestStatus = "OPEN"
	RequestInProgress RequestStatus = "IN_PROGRESS"
	RequestDone       RequestStatus = "DONE"
	RequestCancelled  RequestStatus = "CANCELLED"
)

// 允许的状态流转，终态（DONE/CANCELLED）没有出边
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestOpen:       {RequestInProgress, RequestCancelled},
	RequestInProgress: {RequestDone, RequestCancelled},
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestOpen, RequestInProgress, RequestDone, RequestCancelled:
		return true
	}
	return false
}

func (s RequestStatus) Terminal() bool {
	return s == RequestDone || s == RequestCancelled
}

// CanTransitionTo 判断 s -> next 是否是合法的状态流转
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

const (
	CategoryErrands       = "Recados"
	CategoryRepairs       = "Reparações"
	CategoryCompanionship = "Companhia"
	CategoryCleaning      = "Limpezas"
	CategoryGardening     = "Jardinagem"
	CategoryOther         = "Outros"
)

var Categories = []string{
	CategoryErrands,
	CategoryRepairs,
	CategoryCompanionship,
	CategoryCleaning,
	CategoryGardening,
	CategoryOther,
}

func ValidCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

// HelpRequest 居民发布的求助
// swagger:model HelpRequest
type HelpRequest struct {
	UUIDBase
	OwnerID     uint                `gorm:"index;not null" json:"ownerId"`
	Owner       *User               `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Title       string              `gorm:"size:120;not null" json:"title"`
	Description string              `gorm:"type:text" json:"description"`
	Category    string              `gorm:"size:40;index;not null" json:"category"`
	Paid        bool                `gorm:"default:false" json:"paid"`
	Budget      decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"budget"`
	Lat         float64             `gorm:"index:idx_requests_geo;not null" json:"lat"`
	Lng         float64             `gorm:"index:idx_requests_geo;not null" json:"lng"`
	City        string              `gorm:"size:100" json:"city"`
	ImageURL    string              `gorm:"size:255" json:"imageUrl"`
	Status      RequestStatus       `gorm:"type:varchar(20);index;not null;default:'OPEN';check:status IN ('OPEN','IN_PROGRESS','DONE','CANCELLED')" json:"status"`
	DistanceKm  *float64            `gorm:"-" json:"distanceKm,omitempty"`
}

func (HelpRequest) TableName() string {
	return "requests"
}
