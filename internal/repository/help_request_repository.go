package repository

import (
	"context"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/util"

	"gorm.io/gorm"
)

type HelpRequestRepository struct {
	DB *gorm.DB
}

func NewHelpRequestRepository(db *gorm.DB) *HelpRequestRepository {
	return &HelpRequestRepository{DB: db}
}

func (r *HelpRequestRepository) WithTx(tx *gorm.DB) *HelpRequestRepository {
	return &HelpRequestRepository{DB: tx}
}

func (r *HelpRequestRepository) Create(ctx context.Context, req *model.HelpRequest) error {
	return r.DB.WithContext(ctx).Create(req).Error
}

func (r *HelpRequestRepository) FindByID(ctx context.Context, id string) (*model.HelpRequest, error) {
	var req model.HelpRequest
	err := r.DB.WithContext(ctx).Preload("Owner").First(&req, "id = ?", id).Error
	return &req, err
}

// UpdateOpen 仅在求助仍为 OPEN 时更新字段，返回是否命中
func (r *HelpRequestRepository) UpdateOpen(ctx context.Context, id string, fields map[string]interface{}) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.HelpRequest{}).
		Where("id = ? AND status = ?", id, model.RequestOpen).
		Updates(fields)
	return res.RowsAffected > 0, res.Error
}

// CompareAndSetStatus 条件更新状态：只有当前状态为 from 时才改为 to
func (r *HelpRequestRepository) CompareAndSetStatus(ctx context.Context, id string, from, to model.RequestStatus) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.HelpRequest{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

// Transition 在一个事务里完成状态流转；离开 OPEN 或转为 CANCELLED 时同时拒绝所有待处理申请并返回它们
func (r *HelpRequestRepository) Transition(ctx context.Context, id string, from, to model.RequestStatus) ([]model.Application, error) {
	var rejected []model.Application
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rejected, err = r.WithTx(tx).transitionTx(ctx, id, from, to)
		return err
	})
	return rejected, err
}

// TransitionInTx 与 Transition 相同，但由调用方提供事务
func (r *HelpRequestRepository) TransitionInTx(ctx context.Context, id string, from, to model.RequestStatus) ([]model.Application, error) {
	return r.transitionTx(ctx, id, from, to)
}

func (r *HelpRequestRepository) transitionTx(ctx context.Context, id string, from, to model.RequestStatus) ([]model.Application, error) {
	ok, err := r.CompareAndSetStatus(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrInvalidTransition
	}
	if from != model.RequestOpen && to != model.RequestCancelled {
		return nil, nil
	}

	apps := NewApplicationRepository(r.DB)
	pending, err := apps.ListByRequestAndStatus(ctx, id, model.ApplicationApplied)
	if err != nil {
		return nil, err
	}
	if err := apps.rejectPending(ctx, id, ""); err != nil {
		return nil, err
	}
	for i := range pending {
		pending[i].Status = model.ApplicationRejected
	}
	return pending, nil
}

type RequestFilter struct {
	Category string
	Status   model.RequestStatus
	Paid     *bool
	OwnerID  uint
	Box      *util.BBox
}

func (r *HelpRequestRepository) filtered(ctx context.Context, f RequestFilter) *gorm.DB {
	db := r.DB.WithContext(ctx).Model(&model.HelpRequest{})
	if f.Category != "" {
		db = db.Where("category = ?", f.Category)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.Paid != nil {
		db = db.Where("paid = ?", *f.Paid)
	}
	if f.OwnerID != 0 {
		db = db.Where("owner_id = ?", f.OwnerID)
	}
	if f.Box != nil {
		db = db.Where("lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?",
			f.Box.MinLat, f.Box.MaxLat, f.Box.MinLng, f.Box.MaxLng)
	}
	return db
}

// List 按创建时间倒序分页
func (r *HelpRequestRepository) List(ctx context.Context, f RequestFilter, offset, limit int) ([]model.HelpRequest, int64, error) {
	var reqs []model.HelpRequest
	var total int64

	db := r.filtered(ctx, f)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Preload("Owner").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reqs).Error
	return reqs, total, err
}

// RequestPoint 矩形预过滤的候选，只取计算距离所需的列
type RequestPoint struct {
	ID  string
	Lat float64
	Lng float64
}

// PointsInBox 返回矩形内的全部候选坐标（创建时间倒序），精确距离与分页由调用方完成
func (r *HelpRequestRepository) PointsInBox(ctx context.Context, f RequestFilter) ([]RequestPoint, error) {
	var points []RequestPoint
	err := r.filtered(ctx, f).
		Select("id", "lat", "lng").
		Order("created_at DESC").
		Scan(&points).Error
	return points, err
}

// FindByIDs 按 ids 的顺序返回求助，缺失的跳过
func (r *HelpRequestRepository) FindByIDs(ctx context.Context, ids []string) ([]model.HelpRequest, error) {
	if len(ids) == 0 {
		return []model.HelpRequest{}, nil
	}
	var reqs []model.HelpRequest
	if err := r.DB.WithContext(ctx).Preload("Owner").Where("id IN ?", ids).Find(&reqs).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]model.HelpRequest, len(reqs))
	for _, req := range reqs {
		byID[req.ID] = req
	}
	ordered := make([]model.HelpRequest, 0, len(ids))
	for _, id := range ids {
		if req, ok := byID[id]; ok {
			ordered = append(ordered, req)
		}
	}
	return ordered, nil
}
