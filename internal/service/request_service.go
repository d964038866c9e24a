package service

import (
	"context"
	"errors"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/repository"
	"helpmarket_backend/internal/util"
	"helpmarket_backend/pkg/logger"
	"helpmarket_backend/pkg/monitoring"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RequestService struct {
	Repo     *repository.HelpRequestRepository
	AppRepo  *repository.ApplicationRepository
	Notifier *NotificationService
	Live     Broadcaster
	Zones    *util.ZoneHolder
}

func NewRequestService(repo *repository.HelpRequestRepository, appRepo *repository.ApplicationRepository, notifier *NotificationService, live Broadcaster, zones *util.ZoneHolder) *RequestService {
	return &RequestService{
		Repo:     repo,
		AppRepo:  appRepo,
		Notifier: notifier,
		Live:     live,
		Zones:    zones,
	}
}

type CreateRequestInput struct {
	Title       string
	Description string
	Category    string
	Paid        bool
	Budget      *decimal.Decimal
	Lat         float64
	Lng         float64
	City        string
	ImageURL    string
}

// UpdateRequestInput nil 字段保持不变
type UpdateRequestInput struct {
	Title       *string
	Description *string
	Category    *string
	Paid        *bool
	Budget      *decimal.Decimal
	ClearBudget bool
	Lat         *float64
	Lng         *float64
	City        *string
	ImageURL    *string
}

type SearchRequestsInput struct {
	Category string
	Status   model.RequestStatus
	Paid     *bool
	Center   *util.GeoPoint
	RadiusKm float64
	Page     int
	Limit    int
}

func validateBudget(paid bool, budget *decimal.Decimal) (decimal.NullDecimal, error) {
	if !paid || budget == nil {
		return decimal.NullDecimal{}, nil
	}
	if !budget.IsPositive() {
		return decimal.NullDecimal{}, util.ErrInvalidBudget
	}
	return decimal.NullDecimal{Decimal: budget.Round(2), Valid: true}, nil
}

func (s *RequestService) CreateRequest(ctx context.Context, p util.Principal, in CreateRequestInput) (*model.HelpRequest, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, util.Rejected("o título é obrigatório")
	}
	if !model.ValidCategory(in.Category) {
		return nil, util.ErrInvalidCategory
	}
	if err := s.Zones.Zone().Validate(util.GeoPoint{Lat: in.Lat, Lng: in.Lng}, in.City); err != nil {
		if util.IsGeoError(err) {
			logger.Log.Debug("Request location rejected",
				zap.Uint("ownerID", p.UserID),
				zap.Float64("lat", in.Lat),
				zap.Float64("lng", in.Lng),
				zap.String("city", in.City),
				zap.Error(err))
		}
		return nil, err
	}
	budget, err := validateBudget(in.Paid, in.Budget)
	if err != nil {
		return nil, err
	}

	req := &model.HelpRequest{
		OwnerID:     p.UserID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Paid:        in.Paid,
		Budget:      budget,
		Lat:         in.Lat,
		Lng:         in.Lng,
		City:        strings.TrimSpace(in.City),
		ImageURL:    in.ImageURL,
		Status:      model.RequestOpen,
	}
	if err := s.Repo.Create(ctx, req); err != nil {
		return nil, err
	}

	monitoring.HelpRequestsCreated.Inc()
	logger.Log.Info("Help request created",
		zap.String("requestId", req.ID),
		zap.Uint("ownerId", p.UserID),
		zap.String("category", req.Category))
	return req, nil
}

// GetRequest 带请求级缓存的查询
func (s *RequestService) GetRequest(ctx context.Context, id string) (*model.HelpRequest, error) {
	return util.Memo(ctx, util.RequestCacheKey(id), func() (*model.HelpRequest, error) {
		req, err := s.Repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrRequestNotFound
			}
			return nil, err
		}
		return req, nil
	})
}

// UpdateRequest 仅求助发布者在 OPEN 状态下可修改
func (s *RequestService) UpdateRequest(ctx context.Context, p util.Principal, id string, in UpdateRequestInput) (*model.HelpRequest, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != p.UserID {
		return nil, util.ErrNotRequestOwner
	}
	if req.Status != model.RequestOpen {
		return nil, util.ErrRequestNotEditable
	}

	fields := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, util.Rejected("o título é obrigatório")
		}
		fields["title"] = title
	}
	if in.Description != nil {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		if !model.ValidCategory(*in.Category) {
			return nil, util.ErrInvalidCategory
		}
		fields["category"] = *in.Category
	}

	paid := req.Paid
	if in.Paid != nil {
		paid = *in.Paid
		fields["paid"] = paid
	}
	switch {
	case in.ClearBudget || !paid:
		fields["budget"] = decimal.NullDecimal{}
	case in.Budget != nil:
		budget, err := validateBudget(paid, in.Budget)
		if err != nil {
			return nil, err
		}
		fields["budget"] = budget
	}

	if in.Lat != nil || in.Lng != nil || in.City != nil {
		point := util.GeoPoint{Lat: req.Lat, Lng: req.Lng}
		city := req.City
		if in.Lat != nil {
			point.Lat = *in.Lat
		}
		if in.Lng != nil {
			point.Lng = *in.Lng
		}
		if in.City != nil {
			city = strings.TrimSpace(*in.City)
		}
		if err := s.Zones.Zone().Validate(point, city); err != nil {
			return nil, err
		}
		fields["lat"] = point.Lat
		fields["lng"] = point.Lng
		fields["city"] = city
	}
	if in.ImageURL != nil {
		fields["image_url"] = *in.ImageURL
	}

	if len(fields) > 0 {
		ok, err := s.Repo.UpdateOpen(ctx, id, fields)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrRequestNotEditable
		}
	}

	util.Forget(ctx, util.RequestCacheKey(id))
	return s.GetRequest(ctx, id)
}

func (s *RequestService) ListMyRequests(ctx context.Context, p util.Principal, status model.RequestStatus, page, limit int) ([]model.HelpRequest, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, util.Rejected("estado inválido: %s", status)
	}
	page, limit = util.NormalizePage(page, limit)
	return s.Repo.List(ctx, repository.RequestFilter{OwnerID: p.UserID, Status: status}, (page-1)*limit, limit)
}

// SearchRequests 有中心点时先按外接矩形预过滤，再按精确距离过滤并升序排序；否则按创建时间倒序
func (s *RequestService) SearchRequests(ctx context.Context, in SearchRequestsInput) ([]model.HelpRequest, int64, error) {
	if in.Category != "" && !model.ValidCategory(in.Category) {
		return nil, 0, util.ErrInvalidCategory
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, 0, util.Rejected("estado inválido: %s", in.Status)
	}
	page, limit := util.NormalizePage(in.Page, in.Limit)

	filter := repository.RequestFilter{
		Category: in.Category,
		Status:   in.Status,
		Paid:     in.Paid,
	}

	if in.Center == nil {
		return s.Repo.List(ctx, filter, (page-1)*limit, limit)
	}

	if !in.Center.Valid() {
		return nil, 0, util.ErrInvalidCoordinates
	}
	radius := in.RadiusKm
	if radius <= 0 {
		radius = s.Zones.Zone().RadiusKm
	}
	box := util.BoundingBox(*in.Center, radius)
	filter.Box = &box

	// 矩形内只取坐标，全部按距离排序后再分页
	points, err := s.Repo.PointsInBox(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	type hit struct {
		id   string
		dist float64
	}
	hits := make([]hit, 0, len(points))
	for _, pt := range points {
		d := util.HaversineKm(in.Center.Lat, in.Center.Lng, pt.Lat, pt.Lng)
		if d > radius {
			continue
		}
		hits = append(hits, hit{id: pt.ID, dist: d})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].dist < hits[j].dist
	})

	total := int64(len(hits))
	start := (page - 1) * limit
	if start >= len(hits) {
		return []model.HelpRequest{}, total, nil
	}
	end := start + limit
	if end > len(hits) {
		end = len(hits)
	}

	ids := make([]string, 0, end-start)
	dists := make(map[string]float64, end-start)
	for _, h := range hits[start:end] {
		ids = append(ids, h.id)
		dists[h.id] = h.dist
	}
	reqs, err := s.Repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range reqs {
		d := dists[reqs[i].ID]
		reqs[i].DistanceKm = &d
	}
	return reqs, total, nil
}

// UpdateRequestStatus 发布者（或管理员）推进状态；离开 OPEN 时同一事务内拒绝所有待处理申请
func (s *RequestService) UpdateRequestStatus(ctx context.Context, p util.Principal, id string, next model.RequestStatus) (*model.HelpRequest, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != p.UserID && !p.IsAdmin() {
		return nil, util.ErrNotRequestOwner
	}
	if !next.Valid() || !req.Status.CanTransitionTo(next) {
		return nil, util.ErrInvalidTransition
	}

	previous := req.Status
	rejected, err := s.Repo.Transition(ctx, id, previous, next)
	if err != nil {
		return nil, err
	}
	util.Forget(ctx, util.RequestCacheKey(id))

	updated, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterStatusChange(ctx, updated, previous, rejected)
	return updated, nil
}

// afterStatusChange 事务提交后的通知与推送
func (s *RequestService) afterStatusChange(ctx context.Context, req *model.HelpRequest, previous model.RequestStatus, rejected []model.Application) {
	params := map[string]interface{}{"RequestTitle": req.Title, "Status": string(req.Status)}
	payload := map[string]interface{}{"requestId": req.ID, "status": req.Status, "previousStatus": previous}

	if accepted, err := s.AppRepo.FindAccepted(ctx, req.ID); err == nil {
		s.Notifier.Emit(ctx, NotifyInput{
			UserID:  accepted.HelperID,
			Type:    model.NotifyRequestStatus,
			Params:  params,
			Payload: payload,
		})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Log.Warn("Lookup accepted helper failed", zap.String("requestId", req.ID), zap.Error(err))
	}

	for _, app := range rejected {
		s.Notifier.Emit(ctx, NotifyInput{
			UserID:  app.HelperID,
			Type:    model.NotifyApplicationRejected,
			Params:  params,
			Payload: map[string]interface{}{"requestId": req.ID, "applicationId": app.ID},
		})
		s.Live.ToUser(app.HelperID, EventApplicationStatus, map[string]interface{}{
			"applicationId": app.ID,
			"requestId":     req.ID,
			"status":        model.ApplicationRejected,
		})
	}
	if len(rejected) > 0 {
		monitoring.ApplicationEvents.WithLabelValues("rejected").Add(float64(len(rejected)))
	}

	s.Live.ToRequest(req.ID, EventRequestStatusChange, payload)
}
