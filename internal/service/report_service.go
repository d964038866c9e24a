package service

import (
	"context"
	"errors"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/repository"
	"helpmarket_backend/internal/util"
	"helpmarket_backend/pkg/logger"
	"helpmarket_backend/pkg/monitoring"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ReportService struct {
	DB          *gorm.DB
	Repo        *repository.ReportRepository
	UserRepo    *repository.UserRepository
	RequestRepo *repository.HelpRequestRepository
	Requests    *RequestService
	Notifier    *NotificationService
}

func NewReportService(db *gorm.DB, repo *repository.ReportRepository, userRepo *repository.UserRepository, requestRepo *repository.HelpRequestRepository, requests *RequestService, notifier *NotificationService) *ReportService {
	return &ReportService{
		DB:          db,
		Repo:        repo,
		UserRepo:    userRepo,
		RequestRepo: requestRepo,
		Requests:    requests,
		Notifier:    notifier,
	}
}

func normalizeReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", util.Rejected("o motivo da denúncia é obrigatório")
	}
	return reason, nil
}

func (s *ReportService) ReportUser(ctx context.Context, p util.Principal, userID uint, reason, details string) (*model.Report, error) {
	reason, err := normalizeReason(reason)
	if err != nil {
		return nil, err
	}
	if _, err := s.UserRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	report := &model.Report{
		ReporterID:   p.UserID,
		TargetUserID: &userID,
		Reason:       reason,
		Details:      strings.TrimSpace(details),
		Status:       model.ReportPending,
	}
	if err := s.Repo.Create(ctx, report); err != nil {
		return nil, err
	}
	s.afterFiled(ctx, report, userID)
	return report, nil
}

func (s *ReportService) ReportRequest(ctx context.Context, p util.Principal, requestID, reason, details string) (*model.Report, error) {
	reason, err := normalizeReason(reason)
	if err != nil {
		return nil, err
	}
	req, err := s.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	report := &model.Report{
		ReporterID:      p.UserID,
		TargetRequestID: &req.ID,
		Reason:          reason,
		Details:         strings.TrimSpace(details),
		Status:          model.ReportPending,
	}
	if err := s.Repo.Create(ctx, report); err != nil {
		return nil, err
	}
	s.afterFiled(ctx, report, req.OwnerID)
	return report, nil
}

func (s *ReportService) afterFiled(ctx context.Context, report *model.Report, targetUserID uint) {
	monitoring.ReportEvents.WithLabelValues("filed").Inc()
	payload := map[string]interface{}{"reportId": report.ID}

	s.Notifier.Emit(ctx, NotifyInput{
		UserID:  report.ReporterID,
		Type:    model.NotifyReportReceived,
		Payload: payload,
	})
	s.Notifier.Emit(ctx, NotifyInput{
		UserID:  targetUserID,
		Type:    model.NotifyReportFiled,
		Params:  map[string]interface{}{"Reason": report.Reason},
		Payload: payload,
	})
}

func (s *ReportService) findPending(ctx context.Context, id string) (*model.Report, error) {
	report, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrReportNotFound
		}
		return nil, err
	}
	if report.Status != model.ReportPending {
		return nil, util.ErrReportNotPending
	}
	return report, nil
}

// targetUser 举报涉及的用户：被举报用户，或被举报求助的发布者
func targetUser(report *model.Report) uint {
	if report.TargetUserID != nil {
		return *report.TargetUserID
	}
	if report.TargetRequest != nil {
		return report.TargetRequest.OwnerID
	}
	return 0
}

// ResolveReport 管理员处理举报。动作先解析为封闭集合，再由一个 switch 决定事务内的变更与提交后的通知。
func (s *ReportService) ResolveReport(ctx context.Context, p util.Principal, reportID, actionCode, notes string) (*model.Report, error) {
	if !p.IsAdmin() {
		return nil, util.ErrAdminOnly
	}
	action, err := model.ParseModerationAction(actionCode)
	if err != nil {
		return nil, util.ErrUnknownModerationAction
	}
	report, err := s.findPending(ctx, reportID)
	if err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)
	target := targetUser(report)
	noteParams := map[string]interface{}{"Notes": notes}
	payload := map[string]interface{}{"reportId": report.ID, "action": action}

	var (
		mutate func(ctx context.Context, tx *gorm.DB) error
		after  []NotifyInput
		// REMOVE_REQUEST 时被拒绝的申请，提交后通知
		rejected  []model.Application
		cancelled bool
	)

	switch action {
	case model.ActionNoAction:
		// 仅关闭举报

	case model.ActionWarning:
		if target == 0 {
			return nil, util.ErrActionNeedsUser
		}
		after = append(after, NotifyInput{UserID: target, Type: model.NotifyModerationWarning, Params: noteParams, Payload: payload})

	case model.ActionBlockUser:
		if target == 0 {
			return nil, util.ErrActionNeedsUser
		}
		mutate = func(ctx context.Context, tx *gorm.DB) error {
			ok, err := s.UserRepo.WithTx(tx).SetDisabled(ctx, target, true)
			if err != nil {
				return err
			}
			if !ok {
				return util.ErrUserNotFound
			}
			return nil
		}
		after = append(after, NotifyInput{UserID: target, Type: model.NotifyAccountBlocked, Params: noteParams, Payload: payload})

	case model.ActionRemoveRequest:
		req := report.TargetRequest
		if req == nil {
			return nil, util.ErrActionNeedsRequest
		}
		if req.Status == model.RequestDone {
			return nil, util.ErrInvalidTransition
		}
		if !req.Status.Terminal() {
			from := req.Status
			mutate = func(ctx context.Context, tx *gorm.DB) error {
				var err error
				rejected, err = s.RequestRepo.WithTx(tx).TransitionInTx(ctx, req.ID, from, model.RequestCancelled)
				cancelled = err == nil
				return err
			}
		}
		after = append(after, NotifyInput{
			UserID:  req.OwnerID,
			Type:    model.NotifyRequestRemoved,
			Params:  map[string]interface{}{"RequestTitle": req.Title},
			Payload: payload,
		})

	default:
		return nil, util.ErrUnknownModerationAction
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Repo.WithTx(tx).Close(ctx, report.ID, model.ReportResolved, action, notes, p.UserID); err != nil {
			return err
		}
		if mutate != nil {
			return mutate(ctx, tx)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.ReportEvents.WithLabelValues(strings.ToLower(string(action))).Inc()
	logger.Log.Info("Report resolved",
		zap.String("reportId", report.ID),
		zap.String("action", string(action)),
		zap.Uint("adminId", p.UserID))

	if target != 0 {
		util.Forget(ctx, util.UserCacheKey(target))
	}
	if report.TargetRequestID != nil {
		util.Forget(ctx, util.RequestCacheKey(*report.TargetRequestID))
	}

	for _, in := range after {
		s.Notifier.Emit(ctx, in)
	}
	if cancelled {
		// 与发布者取消走同一套提交后通知：已接受的帮助者、被拒绝的申请人、房间推送
		if updated, err := s.Requests.GetRequest(ctx, report.TargetRequest.ID); err == nil {
			s.Requests.afterStatusChange(ctx, updated, report.TargetRequest.Status, rejected)
		} else {
			logger.Log.Warn("Reload removed request failed", zap.String("requestId", report.TargetRequest.ID), zap.Error(err))
		}
	}
	s.Notifier.Emit(ctx, NotifyInput{UserID: report.ReporterID, Type: model.NotifyReportResolved, Payload: payload})

	return s.Repo.FindByID(ctx, report.ID)
}

// DismissReport 驳回举报，通知举报人和被举报人
func (s *ReportService) DismissReport(ctx context.Context, p util.Principal, reportID, notes string) (*model.Report, error) {
	if !p.IsAdmin() {
		return nil, util.ErrAdminOnly
	}
	report, err := s.findPending(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.Close(ctx, report.ID, model.ReportDismissed, "", strings.TrimSpace(notes), p.UserID); err != nil {
		return nil, err
	}
	monitoring.ReportEvents.WithLabelValues("dismissed").Inc()

	payload := map[string]interface{}{"reportId": report.ID}
	s.Notifier.NotifyMany(ctx, []uint{report.ReporterID, targetUser(report)}, NotifyInput{
		Type:    model.NotifyReportDismissed,
		Payload: payload,
	})

	return s.Repo.FindByID(ctx, report.ID)
}

func (s *ReportService) ListReports(ctx context.Context, p util.Principal, status model.ReportStatus, page, limit int) ([]model.Report, int64, error) {
	if !p.IsAdmin() {
		return nil, 0, util.ErrAdminOnly
	}
	page, limit = util.NormalizePage(page, limit)
	return s.Repo.List(ctx, status, (page-1)*limit, limit)
}

// GetReport 管理员或举报人可查看
func (s *ReportService) GetReport(ctx context.Context, p util.Principal, id string) (*model.Report, error) {
	report, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrReportNotFound
		}
		return nil, err
	}
	if !p.IsAdmin() && report.ReporterID != p.UserID {
		return nil, util.ErrPermissionDenied
	}
	return report, nil
}
