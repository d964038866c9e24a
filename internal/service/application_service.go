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

type ApplicationService struct {
	Repo         *repository.ApplicationRepository
	UserRepo     *repository.UserRepository
	Requests     *RequestService
	Notifier     *NotificationService
	Live         Broadcaster
	Participants *ParticipantCache
	Translator   *util.Translator
}

func NewApplicationService(repo *repository.ApplicationRepository, userRepo *repository.UserRepository, requests *RequestService, notifier *NotificationService, live Broadcaster, participants *ParticipantCache, tr *util.Translator) *ApplicationService {
	return &ApplicationService{
		Repo:         repo,
		UserRepo:     userRepo,
		Requests:     requests,
		Notifier:     notifier,
		Live:         live,
		Participants: participants,
		Translator:   tr,
	}
}

func (s *ApplicationService) findApplication(ctx context.Context, id string) (*model.Application, error) {
	app, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrApplicationNotFound
		}
		return nil, err
	}
	return app, nil
}

func (s *ApplicationService) displayName(ctx context.Context, userID uint) string {
	u, err := util.Memo(ctx, util.UserCacheKey(userID), func() (*model.User, error) {
		return s.UserRepo.FindByID(ctx, userID)
	})
	if err != nil {
		return ""
	}
	return u.Name
}

// ApplyToRequest 帮助者申请求助：求助须为 OPEN、不能申请自己的求助、同一求助只能申请一次
func (s *ApplicationService) ApplyToRequest(ctx context.Context, p util.Principal, requestID, message string) (*model.Application, error) {
	req, err := s.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.RequestOpen {
		return nil, util.ErrRequestNotOpen
	}
	if req.OwnerID == p.UserID {
		return nil, util.ErrSelfApplication
	}

	if _, err := s.Repo.FindByRequestAndHelper(ctx, requestID, p.UserID); err == nil {
		return nil, util.ErrAlreadyApplied
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 现有申请人在插入前取出，新申请人自己不会收到“另一位申请人”通知
	others, err := s.Repo.HelperIDs(ctx, requestID)
	if err != nil {
		return nil, err
	}

	app := &model.Application{
		RequestID: requestID,
		HelperID:  p.UserID,
		Message:   strings.TrimSpace(message),
		Status:    model.ApplicationApplied,
	}
	if err := s.Repo.Create(ctx, app); err != nil {
		return nil, err
	}
	monitoring.ApplicationEvents.WithLabelValues("applied").Inc()
	s.Participants.Invalidate(ctx, requestID)

	params := map[string]interface{}{
		"RequestTitle": req.Title,
		"ActorName":    s.displayName(ctx, p.UserID),
	}
	payload := map[string]interface{}{"requestId": requestID, "applicationId": app.ID}

	s.Notifier.Emit(ctx, NotifyInput{
		UserID:  req.OwnerID,
		Type:    model.NotifyNewApplication,
		Params:  params,
		Payload: payload,
	})
	s.Notifier.NotifyMany(ctx, others, NotifyInput{
		Type:    model.NotifyOtherApplicant,
		Params:  params,
		Payload: payload,
	})
	s.Live.ToRequest(requestID, EventNewApplication, app)

	return app, nil
}

// AcceptApplication 发布者接受一条申请，状态变更在一个事务内完成，通知在提交之后
func (s *ApplicationService) AcceptApplication(ctx context.Context, p util.Principal, applicationID string) (*model.Application, error) {
	app, err := s.findApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	req, err := s.Requests.GetRequest(ctx, app.RequestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != p.UserID {
		return nil, util.ErrNotRequestOwner
	}
	if req.Status != model.RequestOpen {
		return nil, util.ErrRequestNotOpen
	}
	if app.Status != model.ApplicationApplied {
		return nil, util.ErrApplicationNotPending
	}

	result, err := s.Repo.Accept(ctx, applicationID, req.ID)
	if err != nil {
		return nil, err
	}
	util.Forget(ctx, util.RequestCacheKey(req.ID))
	s.Participants.Invalidate(ctx, req.ID)

	monitoring.ApplicationEvents.WithLabelValues("accepted").Inc()
	if n := len(result.Rejected); n > 0 {
		monitoring.ApplicationEvents.WithLabelValues("rejected").Add(float64(n))
	}
	logger.Log.Info("Application accepted",
		zap.String("requestId", req.ID),
		zap.String("applicationId", applicationID),
		zap.Int("rejected", len(result.Rejected)))

	s.afterAccept(ctx, req, result)
	return &result.Accepted, nil
}

func (s *ApplicationService) afterAccept(ctx context.Context, req *model.HelpRequest, result *repository.AcceptResult) {
	params := map[string]interface{}{"RequestTitle": req.Title}
	accepted := result.Accepted

	s.Notifier.Emit(ctx, NotifyInput{
		UserID:  accepted.HelperID,
		Type:    model.NotifyApplicationAccepted,
		Params:  params,
		Payload: map[string]interface{}{"requestId": req.ID, "applicationId": accepted.ID},
	})
	for _, r := range result.Rejected {
		s.Notifier.Emit(ctx, NotifyInput{
			UserID:  r.HelperID,
			Type:    model.NotifyApplicationRejected,
			Params:  params,
			Payload: map[string]interface{}{"requestId": req.ID, "applicationId": r.ID},
		})
	}

	s.Live.ToRequest(req.ID, EventRequestStatusChange, map[string]interface{}{
		"requestId":      req.ID,
		"status":         model.RequestInProgress,
		"previousStatus": model.RequestOpen,
	})
	s.Live.ToRequest(req.ID, EventApplicationAccepted, map[string]interface{}{
		"requestId":     req.ID,
		"applicationId": accepted.ID,
		"helperId":      accepted.HelperID,
	})

	s.Live.ToUser(accepted.HelperID, EventApplicationStatus, map[string]interface{}{
		"applicationId": accepted.ID,
		"requestId":     req.ID,
		"status":        model.ApplicationAccepted,
		"message":       s.liveText(ctx, accepted.HelperID, "live.application_accepted"),
	})
	for _, r := range result.Rejected {
		s.Live.ToUser(r.HelperID, EventApplicationStatus, map[string]interface{}{
			"applicationId": r.ID,
			"requestId":     req.ID,
			"status":        model.ApplicationRejected,
			"message":       s.liveText(ctx, r.HelperID, "live.application_rejected"),
		})
	}
}

// liveText 按接收者语言生成实时推送文案
func (s *ApplicationService) liveText(ctx context.Context, userID uint, messageID string) string {
	lang := ""
	if u, err := util.Memo(ctx, util.UserCacheKey(userID), func() (*model.User, error) {
		return s.UserRepo.FindByID(ctx, userID)
	}); err == nil {
		lang = u.Language
	}
	text, err := s.Translator.Localize(lang, messageID, nil)
	if err != nil {
		logger.Log.Warn("Localize live text failed", zap.String("id", messageID), zap.Error(err))
		return ""
	}
	return text
}

// RemoveApplication 申请人撤回仍为 APPLIED 的申请，求助须为 OPEN
func (s *ApplicationService) RemoveApplication(ctx context.Context, p util.Principal, applicationID string) error {
	app, err := s.findApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.HelperID != p.UserID {
		return util.ErrNotApplicant
	}
	if app.Status != model.ApplicationApplied {
		return util.ErrApplicationNotPending
	}
	req, err := s.Requests.GetRequest(ctx, app.RequestID)
	if err != nil {
		return err
	}
	if req.Status != model.RequestOpen {
		return util.ErrRequestNotOpen
	}

	if err := s.Repo.DeletePending(ctx, applicationID); err != nil {
		return err
	}
	monitoring.ApplicationEvents.WithLabelValues("removed").Inc()
	s.Participants.Invalidate(ctx, req.ID)

	s.Notifier.Emit(ctx, NotifyInput{
		UserID: req.OwnerID,
		Type:   model.NotifyApplicationRemoved,
		Params: map[string]interface{}{
			"RequestTitle": req.Title,
			"ActorName":    s.displayName(ctx, p.UserID),
		},
		Payload: map[string]interface{}{"requestId": req.ID, "applicationId": applicationID},
	})
	s.Live.ToRequest(req.ID, EventApplicationRemoved, map[string]interface{}{
		"requestId":     req.ID,
		"applicationId": applicationID,
		"helperId":      p.UserID,
	})
	return nil
}

// ListApplications 发布者和管理员看到全部申请，其他人只看到自己的
func (s *ApplicationService) ListApplications(ctx context.Context, p util.Principal, requestID string) ([]model.Application, error) {
	req, err := s.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	apps, err := s.Repo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerID == p.UserID || p.IsAdmin() {
		return apps, nil
	}

	own := make([]model.Application, 0, 1)
	for _, a := range apps {
		if a.HelperID == p.UserID {
			own = append(own, a)
		}
	}
	return own, nil
}

func (s *ApplicationService) ListMyApplications(ctx context.Context, p util.Principal, status model.ApplicationStatus) ([]model.Application, error) {
	return s.Repo.ListByHelper(ctx, p.UserID, status)
}
