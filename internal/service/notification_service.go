package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/repository"
	"helpmarket_backend/internal/util"
	"helpmarket_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 需要同时发邮件的通知类型
var emailNotificationTypes = map[model.NotificationType]bool{
	model.NotifyNewApplication:      true,
	model.NotifyApplicationAccepted: true,
	model.NotifyModerationWarning:   true,
	model.NotifyAccountBlocked:      true,
	model.NotifyRequestRemoved:      true,
}

type NotifyInput struct {
	UserID  uint
	Type    model.NotificationType
	Params  map[string]interface{}
	Payload map[string]interface{}
}

type NotificationService struct {
	Repo       *repository.NotificationRepository
	UserRepo   *repository.UserRepository
	Live       Broadcaster
	Mailer     Mailer
	Translator *util.Translator
}

func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, live Broadcaster, mailer Mailer, tr *util.Translator) *NotificationService {
	if mailer == nil {
		mailer = noopMailer{}
	}
	return &NotificationService{
		Repo:       repo,
		UserRepo:   userRepo,
		Live:       live,
		Mailer:     mailer,
		Translator: tr,
	}
}

// Notify 本地化、落库、推送到用户房间，必要时异步发邮件
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) (*model.Notification, error) {
	user, err := util.Memo(ctx, util.UserCacheKey(in.UserID), func() (*model.User, error) {
		return s.UserRepo.FindByID(ctx, in.UserID)
	})
	if err != nil {
		return nil, fmt.Errorf("load recipient %d: %w", in.UserID, err)
	}

	title, err := s.Translator.Localize(user.Language, fmt.Sprintf("notification.%s.title", in.Type), in.Params)
	if err != nil {
		return nil, err
	}
	message, err := s.Translator.Localize(user.Language, fmt.Sprintf("notification.%s.message", in.Type), in.Params)
	if err != nil {
		return nil, err
	}

	n := &model.Notification{
		UserID:  in.UserID,
		Type:    in.Type,
		Title:   title,
		Message: message,
	}
	if len(in.Payload) > 0 {
		raw, err := json.Marshal(in.Payload)
		if err != nil {
			return nil, err
		}
		n.Payload = datatypes.JSON(raw)
	}

	if err := s.Repo.Create(ctx, n); err != nil {
		return nil, err
	}

	if s.Live != nil {
		s.Live.ToUser(in.UserID, EventUserNotification, n)
	}

	if emailNotificationTypes[in.Type] && user.Email != "" {
		go func(to string) {
			if err := s.Mailer.Send(to, title, message); err != nil {
				logger.Log.Warn("Notification email failed",
					zap.Uint("userId", in.UserID),
					zap.String("type", string(in.Type)),
					zap.Error(err))
			}
		}(user.Email)
	}

	return n, nil
}

// Emit 尽力通知，失败只记日志
func (s *NotificationService) Emit(ctx context.Context, in NotifyInput) {
	if _, err := s.Notify(ctx, in); err != nil {
		logger.Log.Warn("Notification failed",
			zap.Uint("userId", in.UserID),
			zap.String("type", string(in.Type)),
			zap.Error(err))
	}
}

// NotifyMany 去重后逐个通知，失败只记日志
func (s *NotificationService) NotifyMany(ctx context.Context, userIDs []uint, in NotifyInput) {
	seen := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		in.UserID = id
		s.Emit(ctx, in)
	}
}

func (s *NotificationService) ListNotifications(ctx context.Context, p util.Principal, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	page, limit = util.NormalizePage(page, limit)
	return s.Repo.ListByUser(ctx, p.UserID, unreadOnly, (page-1)*limit, limit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, p util.Principal) (int64, error) {
	return s.Repo.CountUnread(ctx, p.UserID)
}

// MarkRead 只有通知的接收者可以修改已读状态
func (s *NotificationService) MarkRead(ctx context.Context, p util.Principal, id string, read bool) (*model.Notification, error) {
	n, err := s.Repo.FindForUser(ctx, id, p.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotificationMissing
		}
		return nil, err
	}
	if err := s.Repo.SetRead(ctx, id, p.UserID, read); err != nil {
		return nil, err
	}
	n.IsRead = read
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, p util.Principal) (int64, error) {
	return s.Repo.MarkAllRead(ctx, p.UserID)
}

func (s *NotificationService) DeleteNotification(ctx context.Context, p util.Principal, id string) error {
	ok, err := s.Repo.Delete(ctx, id, p.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrNotificationMissing
	}
	return nil
}
