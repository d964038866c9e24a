package service

import (
	"context"
	"fmt"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/repository"
	"helpmarket_backend/internal/util"
	"helpmarket_backend/pkg/logger"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const participantTTL = 10 * time.Minute

// ParticipantCache 求助聊天参与者 ID 集合的 Redis 缓存，Redis 为 nil 时不缓存
type ParticipantCache struct {
	Redis *redis.Client
}

func NewParticipantCache(rdb *redis.Client) *ParticipantCache {
	return &ParticipantCache{Redis: rdb}
}

func participantKey(requestID string) string {
	return "help:participants:" + requestID
}

func (c *ParticipantCache) Get(ctx context.Context, requestID string) ([]uint, bool) {
	if c == nil || c.Redis == nil {
		return nil, false
	}
	cached, err := c.Redis.SMembers(ctx, participantKey(requestID)).Result()
	if err != nil || len(cached) == 0 {
		return nil, false
	}
	ids := make([]uint, 0, len(cached))
	for _, s := range cached {
		// 0 是空集合占位
		if id, ok := util.ParseID(s); ok {
			ids = append(ids, id)
		}
	}
	return ids, true
}

func (c *ParticipantCache) Set(ctx context.Context, requestID string, ids []uint) {
	if c == nil || c.Redis == nil {
		return
	}
	key := participantKey(requestID)
	pipe := c.Redis.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SAdd(ctx, key, 0)
	for _, id := range ids {
		pipe.SAdd(ctx, key, id)
	}
	pipe.Expire(ctx, key, participantTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("Cache participants failed", zap.String("requestId", requestID), zap.Error(err))
	}
}

// 只在集合已缓存时追加；未缓存时由下一次读取整体加载
var addParticipantScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('SADD', KEYS[1], ARGV[1])
	return 1
end
return 0
`)

// Add 把新发言者加入已缓存的参与者集合
func (c *ParticipantCache) Add(ctx context.Context, requestID string, userID uint) {
	if c == nil || c.Redis == nil {
		return
	}
	if err := addParticipantScript.Run(ctx, c.Redis, []string{participantKey(requestID)}, userID).Err(); err != nil {
		logger.Log.Warn("Add participant failed", zap.String("requestId", requestID), zap.Uint("userId", userID), zap.Error(err))
	}
}

func (c *ParticipantCache) Invalidate(ctx context.Context, requestID string) {
	if c == nil || c.Redis == nil {
		return
	}
	if err := c.Redis.Del(ctx, participantKey(requestID)).Err(); err != nil {
		logger.Log.Warn("Invalidate participants failed", zap.String("requestId", requestID), zap.Error(err))
	}
}

type MessageService struct {
	Repo         *repository.MessageRepository
	AppRepo      *repository.ApplicationRepository
	UserRepo     *repository.UserRepository
	Requests     *RequestService
	Notifier     *NotificationService
	Live         Broadcaster
	Participants *ParticipantCache
}

func NewMessageService(repo *repository.MessageRepository, appRepo *repository.ApplicationRepository, userRepo *repository.UserRepository, requests *RequestService, notifier *NotificationService, live Broadcaster, participants *ParticipantCache) *MessageService {
	return &MessageService{
		Repo:         repo,
		AppRepo:      appRepo,
		UserRepo:     userRepo,
		Requests:     requests,
		Notifier:     notifier,
		Live:         live,
		Participants: participants,
	}
}

// canParticipate 发布者、已接受的帮助者、有 APPLIED/ACCEPTED 申请的人，或求助仍为 OPEN
func (s *MessageService) canParticipate(ctx context.Context, p util.Principal, req *model.HelpRequest) (bool, error) {
	if req.OwnerID == p.UserID || req.Status == model.RequestOpen {
		return true, nil
	}
	return s.AppRepo.HasActive(ctx, req.ID, p.UserID)
}

// CanAccess 读取权限；管理员可以查看所有聊天
func (s *MessageService) CanAccess(ctx context.Context, p util.Principal, req *model.HelpRequest) error {
	if p.IsAdmin() {
		return nil
	}
	ok, err := s.canParticipate(ctx, p, req)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrChatAccessDenied
	}
	return nil
}

// AuthorizeRoom 实时房间的加入校验，与读取聊天同一规则
func (s *MessageService) AuthorizeRoom(ctx context.Context, p util.Principal, requestID string) error {
	req, err := s.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	return s.CanAccess(ctx, p, req)
}

func (s *MessageService) SendMessage(ctx context.Context, p util.Principal, requestID, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, util.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > util.MaxMessageLength {
		return nil, util.ErrMessageTooLong
	}

	req, err := s.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	// 发送不走管理员豁免
	ok, err := s.canParticipate(ctx, p, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrChatAccessDenied
	}

	recipients, err := s.participants(ctx, req)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		RequestID: requestID,
		SenderID:  p.UserID,
		Text:      text,
	}
	if err := s.Repo.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.Participants.Add(ctx, requestID, p.UserID)

	if sender, err := util.Memo(ctx, util.UserCacheKey(p.UserID), func() (*model.User, error) {
		return s.UserRepo.FindByID(ctx, p.UserID)
	}); err == nil {
		msg.Sender = sender
	}

	others := make([]uint, 0, len(recipients))
	for _, id := range recipients {
		if id != p.UserID {
			others = append(others, id)
		}
	}
	actor := ""
	if msg.Sender != nil {
		actor = msg.Sender.Name
	}
	s.Notifier.NotifyMany(ctx, others, NotifyInput{
		Type: model.NotifyNewMessage,
		Params: map[string]interface{}{
			"RequestTitle": req.Title,
			"ActorName":    actor,
		},
		Payload: map[string]interface{}{"requestId": requestID, "messageId": msg.ID},
	})
	s.Live.ToRequest(requestID, EventNewMessage, msg)

	return msg, nil
}

// participants 发布者、所有申请人、之前发过言的人（去重）
func (s *MessageService) participants(ctx context.Context, req *model.HelpRequest) ([]uint, error) {
	if ids, ok := s.Participants.Get(ctx, req.ID); ok {
		return ids, nil
	}

	helpers, err := s.AppRepo.HelperIDs(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("load applicants: %w", err)
	}
	senders, err := s.Repo.SenderIDs(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("load senders: %w", err)
	}

	seen := map[uint]bool{}
	var ids []uint
	for _, group := range [][]uint{{req.OwnerID}, helpers, senders} {
		for _, id := range group {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	s.Participants.Set(ctx, req.ID, ids)
	return ids, nil
}

func (s *MessageService) ListMessages(ctx context.Context, p util.Principal, requestID string, page, limit int) ([]model.Message, int64, error) {
	req, err := s.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.CanAccess(ctx, p, req); err != nil {
		return nil, 0, err
	}
	page, limit = util.NormalizePage(page, limit)
	return s.Repo.ListByRequest(ctx, requestID, (page-1)*limit, limit)
}
