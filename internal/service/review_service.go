package service

import (
	"context"
	"errors"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/repository"
	"helpmarket_backend/internal/util"
	"helpmarket_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ReviewService struct {
	Repo     *repository.ReviewRepository
	AppRepo  *repository.ApplicationRepository
	UserRepo *repository.UserRepository
	Requests *RequestService
	Notifier *NotificationService
}

func NewReviewService(repo *repository.ReviewRepository, appRepo *repository.ApplicationRepository, userRepo *repository.UserRepository, requests *RequestService, notifier *NotificationService) *ReviewService {
	return &ReviewService{
		Repo:     repo,
		AppRepo:  appRepo,
		UserRepo: userRepo,
		Requests: requests,
		Notifier: notifier,
	}
}

// Eligibility 评价资格：可以评价时 Reason 为 nil
type Eligibility struct {
	Request    *model.HelpRequest `json:"-"`
	RevieweeID uint               `json:"revieweeId,omitempty"`
	Reason     error              `json:"-"`
}

func (e Eligibility) Allowed() bool {
	return e.Reason == nil
}

// eligibility CanReview 与 CreateReview 共用的唯一判定：
// 求助已完成，调用者是发布者或被接受的帮助者，被评价人是另一方，且该三元组尚未评价过。
// 返回的 error 只表示基础设施故障。
func (s *ReviewService) eligibility(ctx context.Context, p util.Principal, requestID string) (Eligibility, error) {
	req, err := s.Requests.GetRequest(ctx, requestID)
	if err != nil {
		if util.KindOf(err) != 0 {
			return Eligibility{Reason: err}, nil
		}
		return Eligibility{}, err
	}
	e := Eligibility{Request: req}

	if req.Status != model.RequestDone {
		e.Reason = util.ErrRequestNotDone
		return e, nil
	}

	accepted, err := s.AppRepo.FindAccepted(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			e.Reason = util.ErrNoAcceptedHelper
			return e, nil
		}
		return Eligibility{}, err
	}

	switch p.UserID {
	case req.OwnerID:
		e.RevieweeID = accepted.HelperID
	case accepted.HelperID:
		e.RevieweeID = req.OwnerID
	default:
		e.Reason = util.ErrNotReviewParticipant
		return e, nil
	}

	exists, err := s.Repo.Exists(ctx, requestID, p.UserID, e.RevieweeID)
	if err != nil {
		return Eligibility{}, err
	}
	if exists {
		e.Reason = util.ErrAlreadyReviewed
	}
	return e, nil
}

func (s *ReviewService) CanReview(ctx context.Context, p util.Principal, requestID string) (Eligibility, error) {
	return s.eligibility(ctx, p, requestID)
}

// CreateReview revieweeID 可为 0（自动推导为另一方），否则必须与推导结果一致
func (s *ReviewService) CreateReview(ctx context.Context, p util.Principal, requestID string, revieweeID uint, rating int, comment string) (*model.Review, error) {
	if rating < model.MinRating || rating > model.MaxRating {
		return nil, util.ErrInvalidRating
	}

	e, err := s.eligibility(ctx, p, requestID)
	if err != nil {
		return nil, err
	}
	if !e.Allowed() {
		return nil, e.Reason
	}
	if revieweeID != 0 && revieweeID != e.RevieweeID {
		return nil, util.ErrRevieweeMismatch
	}

	review := &model.Review{
		RequestID:  requestID,
		ReviewerID: p.UserID,
		RevieweeID: e.RevieweeID,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
	}
	summary, err := s.Repo.CreateAndRecompute(ctx, review)
	if err != nil {
		return nil, err
	}
	util.Forget(ctx, util.UserCacheKey(e.RevieweeID))

	logger.Log.Info("Review created",
		zap.String("requestId", requestID),
		zap.Uint("reviewerId", p.UserID),
		zap.Uint("revieweeId", e.RevieweeID),
		zap.String("ratingAvg", summary.Average.StringFixed(2)))

	actor := ""
	if u, err := util.Memo(ctx, util.UserCacheKey(p.UserID), func() (*model.User, error) {
		return s.UserRepo.FindByID(ctx, p.UserID)
	}); err == nil {
		actor = u.Name
	}
	s.Notifier.Emit(ctx, NotifyInput{
		UserID: e.RevieweeID,
		Type:   model.NotifyNewReview,
		Params: map[string]interface{}{
			"ActorName":    actor,
			"Rating":       rating,
			"RequestTitle": e.Request.Title,
		},
		Payload: map[string]interface{}{"requestId": requestID, "reviewId": review.ID, "rating": rating},
	})

	return review, nil
}

func (s *ReviewService) ListUserReviews(ctx context.Context, userID uint, page, limit int) ([]model.Review, int64, error) {
	page, limit = util.NormalizePage(page, limit)
	return s.Repo.ListByReviewee(ctx, userID, (page-1)*limit, limit)
}

func (s *ReviewService) ListRequestReviews(ctx context.Context, requestID string) ([]model.Review, error) {
	if _, err := s.Requests.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return s.Repo.ListByRequest(ctx, requestID)
}
