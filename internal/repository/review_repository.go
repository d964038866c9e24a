package repository

import (
	"context"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/util"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReviewRepository struct {
	DB *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{DB: db}
}

func (r *ReviewRepository) Exists(ctx context.Context, requestID string, reviewerID, revieweeID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Review{}).
		Where("request_id = ? AND reviewer_id = ? AND reviewee_id = ?", requestID, reviewerID, revieweeID).
		Count(&count).Error
	return count > 0, err
}

// RatingSummary 被评价人的评分汇总
type RatingSummary struct {
	Average decimal.Decimal
	Count   int
}

// CreateAndRecompute 插入评价并在同一事务里重算被评价人的平均分（保留两位小数）
func (r *ReviewRepository) CreateAndRecompute(ctx context.Context, review *model.Review) (*RatingSummary, error) {
	var summary RatingSummary

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先锁住被评价人，同一人的并发评价依次重算，均值不会被旧快照覆盖
		var reviewee model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&reviewee, review.RevieweeID).Error; err != nil {
			return err
		}

		if err := tx.Create(review).Error; err != nil {
			if IsDuplicateKey(err) {
				return util.ErrAlreadyReviewed
			}
			return err
		}

		var agg struct {
			Avg float64
			Cnt int
		}
		if err := tx.Model(&model.Review{}).
			Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS cnt").
			Where("reviewee_id = ?", review.RevieweeID).
			Scan(&agg).Error; err != nil {
			return err
		}

		summary.Average = decimal.NewFromFloat(agg.Avg).Round(2)
		summary.Count = agg.Cnt

		return tx.Model(&model.User{}).
			Where("id = ?", review.RevieweeID).
			Updates(map[string]interface{}{
				"rating_avg":   summary.Average,
				"rating_count": summary.Count,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *ReviewRepository) ListByReviewee(ctx context.Context, revieweeID uint, offset, limit int) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	db := r.DB.WithContext(ctx).Model(&model.Review{}).Where("reviewee_id = ?", revieweeID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Preload("Reviewer").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reviews).Error
	return reviews, total, err
}

func (r *ReviewRepository) ListByRequest(ctx context.Context, requestID string) ([]model.Review, error) {
	var reviews []model.Review
	err := r.DB.WithContext(ctx).
		Preload("Reviewer").
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&reviews).Error
	return reviews, err
}

// RecomputeAll 重算所有被评价用户的平均分，返回更新的用户数
func (r *ReviewRepository) RecomputeAll(ctx context.Context) (int, error) {
	var rows []struct {
		RevieweeID uint
		Avg        float64
		Cnt        int
	}
	if err := r.DB.WithContext(ctx).Model(&model.Review{}).
		Select("reviewee_id, AVG(rating) AS avg, COUNT(*) AS cnt").
		Group("reviewee_id").
		Scan(&rows).Error; err != nil {
		return 0, err
	}

	for _, row := range rows {
		if err := r.DB.WithContext(ctx).Model(&model.User{}).
			Where("id = ?", row.RevieweeID).
			Updates(map[string]interface{}{
				"rating_avg":   decimal.NewFromFloat(row.Avg).Round(2),
				"rating_count": row.Cnt,
			}).Error; err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}
