package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndRecomputeConcurrentReviews(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	helper := env.Resident(t, "bruno")

	ratings := []int{5, 4, 4, 3, 5, 2}
	reviews := make([]*model.Review, len(ratings))
	for i, rating := range ratings {
		owner := env.Resident(t, fmt.Sprintf("dono%d", i))
		req := env.CreateRequest(t, owner, fmt.Sprintf("Pedido %d", i))
		reviews[i] = &model.Review{RequestID: req.ID, ReviewerID: owner.UserID, RevieweeID: helper.UserID, Rating: rating}
	}

	var wg sync.WaitGroup
	errs := make([]error, len(reviews))
	for i := range reviews {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.ReviewRepo.CreateAndRecompute(ctx, reviews[i])
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	// (5+4+4+3+5+2)/6 = 3.8333
	user, err := env.UserRepo.FindByID(ctx, helper.UserID)
	require.NoError(t, err)
	assert.Equal(t, len(ratings), user.RatingCount)
	assert.Equal(t, "3.83", user.RatingAvg.StringFixed(2))
}

func TestCreateAndRecomputeUnknownReviewee(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	owner := env.Resident(t, "ana")
	req := env.CreateRequest(t, owner, "Pedido")

	_, err := env.ReviewRepo.CreateAndRecompute(ctx, &model.Review{RequestID: req.ID, ReviewerID: owner.UserID, RevieweeID: 9999, Rating: 5})
	require.Error(t, err)

	var count int64
	require.NoError(t, env.DB.Model(&model.Review{}).Count(&count).Error)
	assert.Zero(t, count)
}
