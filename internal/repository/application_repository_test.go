package repository_test

import (
	"context"
	"errors"
	"testing"

	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/repository"
	"helpmarket_backend/internal/testutil"
	"helpmarket_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptRollsBackOnStaleApplication(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	owner := env.Resident(t, "ana")
	helper := env.Resident(t, "bruno")
	req := env.CreateRequest(t, owner, "Pedido")

	app := &model.Application{RequestID: req.ID, HelperID: helper.UserID, Status: model.ApplicationRejected}
	require.NoError(t, env.ApplicationRepo.Create(ctx, app))

	_, err := env.ApplicationRepo.Accept(ctx, app.ID, req.ID)
	assert.ErrorIs(t, err, util.ErrApplicationNotPending)

	// 求助状态的更新随事务回滚
	got, err := env.RequestRepo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestOpen, got.Status)
}

func TestDuplicateApplicationIsDetected(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	owner := env.Resident(t, "ana")
	helper := env.Resident(t, "bruno")
	req := env.CreateRequest(t, owner, "Pedido")

	require.NoError(t, env.ApplicationRepo.Create(ctx, &model.Application{RequestID: req.ID, HelperID: helper.UserID}))
	err := env.ApplicationRepo.Create(ctx, &model.Application{RequestID: req.ID, HelperID: helper.UserID})
	assert.ErrorIs(t, err, util.ErrAlreadyApplied)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, repository.IsDuplicateKey(nil))
	assert.True(t, repository.IsDuplicateKey(errors.New("Error 1062: Duplicate entry 'a@b' for key 'idx_users_email'")))
	assert.True(t, repository.IsDuplicateKey(errors.New("UNIQUE constraint failed: users.email")))
	assert.False(t, repository.IsDuplicateKey(errors.New("connection reset")))
}

func TestTransitionIsConditional(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	owner := env.Resident(t, "ana")
	req := env.CreateRequest(t, owner, "Pedido")

	_, err := env.RequestRepo.Transition(ctx, req.ID, model.RequestInProgress, model.RequestDone)
	assert.ErrorIs(t, err, util.ErrInvalidTransition)

	_, err = env.RequestRepo.Transition(ctx, req.ID, model.RequestOpen, model.RequestCancelled)
	require.NoError(t, err)
	_, err = env.RequestRepo.Transition(ctx, req.ID, model.RequestOpen, model.RequestCancelled)
	assert.ErrorIs(t, err, util.ErrInvalidTransition)
}

func TestRecomputeAll(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	owner := env.Resident(t, "ana")
	helper := env.Resident(t, "bruno")
	req := env.CreateRequest(t, owner, "Pedido")

	require.NoError(t, env.DB.Create(&model.Review{RequestID: req.ID, ReviewerID: owner.UserID, RevieweeID: helper.UserID, Rating: 4}).Error)

	n, err := env.ReviewRepo.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	user, err := env.UserRepo.FindByID(ctx, helper.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, user.RatingCount)
	assert.Equal(t, "4.00", user.RatingAvg.StringFixed(2))
}
