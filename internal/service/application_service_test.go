package service_test

import (
	"sync"
	"testing"

	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/testutil"
	"helpmarket_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyToRequest(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Resident(t, "ana")
	helper := env.Resident(t, "bruno")
	req := env.CreateRequest(t, owner, "Limpezas de primavera")

	t.Run("owner cannot apply", func(t *testing.T) {
		_, err := env.Applications.ApplyToRequest(testutil.Ctx(), owner, req.ID, "eu")
		assert.ErrorIs(t, err, util.ErrSelfApplication)
	})

	t.Run("first application succeeds", func(t *testing.T) {
		app, err := env.Applications.ApplyToRequest(testutil.Ctx(), helper, req.ID, "  posso ajudar ")
		require.NoError(t, err)
		assert.Equal(t, model.ApplicationApplied, app.Status)
		assert.Equal(t, "posso ajudar", app.Message)
		assert.Contains(t, env.NotificationTypes(t, owner.UserID), model.NotifyNewApplication)
		assert.Equal(t, 1, env.Live.Count(service.RequestRoom(req.ID), service.EventNewApplication))
	})

	t.Run("second application is refused", func(t *testing.T) {
		_, err := env.Applications.ApplyToRequest(testutil.Ctx(), helper, req.ID, "outra vez")
		assert.ErrorIs(t, err, util.ErrAlreadyApplied)
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := env.Applications.ApplyToRequest(testutil.Ctx(), helper, "missing", "")
		assert.ErrorIs(t, err, util.ErrRequestNotFound)
	})
}

func TestApplyNotifiesEarlierApplicants(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Resident(t, "ana")
	first := env.Resident(t, "bruno")
	second := env.Resident(t, "carla")
	req := env.CreateRequest(t, owner, "Compras")

	_, err := env.Applications.ApplyToRequest(testutil.Ctx(), first, req.ID, "")
	require.NoError(t, err)
	_, err = env.Applications.ApplyToRequest(testutil.Ctx(), second, req.ID, "")
	require.NoError(t, err)

	assert.Contains(t, env.NotificationTypes(t, first.UserID), model.NotifyOtherApplicant)
	assert.NotContains(t, env.NotificationTypes(t, second.UserID), model.NotifyOtherApplicant)
}

func TestApplyToClosedRequest(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Resident(t, "ana")
	helper := env.Resident(t, "bruno")
	req := env.CreateRequest(t, owner, "Jardim")

	_, err := env.Requests.UpdateRequestStatus(testutil.Ctx(), owner, req.ID, model.RequestCancelled)
	require.NoError(t, err)

	_, err = env.Applications.ApplyToRequest(testutil.Ctx(), helper, req.ID, "")
	assert.ErrorIs(t, err, util.ErrRequestNotOpen)
}

func TestAcceptApplication(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Resident(t, "ana")
	chosen := env.Resident(t, "bruno")
	other := env.Resident(t, "carla")
	req := env.CreateRequest(t, owner, "Mudança")

	a1, err := env.Applications.ApplyToRequest(testutil.Ctx(), chosen, req.ID, "")
	require.NoError(t, err)
	a2, err := env.Applications.ApplyToRequest(testutil.Ctx(), other, req.ID, "")
	require.NoError(t, err)

	t.Run("only the owner may accept", func(t *testing.T) {
		_, err := env.Applications.AcceptApplication(testutil.Ctx(), other, a1.ID)
		assert.ErrorIs(t, err, util.ErrNotRequestOwner)
	})

	accepted, err := env.Applications.AcceptApplication(testutil.Ctx(), owner, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationAccepted, accepted.Status)

	got, err := env.Requests.GetRequest(testutil.Ctx(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestInProgress, got.Status)

	rejected, err := env.ApplicationRepo.FindByID(testutil.Ctx(), a2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationRejected, rejected.Status)

	assert.Contains(t, env.NotificationTypes(t, chosen.UserID), model.NotifyApplicationAccepted)
	assert.Contains(t, env.NotificationTypes(t, other.UserID), model.NotifyApplicationRejected)
	assert.Equal(t, 1, env.Live.Count(service.RequestRoom(req.ID), service.EventApplicationAccepted))
	assert.Equal(t, 1, env.Live.Count(service.UserRoom(other.UserID), service.EventApplicationStatus))

	t.Run("a second accept is refused", func(t *testing.T) {
		_, err := env.Applications.AcceptApplication(testutil.Ctx(), owner, a2.ID)
		assert.ErrorIs(t, err, util.ErrRequestNotOpen)
	})
}

// 两个接受操作并发时只有一个成功，且最终只有一条 ACCEPTED
func TestAcceptApplicationConcurrent(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Resident(t, "ana")
	req := env.CreateRequest(t, owner, "Pintar a sala")

	var ids []string
	for _, name := range []string{"bruno", "carla", "duarte"} {
		h := env.Resident(t, name)
		app, err := env.Applications.ApplyToRequest(testutil.Ctx(), h, req.ID, "")
		require.NoError(t, err)
		ids = append(ids, app.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = env.Applications.AcceptApplication(testutil.Ctx(), owner, id)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, util.KindValidation, util.KindOf(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	apps, err := env.ApplicationRepo.ListByRequest(testutil.Ctx(), req.ID)
	require.NoError(t, err)
	counts := map[model.ApplicationStatus]int{}
	for _, a := range apps {
		counts[a.Status]++
	}
	assert.Equal(t, 1, counts[model.ApplicationAccepted])
	assert.Equal(t, len(ids)-1, counts[model.ApplicationRejected])
	assert.Zero(t, counts[model.ApplicationApplied])
}

func TestRemoveApplication(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Resident(t, "ana")
	helper := env.Resident(t, "bruno")
	stranger := env.Resident(t, "carla")
	req := env.CreateRequest(t, owner, "Passear o cão")

	app, err := env.Applications.ApplyToRequest(testutil.Ctx(), helper, req.ID, "")
	require.NoError(t, err)

	err = env.Applications.RemoveApplication(testutil.Ctx(), stranger, app.ID)
	assert.ErrorIs(t, err, util.ErrNotApplicant)

	require.NoError(t, env.Applications.RemoveApplication(testutil.Ctx(), helper, app.ID))
	assert.Contains(t, env.NotificationTypes(t, owner.UserID), model.NotifyApplicationRemoved)

	_, err = env.Applications.AcceptApplication(testutil.Ctx(), owner, app.ID)
	assert.ErrorIs(t, err, util.ErrApplicationNotFound)

	// 撤回后可以重新申请
	_, err = env.Applications.ApplyToRequest(testutil.Ctx(), helper, req.ID, "de novo")
	assert.NoError(t, err)
}

func TestRemoveAcceptedApplication(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Resident(t, "ana")
	helper := env.Resident(t, "bruno")
	req := env.CreateRequest(t, owner, "Arranjar torneira")

	app, err := env.Applications.ApplyToRequest(testutil.Ctx(), helper, req.ID, "")
	require.NoError(t, err)
	_, err = env.Applications.AcceptApplication(testutil.Ctx(), owner, app.ID)
	require.NoError(t, err)

	err = env.Applications.RemoveApplication(testutil.Ctx(), helper, app.ID)
	assert.ErrorIs(t, err, util.ErrApplicationNotPending)
}

func TestListApplicationsVisibility(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Resident(t, "ana")
	b := env.Resident(t, "bruno")
	c := env.Resident(t, "carla")
	admin := env.CreateUser(t, "admin", model.Admin)
	req := env.CreateRequest(t, owner, "Companhia")

	_, err := env.Applications.ApplyToRequest(testutil.Ctx(), b, req.ID, "")
	require.NoError(t, err)
	_, err = env.Applications.ApplyToRequest(testutil.Ctx(), c, req.ID, "")
	require.NoError(t, err)

	all, err := env.Applications.ListApplications(testutil.Ctx(), owner, req.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	all, err = env.Applications.ListApplications(testutil.Ctx(), admin, req.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := env.Applications.ListApplications(testutil.Ctx(), b, req.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, b.UserID, own[0].HelperID)

	mine, err := env.Applications.ListMyApplications(testutil.Ctx(), c, "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
