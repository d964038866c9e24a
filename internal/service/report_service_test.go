package service_test

import (
	"testing"

	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/testutil"
	"helpmarket_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportUser(t *testing.T) {
	env := testutil.NewEnv(t)
	reporter := env.Resident(t, "ana")
	target := env.Resident(t, "bruno")

	_, err := env.Reports.ReportUser(testutil.Ctx(), reporter, target.UserID, "  ", "")
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	_, err = env.Reports.ReportUser(testutil.Ctx(), reporter, 9999, "spam", "")
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	report, err := env.Reports.ReportUser(testutil.Ctx(), reporter, target.UserID, "spam", "mensagens repetidas")
	require.NoError(t, err)
	assert.Equal(t, model.ReportPending, report.Status)
	assert.Contains(t, env.NotificationTypes(t, reporter.UserID), model.NotifyReportReceived)
	assert.Contains(t, env.NotificationTypes(t, target.UserID), model.NotifyReportFiled)
}

func TestResolveReportActions(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateUser(t, "admin", model.Admin)
	reporter := env.Resident(t, "ana")

	t.Run("admin only", func(t *testing.T) {
		target := env.Resident(t, "bruno")
		report, err := env.Reports.ReportUser(testutil.Ctx(), reporter, target.UserID, "spam", "")
		require.NoError(t, err)
		_, err = env.Reports.ResolveReport(testutil.Ctx(), reporter, report.ID, "WARNING", "")
		assert.ErrorIs(t, err, util.ErrAdminOnly)
		_, err = env.Reports.ResolveReport(testutil.Ctx(), admin, report.ID, "BANIR", "")
		assert.ErrorIs(t, err, util.ErrUnknownModerationAction)
	})

	t.Run("warning", func(t *testing.T) {
		target := env.Resident(t, "bruno")
		report, err := env.Reports.ReportUser(testutil.Ctx(), reporter, target.UserID, "linguagem", "")
		require.NoError(t, err)

		resolved, err := env.Reports.ResolveReport(testutil.Ctx(), admin, report.ID, "WARNING", " cuidado ")
		require.NoError(t, err)
		assert.Equal(t, model.ReportResolved, resolved.Status)
		assert.Equal(t, string(model.ActionWarning), resolved.Action)
		assert.Equal(t, "cuidado", resolved.AdminNotes)
		require.NotNil(t, resolved.HandledByID)
		assert.Equal(t, admin.UserID, *resolved.HandledByID)

		assert.Contains(t, env.NotificationTypes(t, target.UserID), model.NotifyModerationWarning)
		assert.Contains(t, env.NotificationTypes(t, reporter.UserID), model.NotifyReportResolved)

		_, err = env.Reports.ResolveReport(testutil.Ctx(), admin, report.ID, "NO_ACTION", "")
		assert.ErrorIs(t, err, util.ErrReportNotPending)
	})

	t.Run("block user", func(t *testing.T) {
		target := env.Resident(t, "bruno")
		report, err := env.Reports.ReportUser(testutil.Ctx(), reporter, target.UserID, "fraude", "")
		require.NoError(t, err)

		_, err = env.Reports.ResolveReport(testutil.Ctx(), admin, report.ID, "BLOCK_USER", "")
		require.NoError(t, err)

		user, err := env.UserRepo.FindByID(testutil.Ctx(), target.UserID)
		require.NoError(t, err)
		assert.True(t, user.Disabled)
		assert.Contains(t, env.NotificationTypes(t, target.UserID), model.NotifyAccountBlocked)

		_, err = env.Auth.Login(testutil.Ctx(), user.Email, testutil.TestPassword)
		assert.ErrorIs(t, err, util.ErrAccountDisabled)
	})

	t.Run("remove request", func(t *testing.T) {
		owner := env.Resident(t, "carla")
		helper := env.Resident(t, "duarte")
		req := env.CreateRequest(t, owner, "Venda duvidosa")
		app, err := env.Applications.ApplyToRequest(testutil.Ctx(), helper, req.ID, "")
		require.NoError(t, err)

		report, err := env.Reports.ReportRequest(testutil.Ctx(), reporter, req.ID, "conteúdo impróprio", "")
		require.NoError(t, err)
		assert.Contains(t, env.NotificationTypes(t, owner.UserID), model.NotifyReportFiled)

		_, err = env.Reports.ResolveReport(testutil.Ctx(), admin, report.ID, "REMOVE_REQUEST", "")
		require.NoError(t, err)

		got, err := env.RequestRepo.FindByID(testutil.Ctx(), req.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RequestCancelled, got.Status)

		pending, err := env.ApplicationRepo.FindByID(testutil.Ctx(), app.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ApplicationRejected, pending.Status)

		assert.Contains(t, env.NotificationTypes(t, owner.UserID), model.NotifyRequestRemoved)
		assert.Contains(t, env.NotificationTypes(t, helper.UserID), model.NotifyApplicationRejected)
	})

	t.Run("remove request in progress tells the accepted helper", func(t *testing.T) {
		owner := env.Resident(t, "carla")
		helper := env.Resident(t, "duarte")
		req := env.CreateRequest(t, owner, "Mudança")
		app, err := env.Applications.ApplyToRequest(testutil.Ctx(), helper, req.ID, "")
		require.NoError(t, err)
		_, err = env.Applications.AcceptApplication(testutil.Ctx(), owner, app.ID)
		require.NoError(t, err)
		before := env.Live.Count(service.RequestRoom(req.ID), service.EventRequestStatusChange)

		report, err := env.Reports.ReportRequest(testutil.Ctx(), reporter, req.ID, "fraude", "")
		require.NoError(t, err)
		_, err = env.Reports.ResolveReport(testutil.Ctx(), admin, report.ID, "REMOVE_REQUEST", "")
		require.NoError(t, err)

		got, err := env.RequestRepo.FindByID(testutil.Ctx(), req.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RequestCancelled, got.Status)

		assert.Contains(t, env.NotificationTypes(t, helper.UserID), model.NotifyRequestStatus)
		assert.Equal(t, before+1, env.Live.Count(service.RequestRoom(req.ID), service.EventRequestStatusChange))

		// 接受的申请保留为历史记录
		accepted, err := env.ApplicationRepo.FindByID(testutil.Ctx(), app.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ApplicationAccepted, accepted.Status)
	})

	t.Run("remove request needs a request target", func(t *testing.T) {
		target := env.Resident(t, "bruno")
		report, err := env.Reports.ReportUser(testutil.Ctx(), reporter, target.UserID, "spam", "")
		require.NoError(t, err)
		_, err = env.Reports.ResolveReport(testutil.Ctx(), admin, report.ID, "REMOVE_REQUEST", "")
		assert.ErrorIs(t, err, util.ErrActionNeedsRequest)

		// 失败不会关闭举报
		again, err := env.Reports.GetReport(testutil.Ctx(), admin, report.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ReportPending, again.Status)
	})

	t.Run("remove finished request is refused", func(t *testing.T) {
		owner := env.Resident(t, "carla")
		helper := env.Resident(t, "duarte")
		req := doneRequest(t, env, owner, helper)
		report, err := env.Reports.ReportRequest(testutil.Ctx(), reporter, req.ID, "spam", "")
		require.NoError(t, err)
		_, err = env.Reports.ResolveReport(testutil.Ctx(), admin, report.ID, "REMOVE_REQUEST", "")
		assert.ErrorIs(t, err, util.ErrInvalidTransition)
	})
}

func TestDismissReport(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateUser(t, "admin", model.Admin)
	reporter := env.Resident(t, "ana")
	target := env.Resident(t, "bruno")

	report, err := env.Reports.ReportUser(testutil.Ctx(), reporter, target.UserID, "spam", "")
	require.NoError(t, err)

	dismissed, err := env.Reports.DismissReport(testutil.Ctx(), admin, report.ID, "sem fundamento")
	require.NoError(t, err)
	assert.Equal(t, model.ReportDismissed, dismissed.Status)
	assert.Contains(t, env.NotificationTypes(t, reporter.UserID), model.NotifyReportDismissed)
	assert.Contains(t, env.NotificationTypes(t, target.UserID), model.NotifyReportDismissed)

	_, err = env.Reports.DismissReport(testutil.Ctx(), admin, report.ID, "")
	assert.ErrorIs(t, err, util.ErrReportNotPending)
}

func TestReportVisibility(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateUser(t, "admin", model.Admin)
	reporter := env.Resident(t, "ana")
	target := env.Resident(t, "bruno")

	report, err := env.Reports.ReportUser(testutil.Ctx(), reporter, target.UserID, "spam", "")
	require.NoError(t, err)

	_, err = env.Reports.GetReport(testutil.Ctx(), reporter, report.ID)
	assert.NoError(t, err)
	_, err = env.Reports.GetReport(testutil.Ctx(), target, report.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	_, err = env.Reports.GetReport(testutil.Ctx(), admin, "missing")
	assert.ErrorIs(t, err, util.ErrReportNotFound)

	_, _, err = env.Reports.ListReports(testutil.Ctx(), reporter, "", 1, 10)
	assert.ErrorIs(t, err, util.ErrAdminOnly)

	list, total, err := env.Reports.ListReports(testutil.Ctx(), admin, model.ReportPending, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}
