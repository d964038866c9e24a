package service_test

import (
	"testing"
	"time"

	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/testutil"
	"helpmarket_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyLocalizesAndPushes(t *testing.T) {
	env := testutil.NewEnv(t)
	ana := env.Resident(t, "ana")

	n, err := env.Notifications.Notify(testutil.Ctx(), service.NotifyInput{
		UserID:  ana.UserID,
		Type:    model.NotifyApplicationAccepted,
		Params:  map[string]interface{}{"RequestTitle": "Limpezas"},
		Payload: map[string]interface{}{"requestId": "r1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Candidatura aceite", n.Title)
	assert.Contains(t, n.Message, "Limpezas")
	assert.JSONEq(t, `{"requestId":"r1"}`, string(n.Payload))
	assert.Equal(t, 1, env.Live.Count(service.UserRoom(ana.UserID), service.EventUserNotification))

	// 邮件异步发送
	assert.Eventually(t, func() bool { return len(env.Mailer.Sent()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "Candidatura aceite", env.Mailer.Sent()[0].Subject)
}

func TestNotifyWithoutEmail(t *testing.T) {
	env := testutil.NewEnv(t)
	ana := env.Resident(t, "ana")

	_, err := env.Notifications.Notify(testutil.Ctx(), service.NotifyInput{
		UserID: ana.UserID,
		Type:   model.NotifyNewMessage,
		Params: map[string]interface{}{"RequestTitle": "x", "ActorName": "y"},
	})
	require.NoError(t, err)
	assert.Never(t, func() bool { return len(env.Mailer.Sent()) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestNotifyUsesRecipientLanguage(t *testing.T) {
	env := testutil.NewEnv(t)
	ana := env.Resident(t, "ana")
	_, err := env.Users.UpdateProfile(testutil.Ctx(), ana, service.UpdateProfileInput{Language: strPtr("en")})
	require.NoError(t, err)

	n, err := env.Notifications.Notify(testutil.Ctx(), service.NotifyInput{
		UserID: ana.UserID,
		Type:   model.NotifyReportReceived,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "Denúncia recebida", n.Title)
}

func TestNotificationInbox(t *testing.T) {
	env := testutil.NewEnv(t)
	ana := env.Resident(t, "ana")
	bruno := env.Resident(t, "bruno")

	env.Notifications.NotifyMany(testutil.Ctx(), []uint{ana.UserID, ana.UserID, 0}, service.NotifyInput{
		Type: model.NotifyReportReceived,
	})
	env.Notifications.Emit(testutil.Ctx(), service.NotifyInput{UserID: ana.UserID, Type: model.NotifyReportDismissed})

	list, total, err := env.Notifications.ListNotifications(testutil.Ctx(), ana, false, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)

	count, err := env.Notifications.UnreadCount(testutil.Ctx(), ana)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	_, err = env.Notifications.MarkRead(testutil.Ctx(), bruno, list[0].ID, true)
	assert.ErrorIs(t, err, util.ErrNotificationMissing)

	read, err := env.Notifications.MarkRead(testutil.Ctx(), ana, list[0].ID, true)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	unread, _, err := env.Notifications.ListNotifications(testutil.Ctx(), ana, true, 1, 10)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	n, err := env.Notifications.MarkAllRead(testutil.Ctx(), ana)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.ErrorIs(t, env.Notifications.DeleteNotification(testutil.Ctx(), bruno, list[1].ID), util.ErrNotificationMissing)
	require.NoError(t, env.Notifications.DeleteNotification(testutil.Ctx(), ana, list[1].ID))
	_, total, err = env.Notifications.ListNotifications(testutil.Ctx(), ana, false, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
