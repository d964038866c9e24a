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

type staticPresence map[uint]bool

func (p staticPresence) IsUserOnline(id uint) bool { return p[id] }

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	env := testutil.NewEnv(t)
	ana := env.Resident(t, "ana")
	ctx := testutil.Ctx()

	// 先读一次，确认更新后缓存失效
	_, err := env.Users.GetProfile(ctx, ana)
	require.NoError(t, err)

	user, err := env.Users.UpdateProfile(ctx, ana, service.UpdateProfileInput{
		Name: strPtr(" Ana Maria "),
		Bio:  strPtr("Vizinha do 3º esquerdo"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", user.Name)
	assert.Equal(t, "Vizinha do 3º esquerdo", user.Bio)

	_, err = env.Users.UpdateProfile(ctx, ana, service.UpdateProfileInput{Language: strPtr("xx")})
	assert.Equal(t, util.KindValidation, util.KindOf(err))
	_, err = env.Users.UpdateProfile(ctx, ana, service.UpdateProfileInput{Name: strPtr(" ")})
	assert.Equal(t, util.KindValidation, util.KindOf(err))
}

func TestPublicProfile(t *testing.T) {
	env := testutil.NewEnv(t)
	ana := env.Resident(t, "ana")
	env.Users.Presence = staticPresence{ana.UserID: true}

	pub, err := env.Users.PublicProfile(testutil.Ctx(), ana.UserID)
	require.NoError(t, err)
	assert.Equal(t, ana.UserID, pub.ID)
	assert.True(t, pub.Online)

	_, err = env.Users.PublicProfile(testutil.Ctx(), 4242)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestChangePassword(t *testing.T) {
	env := testutil.NewEnv(t)
	ana := env.Resident(t, "ana")

	err := env.Users.ChangePassword(testutil.Ctx(), ana, "errada", "novasenha1")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	err = env.Users.ChangePassword(testutil.Ctx(), ana, testutil.TestPassword, "curta")
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	require.NoError(t, env.Users.ChangePassword(testutil.Ctx(), ana, testutil.TestPassword, "novasenha1"))
	user, err := env.UserRepo.FindByID(testutil.Ctx(), ana.UserID)
	require.NoError(t, err)
	_, err = env.Auth.Login(testutil.Ctx(), user.Email, "novasenha1")
	assert.NoError(t, err)
}

func TestAdminUserManagement(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateUser(t, "admin", model.Admin)
	ana := env.Resident(t, "ana")
	env.Resident(t, "bruno")

	_, _, err := env.Users.ListUsers(testutil.Ctx(), ana, service.UserListFilter{}, 1, 10)
	assert.ErrorIs(t, err, util.ErrAdminOnly)

	_, err = env.Users.SetUserActive(testutil.Ctx(), admin, admin.UserID, false)
	assert.Equal(t, util.KindValidation, util.KindOf(err))
	_, err = env.Users.SetUserRole(testutil.Ctx(), admin, admin.UserID, model.Resident)
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	blocked, err := env.Users.SetUserActive(testutil.Ctx(), admin, ana.UserID, false)
	require.NoError(t, err)
	assert.True(t, blocked.Disabled)
	assert.Equal(t, []model.NotificationType{model.NotifyAccountBlocked}, env.NotificationTypes(t, ana.UserID))

	// 重复封禁不再通知
	_, err = env.Users.SetUserActive(testutil.Ctx(), admin, ana.UserID, false)
	require.NoError(t, err)
	assert.Len(t, env.NotificationTypes(t, ana.UserID), 1)

	active := false
	list, total, err := env.Users.ListUsers(testutil.Ctx(), admin, service.UserListFilter{Active: &active}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, ana.UserID, list[0].ID)

	restored, err := env.Users.SetUserActive(testutil.Ctx(), admin, ana.UserID, true)
	require.NoError(t, err)
	assert.False(t, restored.Disabled)

	promoted, err := env.Users.SetUserRole(testutil.Ctx(), admin, ana.UserID, model.Admin)
	require.NoError(t, err)
	assert.Equal(t, model.Admin, promoted.Role)

	_, err = env.Users.SetUserRole(testutil.Ctx(), admin, ana.UserID, "superuser")
	assert.Equal(t, util.KindValidation, util.KindOf(err))
}
