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

func TestRegister(t *testing.T) {
	env := testutil.NewEnv(t)

	user, err := env.Auth.Register(testutil.Ctx(), service.RegisterInput{
		Name:     "  Ana Silva ",
		Email:    " Ana@Example.PT ",
		Password: "segredo123",
		Language: "EN",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", user.Name)
	assert.Equal(t, "ana@example.pt", user.Email)
	assert.Equal(t, model.Resident, user.Role)
	assert.Equal(t, "Lisboa", user.City)
	assert.Equal(t, "en", user.Language)
	assert.NotEqual(t, "segredo123", user.Password)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := env.Auth.Register(testutil.Ctx(), service.RegisterInput{
			Name: "Outra", Email: "ANA@example.pt", Password: "segredo123",
		})
		assert.ErrorIs(t, err, util.ErrEmailRegistered)
	})

	t.Run("short password", func(t *testing.T) {
		_, err := env.Auth.Register(testutil.Ctx(), service.RegisterInput{
			Name: "Rui", Email: "rui@example.pt", Password: "curta",
		})
		assert.Equal(t, util.KindValidation, util.KindOf(err))
	})

	t.Run("unknown language falls back", func(t *testing.T) {
		u, err := env.Auth.Register(testutil.Ctx(), service.RegisterInput{
			Name: "Rui", Email: "rui@example.pt", Password: "segredo123", Language: "klingon",
		})
		require.NoError(t, err)
		assert.Equal(t, "pt", u.Language)
	})
}

func TestLogin(t *testing.T) {
	env := testutil.NewEnv(t)
	_, err := env.Auth.Register(testutil.Ctx(), service.RegisterInput{
		Name: "Ana", Email: "ana@example.pt", Password: "segredo123",
	})
	require.NoError(t, err)

	_, err = env.Auth.Login(testutil.Ctx(), "ana@example.pt", "errada123")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, err = env.Auth.Login(testutil.Ctx(), "ninguem@example.pt", "segredo123")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	result, err := env.Auth.Login(testutil.Ctx(), "ANA@example.pt", "segredo123")
	require.NoError(t, err)
	require.NotNil(t, result.User.LastLogin)

	claims, err := util.ParseJWT(result.Token, testutil.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, model.Resident, claims.Role)
}
