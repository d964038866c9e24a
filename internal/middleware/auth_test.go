package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"helpmarket_backend/internal/config"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "middleware-test-secret-0123456789abcdef"

type fakeUsers struct {
	users map[uint]*model.User
}

func (f *fakeUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

type fakeActivity struct {
	mu   sync.Mutex
	seen []uint
}

func (f *fakeActivity) UpdateLastSeen(ctx context.Context, userID uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, userID)
	return nil
}

func (f *fakeActivity) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func token(t *testing.T, id uint, role model.UserRole) string {
	t.Helper()
	user := &model.User{Email: "x@example.pt", Role: role}
	user.ID = id
	tok, err := util.GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func newRouter(users UserLookup, activity UserActivityRepo, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	r := gin.New()
	r.Use(RequestCacheMiddleware())
	handlers := []gin.HandlerFunc{AuthMiddleware(cfg), ActiveUserMiddleware(users), ActivityMiddleware(activity)}
	handlers = append(handlers, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		p, _ := util.GetPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"userId": p.UserID, "role": p.Role})
	})
	r.GET("/me", handlers...)
	return r
}

func do(r *gin.Engine, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	users := &fakeUsers{users: map[uint]*model.User{
		1: {Role: model.Resident},
		2: {Role: model.Resident, Disabled: true},
	}}
	activity := &fakeActivity{}
	r := newRouter(users, activity)

	tests := []struct {
		name   string
		target string
		bearer string
		status int
	}{
		{"missing token", "/me", "", http.StatusUnauthorized},
		{"garbage token", "/me", "not-a-jwt", http.StatusUnauthorized},
		{"valid header", "/me", token(t, 1, model.Resident), http.StatusOK},
		{"query token", "/me?token=" + token(t, 1, model.Resident), "", http.StatusOK},
		{"blocked account", "/me", token(t, 2, model.Resident), http.StatusForbidden},
		{"deleted account", "/me", token(t, 9, model.Resident), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.target, tt.bearer)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	assert.Eventually(t, func() bool { return activity.count() == 2 }, time.Second, 10*time.Millisecond)
}

func TestAuthMiddlewareWrongSecret(t *testing.T) {
	r := newRouter(&fakeUsers{users: map[uint]*model.User{1: {}}}, &fakeActivity{})

	user := &model.User{Role: model.Resident}
	user.ID = 1
	forged, err := util.GenerateJWT(user, "another-secret-another-secret-123", time.Hour)
	require.NoError(t, err)

	w := do(r, "/me", forged)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminOnlyUsesStoredRole(t *testing.T) {
	users := &fakeUsers{users: map[uint]*model.User{
		1: {Role: model.Admin},
		2: {Role: model.Resident},
	}}
	r := newRouter(users, &fakeActivity{}, AdminOnly())

	assert.Equal(t, http.StatusOK, do(r, "/me", token(t, 1, model.Admin)).Code)
	// 令牌中的管理员角色已被撤销
	assert.Equal(t, http.StatusForbidden, do(r, "/me", token(t, 2, model.Admin)).Code)
}

type failingUsers struct{}

func (failingUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	return nil, errors.New("connection refused")
}

func TestActiveUserMiddlewareStoreFailure(t *testing.T) {
	r := newRouter(failingUsers{}, &fakeActivity{})
	assert.Equal(t, http.StatusInternalServerError, do(r, "/me", token(t, 1, model.Resident)).Code)
}
