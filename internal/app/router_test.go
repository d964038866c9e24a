package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"helpmarket_backend/internal/controller"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/testutil"
	"helpmarket_backend/internal/util"
	"helpmarket_backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(env *testutil.Env) *gin.Engine {
	gin.SetMode(gin.TestMode)
	hub := service.NewLiveHub(nil, security.NewOriginSet(nil))
	c := &controllers{
		auth:         controller.NewAuthController(env.Auth, env.Users),
		user:         controller.NewUserController(env.Users),
		request:      controller.NewRequestController(env.Requests),
		application:  controller.NewApplicationController(env.Applications),
		message:      controller.NewMessageController(env.Messages),
		review:       controller.NewReviewController(env.Reviews),
		report:       controller.NewReportController(env.Reports),
		notification: controller.NewNotificationController(env.Notifications),
		upload:       controller.NewUploadController(service.NewStorageService(env.Config)),
		live:         controller.NewLiveController(hub),
		health:       controller.NewHealthController(env.DB, nil),
	}
	repos := &repositories{user: env.UserRepo}

	r := gin.New()
	(&App{}).registerRoutes(r, c, repos, env.Config)
	return r
}

func get(t *testing.T, env *testutil.Env, r *gin.Engine, path string, p util.Principal) int {
	t.Helper()
	user, err := env.UserRepo.FindByID(testutil.Ctx(), p.UserID)
	require.NoError(t, err)
	tok, err := util.GenerateJWT(user, env.Config.JWT.Secret, env.Config.JWT.ExpireTime)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestReportDetailRoute(t *testing.T) {
	env := testutil.NewEnv(t)
	r := testRouter(env)

	admin := env.CreateUser(t, "admin", model.Admin)
	reporter := env.Resident(t, "ana")
	target := env.Resident(t, "bruno")
	outsider := env.Resident(t, "carla")

	report, err := env.Reports.ReportUser(testutil.Ctx(), reporter, target.UserID, "spam", "")
	require.NoError(t, err)
	path := "/api/reports/" + report.ID

	assert.Equal(t, http.StatusOK, get(t, env, r, path, reporter))
	assert.Equal(t, http.StatusOK, get(t, env, r, path, admin))
	assert.Equal(t, http.StatusForbidden, get(t, env, r, path, outsider))

	// 列表仍然只对管理员开放
	assert.Equal(t, http.StatusForbidden, get(t, env, r, "/api/admin/reports", reporter))
	assert.Equal(t, http.StatusOK, get(t, env, r, "/api/admin/reports", admin))
}
