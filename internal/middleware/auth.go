package middleware

import (
	"context"
	"errors"
	"helpmarket_backend/internal/config"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/util"
	"helpmarket_backend/pkg/logger"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthMiddleware 解析 JWT 并构造 Principal；websocket 握手可通过 token 查询参数传递
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("JWT parse failed", zap.Error(err), zap.String("path", c.FullPath()))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		util.SetPrincipal(c, util.Principal{UserID: claims.UserID, Role: claims.Role})
		c.Next()
	}
}

func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := util.GetPrincipal(c)
		if !ok {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := false
		for _, role := range roles {
			if p.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RoleMiddleware(model.Admin)
}

type UserLookup interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// ActiveUserMiddleware 拒绝已被封禁或已不存在的账号（令牌仍在有效期内的情况）
func ActiveUserMiddleware(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := util.GetPrincipal(c)
		if !ok {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		user, err := util.Memo(ctx, util.UserCacheKey(p.UserID), func() (*model.User, error) {
			return users.FindByID(ctx, p.UserID)
		})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				util.Unauthorized(c)
			} else {
				util.LogInternalError(c, err)
			}
			c.Abort()
			return
		}
		if user.Disabled {
			util.RespondError(c, util.ErrAccountDisabled)
			c.Abort()
			return
		}

		// 角色以数据库为准，令牌签发后被降级的管理员立即失效
		if user.Role != p.Role {
			p.Role = user.Role
			util.SetPrincipal(c, p)
		}
		c.Next()
	}
}

type UserActivityRepo interface {
	UpdateLastSeen(ctx context.Context, userID uint, at time.Time) error
}

func ActivityMiddleware(repo UserActivityRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, ok := util.GetPrincipal(c); ok {
			// 异步更新，不阻塞主流程
			go func(userID uint) {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := repo.UpdateLastSeen(ctx, userID, time.Now()); err != nil {
					logger.Log.Warn("Failed to update last seen", zap.Uint("userID", userID), zap.Error(err))
				}
			}(p.UserID)
		}
		c.Next()
	}
}

// RequestCacheMiddleware 每个请求一份查询缓存，随 context 传给服务层
func RequestCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := util.WithRequestCache(c.Request.Context(), util.NewRequestCache())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
