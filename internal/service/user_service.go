package service

import (
	"context"
	"errors"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/repository"
	"helpmarket_backend/internal/util"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService 处理资料与账号管理
type UserService struct {
	UserRepo *repository.UserRepository
	Notifier *NotificationService
	Tr       *util.Translator
	// Presence 可选，用于公开资料中的在线状态
	Presence Presence
}

type Presence interface {
	IsUserOnline(userID uint) bool
}

func NewUserService(userRepo *repository.UserRepository, notifier *NotificationService, tr *util.Translator) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Notifier: notifier,
		Tr:       tr,
	}
}

// UpdateProfileInput 仅非空字段会被修改
type UpdateProfileInput struct {
	Name     *string `json:"name" binding:"omitempty,max=100"`
	Bio      *string `json:"bio" binding:"omitempty,max=500"`
	Avatar   *string `json:"avatar" binding:"omitempty,max=255"`
	City     *string `json:"city" binding:"omitempty,max=100"`
	Language *string `json:"language"`
}

// UserListFilter 管理端用户筛选
// swagger:model UserListFilter
type UserListFilter struct {
	Query  string
	Active *bool
	Role   model.UserRole
}

func (s *UserService) findUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := util.Memo(ctx, util.UserCacheKey(id), func() (*model.User, error) {
		return s.UserRepo.FindByID(ctx, id)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

func (s *UserService) GetProfile(ctx context.Context, p util.Principal) (*model.User, error) {
	return s.findUser(ctx, p.UserID)
}

// PublicProfile 对外资料，包含评分均值
func (s *UserService) PublicProfile(ctx context.Context, id uint) (*model.PublicUser, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	pub := user.Public()
	if s.Presence != nil {
		pub.Online = s.Presence.IsUserOnline(id)
	}
	return &pub, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, p util.Principal, in UpdateProfileInput) (*model.User, error) {
	fields := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, util.Rejected("o nome é obrigatório")
		}
		fields["name"] = name
	}
	if in.Bio != nil {
		fields["bio"] = strings.TrimSpace(*in.Bio)
	}
	if in.Avatar != nil {
		fields["avatar"] = strings.TrimSpace(*in.Avatar)
	}
	if in.City != nil {
		fields["city"] = strings.TrimSpace(*in.City)
	}
	if in.Language != nil {
		lang := normalizeLanguage(s.Tr, *in.Language)
		if lang == "" {
			return nil, util.Rejected("idioma não suportado")
		}
		fields["language"] = lang
	}

	if len(fields) > 0 {
		if err := s.UserRepo.UpdateFields(ctx, p.UserID, fields); err != nil {
			return nil, err
		}
		util.Forget(ctx, util.UserCacheKey(p.UserID))
	}
	return s.findUser(ctx, p.UserID)
}

func (s *UserService) ChangePassword(ctx context.Context, p util.Principal, oldPassword, newPassword string) error {
	user, err := s.UserRepo.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrUserNotFound
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return util.ErrInvalidCredentials
	}
	if utf8.RuneCountInString(newPassword) < util.MinPasswordLen {
		return util.Rejected("a palavra-passe deve ter pelo menos %d caracteres", util.MinPasswordLen)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.UserRepo.UpdateFields(ctx, p.UserID, map[string]interface{}{"password": string(hashed)})
}

// ListUsers 管理端分页查询
func (s *UserService) ListUsers(ctx context.Context, p util.Principal, f UserListFilter, page, limit int) ([]model.User, int64, error) {
	if !p.IsAdmin() {
		return nil, 0, util.ErrAdminOnly
	}
	page, limit = util.NormalizePage(page, limit)

	filter := repository.UserFilter{Query: strings.TrimSpace(f.Query), Role: f.Role}
	if f.Active != nil {
		disabled := !*f.Active
		filter.Disabled = &disabled
	}
	return s.UserRepo.List(ctx, filter, (page-1)*limit, limit)
}

// SetUserActive 启用或封禁账号；封禁时通知本人
func (s *UserService) SetUserActive(ctx context.Context, p util.Principal, id uint, active bool) (*model.User, error) {
	if !p.IsAdmin() {
		return nil, util.ErrAdminOnly
	}
	if id == p.UserID && !active {
		return nil, util.Rejected("não pode bloquear a sua própria conta")
	}

	before, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	wasActive := !before.Disabled

	found, err := s.UserRepo.SetDisabled(ctx, id, !active)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, util.ErrUserNotFound
	}
	util.Forget(ctx, util.UserCacheKey(id))
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if wasActive && !active {
		s.Notifier.Emit(ctx, NotifyInput{
			UserID:  id,
			Type:    model.NotifyAccountBlocked,
			Params:  map[string]interface{}{"Notes": ""},
			Payload: map[string]interface{}{"userId": id},
		})
	}
	return user, nil
}

func (s *UserService) SetUserRole(ctx context.Context, p util.Principal, id uint, role model.UserRole) (*model.User, error) {
	if !p.IsAdmin() {
		return nil, util.ErrAdminOnly
	}
	if role != model.Resident && role != model.Admin {
		return nil, util.Rejected("papel inválido: %s", role)
	}
	if id == p.UserID && role != model.Admin {
		return nil, util.Rejected("não pode retirar o seu próprio acesso de administrador")
	}
	if _, err := s.findUser(ctx, id); err != nil {
		return nil, err
	}

	if err := s.UserRepo.SetRole(ctx, id, role); err != nil {
		return nil, err
	}
	util.Forget(ctx, util.UserCacheKey(id))
	return s.findUser(ctx, id)
}
