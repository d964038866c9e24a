package service

import (
	"context"
	"errors"
	"helpmarket_backend/internal/config"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/repository"
	"helpmarket_backend/internal/util"
	"helpmarket_backend/pkg/logger"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
	Zones    *util.ZoneHolder
	Tr       *util.Translator
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config, zones *util.ZoneHolder, tr *util.Translator) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
		Zones:    zones,
		Tr:       tr,
	}
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	City     string `json:"city"`
	Language string `json:"language"`
}

type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		return nil, util.Rejected("o nome é obrigatório")
	}
	if utf8.RuneCountInString(in.Password) < util.MinPasswordLen {
		return nil, util.Rejected("a palavra-passe deve ter pelo menos %d caracteres", util.MinPasswordLen)
	}

	city := strings.TrimSpace(in.City)
	if city == "" {
		city = s.Zones.Zone().City
	}

	lang := normalizeLanguage(s.Tr, in.Language)
	if lang == "" {
		lang = s.Cfg.I18n.DefaultLanguage
	}

	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     name,
		Email:    email,
		Password: string(hashedPassword),
		Role:     model.Resident,
		City:     city,
		Language: lang,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		// 并发注册同一邮箱
		if repository.IsDuplicateKey(err) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, util.ErrAccountDisabled
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.UserRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		logger.Log.Warn("Failed to update last login", zap.Uint("userID", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	return &LoginResult{Token: token, User: user}, nil
}

// normalizeLanguage 仅接受已有翻译的语言，其余回落为空（使用默认语言）
func normalizeLanguage(tr *util.Translator, lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if tr == nil || lang == "" {
		return ""
	}
	for _, known := range tr.Languages() {
		if lang == known {
			return lang
		}
	}
	return ""
}
