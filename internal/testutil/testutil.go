// Package testutil 测试用的内存数据库、假推送与服务装配
package testutil

import (
	"context"
	"fmt"
	"helpmarket_backend/internal/config"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/repository"
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/util"
	"helpmarket_backend/pkg/database"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	JWTSecret    = "test-secret-with-at-least-32-characters"
	TestPassword = "segredo123"
)

// LisbonZone 测试统一使用的服务区域：里斯本市中心 15km，葡萄牙本土边界
func LisbonZone() config.ZoneConfig {
	return config.ZoneConfig{
		CenterLat: 38.7223,
		CenterLng: -9.1393,
		RadiusKm:  15,
		City:      "Lisboa",
		MinLat:    36.8,
		MaxLat:    42.2,
		MinLng:    -9.6,
		MaxLng:    -6.1,
	}
}

func TestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		JWT:    config.JWTConfig{Secret: JWTSecret, ExpireTime: time.Hour},
		Zone:   LisbonZone(),
		I18n:   config.I18nConfig{DefaultLanguage: "pt"},
		Upload: config.UploadConfig{MaxImageBytes: 1 << 20, MaxImageWidth: 1280},
	}
}

// NewDB 每次调用一个独立的内存 SQLite；单连接保证事务串行
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Ctx 带请求级缓存的上下文，与 HTTP 请求中的一致
func Ctx() context.Context {
	return util.WithRequestCache(context.Background(), util.NewRequestCache())
}

type LiveEvent struct {
	Room  string
	Event string
	Data  interface{}
}

// FakeBroadcaster 记录所有推送
type FakeBroadcaster struct {
	mu     sync.Mutex
	events []LiveEvent
}

func (f *FakeBroadcaster) ToUser(userID uint, event string, data interface{}) {
	f.record(service.UserRoom(userID), event, data)
}

func (f *FakeBroadcaster) ToRequest(requestID string, event string, data interface{}) {
	f.record(service.RequestRoom(requestID), event, data)
}

func (f *FakeBroadcaster) record(room, event string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, LiveEvent{Room: room, Event: event, Data: data})
}

func (f *FakeBroadcaster) Events() []LiveEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LiveEvent(nil), f.events...)
}

// Count 某房间收到某事件的次数
func (f *FakeBroadcaster) Count(room, event string) int {
	n := 0
	for _, e := range f.Events() {
		if e.Room == room && e.Event == event {
			n++
		}
	}
	return n
}

type SentMail struct {
	To      string
	Subject string
	Body    string
}

type FakeMailer struct {
	mu   sync.Mutex
	sent []SentMail
	Err  error
}

func (m *FakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMail{To: to, Subject: subject, Body: body})
	return m.Err
}

func (m *FakeMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.sent...)
}

// Env 按生产环境的依赖关系装配全部服务，推送与邮件替换为假实现
type Env struct {
	DB     *gorm.DB
	Config *config.Config
	Live   *FakeBroadcaster
	Mailer *FakeMailer
	Zones  *util.ZoneHolder
	Tr     *util.Translator

	UserRepo         *repository.UserRepository
	RequestRepo      *repository.HelpRequestRepository
	ApplicationRepo  *repository.ApplicationRepository
	MessageRepo      *repository.MessageRepository
	ReviewRepo       *repository.ReviewRepository
	NotificationRepo *repository.NotificationRepository
	ReportRepo       *repository.ReportRepository

	Auth          *service.AuthService
	Users         *service.UserService
	Notifications *service.NotificationService
	Requests      *service.RequestService
	Applications  *service.ApplicationService
	Messages      *service.MessageService
	Reviews       *service.ReviewService
	Reports       *service.ReportService
}

func NewEnv(t testing.TB) *Env {
	t.Helper()
	db := NewDB(t)
	cfg := TestConfig()

	tr, err := util.NewTranslator(cfg.I18n.DefaultLanguage)
	require.NoError(t, err)

	e := &Env{
		DB:     db,
		Config: cfg,
		Live:   &FakeBroadcaster{},
		Mailer: &FakeMailer{},
		Zones:  util.NewZoneHolder(util.NewZone(cfg.Zone)),
		Tr:     tr,

		UserRepo:         repository.NewUserRepository(db),
		RequestRepo:      repository.NewHelpRequestRepository(db),
		ApplicationRepo:  repository.NewApplicationRepository(db),
		MessageRepo:      repository.NewMessageRepository(db),
		ReviewRepo:       repository.NewReviewRepository(db),
		NotificationRepo: repository.NewNotificationRepository(db),
		ReportRepo:       repository.NewReportRepository(db),
	}

	participants := service.NewParticipantCache(nil)
	e.Notifications = service.NewNotificationService(e.NotificationRepo, e.UserRepo, e.Live, e.Mailer, tr)
	e.Auth = service.NewAuthService(e.UserRepo, cfg, e.Zones, tr)
	e.Users = service.NewUserService(e.UserRepo, e.Notifications, tr)
	e.Requests = service.NewRequestService(e.RequestRepo, e.ApplicationRepo, e.Notifications, e.Live, e.Zones)
	e.Applications = service.NewApplicationService(e.ApplicationRepo, e.UserRepo, e.Requests, e.Notifications, e.Live, participants, tr)
	e.Messages = service.NewMessageService(e.MessageRepo, e.ApplicationRepo, e.UserRepo, e.Requests, e.Notifications, e.Live, participants)
	e.Reviews = service.NewReviewService(e.ReviewRepo, e.ApplicationRepo, e.UserRepo, e.Requests, e.Notifications)
	e.Reports = service.NewReportService(db, e.ReportRepo, e.UserRepo, e.RequestRepo, e.Requests, e.Notifications)
	return e
}

// CreateUser 直接写库创建用户，返回其 Principal
func (e *Env) CreateUser(t testing.TB, name string, role model.UserRole) util.Principal {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		Name:     name,
		Email:    fmt.Sprintf("%s-%s@example.pt", name, uuid.NewString()[:8]),
		Password: string(hashed),
		Role:     role,
		City:     "Lisboa",
		Language: "pt",
	}
	require.NoError(t, e.UserRepo.Create(context.Background(), user))
	return util.Principal{UserID: user.ID, Role: role}
}

func (e *Env) Resident(t testing.TB, name string) util.Principal {
	return e.CreateUser(t, name, model.Resident)
}

// CreateRequest 在里斯本市中心附近发布一条 OPEN 求助
func (e *Env) CreateRequest(t testing.TB, owner util.Principal, title string) *model.HelpRequest {
	t.Helper()
	req, err := e.Requests.CreateRequest(Ctx(), owner, service.CreateRequestInput{
		Title:       title,
		Description: "Preciso de ajuda",
		Category:    model.CategoryCleaning,
		Lat:         38.7169,
		Lng:         -9.1399,
		City:        "Lisboa",
	})
	require.NoError(t, err)
	return req
}

// Notifications 某用户收到的所有通知类型（最新在前）
func (e *Env) NotificationTypes(t testing.TB, userID uint) []model.NotificationType {
	t.Helper()
	list, _, err := e.NotificationRepo.ListByUser(context.Background(), userID, false, 0, 100)
	require.NoError(t, err)
	types := make([]model.NotificationType, 0, len(list))
	for _, n := range list {
		types = append(types, n.Type)
	}
	return types
}
