package database

import (
	"errors"
	"fmt"
	"helpmarket_backend/internal/config"
	"helpmarket_backend/internal/model"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.DBName,
		dbCfg.Charset,
		dbCfg.ParseTime,
	)

	logLevel := logger.Warn
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")

	// release 模式默认不自动迁移，除非通过 -migrate 显式要求
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Println("Database migration completed")
	}

	if err := SeedAdmin(db, cfg.Admin); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate 自动迁移全部业务表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(model.All()...)
}

// SeedAdmin 配置了管理员账号且库中不存在时创建
func SeedAdmin(db *gorm.DB, cfg config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}

	var existing model.User
	err := db.Where("email = ?", cfg.Email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.User{
		Name:     "Administrador",
		Email:    cfg.Email,
		Password: string(hashed),
		Role:     model.Admin,
		City:     cfg.City,
		Language: "pt",
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}
	log.Printf("Seeded admin account %s", cfg.Email)
	return nil
}
