// @title HelpMarket 后端 API
// @version 1.0
// @description 社区互助平台的后端服务器：发布求助、申请、会话、互评与举报处理。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"helpmarket_backend/internal/app"
	"helpmarket_backend/internal/config"
	"helpmarket_backend/pkg/logger"
	"log"

	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", "configs", "配置目录，内含 config.yaml")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		// 日志尚未初始化
		log.Fatalf("load config from %s: %v", *configDir, err)
	}
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if cfg.MigrateOnly {
		logger.Log.Info("Migration finished, exiting", zap.String("config", *configDir))
		return
	}

	logger.Log.Info("Starting helpmarket",
		zap.String("mode", cfg.Server.Mode),
		zap.String("zone", cfg.Zone.City),
		zap.Float64("radiusKm", cfg.Zone.RadiusKm))
	application.Run()
}
