// 手动重算所有用户的评分均值与评价数
//
// 评价写入时已在同一事务里更新评分，此脚本只用于数据修复，
// 例如手动删除评价或批量导入历史数据之后。
//
// 用法: go run scripts/recompute_ratings.go

package main

import (
	"context"
	"helpmarket_backend/internal/config"
	"helpmarket_backend/internal/repository"
	"helpmarket_backend/pkg/database"
	"helpmarket_backend/pkg/logger"
	"log"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	log.Println("开始重算评分...")
	updated, err := repository.NewReviewRepository(db).RecomputeAll(ctx)
	if err != nil {
		logger.Log.Fatal("Rating recompute failed", zap.Error(err))
	}
	logger.Log.Info("Rating recompute finished", zap.Int("users", updated))
	log.Println("完成！")
}
