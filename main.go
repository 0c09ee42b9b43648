package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	beego "github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lotto-server/common"
	"lotto-server/common/logger"
	"lotto-server/internal/config"
	infmysql "lotto-server/internal/infra/mysql"
	infrds "lotto-server/internal/infra/redis"
	"lotto-server/internal/worker"
	_ "lotto-server/routers"
)

func main() {
	logger.InitLogger()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 配置加载：nacos 优先，失败回退本地文件
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatalf("config load failed", zap.Error(err))
	}
	config.Set(cfg)
	config.SetCurrent(cfg)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}

	// 配置热更新（nacos 模式下生效）
	watchErr := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		if newCfg != nil && newCfg.Server.LogLevel != "" && (oldCfg == nil || oldCfg.Server.LogLevel != newCfg.Server.LogLevel) {
			logger.SetLevel(newCfg.Server.LogLevel)
		}
	})
	if watchErr != nil {
		logger.Warn("config watch not started", zap.Error(watchErr))
	}

	// MySQL
	db := common.InitDB(cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns, cfg.Database.ConnMaxLifetimeSec)
	infmysql.UseDB(db)

	// Redis（可缺席，缓存与限流自动降级）
	if cfg.Redis.Addr != "" {
		infrds.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}

	// Outbox 分发器（MQ 未配置时不启动）
	var wg sync.WaitGroup
	worker.StartOutboxDispatcher(ctx, &wg)

	// 优雅退出：收到信号后先停后台 worker
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
		wg.Wait()
		logger.Sync()
		os.Exit(0)
	}()

	beego.BConfig.CopyRequestBody = true
	beego.BConfig.RunMode = beego.PROD
	if cfg.Server.Port > 0 {
		beego.BConfig.Listen.HTTPPort = cfg.Server.Port
	}
	beego.Handler("/metrics", promhttp.Handler())

	logger.Info("lotto-server starting", zap.Int("port", beego.BConfig.Listen.HTTPPort))
	beego.Run()
}
