package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"svn-migrate/internal/adapter/replay"
	"svn-migrate/internal/adapter/svn"
	"svn-migrate/internal/api/router"
	"svn-migrate/internal/broadcaster"
	"svn-migrate/internal/engine"
	"svn-migrate/internal/model"
	"svn-migrate/internal/pkg/config"
	"svn-migrate/internal/pkg/database"
	"svn-migrate/internal/pkg/gitlab"
	"svn-migrate/internal/pkg/logger"
	"svn-migrate/internal/repository"
	"svn-migrate/internal/scheduler"
)

var (
	configFile = flag.String("config", "", "配置文件路径 (例如: -config=configs/config.yaml)")
	version    = flag.Bool("version", false, "显示版本信息")
)

const (
	appVersion = "1.0.0"
	appName    = "svn-migrate-service"
)

func main() {
	// 解析命令行参数
	flag.Parse()

	// 显示版本信息
	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	// init config logger
	var cfg *config.Config
	{
		// 优先级: 命令行参数 > 环境变量 > 默认路径
		configPath := getConfigPath()

		// 加载配置
		c, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("加载配置失败: %v\n", err)
			fmt.Println("\n使用方式:")
			fmt.Println("  1. 命令行参数指定:")
			fmt.Println("     ./svn-migrate -config=configs/config.yaml")
			fmt.Println("  2. 环境变量指定:")
			fmt.Println("     export CONFIG_FILE=configs/config.yaml")
			fmt.Println("     ./svn-migrate")
			fmt.Println("  3. 使用默认配置:")
			fmt.Println("     ./svn-migrate  (将使用 configs/config.yaml)")
			os.Exit(1)
		}
		cfg = c

		// 初始化日志
		if err := logger.Init(&cfg.Log); err != nil {
			fmt.Printf("初始化日志失败: %v\n", err)
			os.Exit(1)
		}
		logger.Info(fmt.Sprintf("Load config file: %s of %s", configPath, getConfigSource()))

		defer func() {
			_ = logger.Close()
		}()
	}

	logger.Info(fmt.Sprintf("服务 %s 启动中...", appName), zap.String("version", appVersion))

	// 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer func() {
		_ = database.Close()
	}()

	logger.Info(fmt.Sprintf("数据库连接成功 %s:%v", cfg.Database.Host, cfg.Database.Port), zap.String("database", cfg.Database.Database))

	// 建表
	if err := database.GetDB().AutoMigrate(&model.Migration{}); err != nil {
		logger.Fatal("数据库表结构迁移失败", zap.Error(err))
	}

	// 注入数据库连接到配置
	cfg.DB = database.GetDB()

	// 初始化目标平台客户端
	var gitClient *gitlab.Client
	if cfg.Gitlab.BaseURL != "" {
		timeout, _ := time.ParseDuration(cfg.Gitlab.Timeout)
		c, err := gitlab.NewClient(&gitlab.ClientConfig{
			BaseURL:          cfg.Gitlab.BaseURL,
			Token:            cfg.Gitlab.Token,
			DefaultNamespace: cfg.Gitlab.DefaultNamespace,
			Timeout:          timeout,
		})
		if err != nil {
			logger.Fatal("初始化目标平台客户端失败", zap.Error(err))
		}
		gitClient = c
	} else {
		logger.Warn("未配置gitlab.base_url, 迁移结果不会推送到目标平台")
	}

	// 初始化工作目录
	workspace, err := engine.NewWorkspace(cfg.Engine.WorkDir)
	if err != nil {
		logger.Fatal("初始化工作目录失败", zap.Error(err))
	}

	// 解析引擎时长配置
	grace, err := time.ParseDuration(cfg.Engine.KillGracePeriod)
	if err != nil {
		logger.Warn("解析kill_grace_period失败, 使用默认值10秒", zap.Error(err))
		grace = 10 * time.Second
	}
	progressEvery, err := time.ParseDuration(cfg.Engine.ProgressInterval)
	if err != nil {
		progressEvery = 250 * time.Millisecond
	}

	// 组装引擎
	repo := repository.NewMigrationRepository(database.GetDB())
	prober := svn.NewCLIProber(cfg.Engine.SvnBin, svn.NewOSCommandRunner(), logger.Log)
	replayer := replay.NewGitSVN(cfg.Engine.GitBin, cfg.Engine.SvnBin, grace, progressEvery, logger.Log)
	bc := broadcaster.New(cfg.Engine.EventBuffer, logger.Log)

	eng := engine.New(repo, prober, replayer, gitClient, bc, workspace, engine.Options{
		MigrationConcurrency: cfg.Engine.MigrationConcurrency,
		SyncConcurrency:      cfg.Engine.SyncConcurrency,
		AESKey:               cfg.Crypto.AESKey,
	}, logger.Log)

	// 上次运行遗留的进行中记录标记为待恢复
	if err := eng.RecoverInterrupted(); err != nil {
		logger.Warn("中断记录恢复失败", zap.Error(err))
	}

	// 启动引擎调度器
	eng.Start()
	logger.Info("迁移引擎启动成功",
		zap.Int("migration_concurrency", cfg.Engine.MigrationConcurrency),
		zap.Int("sync_concurrency", cfg.Engine.SyncConcurrency))

	// 初始化并启动定时任务调度器
	taskScheduler := scheduler.NewScheduler(eng, logger.Log)
	if err := taskScheduler.Start(cfg.Engine.AutoSyncCron); err != nil {
		logger.Warn("定时任务调度器启动失败", zap.Error(err))
	}

	// 设置路由
	r := router.Setup(cfg, eng, bc)

	// 创建HTTP服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// 启动服务器
	go func() {
		logger.Info(fmt.Sprintf("%s 服务启动成功", cfg.Server.Name),
			zap.String("address", addr),
			zap.String("mode", cfg.Server.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务正在关闭...")

	// 关闭定时任务调度器
	taskScheduler.Stop()
	logger.Info("定时任务调度器已停止")

	// 关闭引擎: 停止准入并终止运行中的任务
	eng.Shutdown()
	logger.Info("迁移引擎已停止")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭事件广播
	bc.Close()

	logger.Info("服务已关闭")
}

// getConfigPath 获取配置文件路径
// 优先级: 命令行参数 > 环境变量 > 默认路径
func getConfigPath() string {
	// 1. 命令行参数
	if *configFile != "" {
		return *configFile
	}

	// 2. 环境变量
	if envConfig := os.Getenv("CONFIG_FILE"); envConfig != "" {
		return envConfig
	}

	// 3. 默认路径
	return "configs/config.yaml"
}

// getConfigSource 获取配置来源说明
func getConfigSource() string {
	if *configFile != "" {
		return "命令行参数"
	}
	if os.Getenv("CONFIG_FILE") != "" {
		return "环境变量"
	}
	return "默认配置"
}
