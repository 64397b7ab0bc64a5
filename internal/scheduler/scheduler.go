package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"svn-migrate/internal/engine"
)

// Scheduler 定时任务调度器, 目前只承载已完成迁移的周期增量同步
type Scheduler struct {
	cron          *cron.Cron
	logger        *zap.Logger
	engine        *engine.Engine
	cronSchedules map[string]cron.EntryID // 存储任务ID，便于管理
}

// NewScheduler 创建调度器
func NewScheduler(eng *engine.Engine, logger *zap.Logger) *Scheduler {
	// 创建 cron 实例（带秒级支持）
	c := cron.New(cron.WithSeconds())

	return &Scheduler{
		cron:          c,
		logger:        logger,
		engine:        eng,
		cronSchedules: make(map[string]cron.EntryID),
	}
}

// Start 启动调度器。autoSyncCron 为空时不注册任何任务。
// cron 表达式格式: 秒 分 时 日 月 周
func (s *Scheduler) Start(autoSyncCron string) error {
	log := s.logger.Sugar()

	if autoSyncCron == "" {
		log.Info("未配置engine.auto_sync_cron, 跳过定时同步")
		return nil
	}

	log.Info("启动定时任务调度器...")

	entryID, err := s.cron.AddFunc(autoSyncCron, func() {
		log.Info("执行定时任务: 增量同步")
		s.engine.SyncAll(context.Background())
	})
	if err != nil {
		log.Errorf("注册增量同步任务失败: %v cron=%s", err, autoSyncCron)
		return err
	}

	s.cronSchedules["auto_sync"] = entryID
	log.Infof("增量同步任务已注册: %s entry_id=%d", autoSyncCron, entryID)

	// 启动 cron
	s.cron.Start()
	log.Info("定时任务调度器启动成功")

	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.logger.Info("正在停止定时任务调度器...")

	// 停止 cron（等待正在执行的任务完成）
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("定时任务调度器已停止")
}

// TriggerSync 手动触发一轮增量同步（用于测试或手动触发）
func (s *Scheduler) TriggerSync() {
	s.logger.Info("手动触发增量同步")
	s.engine.SyncAll(context.Background())
}
