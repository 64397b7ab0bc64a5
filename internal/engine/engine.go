package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"svn-migrate/internal/adapter/replay"
	"svn-migrate/internal/adapter/svn"
	"svn-migrate/internal/broadcaster"
	"svn-migrate/internal/dto"
	"svn-migrate/internal/model"
	"svn-migrate/internal/pkg/gitlab"
	"svn-migrate/internal/queue"
	"svn-migrate/internal/repository"
	"svn-migrate/pkg/constants"
	pkgErrors "svn-migrate/pkg/errors"
)

// Options 引擎运行参数
type Options struct {
	MigrationConcurrency int
	SyncConcurrency      int
	AESKey               string
	CredentialTTL        time.Duration
}

// QueueOverview 队列状态总览
type QueueOverview struct {
	Queues  queue.Status     `json:"queues"`
	Records map[string]int64 `json:"records"` // 状态 → 记录数
}

// CleanupResult 批量清理结果
type CleanupResult struct {
	Deleted int      `json:"deleted"`
	IDs     []string `json:"ids"`
}

// Engine 迁移编排引擎: 串联记录存储/队列/探测器/重放器/广播器,
// 所有状态变更以数据库记录为唯一可信来源。
type Engine struct {
	repo        *repository.MigrationRepository
	prober      svn.Prober
	replayer    replay.Replayer
	gitClient   *gitlab.Client
	broadcaster *broadcaster.Broadcaster
	workspace   *Workspace
	creds       *credentialStore
	dispatcher  *queue.Dispatcher
	logger      *zap.Logger

	// 按记录串行化引擎操作, 避免 Start/Stop/Resume 之间的竞态
	recordMu sync.Map // recordID → *sync.Mutex
}

// New 创建引擎并内建任务调度器
func New(
	repo *repository.MigrationRepository,
	prober svn.Prober,
	replayer replay.Replayer,
	gitClient *gitlab.Client,
	bc *broadcaster.Broadcaster,
	workspace *Workspace,
	opts Options,
	logger *zap.Logger,
) *Engine {
	e := &Engine{
		repo:        repo,
		prober:      prober,
		replayer:    replayer,
		gitClient:   gitClient,
		broadcaster: bc,
		workspace:   workspace,
		creds:       newCredentialStore(opts.AESKey, opts.CredentialTTL),
		logger:      logger,
	}
	e.dispatcher = queue.NewDispatcher(
		opts.MigrationConcurrency, opts.SyncConcurrency, e.executeJob, logger)
	return e
}

// Start 启动调度器
func (e *Engine) Start() {
	e.dispatcher.Start()
}

// Shutdown 停止调度器并终止所有运行中的外部进程
func (e *Engine) Shutdown() {
	e.dispatcher.Stop()
}

// lockRecord 获取记录级互斥锁
func (e *Engine) lockRecord(id string) func() {
	v, _ := e.recordMu.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// === 登记与查询 ===

// Register 登记一条迁移记录。除非跳过, 登记前先做连通性探测。
func (e *Engine) Register(ctx context.Context, req *dto.RegisterMigrationRequest) (*model.Migration, error) {
	// 目标路径查重
	existing, err := e.repo.GetByTargetPath(req.TargetPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgErrors.New(pkgErrors.CodeConflict,
			fmt.Sprintf("目标路径 %s 已被迁移 %s 占用", req.TargetPath, existing.ID))
	}

	creds := svn.Credentials{Username: req.Username, Password: req.Password}
	var headRevision int64

	if !req.SkipProbe {
		info, err := e.prober.TestConnection(ctx, req.SourceURL, creds)
		if err != nil {
			return nil, err
		}
		headRevision = info.HeadRevision
	}

	m := &model.Migration{
		ID:             uuid.NewString(),
		DisplayName:    req.DisplayName,
		SourceURL:      req.SourceURL,
		TargetPath:     req.TargetPath,
		Status:         constants.StatusRegistered,
		Layout:         datatypes.NewJSONType(req.Layout),
		AuthorsMapping: datatypes.NewJSONType(req.AuthorsMapping),
	}

	meta := model.Metadata{RevisionsTotal: headRevision}
	if req.Username != "" || req.Password != "" {
		e.creds.Put(m.ID, creds)
		if hint, err := e.creds.SealHint(creds); err == nil {
			meta.ResumeHint = hint
		} else {
			e.logger.Warn("加密恢复凭据提示失败", zap.String("record_id", m.ID), zap.Error(err))
		}
	}
	m.Metadata = datatypes.NewJSONType(meta)

	if err := e.repo.Create(m); err != nil {
		return nil, err
	}

	e.logger.Info("迁移已登记",
		zap.String("record_id", m.ID),
		zap.String("source_url", m.SourceURL),
		zap.String("target_path", m.TargetPath))
	e.broadcaster.Emit(constants.EventRegistered, m.ID, nil)
	return m, nil
}

// Get 查询单条记录
func (e *Engine) Get(id string) (*model.Migration, error) {
	return e.repo.GetByID(id)
}

// List 分页查询
func (e *Engine) List(req dto.MigrationListParam) (*dto.MigrationListResponse, error) {
	items, total, err := e.repo.List(req)
	if err != nil {
		return nil, err
	}
	return &dto.MigrationListResponse{Total: total, Items: items}, nil
}

// === 执行控制 ===

// StartMigration 将记录提交到迁移队列。registered/failed/cancelled 均可启动,
// 从失败/取消启动时沿用已有断点。
func (e *Engine) StartMigration(ctx context.Context, id string) (*model.Migration, error) {
	unlock := e.lockRecord(id)
	defer unlock()
	return e.enqueueMigration(ctx, id, 0, false)
}

// BulkStart 批量启动, 单条失败不影响其他记录
func (e *Engine) BulkStart(ctx context.Context, ids []string) map[string]string {
	results := make(map[string]string, len(ids))
	for _, id := range ids {
		if _, err := e.StartMigration(ctx, id); err != nil {
			results[id] = err.Error()
		} else {
			results[id] = "ok"
		}
	}
	return results
}

// Stop 取消记录的排队/运行中任务。
// 排队中的任务直接移除并落库为cancelled; 运行中的任务先取消其context,
// 再终止外部进程, 状态由执行回调统一落库。
func (e *Engine) Stop(ctx context.Context, id string) error {
	unlock := e.lockRecord(id)
	defer unlock()

	m, err := e.repo.GetByID(id)
	if err != nil {
		return err
	}

	found, wasActive := e.dispatcher.Cancel(id)
	if !found {
		return pkgErrors.New(pkgErrors.CodeConflict,
			fmt.Sprintf("迁移 %s 没有进行中的任务 (当前状态: %s)", id, m.Status))
	}

	if wasActive {
		if err := e.replayer.Kill(id); err != nil {
			e.logger.Warn("终止重放进程失败", zap.String("record_id", id), zap.Error(err))
		}
		return nil
	}

	// 仅在排队, 执行回调不会触发, 由这里落库。
	// 排队中的同步任务记录仍是completed, 无需状态流转, 清掉任务ID即可。
	if m.Status == constants.StatusCompleted {
		meta := m.Metadata.Data()
		meta.JobID = ""
		m.Metadata = datatypes.NewJSONType(meta)
		if err := e.repo.Update(m); err != nil {
			return err
		}
		e.broadcaster.Emit(constants.EventCancelled, id, nil)
		return nil
	}

	_, err = e.repo.UpdateStatusFrom(id, constants.StatusCancelled, func(m *model.Migration) {
		meta := m.Metadata.Data()
		meta.LastFinishedAt = time.Now().Format(time.RFC3339)
		m.Metadata = datatypes.NewJSONType(meta)
	})
	if err != nil {
		return err
	}
	e.broadcaster.Emit(constants.EventCancelled, id, nil)
	return nil
}

// Resume 恢复失败/取消的迁移。from_beginning 丢弃工作目录与断点;
// from_last_revision 先校验工作目录完好, 从断点的下一个修订继续。
func (e *Engine) Resume(ctx context.Context, req *dto.ResumeMigrationRequest) (*model.Migration, error) {
	unlock := e.lockRecord(req.ID)
	defer unlock()

	m, err := e.repo.GetByID(req.ID)
	if err != nil {
		return nil, err
	}
	if !constants.IsResumableStatus(m.Status) {
		return nil, pkgErrors.New(pkgErrors.CodeConflict,
			fmt.Sprintf("状态 %s 不可恢复, 仅 failed/cancelled 支持", m.Status))
	}

	// 调用方重新提供的凭据优先, 并刷新缓存与落盘提示
	if req.Username != "" || req.Password != "" {
		creds := svn.Credentials{Username: req.Username, Password: req.Password}
		e.creds.Put(req.ID, creds)
		if hint, err := e.creds.SealHint(creds); err == nil {
			meta := m.Metadata.Data()
			meta.ResumeHint = hint
			m.Metadata = datatypes.NewJSONType(meta)
			if err := e.repo.Update(m); err != nil {
				return nil, err
			}
		}
	}

	fromRevision := m.Checkpoint()
	resetCheckpoint := false

	switch req.ResumeFrom {
	case constants.ResumeFromBeginning:
		if err := e.workspace.Remove(req.ID); err != nil {
			return nil, fmt.Errorf("清理工作目录失败: %w", err)
		}
		fromRevision = 0
		resetCheckpoint = true
	case constants.ResumeFromLastRevision:
		if err := e.workspace.CheckResumability(req.ID); err != nil {
			return nil, err
		}
	}

	result, err := e.enqueueMigration(ctx, req.ID, fromRevision, resetCheckpoint)
	if err != nil {
		return nil, err
	}
	e.broadcaster.Emit(constants.EventResumed, req.ID, map[string]interface{}{
		"resume_from":   req.ResumeFrom,
		"from_revision": fromRevision,
	})
	return result, nil
}

// Sync 对已完成的迁移做一次增量同步
func (e *Engine) Sync(ctx context.Context, id string) (*model.Migration, error) {
	unlock := e.lockRecord(id)
	defer unlock()

	m, err := e.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if m.Status != constants.StatusCompleted {
		return nil, pkgErrors.New(pkgErrors.CodeConflict,
			fmt.Sprintf("仅已完成的迁移可同步 (当前状态: %s)", m.Status))
	}
	if err := e.workspace.CheckResumability(id); err != nil {
		return nil, err
	}

	params, err := e.buildParams(ctx, m, m.Checkpoint())
	if err != nil {
		return nil, err
	}

	// 同步任务排队期间记录保持completed, 由执行回调流转到syncing。
	// 任务ID先落库再入队, 避免与执行回调的状态写入竞争。
	job := queue.NewJob(constants.JobTypeSync, id, params)
	meta := m.Metadata.Data()
	meta.JobID = job.ID
	m.Metadata = datatypes.NewJSONType(meta)
	if err := e.repo.Update(m); err != nil {
		return nil, err
	}

	if err := e.dispatcher.Enqueue(job); err != nil {
		return nil, err
	}
	return m, nil
}

// SyncAll 对所有已完成且空闲的迁移逐个入队增量同步, 供定时任务调用
func (e *Engine) SyncAll(ctx context.Context) {
	records, err := e.repo.ListByStatus(constants.StatusCompleted)
	if err != nil {
		e.logger.Error("查询待同步记录失败", zap.Error(err))
		return
	}

	for _, m := range records {
		if e.dispatcher.IsBusy(m.ID) {
			continue
		}
		if _, err := e.Sync(ctx, m.ID); err != nil {
			e.logger.Warn("定时同步入队失败",
				zap.String("record_id", m.ID), zap.Error(err))
		}
	}
}

// Delete 删除迁移记录及其工作目录。进行中的记录拒绝删除, 目标项目保留。
func (e *Engine) Delete(ctx context.Context, id string) error {
	unlock := e.lockRecord(id)
	defer unlock()

	m, err := e.repo.GetByID(id)
	if err != nil {
		return err
	}
	if constants.IsActiveStatus(m.Status) || e.dispatcher.IsBusy(id) {
		return pkgErrors.New(pkgErrors.CodeConflict, "迁移任务进行中, 请先停止再删除")
	}

	if err := e.repo.Delete(id); err != nil {
		return err
	}
	e.creds.Forget(id)
	if err := e.workspace.Remove(id); err != nil {
		e.logger.Warn("清理工作目录失败", zap.String("record_id", id), zap.Error(err))
	}
	return nil
}

// === 队列管理 ===

// QueueStatus 队列与记录状态总览
func (e *Engine) QueueStatus() (*QueueOverview, error) {
	counts, err := e.repo.CountByStatus()
	if err != nil {
		return nil, err
	}
	return &QueueOverview{
		Queues:  e.dispatcher.GetStatus(),
		Records: counts,
	}, nil
}

// SetConcurrency 运行时调整队列并发数
func (e *Engine) SetConcurrency(queueName string, limit int) error {
	return e.dispatcher.SetLimit(queueName, limit)
}

// Cleanup 批量删除已结束的记录及其工作目录
func (e *Engine) Cleanup(statuses []string) (*CleanupResult, error) {
	for _, s := range statuses {
		if constants.IsActiveStatus(s) || s == constants.StatusRegistered {
			return nil, pkgErrors.NewValidationError(
				fmt.Sprintf("状态 %s 不允许批量清理", s))
		}
	}

	victims, err := e.repo.DeleteResolved(statuses)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{Deleted: len(victims)}
	for _, m := range victims {
		result.IDs = append(result.IDs, m.ID)
		e.creds.Forget(m.ID)
		if err := e.workspace.Remove(m.ID); err != nil {
			e.logger.Warn("清理工作目录失败", zap.String("record_id", m.ID), zap.Error(err))
		}
	}
	e.dispatcher.CleanupResolved()
	return result, nil
}

// === 探测 ===

// Probe 源库连通性探测
func (e *Engine) Probe(ctx context.Context, req *dto.ProbeRequest) (*svn.ConnectionInfo, error) {
	return e.prober.TestConnection(ctx, req.SourceURL,
		svn.Credentials{Username: req.Username, Password: req.Password})
}

// Preview 迁移预演: 分支/标签枚举与未映射作者检查, 无副作用
func (e *Engine) Preview(ctx context.Context, req *dto.PreviewRequest) (*svn.PreviewResult, error) {
	return e.prober.Preview(ctx, req.SourceURL,
		svn.Credentials{Username: req.Username, Password: req.Password},
		req.Layout, req.AuthorsMapping)
}

// ExtractUsers 枚举源库历史作者
func (e *Engine) ExtractUsers(ctx context.Context, req *dto.ProbeRequest) ([]string, error) {
	return e.prober.ExtractUsers(ctx, req.SourceURL,
		svn.Credentials{Username: req.Username, Password: req.Password})
}

// === 内部实现 ===

// enqueueMigration 构建执行参数并提交到迁移队列, 记录流转到pending。
// 调用方必须持有记录锁。
func (e *Engine) enqueueMigration(ctx context.Context, id string, fromRevision int64, resetCheckpoint bool) (*model.Migration, error) {
	m, err := e.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !constants.CanTransition(m.Status, constants.StatusPending) {
		return nil, pkgErrors.New(pkgErrors.CodeConflict,
			fmt.Sprintf("当前状态 %s 不允许启动", m.Status))
	}
	if e.dispatcher.IsBusy(id) {
		return nil, pkgErrors.NewDuplicateJobError(id)
	}

	params, err := e.buildParams(ctx, m, fromRevision)
	if err != nil {
		return nil, err
	}

	job := queue.NewJob(constants.JobTypeMigration, id, params)

	m, err = e.repo.UpdateStatusFrom(id, constants.StatusPending, func(m *model.Migration) {
		meta := m.Metadata.Data()
		meta.JobID = job.ID
		meta.Error = ""
		meta.ErrorDetail = ""
		m.Metadata = datatypes.NewJSONType(meta)
		if resetCheckpoint {
			m.LastSyncedRevision = nil
		}
	})
	if err != nil {
		return nil, err
	}

	if err := e.dispatcher.Enqueue(job); err != nil {
		// 入队失败回滚到failed, 保持记录可再次启动
		if _, rbErr := e.repo.UpdateStatusFrom(id, constants.StatusFailed, func(m *model.Migration) {
			meta := m.Metadata.Data()
			meta.Error = err.Error()
			m.Metadata = datatypes.NewJSONType(meta)
		}); rbErr != nil {
			e.logger.Error("入队失败后状态回滚失败",
				zap.String("record_id", id), zap.Error(rbErr))
		}
		return nil, err
	}
	return m, nil
}

// buildParams 解析凭据与目标项目, 生成重放参数
func (e *Engine) buildParams(ctx context.Context, m *model.Migration, fromRevision int64) (replay.Params, error) {
	creds, err := e.resolveCredentials(m)
	if err != nil {
		return replay.Params{}, err
	}

	pushURL, err := e.resolveTarget(ctx, m)
	if err != nil {
		return replay.Params{}, err
	}

	return replay.Params{
		RecordID:     m.ID,
		SourceURL:    m.SourceURL,
		WorkDir:      e.workspace.PathFor(m.ID),
		TargetRemote: pushURL,
		Layout:       m.Layout.Data(),
		Authors:      m.AuthorsMapping.Data(),
		Username:     creds.Username,
		Password:     creds.Password,
		FromRevision: fromRevision,
		TotalHint:    m.Metadata.Data().RevisionsTotal,
	}, nil
}

// resolveCredentials 凭据解析顺序: 内存缓存 → 落盘加密提示 → 要求重新提供
func (e *Engine) resolveCredentials(m *model.Migration) (svn.Credentials, error) {
	if creds, ok := e.creds.Get(m.ID); ok {
		return creds, nil
	}

	hint := m.Metadata.Data().ResumeHint
	if hint == "" {
		// 登记时未提供凭据, 匿名访问
		return svn.Credentials{}, nil
	}

	creds, err := e.creds.OpenHint(hint)
	if err != nil {
		return svn.Credentials{}, pkgErrors.NewAuthenticationError(
			"凭据缓存已失效, 请重新提供源库凭据", err)
	}
	e.creds.Put(m.ID, creds)
	return creds, nil
}

// resolveTarget 确保目标项目存在并返回带令牌的推送地址。
// 已记录项目ID但项目被外部删除时不重建, 直接报错由操作员处理。
func (e *Engine) resolveTarget(ctx context.Context, m *model.Migration) (string, error) {
	if e.gitClient == nil {
		return "", nil
	}

	if m.TargetProjectID > 0 {
		project, err := e.gitClient.GetProject(ctx, fmt.Sprintf("%d", m.TargetProjectID))
		if err != nil {
			if pkgErrors.IsCode(err, pkgErrors.CodeNotFound) {
				return "", pkgErrors.NewNotFoundError(
					fmt.Sprintf("目标项目 %d 已被外部删除", m.TargetProjectID))
			}
			return "", err
		}
		return e.gitClient.PushURL(project), nil
	}

	// 按路径复用已有项目, 不存在则创建
	project, err := e.gitClient.GetProject(ctx, m.TargetPath)
	if err != nil {
		if !pkgErrors.IsCode(err, pkgErrors.CodeNotFound) {
			return "", err
		}
		name := m.TargetPath
		if i := strings.LastIndex(m.TargetPath, "/"); i >= 0 {
			name = m.TargetPath[i+1:]
		}
		project, err = e.gitClient.CreateProject(ctx, name, name)
		if err != nil {
			return "", err
		}
	}

	m.TargetProjectID = project.ID
	if err := e.repo.Update(m); err != nil {
		return "", err
	}
	return e.gitClient.PushURL(project), nil
}

// executeJob 队列执行回调: 流转状态 → 运行重放器 → 按结果落库并广播。
// 返回的error只用于队列计数, 业务结果已在这里持久化。
func (e *Engine) executeJob(ctx context.Context, job *queue.Job) error {
	runningStatus := constants.StatusRunning
	startEvent := constants.EventStarted
	if job.Type == constants.JobTypeSync {
		runningStatus = constants.StatusSyncing
		startEvent = constants.EventSyncing
	}

	if _, err := e.repo.UpdateStatusFrom(job.RecordID, runningStatus, nil); err != nil {
		e.logger.Error("任务启动状态流转失败",
			zap.String("record_id", job.RecordID),
			zap.String("job_id", job.ID),
			zap.Error(err))
		return err
	}
	e.broadcaster.Emit(startEvent, job.RecordID, map[string]interface{}{"job_id": job.ID})

	result, runErr := e.replayer.Run(ctx, job.Params, func(p replay.Progress) {
		e.broadcaster.Emit(constants.EventProgress, job.RecordID, p)
	})

	switch {
	case runErr == nil:
		return e.finishCompleted(job, result)
	case errors.Is(runErr, context.Canceled):
		e.finishCancelled(job)
		return runErr
	default:
		e.finishFailed(job, runErr)
		return runErr
	}
}

func (e *Engine) finishCompleted(job *queue.Job, result *replay.Result) error {
	// 断点先行: 即使后续状态落库失败, 已重放的修订也不会重复
	if result.LastRevision > 0 {
		if err := e.repo.SetCheckpoint(job.RecordID, result.LastRevision); err != nil {
			e.logger.Error("推进断点失败",
				zap.String("record_id", job.RecordID),
				zap.Int64("revision", result.LastRevision),
				zap.Error(err))
			return err
		}
	}

	_, err := e.repo.UpdateStatusFrom(job.RecordID, constants.StatusCompleted, func(m *model.Migration) {
		meta := m.Metadata.Data()
		meta.Error = ""
		meta.ErrorDetail = ""
		meta.RevisionsDone = result.LastRevision
		meta.CommitsCreated += result.Commits
		meta.LastFinishedAt = time.Now().Format(time.RFC3339)
		m.Metadata = datatypes.NewJSONType(meta)
	})
	if err != nil {
		e.logger.Error("完成状态落库失败", zap.String("record_id", job.RecordID), zap.Error(err))
		return err
	}

	e.logger.Info("任务执行完成",
		zap.String("record_id", job.RecordID),
		zap.String("job_id", job.ID),
		zap.Int64("last_revision", result.LastRevision),
		zap.Int64("commits", result.Commits))
	e.broadcaster.Emit(constants.EventCompleted, job.RecordID, map[string]interface{}{
		"last_revision": result.LastRevision,
		"commits":       result.Commits,
	})
	return nil
}

func (e *Engine) finishCancelled(job *queue.Job) {
	_, err := e.repo.UpdateStatusFrom(job.RecordID, constants.StatusCancelled, func(m *model.Migration) {
		meta := m.Metadata.Data()
		meta.LastFinishedAt = time.Now().Format(time.RFC3339)
		m.Metadata = datatypes.NewJSONType(meta)
	})
	if err != nil {
		e.logger.Error("取消状态落库失败", zap.String("record_id", job.RecordID), zap.Error(err))
		return
	}
	e.logger.Info("任务已取消",
		zap.String("record_id", job.RecordID), zap.String("job_id", job.ID))
	e.broadcaster.Emit(constants.EventCancelled, job.RecordID, nil)
}

func (e *Engine) finishFailed(job *queue.Job, runErr error) {
	var detail string
	var appErr *pkgErrors.AppError
	if errors.As(runErr, &appErr) {
		detail = appErr.Detail
	}

	_, err := e.repo.UpdateStatusFrom(job.RecordID, constants.StatusFailed, func(m *model.Migration) {
		meta := m.Metadata.Data()
		meta.Error = runErr.Error()
		meta.ErrorDetail = detail
		meta.LastFinishedAt = time.Now().Format(time.RFC3339)
		m.Metadata = datatypes.NewJSONType(meta)
	})
	if err != nil {
		e.logger.Error("失败状态落库失败", zap.String("record_id", job.RecordID), zap.Error(err))
		return
	}

	e.logger.Error("任务执行失败",
		zap.String("record_id", job.RecordID),
		zap.String("job_id", job.ID),
		zap.Error(runErr))
	e.broadcaster.Emit(constants.EventFailed, job.RecordID, map[string]interface{}{
		"error": runErr.Error(),
	})
}

// RecoverInterrupted 进程重启后把遗留的进行中记录标记为failed,
// 操作员可选择从断点恢复。启动时调用一次。
func (e *Engine) RecoverInterrupted() error {
	records, err := e.repo.ListByStatus(
		constants.StatusPending, constants.StatusRunning, constants.StatusSyncing)
	if err != nil {
		return err
	}

	for _, m := range records {
		to := constants.StatusFailed
		if m.Status == constants.StatusPending {
			to = constants.StatusCancelled
		}
		_, err := e.repo.UpdateStatusFrom(m.ID, to, func(m *model.Migration) {
			meta := m.Metadata.Data()
			meta.Error = "服务重启中断了执行"
			m.Metadata = datatypes.NewJSONType(meta)
		})
		if err != nil {
			e.logger.Error("中断记录恢复失败", zap.String("record_id", m.ID), zap.Error(err))
			continue
		}
		e.logger.Warn("检测到被中断的任务, 已标记待恢复",
			zap.String("record_id", m.ID), zap.String("previous_status", m.Status))
	}
	return nil
}
