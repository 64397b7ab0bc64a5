package repository

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"svn-migrate/internal/dto"
	"svn-migrate/internal/model"
	"svn-migrate/pkg/constants"
	pkgErrors "svn-migrate/pkg/errors"
)

func newTestRepo(t *testing.T) *MigrationRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Migration{}))
	return NewMigrationRepository(db)
}

func newMigration(targetPath string) *model.Migration {
	return &model.Migration{
		ID:          uuid.NewString(),
		DisplayName: "测试迁移",
		SourceURL:   "https://svn.example.com/repo",
		TargetPath:  targetPath,
		Status:      constants.StatusRegistered,
		Layout:      datatypes.NewJSONType(model.LayoutConfig{Type: constants.LayoutStandard}),
	}
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)

	m := newMigration("group/repo")
	require.NoError(t, repo.Create(m))

	got, err := repo.GetByID(m.ID)
	require.NoError(t, err)
	require.Equal(t, m.TargetPath, got.TargetPath)
	require.Equal(t, constants.StatusRegistered, got.Status)
	require.Equal(t, int64(0), got.Checkpoint())

	_, err = repo.GetByID("missing")
	require.True(t, pkgErrors.IsCode(err, pkgErrors.CodeNotFound))
}

func TestRepositoryGetByTargetPath(t *testing.T) {
	repo := newTestRepo(t)

	m := newMigration("group/repo")
	require.NoError(t, repo.Create(m))

	got, err := repo.GetByTargetPath("group/repo")
	require.NoError(t, err)
	require.Equal(t, m.ID, got.ID)

	// 不存在返回 nil, nil
	got, err = repo.GetByTargetPath("group/other")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRepositoryStatusTransition(t *testing.T) {
	repo := newTestRepo(t)

	m := newMigration("group/repo")
	require.NoError(t, repo.Create(m))

	// registered → pending, mutate生效
	updated, err := repo.UpdateStatusFrom(m.ID, constants.StatusPending, func(m *model.Migration) {
		meta := m.Metadata.Data()
		meta.JobID = "job-1"
		m.Metadata = datatypes.NewJSONType(meta)
	})
	require.NoError(t, err)
	require.Equal(t, constants.StatusPending, updated.Status)
	require.Equal(t, "job-1", updated.Metadata.Data().JobID)

	// 非法流转被拒绝: pending → completed
	_, err = repo.UpdateStatusFrom(m.ID, constants.StatusCompleted, nil)
	require.True(t, pkgErrors.IsCode(err, pkgErrors.CodeConflict))

	// pending → running → completed
	_, err = repo.UpdateStatusFrom(m.ID, constants.StatusRunning, nil)
	require.NoError(t, err)
	_, err = repo.UpdateStatusFrom(m.ID, constants.StatusCompleted, nil)
	require.NoError(t, err)

	// completed → syncing 合法
	_, err = repo.UpdateStatusFrom(m.ID, constants.StatusSyncing, nil)
	require.NoError(t, err)

	_, err = repo.UpdateStatusFrom("missing", constants.StatusPending, nil)
	require.True(t, pkgErrors.IsCode(err, pkgErrors.CodeNotFound))
}

func TestRepositoryCheckpointMonotonic(t *testing.T) {
	repo := newTestRepo(t)

	m := newMigration("group/repo")
	require.NoError(t, repo.Create(m))

	require.NoError(t, repo.SetCheckpoint(m.ID, 5))
	require.NoError(t, repo.SetCheckpoint(m.ID, 7))
	// 相同修订允许 (同步零新增), 且原地保持
	require.NoError(t, repo.SetCheckpoint(m.ID, 7))
	got, err := repo.GetByID(m.ID)
	require.NoError(t, err)
	require.Equal(t, int64(7), got.Checkpoint())

	// 空操作之后仍可继续推进
	require.NoError(t, repo.SetCheckpoint(m.ID, 9))

	// 回退被拒绝
	err = repo.SetCheckpoint(m.ID, 3)
	require.True(t, pkgErrors.IsCode(err, pkgErrors.CodeConflict))

	got, err = repo.GetByID(m.ID)
	require.NoError(t, err)
	require.Equal(t, int64(9), got.Checkpoint())

	require.True(t, pkgErrors.IsCode(repo.SetCheckpoint("missing", 1), pkgErrors.CodeNotFound))
}

func TestRepositoryList(t *testing.T) {
	repo := newTestRepo(t)

	a := newMigration("group/alpha")
	a.DisplayName = "核心代码库"
	b := newMigration("group/beta")
	b.Status = constants.StatusCompleted
	c := newMigration("group/gamma")
	c.Status = constants.StatusFailed
	for _, m := range []*model.Migration{a, b, c} {
		require.NoError(t, repo.Create(m))
	}

	// 状态过滤
	items, total, err := repo.List(dto.MigrationListParam{Statuses: []string{constants.StatusCompleted, constants.StatusFailed}})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 2)

	// 关键字过滤
	keyword := "核心"
	items, total, err = repo.List(dto.MigrationListParam{Keyword: &keyword})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, a.ID, items[0].ID)

	// 分页
	items, total, err = repo.List(dto.MigrationListParam{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, items, 1)
}

func TestRepositoryCountByStatus(t *testing.T) {
	repo := newTestRepo(t)

	for i, status := range []string{constants.StatusRegistered, constants.StatusRegistered, constants.StatusCompleted} {
		m := newMigration("group/repo-" + string(rune('a'+i)))
		m.Status = status
		require.NoError(t, repo.Create(m))
	}

	counts, err := repo.CountByStatus()
	require.NoError(t, err)
	require.Equal(t, int64(2), counts[constants.StatusRegistered])
	require.Equal(t, int64(1), counts[constants.StatusCompleted])
}

func TestRepositoryDeleteResolved(t *testing.T) {
	repo := newTestRepo(t)

	done := newMigration("group/done")
	done.Status = constants.StatusCompleted
	failed := newMigration("group/failed")
	failed.Status = constants.StatusFailed
	active := newMigration("group/active")
	active.Status = constants.StatusRunning
	for _, m := range []*model.Migration{done, failed, active} {
		require.NoError(t, repo.Create(m))
	}

	victims, err := repo.DeleteResolved([]string{constants.StatusCompleted, constants.StatusFailed})
	require.NoError(t, err)
	require.Len(t, victims, 2)

	// 运行中的记录保留
	_, err = repo.GetByID(active.ID)
	require.NoError(t, err)
	_, err = repo.GetByID(done.ID)
	require.True(t, pkgErrors.IsCode(err, pkgErrors.CodeNotFound))
}
