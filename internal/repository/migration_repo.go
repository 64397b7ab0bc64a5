package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"svn-migrate/internal/dto"
	"svn-migrate/internal/model"
	"svn-migrate/pkg/constants"
	pkgErrors "svn-migrate/pkg/errors"
)

// MigrationRepository 迁移记录数据访问层
type MigrationRepository struct {
	db *gorm.DB
}

// NewMigrationRepository 创建迁移Repository
func NewMigrationRepository(db *gorm.DB) *MigrationRepository {
	return &MigrationRepository{
		db: db,
	}
}

// Create 创建迁移记录
func (r *MigrationRepository) Create(m *model.Migration) error {
	return r.db.Create(m).Error
}

// GetByID 根据ID获取迁移记录
func (r *MigrationRepository) GetByID(id string) (*model.Migration, error) {
	var m model.Migration
	err := r.db.First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgErrors.ErrRecordNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetByTargetPath 根据目标路径获取迁移记录
func (r *MigrationRepository) GetByTargetPath(targetPath string) (*model.Migration, error) {
	var m model.Migration
	err := r.db.Where("target_path = ?", targetPath).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// Update 更新迁移记录
func (r *MigrationRepository) Update(m *model.Migration) error {
	return r.db.Save(m).Error
}

// Delete 删除迁移记录
func (r *MigrationRepository) Delete(id string) error {
	return r.db.Delete(&model.Migration{}, "id = ?", id).Error
}

// UpdateStatusFrom 在事务内完成状态流转: 重新加载最新状态, 校验流转合法性,
// 应用业务字段变更, 乐观锁更新。mutate 可为 nil。
func (r *MigrationRepository) UpdateStatusFrom(id, to string, mutate func(*model.Migration)) (*model.Migration, error) {
	var m model.Migration

	err := r.db.Transaction(func(tx *gorm.DB) error {
		// 1. 重新加载最新状态
		if err := tx.First(&m, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgErrors.ErrRecordNotFound
			}
			return err
		}
		from := m.Status

		// 2. 检查流转是否允许
		if !constants.CanTransition(from, to) {
			return pkgErrors.New(pkgErrors.CodeConflict,
				fmt.Sprintf("当前状态 %s 不允许转换到 %s", from, to))
		}

		// 3. 执行业务字段更新
		if mutate != nil {
			mutate(&m)
		}

		// 4. 乐观锁更新
		m.Status = to
		result := tx.Model(&m).Where("id = ? AND status = ?", m.ID, from).Save(&m)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgErrors.New(pkgErrors.CodeConflict, "update failed: status conflict")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SetCheckpoint 推进断点。仅允许单调递增: 相同修订视为空操作(同步零新增),
// 回退写入直接拒绝。相等时不发UPDATE: MySQL驱动默认按changed-rows统计
// 影响行数, 原值写入会被误判为并发冲突。
func (r *MigrationRepository) SetCheckpoint(id string, revision int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var m model.Migration
		if err := tx.First(&m, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgErrors.ErrRecordNotFound
			}
			return err
		}
		if m.LastSyncedRevision != nil {
			if *m.LastSyncedRevision == revision {
				return nil
			}
			if *m.LastSyncedRevision > revision {
				return pkgErrors.New(pkgErrors.CodeConflict,
					fmt.Sprintf("断点回退被拒绝: revision=%d", revision))
			}
		}

		result := tx.Model(&model.Migration{}).
			Where("id = ?", id).
			Where("last_synced_revision IS NULL OR last_synced_revision < ?", revision).
			Update("last_synced_revision", revision)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgErrors.New(pkgErrors.CodeConflict,
				fmt.Sprintf("断点并发写入冲突: revision=%d", revision))
		}
		return nil
	})
}

// List 分页查询迁移列表
func (r *MigrationRepository) List(req dto.MigrationListParam) ([]*model.Migration, int64, error) {
	var migrations []*model.Migration
	var total int64

	// Where 条件
	applyFilters := func(query *gorm.DB) *gorm.DB {
		if len(req.Statuses) > 0 {
			query = query.Where("status IN ?", req.Statuses)
		}
		if req.Keyword != nil && *req.Keyword != "" {
			query = query.Where(
				"display_name LIKE ? OR source_url LIKE ? OR target_path LIKE ?",
				"%"+*req.Keyword+"%", "%"+*req.Keyword+"%", "%"+*req.Keyword+"%",
			)
		}
		return query
	}

	// 统计总数
	if err := applyFilters(r.db.Model(&model.Migration{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}
	offset := (req.Page - 1) * req.PageSize
	err := applyFilters(r.db.Model(&model.Migration{})).
		Order("created_at DESC").Limit(req.PageSize).Offset(offset).
		Find(&migrations).Error

	return migrations, total, err
}

// ListByStatus 查询指定状态的全部记录
func (r *MigrationRepository) ListByStatus(statuses ...string) ([]*model.Migration, error) {
	var migrations []*model.Migration
	err := r.db.Where("status IN ?", statuses).Order("created_at ASC").Find(&migrations).Error
	return migrations, err
}

// CountByStatus 按状态统计记录数
func (r *MigrationRepository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.Model(&model.Migration{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// DeleteResolved 批量删除已完成/失败的记录, 返回删除数量
func (r *MigrationRepository) DeleteResolved(statuses []string) ([]*model.Migration, error) {
	var victims []*model.Migration
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status IN ?", statuses).Find(&victims).Error; err != nil {
			return err
		}
		if len(victims) == 0 {
			return nil
		}
		return tx.Where("status IN ?", statuses).Delete(&model.Migration{}).Error
	})
	return victims, err
}
