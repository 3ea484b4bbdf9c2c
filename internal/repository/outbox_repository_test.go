package repository_test

import (
	"testing"
	"time"

	"github.com/siteops/opsflow-gin/internal/model"
	"github.com/siteops/opsflow-gin/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDBForOutbox 创建出箱测试数据库
func setupTestDBForOutbox(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&model.OutboxModel{})
	require.NoError(t, err)

	return db
}

func saveOutboxRecord(t *testing.T, repo repository.OutboxRepository, id string, createdAt time.Time) {
	t.Helper()
	err := repo.Save(&model.OutboxModel{
		ID:        id,
		EntityID:  "req-001",
		Type:      "status_changed",
		Data:      []byte(`{"type":"status_changed"}`),
		Status:    model.OutboxStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})
	require.NoError(t, err)
}

// TestOutboxRepository_FindPending 测试按创建顺序取待发送记录
func TestOutboxRepository_FindPending(t *testing.T) {
	db := setupTestDBForOutbox(t)
	repo := repository.NewOutboxRepository(db)
	now := time.Now()

	saveOutboxRecord(t, repo, "ob-002", now.Add(time.Minute))
	saveOutboxRecord(t, repo, "ob-001", now)

	records, err := repo.FindPending(10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ob-001", records[0].ID, "先创建的先发送")

	// limit 生效
	records, err = repo.FindPending(1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

// TestOutboxRepository_Claim 测试认领互斥: 同一记录只能被认领一次
func TestOutboxRepository_Claim(t *testing.T) {
	db := setupTestDBForOutbox(t)
	repo := repository.NewOutboxRepository(db)

	saveOutboxRecord(t, repo, "ob-001", time.Now())

	claimed, err := repo.Claim("ob-001")
	require.NoError(t, err)
	assert.True(t, claimed)

	// 第二次认领落空
	claimed, err = repo.Claim("ob-001")
	require.NoError(t, err)
	assert.False(t, claimed)

	// 认领中的记录不再被轮询命中
	records, err := repo.FindPending(10)
	require.NoError(t, err)
	assert.Empty(t, records)

	// 放回后可再次认领
	require.NoError(t, repo.Release("ob-001"))
	claimed, err = repo.Claim("ob-001")
	require.NoError(t, err)
	assert.True(t, claimed)
}

// TestOutboxRepository_ReleaseStale 测试回收遗留的 processing 记录
func TestOutboxRepository_ReleaseStale(t *testing.T) {
	db := setupTestDBForOutbox(t)
	repo := repository.NewOutboxRepository(db)

	saveOutboxRecord(t, repo, "ob-001", time.Now())
	claimed, err := repo.Claim("ob-001")
	require.NoError(t, err)
	require.True(t, claimed)

	// 已完成的记录不受回收影响
	saveOutboxRecord(t, repo, "ob-002", time.Now())
	require.NoError(t, repo.MarkSuccess("ob-002"))

	require.NoError(t, repo.ReleaseStale(0))

	records, err := repo.FindPending(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ob-001", records[0].ID)
}

// TestOutboxRepository_MarkSuccess 测试标记成功后不再被轮询命中
func TestOutboxRepository_MarkSuccess(t *testing.T) {
	db := setupTestDBForOutbox(t)
	repo := repository.NewOutboxRepository(db)

	saveOutboxRecord(t, repo, "ob-001", time.Now())
	require.NoError(t, repo.MarkSuccess("ob-001"))

	records, err := repo.FindPending(10)
	require.NoError(t, err)
	assert.Empty(t, records)

	var saved model.OutboxModel
	require.NoError(t, db.Where("id = ?", "ob-001").First(&saved).Error)
	assert.Equal(t, model.OutboxStatusSuccess, saved.Status)
}

// TestOutboxRepository_RetryThenFail 测试重试计数与最终失败
func TestOutboxRepository_RetryThenFail(t *testing.T) {
	db := setupTestDBForOutbox(t)
	repo := repository.NewOutboxRepository(db)

	saveOutboxRecord(t, repo, "ob-001", time.Now())

	require.NoError(t, repo.IncrementRetry("ob-001"))
	require.NoError(t, repo.IncrementRetry("ob-001"))

	var saved model.OutboxModel
	require.NoError(t, db.Where("id = ?", "ob-001").First(&saved).Error)
	assert.Equal(t, 2, saved.RetryCount)

	require.NoError(t, repo.MarkFailed("ob-001"))
	require.NoError(t, db.Where("id = ?", "ob-001").First(&saved).Error)
	assert.Equal(t, model.OutboxStatusFailed, saved.Status)

	// 失败记录保留,不再被轮询命中
	records, err := repo.FindPending(10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
