// Package gormtest 测试用的内存 SQLite 与 CRUDTool
package gormtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/studieren/foodgram/gormtool"
	"github.com/studieren/foodgram/models"
)

// New 每个测试独立的内存库，已完成迁移，缓存使用进程内 LRU
func New(t testing.TB) *gormtool.CRUDTool {
	t.Helper()

	db, err := gormtool.Open(gormtool.DBConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		// 单连接，内存库随最后一个连接关闭而消失
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cache, err := gormtool.NewLRUCache(128)
	require.NoError(t, err)
	return gormtool.NewCRUDTool(db, cache, nil)
}
