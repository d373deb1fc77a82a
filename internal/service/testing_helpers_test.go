package service

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pointlog/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service-%d-%d?mode=memory&cache=shared", time.Now().UnixNano(), testDBSeq.Add(1))
	gdb, err := db.Open(dsn, logger.Silent)
	require.NoError(t, err, "open test database")
	require.NoError(t, gdb.AutoMigrate(db.Models()...), "migrate test database")

	t.Cleanup(func() {
		db.Close(gdb)
	})
	return gdb
}

func mustCreate(t *testing.T, gdb *gorm.DB, value interface{}) {
	t.Helper()
	require.NoError(t, gdb.Create(value).Error, "create %T", value)
}
