package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint
	Name string
}

func TestRegisterDBTracing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: false}, zap.NewNop()))
	assert.Nil(t, db.Callback().Query().Get("settlement_trace:after_query"))

	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: true, DBName: "settlement"}, zap.NewNop()))
	cb := db.Callback()
	for name, get := range map[string]func(string) func(*gorm.DB){
		"create": cb.Create().Get,
		"query":  cb.Query().Get,
		"update": cb.Update().Get,
		"delete": cb.Delete().Get,
		"row":    cb.Row().Get,
		"raw":    cb.Raw().Get,
	} {
		assert.NotNil(t, get("settlement_trace:before_"+name), name)
		assert.NotNil(t, get("settlement_trace:after_"+name), name)
	}

	// statements still run with the callbacks installed
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	require.NoError(t, db.Create(&tracedRow{Name: "a"}).Error)
	var rows []tracedRow
	require.NoError(t, db.Find(&rows).Error)
	assert.Len(t, rows, 1)
}
