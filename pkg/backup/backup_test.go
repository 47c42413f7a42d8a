package backup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AlsitoQC/pkg/util"
)

type row struct {
	ID   int
	Name string
}

func TestSnapshotAndPrune(t *testing.T) {
	dir := t.TempDir()
	db, err := util.OpenDatabase("sqlite", filepath.Join(dir, "live.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))
	require.NoError(t, db.Create(&row{Name: "fire"}).Error)

	job := NewJob(db, "sqlite", Config{Dir: filepath.Join(dir, "backups"), Keep: 2}, nil)
	var last string
	for i := 0; i < 3; i++ {
		last, err = job.Snapshot(context.Background())
		require.NoError(t, err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "backups", filePrefix+"*.db"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, files, last)

	copyDB, err := util.OpenDatabase("sqlite", last)
	require.NoError(t, err)
	var got []row
	require.NoError(t, copyDB.Find(&got).Error)
	require.Len(t, got, 1)
	assert.Equal(t, "fire", got[0].Name)
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := NewJob(nil, "mysql", Config{Dir: t.TempDir()}, nil).Snapshot(context.Background())
	assert.ErrorContains(t, err, "unsupported")
}
