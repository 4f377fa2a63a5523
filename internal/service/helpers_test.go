package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"sharpfeed/internal/store"
	"sharpfeed/internal/store/sqlite"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	kv := sqlite.NewKVStore(db)
	require.NoError(t, kv.Init(context.Background()))
	return kv
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}
