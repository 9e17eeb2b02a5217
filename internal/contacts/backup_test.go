package contacts

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService_PerformBackup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.Remember(ctx, "Carmen", "+34600111222")
	require.NoError(t, err)

	logger := zerolog.New(io.Discard)
	dir := filepath.Join(t.TempDir(), "backups")
	b := NewBackupService(s, BackupConfig{Enabled: true, Dir: dir}, &logger)
	b.now = func() time.Time { return time.Date(2025, 10, 20, 9, 30, 0, 0, time.UTC) }

	path, err := b.PerformBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "contacts_20251020_093000.db"), path)

	snapshot, err := Open(path, &logger)
	require.NoError(t, err)
	defer snapshot.Close()
	list, err := snapshot.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Carmen", list[0].Name)
}

func TestBackupService_CleanupOldBackups(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)
	touch := func(name string, age time.Duration) {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
		require.NoError(t, os.Chtimes(p, now.Add(-age), now.Add(-age)))
	}
	touch("contacts_old.db", 10*24*time.Hour)
	touch("contacts_new.db", time.Hour)
	touch("unrelated.db", 10*24*time.Hour)

	logger := zerolog.New(io.Discard)
	b := NewBackupService(nil, BackupConfig{Dir: dir, RetentionDays: 7}, &logger)
	b.now = func() time.Time { return now }

	assert.Equal(t, 1, b.CleanupOldBackups())
	assert.NoFileExists(t, filepath.Join(dir, "contacts_old.db"))
	assert.FileExists(t, filepath.Join(dir, "contacts_new.db"))
	assert.FileExists(t, filepath.Join(dir, "unrelated.db"))

	b.config.RetentionDays = 0
	assert.Zero(t, b.CleanupOldBackups())
}
