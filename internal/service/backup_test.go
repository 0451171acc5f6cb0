package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/internal/config"
	"github.com/MimeLyc/doc-translator/internal/persistence"
	"github.com/MimeLyc/doc-translator/pkg/file"
)

func TestBackupScheduler_RunOnceWritesAndPrunes(t *testing.T) {
	svc, _ := newTestService(t, dictionary(map[string]string{"Hello": "Bonjour"}))
	ctx := context.Background()
	_, err := svc.TranslateTextArray(ctx, config.TranslationConfig{}, unitsOf("Hello"), "")
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "backups")
	b := NewBackupScheduler(svc, cron.New(), dir, "yaml", 2)

	var paths []string
	for range 3 {
		path, err := b.RunOnce(ctx)
		require.NoError(t, err)
		paths = append(paths, path)
		time.Sleep(5 * time.Millisecond)
	}

	data, err := os.ReadFile(paths[2])
	require.NoError(t, err)
	var entries []persistence.ExportEntry
	require.NoError(t, yaml.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Bonjour", entries[0].Target)

	kept, err := file.FindByPrefix(dir, backupPrefix)
	require.NoError(t, err)
	assert.Equal(t, paths[1:], kept)
}

func TestBackupScheduler_Schedule(t *testing.T) {
	svc, _ := newTestService(t, &mockTranslator{})
	c := cron.New()
	b := NewBackupScheduler(svc, c, t.TempDir(), "json", 0)
	ctx := context.Background()

	err := b.Schedule(ctx, "every day")
	assert.True(t, apperr.IsKind(err, apperr.KindConfig))
	assert.Empty(t, c.Entries())

	require.NoError(t, b.Schedule(ctx, "0 3 * * *"))
	require.Len(t, c.Entries(), 1)

	require.NoError(t, b.Schedule(ctx, "@hourly"))
	require.Len(t, c.Entries(), 1)

	require.NoError(t, b.Schedule(ctx, ""))
	assert.Empty(t, c.Entries())
}
