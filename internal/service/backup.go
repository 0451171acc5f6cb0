package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/pkg/file"
	"github.com/MimeLyc/doc-translator/pkg/icron"
	"github.com/MimeLyc/doc-translator/pkg/log"
)

const backupPrefix = "translations-"

// BackupScheduler exports the cache to a directory on a cron schedule.
// Overlapping runs collapse into one export.
type BackupScheduler struct {
	svc    *Service
	dir    string
	format string
	keep   int
	cron   *cron.Cron
	group  singleflight.Group

	mu      sync.Mutex
	entryID cron.EntryID
	expr    string
}

func NewBackupScheduler(svc *Service, c *cron.Cron, dir, format string, keep int) *BackupScheduler {
	return &BackupScheduler{
		svc:    svc,
		dir:    dir,
		format: format,
		keep:   keep,
		cron:   c,
	}
}

// Schedule replaces the active schedule. An empty expression disables backups.
func (b *BackupScheduler) Schedule(ctx context.Context, expr string) error {
	expr = strings.TrimSpace(expr)
	if expr != "" {
		if _, err := icron.Parse(expr); err != nil {
			return apperr.Wrap(err, apperr.KindConfig, "invalid backup schedule %q", expr)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.entryID != 0 {
		b.cron.Remove(b.entryID)
		b.entryID = 0
	}
	b.expr = expr
	if expr == "" {
		log.Info("Cache backups disabled")
		return nil
	}

	id, err := b.cron.AddFunc(expr, func() {
		if _, err := b.RunOnce(ctx); err != nil {
			log.Error("Scheduled cache backup failed: %v", err)
		}
	})
	if err != nil {
		return apperr.Wrap(err, apperr.KindConfig, "invalid backup schedule %q", expr)
	}
	b.entryID = id

	if info, err := icron.GetTriggerInfo(expr, time.Now()); err == nil {
		log.Info("Cache backups scheduled (%s), next run at %s", expr, info.Next.Format(time.RFC3339))
	}
	return nil
}

// RunOnce writes one export file and returns its path.
func (b *BackupScheduler) RunOnce(ctx context.Context) (string, error) {
	v, err, _ := b.group.Do("backup", func() (any, error) {
		return b.run(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (b *BackupScheduler) run(ctx context.Context) (string, error) {
	format, err := exportFormat(b.format)
	if err != nil {
		return "", err
	}
	data, err := b.svc.ExportTranslations(ctx, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", apperr.Wrap(err, apperr.KindStorage, "create backup directory")
	}

	name := fmt.Sprintf("%s%s.%s", backupPrefix, time.Now().UTC().Format("20060102T150405.000Z"), format)
	path := filepath.Join(b.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", apperr.Wrap(err, apperr.KindStorage, "write backup")
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", apperr.Wrap(err, apperr.KindStorage, "write backup")
	}
	log.Info("Cache backup written to %s", path)

	b.prune()
	return path, nil
}

// prune removes the oldest backups beyond the retention count.
func (b *BackupScheduler) prune() {
	if b.keep <= 0 {
		return
	}
	existing, err := file.FindByPrefix(b.dir, backupPrefix)
	if err != nil {
		log.Warn("Failed to list backups in %s: %v", b.dir, err)
		return
	}
	backups := existing[:0]
	for _, p := range existing {
		if !strings.HasSuffix(p, ".tmp") {
			backups = append(backups, p)
		}
	}
	for len(backups) > b.keep {
		if err := os.Remove(backups[0]); err != nil {
			log.Warn("Failed to remove old backup %s: %v", backups[0], err)
		}
		backups = backups[1:]
	}
}
