package cron

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/catering-backend/pkg/logger"
)

const (
	UploadSweepJobName     = "upload_sweep"
	defaultUploadRetention = 6 * time.Hour
	uploadPattern          = "upload_*.csv"
)

type UploadSweepJobParams struct {
	Logger    *logger.Logger
	Dir       string
	Retention time.Duration
}

// NewUploadSweepJob removes multipart CSV uploads older than the retention
// window. Uploads are normally deleted when their run finishes; this catches
// the ones left behind by interrupted runs.
func NewUploadSweepJob(params UploadSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dir == "" {
		return nil, fmt.Errorf("upload dir required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultUploadRetention
	}
	return &uploadSweepJob{
		logg:      params.Logger,
		dir:       params.Dir,
		retention: retention,
		now:       time.Now,
	}, nil
}

type uploadSweepJob struct {
	logg      *logger.Logger
	dir       string
	retention time.Duration
	now       func() time.Time
}

func (j *uploadSweepJob) Name() string { return UploadSweepJobName }

func (j *uploadSweepJob) Run(ctx context.Context) error {
	matches, err := filepath.Glob(filepath.Join(j.dir, uploadPattern))
	if err != nil {
		return fmt.Errorf("list uploads: %w", err)
	}

	cutoff := j.now().Add(-j.retention)
	var removed int
	var errs error
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = multierr.Append(errs, err)
			}
			continue
		}
		if info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = multierr.Append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logg.Info(j.logg.WithField(ctx, "removed", removed), "stale uploads removed")
	}
	return errs
}
