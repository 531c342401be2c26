package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klokku/planner/internal/utils"
	"github.com/klokku/planner/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

var ErrFileInUse = errors.New("backup file is not accessible")

type Calendar interface {
	Snapshot(ctx context.Context) calendar.Snapshot
	Restore(ctx context.Context, snapshot calendar.Snapshot, replace bool) error
}

type Service struct {
	calendar Calendar
	clock    utils.Clock
	dir      string
}

func NewService(calendar Calendar, clock utils.Clock, dir string) *Service {
	return &Service{calendar: calendar, clock: clock, dir: dir}
}

// BackupToFile writes the whole calendar to path. The file is written next to path
// and renamed into place, so a failed backup never truncates an earlier one.
func (s *Service) BackupToFile(ctx context.Context, path string) error {
	snapshot := s.calendar.Snapshot(ctx)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fileError("save", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fileError("save", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, snapshot); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fileError("save", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fileError("save", path, err)
	}

	log.Infof("backed up %d events to %s", len(snapshot.Events), path)
	return nil
}

// BackupToDir writes a timestamped backup into the configured directory and returns its path.
func (s *Service) BackupToDir(ctx context.Context) (string, error) {
	name := "planner-backup-" + s.clock.Now().Format("20060102-150405") + ".csv"
	path := filepath.Join(s.dir, name)
	if err := s.BackupToFile(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// RestoreFromFile loads the backup at path. With replace the calendar is cleared first,
// otherwise entries are upserted by event id.
func (s *Service) RestoreFromFile(ctx context.Context, path string, replace bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fileError("read", path, err)
	}
	defer file.Close()

	snapshot, err := Read(file)
	if err != nil {
		return err
	}
	return s.restore(ctx, snapshot, replace)
}

func (s *Service) RestoreFrom(ctx context.Context, r io.Reader, replace bool) error {
	snapshot, err := Read(r)
	if err != nil {
		return err
	}
	return s.restore(ctx, snapshot, replace)
}

// ResolveName maps a backup file name to its path inside the backup directory.
func (s *Service) ResolveName(name string) (string, error) {
	base := filepath.Base(name)
	if base != name || base == "." || base == ".." {
		return "", fmt.Errorf("%w: %q is not a backup file name", ErrInvalidBackup, name)
	}
	return filepath.Join(s.dir, base), nil
}

func (s *Service) restore(ctx context.Context, snapshot calendar.Snapshot, replace bool) error {
	if err := s.calendar.Restore(ctx, snapshot, replace); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	return nil
}

func fileError(op, path string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		log.Errorf("backup file %s is not accessible: %v", path, err)
		return fmt.Errorf("%w: unable to %s %s; close any program using the file and try again",
			ErrFileInUse, op, filepath.Base(path))
	}
	log.Errorf("backup file %s: %v", path, err)
	return err
}
