package organizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"platter/internal/config"
	"platter/internal/identification"
	"platter/internal/jobs"
	"platter/internal/logging"
	"platter/internal/textutil"
)

// Placement records where one ripped file ended up.
type Placement struct {
	Source      string
	Destination string
	MainFeature bool
	Skipped     bool
	Size        int64
}

// Result describes a completed library move.
type Result struct {
	Directory  string
	Placements []Placement
}

// Organizer lays ripped files out under the completed directory.
type Organizer struct {
	cfg    *config.Config
	logger *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Organizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Organizer{cfg: cfg, logger: logging.NewComponentLogger(logger, "organizer")}
}

// Destination returns the library directory a job's files belong in:
// <completed>/<subfolder>/<Title (Year)>. The subfolder follows the video
// classification; unidentified jobs fall back to the sanitized disc label.
func (o *Organizer) Destination(job *jobs.Job) string {
	return filepath.Join(o.cfg.Paths.CompletedDir, o.Subfolder(job), TitleDirectory(job))
}

// Subfolder maps the job's video classification onto the library subfolder
// (movies, tv, or unidentified).
func (o *Organizer) Subfolder(job *jobs.Job) string {
	switch job.VideoType {
	case jobs.VideoMovie:
		return o.cfg.Library.MoviesDir
	case jobs.VideoSeries:
		return o.cfg.Library.TVDir
	default:
		return o.cfg.Library.UnidentifiedDir
	}
}

// TitleDirectory returns the directory name a job's files are filed under,
// derived from the title and falling back to the disc label.
func TitleDirectory(job *jobs.Job) string {
	name := textutil.SanitizeFileName(identification.Display(job.Title, job.Year))
	if name == "" {
		name = textutil.SanitizeFileName(job.Label)
	}
	if name == "" {
		name = "unidentified"
	}
	return name
}

// Place moves the given source files into the job's library directory. The
// largest file is the main feature and is renamed to the title; the rest keep
// their basenames and land in the extras subdirectory (series stay flat, they
// have no extras). Destinations that already exist are skipped, never
// overwritten.
func (o *Organizer) Place(ctx context.Context, job *jobs.Job, sources []string) (*Result, error) {
	logger := logging.WithContext(ctx, o.logger)
	if len(sources) == 0 {
		return nil, fmt.Errorf("organize job %d: no files to place", job.ID)
	}

	titleDir := o.Destination(job)
	if err := os.MkdirAll(titleDir, 0o755); err != nil {
		return nil, fmt.Errorf("create library directory %q: %w", titleDir, err)
	}
	extrasDir := titleDir
	if job.VideoType != jobs.VideoSeries {
		extrasDir = filepath.Join(titleDir, o.cfg.Library.ExtrasDir)
	}

	sized, mainIndex, err := measure(sources)
	if err != nil {
		return nil, err
	}

	result := &Result{Directory: titleDir, Placements: make([]Placement, 0, len(sized))}
	for i, src := range sized {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		placement := Placement{Source: src.path, MainFeature: i == mainIndex, Size: src.size}
		if placement.MainFeature {
			placement.Destination = filepath.Join(titleDir, TitleDirectory(job)+filepath.Ext(src.path))
		} else {
			if err := os.MkdirAll(extrasDir, 0o755); err != nil {
				return nil, fmt.Errorf("create extras directory %q: %w", extrasDir, err)
			}
			placement.Destination = filepath.Join(extrasDir, filepath.Base(src.path))
		}

		if _, err := os.Stat(placement.Destination); err == nil {
			logger.Info("destination exists, not moving",
				logging.String("source", src.path),
				logging.String("destination", placement.Destination))
			placement.Skipped = true
			result.Placements = append(result.Placements, placement)
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %q: %w", placement.Destination, err)
		}

		if err := MoveFile(src.path, placement.Destination); err != nil {
			return nil, fmt.Errorf("move %q into library: %w", filepath.Base(src.path), err)
		}
		logger.Info("placed file in library",
			logging.String("destination", placement.Destination),
			logging.Bool("main_feature", placement.MainFeature))
		result.Placements = append(result.Placements, placement)
	}
	return result, nil
}

type sizedFile struct {
	path string
	size int64
}

// measure stats every source and returns the index of the largest, which is
// treated as the main feature.
func measure(sources []string) ([]sizedFile, int, error) {
	sized := make([]sizedFile, 0, len(sources))
	mainIndex := 0
	var largest int64 = -1
	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			return nil, 0, fmt.Errorf("stat source %q: %w", src, err)
		}
		if info.IsDir() {
			return nil, 0, fmt.Errorf("source %q is a directory", src)
		}
		if info.Size() > largest {
			largest = info.Size()
			mainIndex = len(sized)
		}
		sized = append(sized, sizedFile{path: src, size: info.Size()})
	}
	return sized, mainIndex, nil
}

// MoveFile renames src to dst, falling back to copy-and-remove when the
// destination sits on a different filesystem.
func MoveFile(src, dst string) error {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(renameErr, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return renameErr
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}

// FinalName reports the main-feature filename a job will organize into,
// used for collision messages before any file moves.
func (o *Organizer) FinalName(job *jobs.Job) string {
	ext := strings.TrimPrefix(strings.TrimSpace(o.cfg.Library.Extension), ".")
	if ext == "" {
		ext = "mkv"
	}
	return TitleDirectory(job) + "." + ext
}
