package disc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"platter/internal/jobs"
	"platter/internal/logging"
)

// Classification describes what sits in the drive.
type Classification struct {
	Type       jobs.DiscType
	Label      string
	FSType     string
	Mountpoint string
}

// Runner executes an external probe command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Classifier determines disc type, label, and filesystem for a device.
type Classifier struct {
	runner Runner
	logger *slog.Logger
}

// NewClassifier builds a classifier that shells out to lsblk and blkid.
func NewClassifier(logger *slog.Logger) *Classifier {
	return NewClassifierWithRunner(logger, execRunner)
}

// NewClassifierWithRunner allows injecting the probe command runner (used in tests).
func NewClassifierWithRunner(logger *slog.Logger, runner Runner) *Classifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	if runner == nil {
		runner = execRunner
	}
	return &Classifier{runner: runner, logger: logging.NewComponentLogger(logger, "disc")}
}

// Classify probes the device and reports the medium type. Audio CDs carry no
// filesystem, so an empty probe classifies as music. Mounted udf/iso9660
// media is inspected for VIDEO_TS (dvd) and BDMV (bluray) structures; a
// filesystem without either, or one that is not mounted, rips as a raw data
// image.
func (c *Classifier) Classify(ctx context.Context, device string) (Classification, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return Classification{}, fmt.Errorf("classify: no device specified")
	}

	result := Classification{Type: jobs.DiscData}

	output, err := c.runner(ctx, "lsblk", "-P", "-o", "NAME,LABEL,FSTYPE,MOUNTPOINT", device)
	if err != nil {
		return Classification{}, fmt.Errorf("classify %s: lsblk: %w", device, err)
	}
	result.Label, result.FSType, result.Mountpoint = parseLsblkOutput(string(output))

	if result.FSType == "" {
		// blkid fails outright on media without a filesystem; that failure
		// is the audio CD signal, not an error.
		if export, err := c.runner(ctx, "blkid", "-p", "-o", "export", device); err == nil {
			values := parseBlkidExport(string(export))
			if result.Label == "" {
				result.Label = values["LABEL"]
			}
			result.FSType = values["TYPE"]
		}
	}

	if result.FSType == "" {
		result.Type = jobs.DiscMusic
		c.logClassification(ctx, device, result)
		return result, nil
	}

	if isVideoCapableFS(result.FSType) && result.Mountpoint != "" {
		switch {
		case hasDir(result.Mountpoint, "VIDEO_TS"):
			result.Type = jobs.DiscDVD
		case hasDir(result.Mountpoint, "BDMV"):
			result.Type = jobs.DiscBluray
		}
	}

	c.logClassification(ctx, device, result)
	return result, nil
}

func (c *Classifier) logClassification(ctx context.Context, device string, result Classification) {
	logging.WithContext(ctx, c.logger).Info("classified disc",
		logging.String("device", device),
		logging.String("disc_type", string(result.Type)),
		logging.String("label", result.Label),
		logging.String("fstype", result.FSType))
}

func isVideoCapableFS(fstype string) bool {
	switch strings.ToLower(strings.TrimSpace(fstype)) {
	case "udf", "iso9660":
		return true
	default:
		return false
	}
}

func hasDir(base, name string) bool {
	info, err := os.Stat(filepath.Join(base, name))
	return err == nil && info.IsDir()
}

// lsblk -P quotes every value and escapes embedded quotes, so a plain
// whitespace split would mangle labels with spaces.
var lsblkPairPattern = regexp.MustCompile(`([A-Z]+)="((?:[^"\\]|\\.)*)"`)

// parseLsblkOutput returns the label, fstype, and mountpoint from lsblk -P
// output, preferring the first line that reports a filesystem.
func parseLsblkOutput(output string) (label, fstype, mountpoint string) {
	first := true
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		values := parseLsblkLine(line)
		if len(values) == 0 {
			continue
		}
		if first {
			label, fstype, mountpoint = values["LABEL"], values["FSTYPE"], values["MOUNTPOINT"]
			first = false
		}
		if values["FSTYPE"] != "" && fstype == "" {
			label, fstype, mountpoint = values["LABEL"], values["FSTYPE"], values["MOUNTPOINT"]
		}
	}
	return label, fstype, mountpoint
}

func parseLsblkLine(line string) map[string]string {
	matches := lsblkPairPattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return nil
	}
	values := make(map[string]string, len(matches))
	for _, match := range matches {
		values[match[1]] = strings.ReplaceAll(match[2], `\"`, `"`)
	}
	return values
}

// parseBlkidExport parses blkid -p -o export output (KEY=VALUE lines).
func parseBlkidExport(output string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return values
}
