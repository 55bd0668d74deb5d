package fingerprint

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"platter/internal/jobs"
)

var (
	errMountNotFound = errors.New("optical drive mount point not found")
	errNoMetadata    = errors.New("expected metadata files missing")
)

// Compute returns a deterministic fingerprint for the disc in device.
// discType narrows the strategy when the caller already classified the
// disc; otherwise the directory layout is probed. Discs the kernel has
// not mounted are mounted for the duration of the computation.
func Compute(ctx context.Context, device string, discType jobs.DiscType) (string, error) {
	mountPoint, weMounted, err := ensureMount(ctx, device)
	if err != nil {
		return "", err
	}
	if weMounted {
		defer unmountDevice(ctx, device)
	}

	info, err := os.Stat(mountPoint)
	if err != nil {
		return "", fmt.Errorf("stat mount: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("mount point %q is not a directory", mountPoint)
	}

	switch classifyLayout(mountPoint, discType) {
	case jobs.DiscBluray:
		if fp, err := computeBluRayFingerprint(ctx, mountPoint); err == nil {
			return fp, nil
		} else if !errors.Is(err, errNoMetadata) {
			return "", err
		}
	case jobs.DiscDVD:
		if fp, err := computeDVDFingerprint(ctx, mountPoint); err == nil {
			return fp, nil
		} else if !errors.Is(err, errNoMetadata) {
			return "", err
		}
	}

	// Fallback: hash directory manifest (first 64 KiB of each file, sorted).
	return computeManifestFingerprint(ctx, mountPoint, 64*1024)
}

// ComputeTimeout wraps Compute with a deadline to avoid blocking
// indefinitely on slow mounts. The default timeout is 30 seconds.
func ComputeTimeout(ctx context.Context, device string, discType jobs.DiscType, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return Compute(ctx, device, discType)
}

func computeBluRayFingerprint(ctx context.Context, base string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	// The AACS id file alone identifies a pressed disc.
	idPath := filepath.Join(base, "CERTIFICATE", "id.bdmv")
	if exists(idPath) {
		return hashFileManifest(base, []string{relativePath(base, idPath)}, 0)
	}

	var files []string

	coreFiles := []string{
		filepath.Join("BDMV", "index.bdmv"),
		filepath.Join("BDMV", "MovieObject.bdmv"),
	}
	for _, rel := range coreFiles {
		if exists(filepath.Join(base, rel)) {
			files = append(files, filepath.ToSlash(rel))
		}
	}

	files = append(files, listBySuffix(base, filepath.Join("BDMV", "PLAYLIST"), ".mpls")...)
	files = append(files, listBySuffix(base, filepath.Join("BDMV", "CLIPINF"), ".clpi")...)

	if len(files) == 0 {
		return "", errNoMetadata
	}

	sort.Strings(files)
	return hashFileManifest(base, files, 0)
}

func computeDVDFingerprint(ctx context.Context, base string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	files := listBySuffix(base, "VIDEO_TS", ".ifo")
	if len(files) == 0 {
		return "", errNoMetadata
	}

	sort.Strings(files)
	return hashFileManifest(base, files, 0)
}

// listBySuffix returns slash-separated paths, relative to base, of the
// regular files under base/dir whose lowercased name ends in suffix.
func listBySuffix(base, dir, suffix string) []string {
	entries, err := os.ReadDir(filepath.Join(base, dir))
	if err != nil {
		return nil
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), suffix) {
			files = append(files, filepath.ToSlash(filepath.Join(dir, entry.Name())))
		}
	}
	return files
}

func computeManifestFingerprint(ctx context.Context, base string, maxBytes int64) (string, error) {
	var files []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		files = append(files, filepath.ToSlash(relativePath(base, path)))
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", errNoMetadata
	}
	sort.Strings(files)
	return hashFileManifest(base, files, maxBytes)
}

func hashFileManifest(base string, files []string, maxBytes int64) (string, error) {
	h := sha256.New()
	for _, rel := range files {
		abs := filepath.Join(base, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", rel, err)
		}
		if err := appendFileToHash(h, abs, rel, info.Size(), maxBytes); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func appendFileToHash(h hash.Hash, abs, rel string, size, maxBytes int64) error {
	_, _ = h.Write([]byte(rel))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatInt(size, 10)))
	_, _ = h.Write([]byte{0})

	file, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("open %s: %w", rel, err)
	}
	defer file.Close()

	reader := io.Reader(file)
	if maxBytes > 0 && size > maxBytes {
		reader = io.LimitReader(file, maxBytes)
	}
	if _, err := io.Copy(h, reader); err != nil {
		return fmt.Errorf("hash %s: %w", rel, err)
	}
	_, _ = h.Write([]byte{0})
	return nil
}

func relativePath(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func classifyLayout(mountPoint string, hint jobs.DiscType) jobs.DiscType {
	switch hint {
	case jobs.DiscBluray, jobs.DiscDVD:
		return hint
	}

	if hasDir(mountPoint, "BDMV") {
		return jobs.DiscBluray
	}
	if hasDir(mountPoint, "VIDEO_TS") {
		return jobs.DiscDVD
	}
	return jobs.DiscUnknown
}

func hasDir(base, name string) bool {
	info, err := os.Stat(filepath.Join(base, name))
	return err == nil && info.IsDir()
}

// mountsFile is a package-level variable so tests can point resolution at
// a fixture instead of the live mount table.
var mountsFile = "/proc/mounts"

func resolveMountPoint(device string) (string, error) {
	f, err := os.Open(mountsFile)
	if err != nil {
		return "", fmt.Errorf("open mounts: %w", err)
	}
	defer f.Close()

	requested, _ := filepath.EvalSymlinks(device)
	if requested == "" {
		requested = device
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		mountDevice := decodeMountField(fields[0])
		mountPath := decodeMountField(fields[1])

		canonical, _ := filepath.EvalSymlinks(mountDevice)
		if canonical == "" {
			canonical = mountDevice
		}

		if sameDevice(requested, canonical) {
			return mountPath, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan mounts: %w", err)
	}
	return "", errMountNotFound
}

// decodeMountField reverses the octal escaping the kernel applies to
// whitespace in /proc/mounts fields.
func decodeMountField(field string) string {
	replacer := strings.NewReplacer(
		"\\040", " ",
		"\\011", "\t",
		"\\012", "\n",
		"\\134", "\\",
	)
	return replacer.Replace(field)
}

func sameDevice(a, b string) bool {
	if a == b {
		return true
	}
	if strings.HasPrefix(a, "/dev/") && strings.HasPrefix(b, "/dev/") {
		return filepath.Base(a) == filepath.Base(b)
	}
	return false
}
