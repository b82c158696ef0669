package separation

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"tutti/internal/fileutil"
	"tutti/internal/services"
)

// StemNames lists the stems htdemucs produces, in model output order.
var StemNames = []string{"drums", "bass", "other", "vocals"}

// MixStem is the synthetic stem name representing the unseparated track.
const MixStem = "mix"

// Config controls Demucs execution.
type Config struct {
	Binary string
	Model  string
	// Timeout bounds one separation run; zero disables the bound.
	Timeout time.Duration
	// MinFreeBytes is the free-space floor required in the workspace before
	// separation starts. Stems are written as uncompressed WAV and can be
	// several times the source size.
	MinFreeBytes uint64
}

// Result holds the stem files produced by one separation run.
type Result struct {
	// Stems maps stem name to the separated WAV path. Stems the run failed
	// to produce are listed in Missing instead.
	Stems     map[string]string
	Missing   []string
	Workspace string
}

// Cleanup removes the separation workspace.
func (r *Result) Cleanup() error {
	if r == nil || r.Workspace == "" {
		return nil
	}
	return os.RemoveAll(r.Workspace)
}

// CheckDiskSpace verifies the workspace filesystem has at least minFree
// bytes available.
func CheckDiskSpace(dir string, minFree uint64) error {
	if minFree == 0 {
		return nil
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", dir, err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFree {
		return services.Wrap(services.ErrValidation, "separate", "preflight",
			fmt.Sprintf("insufficient disk space: %d bytes free, need %d", free, minFree), nil)
	}
	return nil
}

// Separate runs Demucs on the source file, writing stems into a fresh
// workspace under workDir. The caller owns Result.Cleanup.
func Separate(ctx context.Context, cfg Config, sourcePath, workDir string) (*Result, error) {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = "demucs"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "htdemucs"
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create separation workspace root: %w", err)
	}
	if err := CheckDiskSpace(workDir, cfg.MinFreeBytes); err != nil {
		return nil, err
	}

	workspace, err := os.MkdirTemp(workDir, "stems-*")
	if err != nil {
		return nil, fmt.Errorf("create separation workspace: %w", err)
	}

	// Stage the source inside the workspace. The inbox copy can be moved or
	// replaced while a long separation runs; the verified copy also catches
	// truncated reads before the expensive model invocation.
	staged := filepath.Join(workspace, filepath.Base(sourcePath))
	if err := fileutil.CopyFileVerified(sourcePath, staged); err != nil {
		_ = os.RemoveAll(workspace)
		return nil, fmt.Errorf("stage source for separation: %w", err)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	args := []string{"-n", model, "-o", workspace, staged}
	cmd := exec.CommandContext(runCtx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(workspace)
		detail := strings.TrimSpace(stderr.String())
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, services.Wrap(services.ErrTimeout, "separate", "demucs", "separation timed out", runCtx.Err())
		}
		if detail != "" {
			return nil, services.Wrap(services.ErrExternalTool, "separate", "demucs", detail, err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "separate", "demucs", "separation failed", err)
	}

	trackName := strings.TrimSuffix(filepath.Base(staged), filepath.Ext(staged))
	stemDir := filepath.Join(workspace, model, trackName)

	result := &Result{
		Stems:     make(map[string]string, len(StemNames)),
		Workspace: workspace,
	}
	for _, stem := range StemNames {
		stemPath := filepath.Join(stemDir, stem+".wav")
		if _, statErr := os.Stat(stemPath); statErr != nil {
			result.Missing = append(result.Missing, stem)
			continue
		}
		result.Stems[stem] = stemPath
	}
	if len(result.Stems) == 0 {
		_ = os.RemoveAll(workspace)
		return nil, services.Wrap(services.ErrExternalTool, "separate", "demucs",
			fmt.Sprintf("no stems produced under %s", stemDir), nil)
	}
	return result, nil
}
