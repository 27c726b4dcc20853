package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"episodedb/internal/config"
	"episodedb/internal/media"
)

const versionTimeout = 10 * time.Second

// Requirement defines an external binary episodedb relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// MediaRequirements lists the transcoder binaries named in cfg.
func MediaRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Media.FFmpegBinary, Description: "Extracts audio, thumbnails and clips"},
		{Name: "FFprobe", Command: cfg.Media.FFprobeBinary, Description: "Inspects video files"},
	}
}

// CheckBinaries resolves each requirement on PATH and, when runner is not
// nil, records the first line of "<command> -version".
func CheckBinaries(ctx context.Context, runner media.CommandRunner, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		if runner != nil {
			status.Version, status.Detail = probeVersion(ctx, runner, resolved)
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

func probeVersion(ctx context.Context, runner media.CommandRunner, command string) (string, string) {
	result, err := runner.Run(ctx, command, []string{"-version"}, versionTimeout)
	if err != nil {
		return "", fmt.Sprintf("version check failed: %v", err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Sprintf("version check exited with status %d", result.ExitCode)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(result.Stdout)), "\n")
	return strings.TrimSpace(line), ""
}
