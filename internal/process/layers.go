package process

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// ListLayers returns the compositor's current layer names
// ("dumpsys SurfaceFlinger --list"), sorted.
func (s *CommandSource) ListLayers(ctx context.Context) ([]string, error) {
	if s.config.ShellCommand != "" {
		return nil, fmt.Errorf("layer listing requires adb")
	}

	args := make([]string, 0, 6)
	if s.config.Serial != "" {
		args = append(args, "-s", s.config.Serial)
	}
	args = append(args, "shell", "dumpsys", "SurfaceFlinger", "--list")

	cmd := exec.CommandContext(ctx, s.config.BinaryPath, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("layer listing failed: %w", err)
	}
	return parseLayerList(string(out)), nil
}

// parseLayerList splits --list output into trimmed, non-empty, sorted names.
func parseLayerList(out string) []string {
	var layers []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			layers = append(layers, line)
		}
	}
	sort.Strings(layers)
	return layers
}

// MatchLayers returns the layers containing pattern as a substring.
// An exact match is returned alone.
func MatchLayers(layers []string, pattern string) []string {
	var matches []string
	for _, l := range layers {
		if l == pattern {
			return []string{l}
		}
		if strings.Contains(l, pattern) {
			matches = append(matches, l)
		}
	}
	return matches
}

// BinaryAvailable reports whether path resolves to an executable.
func BinaryAvailable(path string) bool {
	_, err := exec.LookPath(path)
	return err == nil
}
