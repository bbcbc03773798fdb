// Package pathguard confines all pipeline file access to the configured
// input and output directories.
package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard validates that file paths stay within a configured directory
type Guard struct {
	configuredDirectory string
}

// New creates a guard for the given directory
func New(configuredDirectory string) (*Guard, error) {
	if configuredDirectory == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}

	// Use the directory as provided - don't require it to exist yet,
	// output directories may be created later
	return &Guard{
		configuredDirectory: configuredDirectory,
	}, nil
}

// ValidatePath checks if a path is within the configured directory
func (g *Guard) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	// If configured directory doesn't exist yet, skip validation
	if _, err := os.Stat(g.configuredDirectory); os.IsNotExist(err) {
		return nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	isWithin, err := g.isPathWithinDirectory(absPath)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}

	if !isWithin {
		return fmt.Errorf("path is outside configured directory: %s", path)
	}

	return nil
}

// isPathWithinDirectory checks if a path is within the configured
// directory. Both sides are compared symlink-resolved and as given, and
// a path must stay inside in both forms, so a symlink inside the
// directory cannot point the pipeline at a file outside it.
func (g *Guard) isPathWithinDirectory(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}

	absDir, err := filepath.Abs(g.configuredDirectory)
	if err != nil {
		return false, fmt.Errorf("failed to resolve configured directory: %w", err)
	}

	// EvalSymlinks fails for paths that do not exist yet; keep the
	// unresolved form then, output files are created later
	realDir := absDir
	if resolved, err := filepath.EvalSymlinks(absDir); err == nil {
		realDir = resolved
	}
	realPath := absPath
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		realPath = resolved
	}

	pathOk := within(absPath, absDir) || within(absPath, realDir)
	realPathOk := within(realPath, absDir) || within(realPath, realDir)

	return pathOk && realPathOk, nil
}

// within reports whether path is dir itself or sits under it
func within(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

// ConfiguredDirectory returns the configured directory path
func (g *Guard) ConfiguredDirectory() string {
	return g.configuredDirectory
}

// ValidateDirectory checks if a directory path is within the configured
// directory and is in fact a directory when it exists
func (g *Guard) ValidateDirectory(dirPath string) error {
	if err := g.ValidatePath(dirPath); err != nil {
		return err
	}

	if _, err := os.Stat(g.configuredDirectory); os.IsNotExist(err) {
		return nil
	}

	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dirPath)
	}

	return nil
}
