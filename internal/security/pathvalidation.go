// Package security guards the filesystem surfaces the toolkit writes
// through: export paths for label files, annotated images, plots and
// reports, and filenames derived from user-provided identifiers.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// canonicalize resolves symlinks in absPath. For paths that do not
// exist yet (the usual case for export targets) it resolves the nearest
// existing ancestor instead, so a symlinked parent cannot smuggle the
// write outside the allowed tree.
func canonicalize(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}

	dir := absPath
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			// Hit the filesystem root without an existing ancestor.
			return absPath
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			tail, _ := filepath.Rel(parent, absPath)
			return filepath.Join(resolved, tail)
		}
		dir = parent
	}
}

// escapes reports whether rel, a filepath.Rel result, points outside
// the base it was computed against.
func escapes(rel string) bool {
	return rel == ".." ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) ||
		filepath.IsAbs(rel)
}

// ValidatePathWithinDirectory rejects filePath unless it stays inside
// safeDir after cleaning dot components and resolving symlinks on both
// sides.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}

	canonicalSafeDir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonicalSafeDir, canonicalize(absPath))
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if escapes(rel) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// ValidatePathWithinAllowedDirs accepts filePath if it validates
// against at least one of allowedDirs.
func ValidatePathWithinAllowedDirs(filePath string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return fmt.Errorf("no allowed directories specified")
	}
	for _, dir := range allowedDirs {
		if ValidatePathWithinDirectory(filePath, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("path must be within one of the allowed directories: %v", allowedDirs)
}

// ValidateExportPath checks a destination the CLIs write to, such as a
// rendered report, a filter plot or an annotated image. Exports are
// confined to the temp directory and the current working directory.
func ValidateExportPath(filePath string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	return ValidatePathWithinAllowedDirs(filePath, []string{os.TempDir(), cwd})
}

// SanitizeFilename turns an arbitrary identifier (a run ID, a class
// title) into a safe filename component. Anything outside ASCII
// letters, digits, dot, underscore and dash collapses to a single
// underscore, the result is capped at 128 bytes, and leading or
// trailing separators are trimmed. Inputs with nothing usable left
// come back as "unknown".
func SanitizeFilename(s string) string {
	const maxLen = 128

	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-'
		if ok {
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		if !pendingSep {
			b.WriteByte('_')
			pendingSep = true
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
