package utils

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	homeShortcutConstant       = "~"
	homeShortcutPrefixConstant = "~/"
)

// HomePathExpander resolves leading tilde shortcuts in filesystem paths.
type HomePathExpander struct{}

// NewHomePathExpander constructs a HomePathExpander instance.
func NewHomePathExpander() *HomePathExpander {
	return &HomePathExpander{}
}

// Expand replaces a leading tilde with the user's home directory. Paths
// without the shortcut, shortcuts naming another user, and paths whose home
// directory cannot be resolved are returned unchanged aside from trimming.
func (expander *HomePathExpander) Expand(candidatePath string) string {
	if expander == nil {
		return candidatePath
	}

	trimmedPath := strings.TrimSpace(candidatePath)
	if !strings.HasPrefix(trimmedPath, homeShortcutConstant) {
		return trimmedPath
	}

	homeDirectory, homeDirectoryError := os.UserHomeDir()
	if homeDirectoryError != nil || len(homeDirectory) == 0 {
		return trimmedPath
	}

	if trimmedPath == homeShortcutConstant {
		return homeDirectory
	}

	if strings.HasPrefix(trimmedPath, homeShortcutPrefixConstant) {
		relativePath := strings.TrimPrefix(trimmedPath, homeShortcutPrefixConstant)
		return filepath.Join(homeDirectory, relativePath)
	}

	return trimmedPath
}
