package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// documentNameRegex matches document names usable as file names and keys.
var documentNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateDocumentName validates the name a document is stored under.
// Names become file names and cache keys, so the rules are conservative:
//   - No empty names
//   - Maximum length of 128 characters
//   - Letters, digits, dots, dashes and underscores only
//   - No path traversal sequences
func ValidateDocumentName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "document name cannot be empty")
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "document name too long (max 128 characters)")
	}
	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidInput, "document name cannot contain path traversal sequences (..)")
	}
	if !documentNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid document name: %q", name)
	}
	return nil
}

// ValidateNodeID validates a node identifier received from outside the
// process (HTTP paths, shell arguments).
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "node ID cannot be empty")
	}
	if len(id) > 256 {
		return New(ErrCodeInvalidInput, "node ID too long (max 256 characters)")
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "node ID contains invalid control characters")
		}
	}
	return nil
}

// ValidateFolderPath validates a filesystem path bound to a folder explorer.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidateFolderPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// commandNameRegex matches shell command names such as "convert-node".
var commandNameRegex = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// ValidateCommandName validates a shell command name.
func ValidateCommandName(name string) error {
	if !commandNameRegex.MatchString(name) {
		return New(ErrCodeUnknownCommand, "invalid command name: %q", name)
	}
	return nil
}
