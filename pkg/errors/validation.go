package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateModID validates a canonical mod identifier.
// IDs are compared case-insensitively; callers should normalize with
// strings.ToLower before storage. The validation rules are intentionally
// conservative:
//   - No empty IDs
//   - Maximum length of 128 characters
//   - Only letters, digits, '.', '_' and '-'
//   - Must not begin or end with a separator
func ValidateModID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidModID, "mod id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidModID, "mod id too long (max 128 characters)")
	}

	for _, r := range id {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case r == '.' || r == '_' || r == '-':
		default:
			return New(ErrCodeInvalidModID, "mod id contains invalid character %q", r)
		}
	}

	if strings.HasPrefix(id, ".") || strings.HasSuffix(id, ".") ||
		strings.HasPrefix(id, "-") || strings.HasSuffix(id, "-") {
		return New(ErrCodeInvalidModID, "mod id cannot begin or end with a separator: %q", id)
	}

	return nil
}

// ValidateArchiveEntry validates a relative path extracted from a package
// archive. It prevents path traversal out of the extraction directory.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateArchiveEntry(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "archive entry path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "archive entry path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == 0 || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "archive entry path contains control characters")
		}
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "archive entry path cannot contain backslashes: %q", path)
	}

	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "archive entry path must be relative: %q", path)
	}

	// Normalize and re-check: "a/../../b" cleans to "../b".
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return New(ErrCodeInvalidPath, "archive entry path escapes the extraction directory: %q", path)
	}

	return nil
}
