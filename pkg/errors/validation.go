package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// packIDRegex matches package identifiers: letters, digits, '_', '-' and '.'
// separated segments that never start with a separator.
var packIDRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

// ValidatePackageID validates a package or pack identifier for safety and
// correctness. Identifiers become directory names under the install root, so
// anything that could escape that root is rejected.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters
//   - No path traversal sequences (.., /, \)
//   - Maximum length of 128 characters
func ValidatePackageID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidPackage, "package id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidPackage, "package id too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package id contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidPackage, "package id contains invalid characters: %q", pattern)
		}
	}

	if !packIDRegex.MatchString(id) {
		return New(ErrCodeInvalidPackage, "invalid package id: %q", id)
	}

	return nil
}

// ridRegex matches runtime identifiers such as "win-x64", "linux-musl-arm64"
// or "osx.13-arm64".
var ridRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidateRID validates a runtime identifier.
func ValidateRID(rid string) error {
	if rid == "" {
		return New(ErrCodeInvalidInput, "runtime identifier cannot be empty")
	}
	if !ridRegex.MatchString(rid) {
		return New(ErrCodeInvalidInput, "invalid runtime identifier: %q", rid)
	}
	return nil
}

// ValidatePath validates a relative file path taken from a pack archive or a
// resolved project model.
// It prevents path traversal and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal segments (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with a separator)")
	}

	for _, seg := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
