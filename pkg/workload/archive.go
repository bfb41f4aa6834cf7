package workload

import (
	"bytes"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/matzehuels/packforge/pkg/errors"
)

const hashSuffix = ".sha512"

// verifyArchive reads every entry of a package archive so the zip reader
// checks each CRC, and compares the archive against its .sha512 sidecar
// when one exists. Any mismatch is CORRUPT_CACHE_ENTRY.
func verifyArchive(archive string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCorruptCacheEntry, err, "open %s", archive)
	}
	defer zr.Close()
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return errors.Wrap(errors.ErrCodeCorruptCacheEntry, err, "%s: open %s", archive, f.Name)
		}
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		if err != nil {
			return errors.Wrap(errors.ErrCodeCorruptCacheEntry, err, "%s: read %s", archive, f.Name)
		}
	}

	want, err := os.ReadFile(archive + hashSuffix)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	got, err := hashFile(archive)
	if err != nil {
		return err
	}
	if string(bytes.TrimSpace(want)) != got {
		return errors.New(errors.ErrCodeCorruptCacheEntry, "%s: sha512 does not match %s%s", archive, filepath.Base(archive), hashSuffix)
	}
	return nil
}

// hashFile returns the base64 SHA-512 of a file, the form package caches
// store next to archives.
func hashFile(name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

func writeHashFile(archive string) error {
	sum, err := hashFile(archive)
	if err != nil {
		return err
	}
	return os.WriteFile(archive+hashSuffix, []byte(sum), 0o644)
}

// isPackageMetadata reports archive entries that describe the package and
// are not part of its payload.
func isPackageMetadata(name string) bool {
	lower := strings.ToLower(name)
	return lower == "[content_types].xml" ||
		strings.HasPrefix(lower, "_rels/") ||
		strings.HasPrefix(lower, "package/services/metadata/")
}

// extractArchive unpacks archive into dest, which must not exist yet.
// Entries that would land outside dest are rejected.
func extractArchive(archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCorruptCacheEntry, err, "open %s", archive)
	}
	defer zr.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, `\`, "/")
		if isPackageMetadata(name) {
			continue
		}
		if err := errors.ValidatePath(name); err != nil {
			return fmt.Errorf("%s: %w", archive, err)
		}
		target := filepath.Join(dest, filepath.FromSlash(path.Clean(name)))
		if f.FileInfo().IsDir() || strings.HasSuffix(name, "/") {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("%s: extract %s: %w", archive, f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
