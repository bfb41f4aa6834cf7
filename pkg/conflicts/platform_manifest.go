package conflicts

import (
	"bufio"
	"io"
	"strings"

	"github.com/matzehuels/packforge/pkg/errors"
)

// ParsePlatformManifest reads a shared framework's platform manifest: one
// "fileName|packageId|assemblyVersion|fileVersion" entry per line. Every
// entry becomes a Platform item owned by packageVersion of its package.
func ParsePlatformManifest(r io.Reader, packageVersion string) ([]*Item, error) {
	var items []*Item
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "|")
		if len(fields) != 4 {
			return nil, errors.New(errors.ErrCodeInvalidManifest,
				"platform manifest line %d: want 4 '|'-separated fields, got %d", line, len(fields))
		}
		name := strings.TrimSpace(fields[0])
		if name == "" {
			return nil, errors.New(errors.ErrCodeInvalidManifest, "platform manifest line %d: empty file name", line)
		}
		items = append(items, &Item{
			SourcePath:      name,
			Type:            Platform,
			PackageID:       strings.TrimSpace(fields[1]),
			PackageVersion:  packageVersion,
			AssemblyVersion: strings.TrimSpace(fields[2]),
			FileVersion:     strings.TrimSpace(fields[3]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read platform manifest")
	}
	return items, nil
}
