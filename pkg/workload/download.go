package workload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/observability"
	"github.com/matzehuels/packforge/pkg/version"
)

// DefaultDownloadParallelism bounds concurrent downloads in
// [Installer.DownloadPacksToOfflineCache].
const DefaultDownloadParallelism = 4

// DownloadToOfflineCache stores the archive of p in cacheDir together with
// its .sha512 sidecar and returns the archive path. An empty p.Version
// selects the newest version the feed offers. Prerelease versions are
// refused unless includePreviews is set. A valid archive already in the
// cache is reused.
func (in *Installer) DownloadToOfflineCache(ctx context.Context, p PackInfo, cacheDir string, includePreviews bool) (string, error) {
	start := time.Now()
	path, err := in.download(ctx, p, cacheDir, includePreviews)
	observability.Install().OnPackOperation(ctx, "download", p.ID, time.Since(start), err)
	return path, err
}

func (in *Installer) download(ctx context.Context, p PackInfo, cacheDir string, includePreviews bool) (string, error) {
	if in.Fetcher == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "installer has no fetcher")
	}
	if err := errors.ValidatePackageID(p.ID); err != nil {
		return "", err
	}
	ver, err := in.pickVersion(ctx, p, includePreviews)
	if err != nil {
		return "", err
	}
	p.Version = ver.String()

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(cacheDir, archiveName(p.PackageID(), p.Version))
	if exists(dest) {
		if err := verifyArchive(dest); err == nil {
			in.logger().Debug("archive already cached", "pack", p, "path", dest)
			return dest, nil
		}
		in.logger().Warn("replacing corrupt cached archive", "path", dest)
	}

	f, err := os.CreateTemp(cacheDir, archiveName(p.PackageID(), p.Version)+".*.download")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	f.Close()
	defer os.Remove(tmp)
	if err := in.Fetcher.Fetch(ctx, p.PackageID(), p.Version, tmp); err != nil {
		return "", err
	}
	os.Remove(tmp + hashSuffix)
	if err := verifyArchive(tmp); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", err
	}
	if err := writeHashFile(dest); err != nil {
		return "", err
	}
	in.logger().Info("downloaded pack", "pack", p, "path", dest)
	return dest, nil
}

func (in *Installer) pickVersion(ctx context.Context, p PackInfo, includePreviews bool) (version.Semantic, error) {
	if p.Version != "" {
		v, err := version.ParseSemantic(p.Version)
		if err != nil {
			return v, err
		}
		if v.IsPrerelease() && !includePreviews {
			return v, errors.New(errors.ErrCodePreviewExcluded, "%s is a preview; pass include-previews to download it", p)
		}
		return v, nil
	}
	raw, err := in.Fetcher.Versions(ctx, p.PackageID())
	if err != nil {
		return version.Semantic{}, err
	}
	var candidates []version.Semantic
	for _, r := range raw {
		if v, err := version.ParseSemantic(r); err == nil {
			candidates = append(candidates, v)
		}
	}
	v, ok := version.Latest(candidates, includePreviews)
	if !ok {
		if len(candidates) > 0 && !includePreviews {
			return v, errors.New(errors.ErrCodePreviewExcluded, "%s only has preview versions", p.ID)
		}
		return v, errors.New(errors.ErrCodeNotFound, "no versions of %s", p.ID)
	}
	return v, nil
}

// DownloadPacksToOfflineCache downloads packs concurrently, at most
// parallelism at a time (0 means [DefaultDownloadParallelism]). A package
// listed more than once is downloaded once. The first failure cancels the
// remaining downloads. Paths come back in input order.
func (in *Installer) DownloadPacksToOfflineCache(ctx context.Context, packs []PackInfo, cacheDir string, includePreviews bool, parallelism int) ([]string, error) {
	if parallelism <= 0 {
		parallelism = DefaultDownloadParallelism
	}
	// first maps each input index to the index that downloads its package.
	first := make([]int, len(packs))
	byPackage := make(map[string]int)
	for i, p := range packs {
		k := strings.ToLower(p.PackageID()) + "/" + strings.ToLower(p.Version)
		j, ok := byPackage[k]
		if !ok {
			j = i
			byPackage[k] = i
		}
		first[i] = j
	}

	paths := make([]string, len(packs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, p := range packs {
		if first[i] != i {
			continue
		}
		g.Go(func() error {
			path, err := in.DownloadToOfflineCache(ctx, p, cacheDir, includePreviews)
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, j := range first {
		paths[i] = paths[j]
	}
	return paths, nil
}
