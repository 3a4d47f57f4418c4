package hub

import (
	"context"
	"iter"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
)

// IterFileNames iterate over the file names stored in the repo.
// It doesn't trigger the downloading of the repo, only of the repo info.
func (r *Repo) IterFileNames() iter.Seq2[string, error] {
	// Download info and files.
	err := r.DownloadInfo(false)
	if err != nil {
		// Error downloading: yield error only.
		return func(yield func(string, error) bool) {
			yield("", err)
		}
	}
	return func(yield func(string, error) bool) {
		for _, si := range r.info.Siblings {
			fileName := si.Name
			if path.IsAbs(fileName) || strings.Contains(fileName, "..") {
				yield("", errors.Errorf("model %q contains illegal file name %q -- it cannot be an absolute path, nor contain \"..\"",
					r.ID, fileName))
				return
			}
			if !yield(fileName, nil) {
				return
			}
		}
	}
}

// HasFile returns whether the repo lists fileName among its files.
// It returns false if the repo info can't be downloaded.
func (r *Repo) HasFile(fileName string) bool {
	for name, err := range r.IterFileNames() {
		if err != nil {
			return false
		}
		if name == fileName {
			return true
		}
	}
	return false
}

// DownloadFiles downloads the repository files, and return the path to the downloaded files in the cache structure.
// Files already in the cache are not downloaded again.
//
// Up to MaxParallelDownload files are downloaded at the same time.
//
// The returned downloadPaths can be read, but shouldn't be modified, since there may be other programs using the same
// files.
func (r *Repo) DownloadFiles(repoFiles ...string) (downloadedPaths []string, err error) {
	return r.DownloadFilesContext(context.Background(), repoFiles...)
}

// DownloadFilesContext is like DownloadFiles, but the downloads are canceled if ctx is done.
func (r *Repo) DownloadFilesContext(ctx context.Context, repoFiles ...string) (downloadedPaths []string, err error) {
	if len(repoFiles) == 0 {
		return
	}
	snapshotsDir, err := r.repoSnapshotsDir()
	if err != nil {
		return nil, err
	}

	maxParallel := r.MaxParallelDownload
	if maxParallel <= 0 || maxParallel > len(repoFiles) {
		maxParallel = len(repoFiles)
	}
	downloads := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(maxParallel)
	downloadedPaths = make([]string, len(repoFiles))
	for ii, fileName := range repoFiles {
		relativePath := cleanRelativeFilePath(fileName)
		if relativePath == "." {
			return nil, errors.Errorf("invalid file name %q for repo %q", fileName, r.ID)
		}
		url, err := r.FileURL(filepath.ToSlash(relativePath))
		if err != nil {
			return nil, err
		}
		filePath := filepath.Join(snapshotsDir, relativePath)
		downloadedPaths[ii] = filePath
		downloads.Go(func(ctx context.Context) error {
			if err := r.lockedDownload(ctx, url, filePath, false, nil); err != nil {
				return errors.WithMessagef(err, "file %q from repo %q", fileName, r.ID)
			}
			r.logDownloaded(fileName, filePath)
			return nil
		})
	}
	if err = downloads.Wait(); err != nil {
		return nil, err
	}
	return downloadedPaths, nil
}

// DownloadFile is a shortcut to DownloadFiles with only one file.
func (r *Repo) DownloadFile(file string) (downloadedPath string, err error) {
	res, err := r.DownloadFiles(file)
	if err != nil {
		return "", err
	}
	return res[0], nil
}

// cleanRelativeFilePath returns a path relative to the repo root that can't escape it: leading "/" and any
// ".." that would go above the root are dropped. It uses the OS separator.
func cleanRelativeFilePath(fileName string) string {
	cleaned := strings.TrimPrefix(path.Clean("/"+fileName), "/")
	if cleaned == "" {
		return "."
	}
	return filepath.FromSlash(cleaned)
}
