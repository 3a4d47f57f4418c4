package hub

import (
	"context"
	"math/rand"
	"os"
	"path"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/ml/data/downloader"
	"github.com/gomlx/textpipe/internal/files"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Generic download utilities.

// getDownloadManager returns current downloader.Manager, or creates a new one for this Repo.
// It is safe to call concurrently.
func (r *Repo) getDownloadManager() *downloader.Manager {
	r.managerMu.Lock()
	defer r.managerMu.Unlock()
	if r.downloadManager == nil {
		r.downloadManager = downloader.New().MaxParallel(r.MaxParallelDownload).WithAuthToken(r.authToken)
		log.Debug().
			Str("repo", r.ID).
			Str("user_agent", DefaultHttpUserAgent()).
			Bool("auth", r.authToken != "").
			Msg("created download manager")
	}
	return r.downloadManager
}

// download url to filePath with the download manager, and waits for it to finish or for ctx to be done.
// The progressCallback is optional.
//
// If ctx is done first, the download is cancelled and ctx.Err() is returned.
func (r *Repo) download(ctx context.Context, url, filePath string, progressCallback downloader.ProgressCallback) error {
	done := make(chan error, 1)
	canceller := r.getDownloadManager().Download(url, filePath,
		func(downloadedBytes, totalBytes int64, finished bool, err error) {
			if progressCallback != nil {
				progressCallback(downloadedBytes, totalBytes, finished, err)
			}
			if finished {
				// The manager may report more than once after a cancellation: only the first one counts.
				select {
				case done <- err:
				default:
				}
			}
		})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		canceller.Trigger()
		return ctx.Err()
	}
}

// lockedDownload url to the given filePath.
//
// If filePath exits and forceDownload is false, it is assumed to already have been correctly downloaded, and it will return immediately.
//
// It downloads the file to filePath+".downloading" and then atomically move it to filePath.
//
// It uses a temporary filePath+".lock" to coordinate multiple processes/programs trying to download the same file at the same time.
func (r *Repo) lockedDownload(ctx context.Context, url, filePath string, forceDownload bool, progressCallback downloader.ProgressCallback) error {
	if files.Exists(filePath) {
		if !forceDownload {
			return nil
		}
		err := os.Remove(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to remove %q while force-downloading %q", filePath, url)
		}
	}

	// Checks whether context has already been cancelled, and exit immediately.
	if err := ctx.Err(); err != nil {
		return err
	}

	// Create directory for file.
	if err := os.MkdirAll(path.Dir(filePath), DefaultDirCreationPerm); err != nil {
		return errors.Wrapf(err, "failed to create directory for file %q", filePath)
	}

	// Lock file to avoid parallel downloads.
	lockPath := filePath + ".lock"
	var mainErr error
	errLock := execOnFileLock(lockPath, func() {
		if files.Exists(filePath) {
			// Some concurrent other process (or goroutine) already downloaded the file.
			return
		}

		tmpPath := filePath + ".downloading"
		if err := r.download(ctx, url, tmpPath, progressCallback); err != nil {
			mainErr = errors.WithMessagef(err, "while downloading %q to %q", url, tmpPath)
			if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
				log.Warn().Err(err).Str("path", tmpPath).Msg("failed removing temporary file")
			}
			return
		}

		// Download succeeded, move to our target location.
		if err := os.Rename(tmpPath, filePath); err != nil {
			mainErr = errors.Wrapf(err, "failed to move downloaded file %q to %q", tmpPath, filePath)
			return
		}

		// File already exists, so we no longer need the lock file.
		if err := os.Remove(lockPath); err != nil {
			log.Warn().Err(err).Str("path", lockPath).Msg("failed removing lock file")
		}
	})
	if mainErr != nil {
		return mainErr
	}
	if errLock != nil {
		return errors.WithMessagef(errLock, "while locking %q to download %q", lockPath, url)
	}
	return nil
}

// onFileLock opens the lockPath file (or creates if it doesn't yet exist), locks it, and executes the function.
// If the lockPath is already locked, it polls with a 1 to 2 seconds period (randomly), until it acquires the lock.
//
// The lockPath is not removed. It's safe to remove it from the given fn, if one knows that no new calls to
// execOnFileLock with the same lockPath is going to be made.
func execOnFileLock(lockPath string, fn func()) (err error) {
	var f *os.File
	f, err = os.OpenFile(lockPath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, DefaultFileCreationPerm)
	if err != nil {
		err = errors.Wrapf(err, "while locking %q", lockPath)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Str("path", lockPath).Msg("failed to close lock file")
		}
	}()

	// Acquire lock or return an error if context is canceled (due to time out).
	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, syscall.EAGAIN) {
			err = errors.Wrapf(err, "while locking %q", lockPath)
			return err
		}

		// Wait from 1 to 2 seconds.
		time.Sleep(time.Millisecond * time.Duration(1000+rand.Intn(1000)))
	}

	// Setup clean up in a deferred function, so it happens even if `fn()` panics.
	defer func() {
		if unlockErr := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); unlockErr != nil && err == nil {
			err = errors.Wrapf(unlockErr, "unlocking file %q", lockPath)
		}
	}()

	// We got the lock, run the function.
	fn()

	return
}

// logDownloaded reports a file made available in the cache, with its size.
func (r *Repo) logDownloaded(fileName, filePath string) {
	level := zerolog.DebugLevel
	if r.logProgress {
		level = zerolog.InfoLevel
	}
	event := log.WithLevel(level).Str("repo", r.ID).Str("file", fileName)
	if info, err := os.Stat(filePath); err == nil {
		event = event.Str("size", humanize.Bytes(uint64(info.Size())))
	}
	event.Msg("file available")
}
