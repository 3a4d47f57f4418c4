package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gomlx/gomlx/ml/data/downloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestHub serves the info of "owner/model" and the given files, counting the file requests.
// Requests without the "Bearer token" authorization are rejected.
func newTestHub(t *testing.T, files map[string]string) (server *httptest.Server, fileRequests *atomic.Int32) {
	fileRequests = &atomic.Int32{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/owner/model/revision/main", func(w http.ResponseWriter, r *http.Request) {
		info := `{"id": "owner/model", "sha": "` + testCommitHash + `", "siblings": [`
		first := true
		for name := range files {
			if !first {
				info += ", "
			}
			first = false
			info += `{"rfilename": "` + name + `"}`
		}
		info += "]}"
		_, _ = w.Write([]byte(info))
	})
	for name, content := range files {
		mux.HandleFunc("/owner/model/resolve/"+testCommitHash+"/"+name, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fileRequests.Add(1)
			_, _ = w.Write([]byte(content))
		})
	}
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, fileRequests
}

func TestDownloadFilesFromServer(t *testing.T) {
	server, fileRequests := newTestHub(t, map[string]string{
		"tokenizer.json":        `{"model": {}}`,
		"tokenizer_config.json": `{"pad_token": "[PAD]"}`,
	})
	repo := New("owner/model").
		WithCacheDir(t.TempDir()).
		WithEndpoint(server.URL + "/").
		WithAuth("token")
	repo.MaxParallelDownload = 2

	paths, err := repo.DownloadFiles("tokenizer.json", "tokenizer_config.json")
	require.NoError(t, err)
	require.Len(t, paths, 2)
	content, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, `{"model": {}}`, string(content))
	content, err = os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, `{"pad_token": "[PAD]"}`, string(content))
	assert.Equal(t, int32(2), fileRequests.Load())
	assert.NoFileExists(t, paths[0]+".downloading")
	assert.NoFileExists(t, paths[0]+".lock")

	// Second time comes from the cache.
	_, err = repo.DownloadFiles("tokenizer.json", "tokenizer_config.json")
	require.NoError(t, err)
	assert.Equal(t, int32(2), fileRequests.Load())
}

func TestDownloadFileErrors(t *testing.T) {
	server, _ := newTestHub(t, map[string]string{"tokenizer.json": `{}`})
	cacheDir := t.TempDir()

	// Missing authorization: the server answers 401.
	repo := New("owner/model").WithCacheDir(cacheDir).WithEndpoint(server.URL)
	_, err := repo.DownloadFile("tokenizer.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	snapshotPath := filepath.Join(cacheDir, "models--owner--model", "snapshots", testCommitHash, "tokenizer.json")
	assert.NoFileExists(t, snapshotPath)
	assert.NoFileExists(t, snapshotPath+".downloading")

	// File not served.
	repo.WithAuth("token")
	_, err = repo.DownloadFile("missing.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	// Context already cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.DownloadFilesContext(ctx, "tokenizer.json")
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, snapshotPath)
}

func TestDownloadProgressCallback(t *testing.T) {
	server, _ := newTestHub(t, map[string]string{"vocab.txt": "hello\nworld\n"})
	repo := New("owner/model").WithCacheDir(t.TempDir()).WithEndpoint(server.URL).WithAuth("token")
	url, err := repo.FileURL("vocab.txt")
	require.NoError(t, err)

	var finished int
	var downloaded int64
	filePath := filepath.Join(t.TempDir(), "vocab.txt")
	var callback downloader.ProgressCallback = func(downloadedBytes, totalBytes int64, done bool, err error) {
		assert.NoError(t, err)
		downloaded = downloadedBytes
		if done {
			finished++
		}
	}
	require.NoError(t, repo.lockedDownload(context.Background(), url, filePath, false, callback))
	assert.Equal(t, 1, finished)
	assert.Equal(t, int64(len("hello\nworld\n")), downloaded)
	assert.FileExists(t, filePath)
}

func TestGetDownloadManagerConcurrent(t *testing.T) {
	repo := New("owner/model")
	const numGoroutines = 8
	managers := make([]*downloader.Manager, numGoroutines)
	var wg sync.WaitGroup
	for ii := range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			managers[ii] = repo.getDownloadManager()
		}()
	}
	wg.Wait()
	for _, manager := range managers {
		assert.Same(t, managers[0], manager)
	}
}
