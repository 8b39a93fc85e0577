package services

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"strand.sh/cli/internal/core/domain"
	"strand.sh/cli/internal/infrastructure/archive"
	"strand.sh/cli/internal/infrastructure/fetch"
	"strand.sh/cli/internal/infrastructure/fsdir"
)

// Mock implementations

type MockDirectoryManager struct {
	mock.Mock
}

func (m *MockDirectoryManager) ResetRoot(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockDirectoryManager) EnsureSubdir(root, name string) (string, error) {
	args := m.Called(root, name)
	return args.String(0), args.Error(1)
}

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(r io.Reader, targetDir string) error {
	args := m.Called(r, targetDir)
	return args.Error(0)
}

// Test helpers

// buildArchive builds a provider-shaped tar.gz: one top-level wrapper
// directory containing the given files.
func buildArchive(t *testing.T, topLevel string, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzWriter)

	require.NoError(t, tarWriter.WriteHeader(&tar.Header{
		Name:     topLevel + "/",
		Typeflag: tar.TypeDir,
		Mode:     0755,
	}))
	for name, content := range files {
		require.NoError(t, tarWriter.WriteHeader(&tar.Header{
			Name:     topLevel + "/" + name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(content)),
		}))
		_, err := tarWriter.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tarWriter.Close())
	require.NoError(t, gzWriter.Close())

	return buf.Bytes()
}

// newRealService wires the real fetcher, extractor, and directory manager.
func newRealService(opts InstallOptions) *InstallService {
	return NewInstallService(fetch.NewHTTPFetcher("test"), archive.NewTarGzExtractor(), fsdir.NewManager(), nil, opts)
}

// Tests

func TestInstallAll_InstallsEveryPlugin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buildArchive(t, "wrapper-master", map[string]string{"plugin.vim": "\" from " + r.URL.Path}))
	}))
	defer server.Close()

	root := t.TempDir()
	sources := []domain.ResolvedSource{
		{DownloadURL: server.URL + "/one.tar.gz", TargetName: "one"},
		{DownloadURL: server.URL + "/two.tar.gz", TargetName: "two"},
		{DownloadURL: server.URL + "/three.tar.gz", TargetName: "three"},
	}

	report, err := newRealService(InstallOptions{}).InstallAll(context.Background(), sources, root)

	require.NoError(t, err)
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, 3, report.Succeeded())

	for _, name := range []string{"one", "two", "three"} {
		assert.FileExists(t, filepath.Join(root, name, "plugin.vim"))
	}
}

func TestInstallAll_OneBadHostDoesNotAffectSiblings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buildArchive(t, "wrapper-master", map[string]string{"plugin.vim": "ok"}))
	}))
	defer server.Close()

	root := t.TempDir()
	sources := []domain.ResolvedSource{
		{DownloadURL: server.URL + "/good-one.tar.gz", TargetName: "good-one"},
		{DownloadURL: "http://127.0.0.1:1/gone.tar.gz", TargetName: "gone"},
		{DownloadURL: server.URL + "/good-two.tar.gz", TargetName: "good-two"},
	}

	report, err := newRealService(InstallOptions{}).InstallAll(context.Background(), sources, root)

	require.NoError(t, err, "per-plugin failures never abort the run")
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())

	byName := outcomesByName(report)
	assert.Equal(t, domain.StatusFetchFailed, byName["gone"].Status)
	assert.NotEmpty(t, byName["gone"].Reason)
	assert.Equal(t, domain.StatusSuccess, byName["good-one"].Status)
	assert.Equal(t, domain.StatusSuccess, byName["good-two"].Status)
}

func TestInstallAll_MalformedArchiveIsAnExtractFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a gzip stream"))
	}))
	defer server.Close()

	root := t.TempDir()
	sources := []domain.ResolvedSource{{DownloadURL: server.URL + "/bad.tar.gz", TargetName: "bad"}}

	report, err := newRealService(InstallOptions{}).InstallAll(context.Background(), sources, root)

	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, domain.StatusExtractFailed, report.Outcomes[0].Status)
}

func TestInstallAll_Non2xxIsAFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	root := t.TempDir()
	sources := []domain.ResolvedSource{{DownloadURL: server.URL + "/missing.tar.gz", TargetName: "missing"}}

	report, err := newRealService(InstallOptions{}).InstallAll(context.Background(), sources, root)

	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, domain.StatusFetchFailed, report.Outcomes[0].Status)
}

func TestInstallAll_ResetFailureIsFatal(t *testing.T) {
	dirs := new(MockDirectoryManager)
	dirs.On("ResetRoot", "/plugins").Return(fmt.Errorf("permission denied"))

	fetcher := new(MockFetcher)
	extractor := new(MockExtractor)
	service := NewInstallService(fetcher, extractor, dirs, nil, InstallOptions{})

	sources := []domain.ResolvedSource{{DownloadURL: "https://example.com/a.tar.gz", TargetName: "a"}}
	_, err := service.InstallAll(context.Background(), sources, "/plugins")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	dirs.AssertExpectations(t)
}

func TestInstallAll_SubdirFailureIsScopedToOnePlugin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buildArchive(t, "wrapper-master", map[string]string{"plugin.vim": "ok"}))
	}))
	defer server.Close()

	root := t.TempDir()
	dirs := new(MockDirectoryManager)
	dirs.On("ResetRoot", root).Return(nil)
	dirs.On("EnsureSubdir", root, "blocked").Return("", fmt.Errorf("read-only file system"))
	dirs.On("EnsureSubdir", root, "fine").Return(filepath.Join(root, "fine"), nil).Run(func(args mock.Arguments) {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "fine"), 0755))
	})

	service := NewInstallService(fetch.NewHTTPFetcher("test"), archive.NewTarGzExtractor(), dirs, nil, InstallOptions{})
	sources := []domain.ResolvedSource{
		{DownloadURL: server.URL + "/blocked.tar.gz", TargetName: "blocked"},
		{DownloadURL: server.URL + "/fine.tar.gz", TargetName: "fine"},
	}

	report, err := service.InstallAll(context.Background(), sources, root)

	require.NoError(t, err)
	byName := outcomesByName(report)
	assert.Equal(t, domain.StatusExtractFailed, byName["blocked"].Status)
	assert.Equal(t, domain.StatusSuccess, byName["fine"].Status)
}

func TestInstallAll_MidStreamReadErrorsCountAsFetchFailures(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return(io.NopCloser(&failingReader{err: errors.New("connection reset by peer")}), nil)

	root := t.TempDir()
	service := NewInstallService(fetcher, archive.NewTarGzExtractor(), fsdir.NewManager(), nil, InstallOptions{})
	sources := []domain.ResolvedSource{{DownloadURL: "https://example.com/a.tar.gz", TargetName: "a"}}

	report, err := service.InstallAll(context.Background(), sources, root)

	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, domain.StatusFetchFailed, report.Outcomes[0].Status)
	assert.Contains(t, report.Outcomes[0].Reason, "connection reset")
}

func TestInstallAll_EmptySourceList_YieldsEmptyReport(t *testing.T) {
	report, err := newRealService(InstallOptions{}).InstallAll(context.Background(), nil, t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
}

func TestInstallAll_ReportAlwaysCoversEverySource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Alternate success and failure by path.
		if r.URL.Path[len(r.URL.Path)-1]%2 == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(buildArchive(t, "wrapper-master", map[string]string{"plugin.vim": "ok"}))
	}))
	defer server.Close()

	const n = 20
	sources := make([]domain.ResolvedSource, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("plugin-%d", i)
		sources = append(sources, domain.ResolvedSource{
			DownloadURL: fmt.Sprintf("%s/%d", server.URL, i),
			TargetName:  name,
		})
	}

	report, err := newRealService(InstallOptions{MaxInFlight: 4}).InstallAll(context.Background(), sources, t.TempDir())

	require.NoError(t, err)
	assert.Len(t, report.Outcomes, n, "exactly one outcome per declared plugin")

	byName := outcomesByName(report)
	for _, src := range sources {
		_, ok := byName[src.TargetName]
		assert.True(t, ok, "missing outcome for %s", src.TargetName)
	}
}

func TestInstallAll_RespectsTheConcurrencyBound(t *testing.T) {
	var inFlight, peak int64
	var mu sync.Mutex

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("done")).Run(func(args mock.Arguments) {
		current := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if current > peak {
			peak = current
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
	})

	service := NewInstallService(fetcher, archive.NewTarGzExtractor(), fsdir.NewManager(), nil, InstallOptions{MaxInFlight: 2})

	sources := make([]domain.ResolvedSource, 8)
	for i := range sources {
		sources[i] = domain.ResolvedSource{
			DownloadURL: fmt.Sprintf("https://example.com/%d.tar.gz", i),
			TargetName:  fmt.Sprintf("plugin-%d", i),
		}
	}

	_, err := service.InstallAll(context.Background(), sources, t.TempDir())

	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int64(2), "no more than MaxInFlight tasks at once")
}

func TestInstallAll_PerPluginTimeoutBecomesAFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	sources := []domain.ResolvedSource{{DownloadURL: server.URL + "/slow.tar.gz", TargetName: "slow"}}

	report, err := newRealService(InstallOptions{PluginTimeout: 50 * time.Millisecond}).
		InstallAll(context.Background(), sources, t.TempDir())

	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, domain.StatusFetchFailed, report.Outcomes[0].Status)
	assert.Contains(t, report.Outcomes[0].Reason, "deadline")
}

func outcomesByName(report domain.InstallReport) map[string]domain.InstallOutcome {
	byName := make(map[string]domain.InstallOutcome, len(report.Outcomes))
	for _, o := range report.Outcomes {
		byName[o.TargetName] = o
	}
	return byName
}

// failingReader fails on the first read, the way a dropped connection does.
type failingReader struct {
	err error
}

func (r *failingReader) Read(p []byte) (int, error) {
	return 0, r.err
}
