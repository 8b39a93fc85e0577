package ports

import (
	"context"
	"io"
)

// Fetcher performs one HTTP GET per resolved source and hands back the
// response body as a stream. It never buffers a whole archive in memory and
// never retries: a failed fetch is a terminal outcome for that plugin.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// Extractor consumes a gzip-compressed tar stream and unpacks it into the
// target directory, stripping the single top-level wrapper directory the
// supported providers always produce.
type Extractor interface {
	Extract(r io.Reader, targetDir string) error
}

// DirectoryManager owns the plugin root directory. ResetRoot is destructive
// and unconditional; it must succeed before any fetch task starts.
// EnsureSubdir failures are scoped to the one plugin that requested it.
type DirectoryManager interface {
	ResetRoot(path string) error
	EnsureSubdir(root, name string) (string, error)
}
