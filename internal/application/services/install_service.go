package services

import (
	"context"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
	"strand.sh/cli/internal/core/domain"
	"strand.sh/cli/internal/core/ports"
)

const (
	// DefaultMaxInFlight bounds simultaneously running install tasks so a
	// large plugin list cannot exhaust sockets or file descriptors. The
	// bound is a tunable, not a correctness requirement.
	DefaultMaxInFlight = 8

	// DefaultPluginTimeout is the per-plugin deadline covering fetch and
	// extract, so one unresponsive host cannot stall the whole run.
	DefaultPluginTimeout = 60 * time.Second
)

// InstallOptions tunes the orchestrator.
type InstallOptions struct {
	MaxInFlight   int
	PluginTimeout time.Duration
}

// InstallService is the concurrency core: it fans out one independent task
// per resolved source, bounds how many run at once, and folds every task's
// terminal state into a complete report.
type InstallService struct {
	fetcher   ports.Fetcher
	extractor ports.Extractor
	dirs      ports.DirectoryManager
	logger    *log.Logger
	opts      InstallOptions
}

// NewInstallService creates the install orchestrator.
func NewInstallService(
	fetcher ports.Fetcher,
	extractor ports.Extractor,
	dirs ports.DirectoryManager,
	logger *log.Logger,
	opts InstallOptions,
) *InstallService {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	if opts.PluginTimeout <= 0 {
		opts.PluginTimeout = DefaultPluginTimeout
	}
	return &InstallService{
		fetcher:   fetcher,
		extractor: extractor,
		dirs:      dirs,
		logger:    logger,
		opts:      opts,
	}
}

// InstallAll resets the plugin root, then installs every resolved source
// concurrently. The returned error is non-nil only when the directory reset
// fails, which aborts the run before any network activity. Otherwise the
// report always contains exactly one outcome per source, whatever failed;
// no task's failure cancels or affects any sibling.
func (s *InstallService) InstallAll(ctx context.Context, sources []domain.ResolvedSource, root string) (domain.InstallReport, error) {
	if err := s.dirs.ResetRoot(root); err != nil {
		return domain.InstallReport{}, err
	}

	outcomes := make([]domain.InstallOutcome, len(sources))

	// A plain group, not errgroup.WithContext: tasks record their failures
	// in their own outcome slot and never return an error, so one plugin
	// can never cancel another.
	var g errgroup.Group
	g.SetLimit(s.opts.MaxInFlight)

	for i, src := range sources {
		g.Go(func() error {
			outcomes[i] = s.installOne(ctx, src, root)
			return nil
		})
	}

	_ = g.Wait()

	return domain.InstallReport{Outcomes: outcomes}, nil
}

// installOne runs the fetch → extract pipeline for a single source and
// produces its terminal outcome.
func (s *InstallService) installOne(ctx context.Context, src domain.ResolvedSource, root string) domain.InstallOutcome {
	targetDir, err := s.dirs.EnsureSubdir(root, src.TargetName)
	if err != nil {
		return s.failure(src, domain.StatusExtractFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.PluginTimeout)
	defer cancel()

	body, err := s.fetcher.Fetch(ctx, src.DownloadURL)
	if err != nil {
		return s.failure(src, domain.StatusFetchFailed, err)
	}
	defer body.Close()

	// Extraction consumes the network stream directly, so a mid-stream read
	// failure surfaces as an extract error. Track reads on the body to
	// attribute those to the fetch side where they belong.
	tracked := &trackedReader{r: body}
	if err := s.extractor.Extract(tracked, targetDir); err != nil {
		if tracked.err != nil {
			return s.failure(src, domain.StatusFetchFailed, tracked.err)
		}
		return s.failure(src, domain.StatusExtractFailed, err)
	}

	return domain.InstallOutcome{TargetName: src.TargetName, Status: domain.StatusSuccess}
}

func (s *InstallService) failure(src domain.ResolvedSource, status domain.InstallStatus, err error) domain.InstallOutcome {
	if s.logger != nil {
		s.logger.Printf("failed to install %s: %v", src.TargetName, err)
	}
	return domain.InstallOutcome{TargetName: src.TargetName, Status: status, Reason: err.Error()}
}

// trackedReader remembers the first read error from the underlying stream.
type trackedReader struct {
	r   io.Reader
	err error
}

func (t *trackedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}
