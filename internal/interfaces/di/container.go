package di

import (
	"fmt"
	"log"
	"os"

	"strand.sh/cli/internal/infrastructure/archive"
	"strand.sh/cli/internal/infrastructure/config"
	"strand.sh/cli/internal/infrastructure/fetch"
	"strand.sh/cli/internal/infrastructure/fsdir"
	"strand.sh/cli/internal/interfaces/cli"
)

// Container holds all application dependencies
type Container struct {
	ConfigRepo *config.FileRepository
	Fetcher    *fetch.HTTPFetcher
	Extractor  *archive.TarGzExtractor
	Dirs       *fsdir.Manager

	CLIContainer *cli.CLIContainer

	Logger *log.Logger
}

// NewContainer creates and configures the dependency injection container
func NewContainer() (*Container, error) {
	configPath, err := config.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate configuration: %w", err)
	}

	container := &Container{
		ConfigRepo: config.NewFileRepository(configPath),
		Fetcher:    fetch.NewHTTPFetcher(cli.Version),
		Extractor:  archive.NewTarGzExtractor(),
		Dirs:       fsdir.NewManager(),
		Logger:     log.New(os.Stderr, "[strand] ", log.LstdFlags),
	}

	container.CLIContainer = &cli.CLIContainer{
		ConfigRepo: container.ConfigRepo,
		Fetcher:    container.Fetcher,
		Extractor:  container.Extractor,
		Dirs:       container.Dirs,
		Logger:     container.Logger,
	}

	return container, nil
}

// GetCLIContainer returns the CLI container for command execution
func (c *Container) GetCLIContainer() *cli.CLIContainer {
	return c.CLIContainer
}
