package ports

import "strand.sh/cli/internal/core/domain"

// ConfigRepository loads and persists the user configuration. Saving is only
// used by the add commands, which append a declaration before reinstalling.
type ConfigRepository interface {
	Load() (*domain.Config, error)
	Save(cfg *domain.Config) error
	Location() string
}
