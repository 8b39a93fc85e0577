package domain

import (
	"fmt"
	"strings"
)

// GitProvider identifies a Git hosting service with a known tarball URL scheme.
type GitProvider string

const (
	ProviderGitHub    GitProvider = "github"
	ProviderBitbucket GitProvider = "bitbucket"
)

// DefaultRef is the ref used when a declaration does not name one.
const DefaultRef = "master"

// ParseGitProvider parses a provider name from user input.
func ParseGitProvider(s string) (GitProvider, error) {
	switch strings.ToLower(s) {
	case "github":
		return ProviderGitHub, nil
	case "bitbucket":
		return ProviderBitbucket, nil
	default:
		return "", fmt.Errorf("git provider %q not recognised, try 'github' or 'bitbucket'", s)
	}
}

// GitRepo declares a plugin hosted on a Git provider.
type GitRepo struct {
	Provider GitProvider `yaml:"provider,omitempty"`
	Owner    string      `yaml:"owner"`
	Repo     string      `yaml:"repo"`
	Ref      string      `yaml:"ref,omitempty"`
}

// ArchiveSource declares a plugin distributed as a direct tar.gz link.
type ArchiveSource struct {
	URL string `yaml:"url"`
}

// PluginDeclaration is one user-declared plugin. Exactly one variant is set.
type PluginDeclaration struct {
	Git     *GitRepo
	Archive *ArchiveSource
}

// ParseGitSpec parses the shorthand form "provider@owner/repo[:ref]".
// The provider prefix and the ref suffix are both optional; the provider
// defaults to GitHub and the ref to the provider's default branch.
func ParseGitSpec(spec string) (GitRepo, error) {
	repo := GitRepo{Provider: ProviderGitHub}

	rest := spec
	if at := strings.Index(rest, "@"); at >= 0 {
		provider, err := ParseGitProvider(rest[:at])
		if err != nil {
			return GitRepo{}, err
		}
		repo.Provider = provider
		rest = rest[at+1:]
	}

	if colon := strings.Index(rest, ":"); colon >= 0 {
		repo.Ref = rest[colon+1:]
		rest = rest[:colon]
		if repo.Ref == "" {
			return GitRepo{}, fmt.Errorf("plugin spec %q has an empty ref", spec)
		}
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return GitRepo{}, fmt.Errorf("plugin spec %q must be of the form [provider@]owner/repo[:ref]", spec)
	}
	repo.Owner = parts[0]
	repo.Repo = parts[1]

	return repo, nil
}

// Validate checks the structural invariants of a declaration.
func (d PluginDeclaration) Validate() error {
	switch {
	case d.Git != nil && d.Archive != nil:
		return fmt.Errorf("plugin declares both a git repo and an archive URL")
	case d.Git != nil:
		if d.Git.Owner == "" {
			return fmt.Errorf("git plugin is missing an owner")
		}
		if d.Git.Repo == "" {
			return fmt.Errorf("git plugin is missing a repo name")
		}
		if d.Git.Provider != "" {
			if _, err := ParseGitProvider(string(d.Git.Provider)); err != nil {
				return err
			}
		}
		return nil
	case d.Archive != nil:
		if d.Archive.URL == "" {
			return fmt.Errorf("archive plugin is missing a URL")
		}
		return nil
	default:
		return fmt.Errorf("plugin declares neither a git repo nor an archive URL")
	}
}

// String renders the declaration the way a user would write it.
func (d PluginDeclaration) String() string {
	switch {
	case d.Git != nil:
		s := fmt.Sprintf("%s@%s/%s", d.Git.provider(), d.Git.Owner, d.Git.Repo)
		if d.Git.Ref != "" {
			s += ":" + d.Git.Ref
		}
		return s
	case d.Archive != nil:
		return d.Archive.URL
	default:
		return "<empty plugin>"
	}
}

// provider returns the declared provider, defaulting to GitHub.
func (g *GitRepo) provider() GitProvider {
	if g.Provider == "" {
		return ProviderGitHub
	}
	return g.Provider
}

// ref returns the declared ref, defaulting to the provider's default branch.
func (g *GitRepo) ref() string {
	if g.Ref == "" {
		return DefaultRef
	}
	return g.Ref
}
