package domain

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the in-memory form of the user configuration: the plugin root
// directory and the ordered list of declared plugins. It is loaded once by
// the configuration layer and passed into the core as an immutable value.
type Config struct {
	PluginDir string              `yaml:"plugin_dir"`
	Plugins   []PluginDeclaration `yaml:"plugins"`
}

// Validate checks the config before any work starts.
func (c *Config) Validate() error {
	if c.PluginDir == "" {
		return fmt.Errorf("config is missing plugin_dir")
	}
	for i, p := range c.Plugins {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("plugin %d: %w", i+1, err)
		}
	}
	return nil
}

// UnmarshalYAML accepts three spellings of a plugin entry: a mapping with a
// url key (archive variant), a mapping with owner/repo keys (git variant,
// "user" accepted as an alias for owner), or a plain string in the
// "provider@owner/repo:ref" shorthand.
func (d *PluginDeclaration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		if strings.Contains(s, "://") {
			d.Archive = &ArchiveSource{URL: s}
			return nil
		}
		repo, err := ParseGitSpec(s)
		if err != nil {
			return err
		}
		d.Git = &repo
		return nil
	}

	var entry struct {
		URL      string `yaml:"url"`
		Provider string `yaml:"provider"`
		Owner    string `yaml:"owner"`
		User     string `yaml:"user"`
		Repo     string `yaml:"repo"`
		Ref      string `yaml:"ref"`
	}
	if err := value.Decode(&entry); err != nil {
		return err
	}

	if entry.URL != "" {
		d.Archive = &ArchiveSource{URL: entry.URL}
		return nil
	}

	owner := entry.Owner
	if owner == "" {
		owner = entry.User
	}
	git := &GitRepo{Owner: owner, Repo: entry.Repo, Ref: entry.Ref}
	if entry.Provider != "" {
		provider, err := ParseGitProvider(entry.Provider)
		if err != nil {
			return err
		}
		git.Provider = provider
	}
	d.Git = git
	return nil
}

// MarshalYAML writes the populated variant back out in mapping form.
func (d PluginDeclaration) MarshalYAML() (interface{}, error) {
	switch {
	case d.Git != nil:
		return d.Git, nil
	case d.Archive != nil:
		return d.Archive, nil
	default:
		return nil, fmt.Errorf("cannot marshal an empty plugin declaration")
	}
}
