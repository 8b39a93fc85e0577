package domain

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ResolvedSource is a declaration turned into a concrete download location
// and a unique directory name under the plugin root. Immutable once computed.
type ResolvedSource struct {
	DownloadURL string
	TargetName  string
}

// ResolutionError reports an invalid declaration. It is fatal for the whole
// run and is always raised before any network activity starts.
type ResolutionError struct {
	Index  int
	Spec   string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("plugin %d (%s): %s", e.Index+1, e.Spec, e.Reason)
}

// Resolve turns a single declaration into a resolved source. It is a pure
// function: identical declarations always yield identical sources.
func Resolve(decl PluginDeclaration) (ResolvedSource, error) {
	if err := decl.Validate(); err != nil {
		return ResolvedSource{}, err
	}

	if decl.Git != nil {
		g := decl.Git
		var downloadURL string
		switch g.provider() {
		case ProviderGitHub:
			downloadURL = fmt.Sprintf("https://codeload.github.com/%s/%s/tar.gz/%s", g.Owner, g.Repo, g.ref())
		case ProviderBitbucket:
			downloadURL = fmt.Sprintf("https://bitbucket.org/%s/%s/get/%s.tar.gz", g.Owner, g.Repo, g.ref())
		}
		return ResolvedSource{DownloadURL: downloadURL, TargetName: g.Repo}, nil
	}

	u, err := url.Parse(decl.Archive.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ResolvedSource{}, fmt.Errorf("archive URL %q is not a valid URL", decl.Archive.URL)
	}

	name := archiveTargetName(u.Path)
	if name == "" {
		return ResolvedSource{}, fmt.Errorf("archive URL %q has no usable file name", decl.Archive.URL)
	}

	return ResolvedSource{DownloadURL: decl.Archive.URL, TargetName: name}, nil
}

// ResolveAll resolves the whole declared list before any network I/O and
// rejects target name collisions so a configuration mistake never turns into
// two tasks racing for the same directory.
func ResolveAll(decls []PluginDeclaration) ([]ResolvedSource, error) {
	sources := make([]ResolvedSource, 0, len(decls))
	seen := make(map[string]int, len(decls))

	for i, decl := range decls {
		src, err := Resolve(decl)
		if err != nil {
			return nil, &ResolutionError{Index: i, Spec: decl.String(), Reason: err.Error()}
		}
		if prev, dup := seen[src.TargetName]; dup {
			return nil, &ResolutionError{
				Index:  i,
				Spec:   decl.String(),
				Reason: fmt.Sprintf("target directory %q already used by plugin %d", src.TargetName, prev+1),
			}
		}
		seen[src.TargetName] = i
		sources = append(sources, src)
	}

	return sources, nil
}

// archiveTargetName derives a directory name from the final path segment of
// an archive URL, with compression suffixes stripped.
func archiveTargetName(urlPath string) string {
	name := path.Base(urlPath)
	if name == "/" || name == "." {
		return ""
	}
	for _, suffix := range []string{".tar.gz", ".tgz", ".tar", ".gz"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}
