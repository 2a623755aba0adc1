// Package importer fetches script bodies from files in GitHub repositories.
package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

var (
	// ErrNotFile is returned when a reference names a directory.
	ErrNotFile = errors.New("importer: not a file")
	// ErrNotFound is returned when the repository or path does not exist.
	ErrNotFound = errors.New("importer: not found")
	// ErrBadRef is returned by ParseRef for malformed references.
	ErrBadRef = errors.New("importer: bad reference")
)

// TokenEnv names the environment variable holding an optional GitHub token.
const TokenEnv = "GITHUB_TOKEN"

// Ref locates a file: owner/repo/path/to/file.py, optionally @ref.
type Ref struct {
	Owner string
	Repo  string
	Path  string
	Ref   string
}

func (r Ref) String() string {
	s := r.Owner + "/" + r.Repo + "/" + r.Path
	if r.Ref != "" {
		s += "@" + r.Ref
	}
	return s
}

// ParseRef parses "owner/repo/path[@ref]".
func ParseRef(s string) (Ref, error) {
	var r Ref
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "@"); i >= 0 {
		r.Ref = s[i+1:]
		s = s[:i]
		if r.Ref == "" {
			return Ref{}, fmt.Errorf("%w: empty ref after @", ErrBadRef)
		}
	}
	parts := strings.SplitN(s, "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || strings.Trim(parts[2], "/") == "" {
		return Ref{}, fmt.Errorf("%w: want owner/repo/path, got %q", ErrBadRef, s)
	}
	r.Owner, r.Repo, r.Path = parts[0], parts[1], strings.Trim(parts[2], "/")
	return r, nil
}

// File is a fetched file.
type File struct {
	Name    string
	Path    string
	SHA     string
	Content string
}

// ScriptName derives a display name from the file name: extension dropped,
// separators turned into spaces.
func (f File) ScriptName() string {
	base := strings.TrimSuffix(f.Name, path.Ext(f.Name))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.TrimSpace(base)
}

// Importer reads repository contents through the GitHub API.
type Importer struct {
	client *github.Client
}

// New returns an Importer using httpClient, which may be nil.
func New(httpClient *http.Client) *Importer {
	return &Importer{client: github.NewClient(httpClient)}
}

// NewFromEnv returns an Importer authenticated with $GITHUB_TOKEN when it is
// set and anonymous otherwise.
func NewFromEnv(ctx context.Context) *Importer {
	token := os.Getenv(TokenEnv)
	if token == "" {
		return New(nil)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return New(oauth2.NewClient(ctx, ts))
}

// SetBaseURL points the importer at a GitHub Enterprise or test server.
func (im *Importer) SetBaseURL(raw string) error {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("importer: base url: %w", err)
	}
	im.client.BaseURL = u
	return nil
}

// Fetch downloads and decodes the file named by ref.
func (im *Importer) Fetch(ctx context.Context, ref Ref) (File, error) {
	var opts *github.RepositoryContentGetOptions
	if ref.Ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref.Ref}
	}
	file, dir, resp, err := im.client.Repositories.GetContents(ctx, ref.Owner, ref.Repo, ref.Path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return File{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return File{}, fmt.Errorf("importer: get %s: %w", ref, err)
	}
	if file == nil || dir != nil || file.GetType() == "dir" {
		return File{}, fmt.Errorf("%w: %s", ErrNotFile, ref)
	}
	content, err := file.GetContent()
	if err != nil {
		return File{}, fmt.Errorf("importer: decode %s: %w", ref, err)
	}
	return File{
		Name:    file.GetName(),
		Path:    file.GetPath(),
		SHA:     file.GetSHA(),
		Content: content,
	}, nil
}
