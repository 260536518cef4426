package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

// DocExtensions are the file types imported into a session.
var DocExtensions = []string{".md", ".markdown", ".txt"}

var ErrInvalidSource = errors.New("source must look like owner/repo[/path][@ref]")

// Source names a directory in a repository.
type Source struct {
	Owner string
	Repo  string
	Path  string
	// Ref is a branch, tag or commit. Empty means the default branch.
	Ref string
}

// ParseSource parses "owner/repo[/path][@ref]".
func ParseSource(s string) (Source, error) {
	var src Source
	if at := strings.LastIndex(s, "@"); at >= 0 {
		src.Ref = s[at+1:]
		s = s[:at]
	}
	parts := strings.SplitN(strings.Trim(s, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Source{}, fmt.Errorf("%w: %q", ErrInvalidSource, s)
	}
	src.Owner, src.Repo = parts[0], parts[1]
	if len(parts) == 3 {
		src.Path = strings.Trim(parts[2], "/")
	}
	return src, nil
}

func (s Source) String() string {
	out := path.Join(s.Owner, s.Repo, s.Path)
	if s.Ref != "" {
		out += "@" + s.Ref
	}
	return out
}

// FetchedDoc represents a document fetched from GitHub
type FetchedDoc struct {
	Path    string // Relative path within the source directory
	Content string
	SHA     string // File's Git blob SHA
}

// Fetcher reads documents below one Source directory.
type Fetcher struct {
	client *Client
	src    Source
	logger *slog.Logger
}

// NewFetcher creates a new document fetcher
func NewFetcher(client *Client, src Source, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, src: src, logger: logger}
}

func (f *Fetcher) opts() *github.RepositoryContentGetOptions {
	if f.src.Ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.src.Ref}
}

// IsDoc reports whether name has one of DocExtensions.
func IsDoc(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range DocExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ListDocs recursively lists the document files below the source directory.
func (f *Fetcher) ListDocs(ctx context.Context) ([]string, error) {
	return f.listDocsRecursive(ctx, f.src.Path, "")
}

func (f *Fetcher) listDocsRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var docs []string

	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.src.Owner, f.src.Repo, fullPath, f.opts())
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		name := item.GetName()
		if name == "" {
			continue
		}
		itemRelPath := path.Join(relativePath, name)

		switch item.GetType() {
		case "file":
			if IsDoc(name) {
				docs = append(docs, itemRelPath)
			}
		case "dir":
			subDocs, err := f.listDocsRecursive(ctx, path.Join(fullPath, name), itemRelPath)
			if err != nil {
				return nil, err
			}
			docs = append(docs, subDocs...)
		}
	}

	return docs, nil
}

// FetchDoc fetches the content of one document.
func (f *Fetcher) FetchDoc(ctx context.Context, relativePath string) (*FetchedDoc, error) {
	fullPath := path.Join(f.src.Path, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, f.src.Owner, f.src.Repo, fullPath, f.opts())
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	return &FetchedDoc{
		Path:    relativePath,
		Content: content,
		SHA:     fileContent.GetSHA(),
	}, nil
}

// FetchAll fetches every document below the source directory. Documents that
// fail to download are logged and skipped; listing failures are returned.
func (f *Fetcher) FetchAll(ctx context.Context) ([]FetchedDoc, error) {
	paths, err := f.ListDocs(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]FetchedDoc, 0, len(paths))
	for _, p := range paths {
		doc, err := f.FetchDoc(ctx, p)
		if err != nil {
			f.logger.Warn("skipping document", "source", f.src.String(), "path", p, "error", err)
			continue
		}
		docs = append(docs, *doc)
	}
	f.logger.Info("fetched documents", "source", f.src.String(), "listed", len(paths), "fetched", len(docs))
	return docs, nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit affecting the source directory
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.src.Owner, f.src.Repo, &github.CommitsListOptions{
		SHA:         f.src.Ref,
		Path:        f.src.Path,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	if len(commits) == 0 || commits[0].SHA == nil {
		return "", fmt.Errorf("no commits found for path %s", f.src.Path)
	}
	return commits[0].GetSHA(), nil
}
