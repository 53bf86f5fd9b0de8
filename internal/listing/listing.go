// Package listing discovers the files a source exposes and fetches their contents.
package listing

import (
	"context"
	"errors"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	ErrNoBaseURL = errors.New("listing: base url missing")
	ErrNoClient  = errors.New("listing: client missing")
)

// ListingSource is the strategy the mirror engine reconciles against.
type ListingSource interface {
	// List returns the set of file names currently exposed by the source.
	List(ctx context.Context) (mapset.Set[string], error)

	// Fetch downloads one file named by List.
	Fetch(ctx context.Context, name string) ([]byte, error)

	// String describes the source for log lines.
	String() string
}

// Getter is the HTTP capability the URL-based sources need. *httpsource.Client implements it.
type Getter interface {
	GetListing(ctx context.Context, url string) ([]byte, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// IsFileEntry applies the directory-listing heuristic: parent links, subdirectories,
// absolute links and query links are rejected, and a file must have an extension.
func IsFileEntry(name string) bool {
	switch {
	case name == "":
		return false
	case strings.HasPrefix(name, ".."):
		return false
	case strings.HasSuffix(name, "/"):
		return false
	case strings.HasPrefix(name, "http"):
		return false
	case strings.HasPrefix(name, "?"):
		return false
	case strings.Contains(name, "/"):
		return false
	}
	return strings.Contains(name, ".")
}

// FilterEntries keeps the names that pass IsFileEntry.
func FilterEntries(names []string) mapset.Set[string] {
	files := mapset.NewThreadUnsafeSet[string]()
	for _, name := range names {
		if IsFileEntry(name) {
			files.Add(name)
		}
	}
	return files
}
