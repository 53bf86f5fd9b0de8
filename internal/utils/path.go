package utils

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

func EnsureParent(path string) error {
	return EnsureDir(filepath.Dir(path))
}

func EnsureDir(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}

// CleanPrefix strips leading and trailing slashes from an object key prefix.
func CleanPrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

// JoinKey builds `prefix/name`, or just `name` when prefix is empty.
func JoinKey(prefix, name string) string {
	prefix = CleanPrefix(prefix)
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// ListPrefix is the prefix passed to bucket listings: `prefix/` or empty.
func ListPrefix(prefix string) string {
	prefix = CleanPrefix(prefix)
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// IsValidURL reports whether s is an absolute http(s) URL with a host.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// JoinURL appends name to base as one escaped path segment, so "%" and "#" in file names
// stay part of the path.
func JoinURL(base, name string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), url.PathEscape(strings.TrimLeft(name, "/")))
}
