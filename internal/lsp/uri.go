package lsp

import (
	"net/url"
	"path/filepath"
)

// uriToPath converts a file:// URI to an absolute path. Other schemes give "".
func uriToPath(uri string) string {
	if uri == "" {
		return ""
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	var path string
	switch parsed.Scheme {
	case "file":
		path = parsed.Path
	case "":
		path = uri
	default:
		return ""
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	return canonicalPath(path)
}

func pathToURI(path string) string {
	path = canonicalPath(path)
	if path == "" {
		return ""
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String()
}

// canonicalPath returns an absolute, cleaned, slash-separated path.
func canonicalPath(path string) string {
	if path == "" {
		return ""
	}
	candidate := filepath.FromSlash(path)
	if abs, err := filepath.Abs(candidate); err == nil {
		candidate = abs
	}
	return filepath.ToSlash(filepath.Clean(candidate))
}
