package render

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ImageResolver turns an opaque photo reference into readable image data.
// References are whatever the authoring side recorded: an absolute path, a
// path relative to the photo directory, or an http(s) URL.
type ImageResolver interface {
	Resolve(ref string) (io.ReadCloser, error)
}

// FileResolver resolves references against the local filesystem and fetches
// http(s) references over the network.
type FileResolver struct {
	// BaseDir anchors relative path references. Empty means the process
	// working directory.
	BaseDir string

	// Client is used for http(s) references; nil means http.DefaultClient.
	Client *http.Client
}

func (r *FileResolver) Resolve(ref string) (io.ReadCloser, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		client := r.Client
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Get(ref)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: unexpected status %d", ref, resp.StatusCode)
		}
		return resp.Body, nil
	}

	path := ref
	if !filepath.IsAbs(path) && r.BaseDir != "" {
		path = filepath.Join(r.BaseDir, path)
		// Join cleans ".." segments, so a traversal ref resolves to a
		// path outside BaseDir. Such refs are never legitimate.
		rel, err := filepath.Rel(r.BaseDir, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("reference %q escapes the photo directory", ref)
		}
	}
	return os.Open(path)
}
