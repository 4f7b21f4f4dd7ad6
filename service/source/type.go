package source

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/xerrors"
)

var ErrUnsupportedScheme = xerrors.New("unsupported video reference scheme")

// IService checks that something exists behind a video reference.
// It never validates that the resource is a playable video.
type IService interface {
	Exists(ctx context.Context, ref string) (bool, error)
}

// Scheme returns the lower-cased scheme of a reference. Plain paths have the
// "file" scheme.
func Scheme(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// A single letter scheme is a windows drive
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

// LocalPath resolves a plain path or a file:// URI to a filesystem path
func LocalPath(ref string) (string, bool) {
	if strings.TrimSpace(ref) == "" {
		return "", false
	}

	if Scheme(ref) != "file" {
		return "", false
	}

	if !strings.HasPrefix(strings.ToLower(ref), "file:") {
		return ref, true
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}

	// file://demo.mp4 puts the name in the host part
	path := u.Host + u.Path
	if path == "" {
		path = u.Opaque
	}
	if path == "" {
		return "", false
	}

	return path, true
}
