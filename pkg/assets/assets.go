// Package assets resolves the card image of a Pokemon by its id.
//
// Images live next to the page as assets/img/{id}.png. A resolver checks
// that the asset exists and returns the URL the card should reference.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/Sternrassler/pokedex-scroll/pkg/logging"
	"github.com/rs/zerolog"
)

// ImageDir is the asset directory relative to the page.
const ImageDir = "assets/img"

// ErrAssetNotFound is returned when no image exists for an id.
var ErrAssetNotFound = errors.New("image asset not found")

// Resolver maps an id to the URL of its image.
type Resolver interface {
	Resolve(ctx context.Context, id string) (string, error)
}

// ImagePath returns the page-relative path of the image for id.
func ImagePath(id string) string {
	return "./" + path.Join(ImageDir, id+".png")
}

// DirResolver resolves images from a filesystem rooted at the page directory.
type DirResolver struct {
	fsys   fs.FS
	logger zerolog.Logger
}

// NewDirResolver creates a resolver over fsys, which must contain ImageDir.
func NewDirResolver(fsys fs.FS) *DirResolver {
	return &DirResolver{
		fsys:   fsys,
		logger: logging.NewLogger(logging.ComponentAssets),
	}
}

// Resolve implements Resolver.
func (r *DirResolver) Resolve(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !validID(id) {
		return "", fmt.Errorf("%w: invalid id %q", ErrAssetNotFound, id)
	}

	name := path.Join(ImageDir, id+".png")
	info, err := fs.Stat(r.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrAssetNotFound, name)
		}
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrAssetNotFound, name)
	}

	r.logger.Debug().Str("id", id).Str("path", name).Msg("Image resolved")
	return ImagePath(id), nil
}

// Doer executes HTTP requests. *client.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPResolver resolves images served under a page base URL.
// The returned URL is the final location after redirects.
type HTTPResolver struct {
	doer   Doer
	base   *url.URL
	logger zerolog.Logger
}

// NewHTTPResolver creates a resolver for images under pageURL.
func NewHTTPResolver(doer Doer, pageURL string) (*HTTPResolver, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("page url must be http or https (got %q)", pageURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	return &HTTPResolver{
		doer:   doer,
		base:   base,
		logger: logging.NewLogger(logging.ComponentAssets),
	}, nil
}

// Resolve implements Resolver.
func (r *HTTPResolver) Resolve(ctx context.Context, id string) (string, error) {
	if !validID(id) {
		return "", fmt.Errorf("%w: invalid id %q", ErrAssetNotFound, id)
	}

	target := r.base.ResolveReference(&url.URL{Path: path.Join(ImageDir, id+".png")})

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "image/png")

	resp, err := r.doer.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image %s: %w", id, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s (status %d)", ErrAssetNotFound, target, resp.StatusCode)
	}

	final := target.String()
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	r.logger.Debug().Str("id", id).Str("url", final).Msg("Image resolved")
	return final, nil
}

// validID rejects ids that could escape the asset directory.
func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}
