// Package images lists, loads and saves the image sets the pipeline works on.
package images

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// Extension sets accepted by the different commands.
var (
	// PhotoExts are the inputs the depth command accepts.
	PhotoExts = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff"}
	// MaskExts are the inputs the mask command accepts, for images and masks.
	MaskExts = []string{".png", ".jpg", ".jpeg"}
)

// File is an image file found in a directory.
type File struct {
	Name string // base name with extension
	Stem string // base name without extension
	Ext  string // extension as found on disk
	Path string
}

// HasExt reports whether name has one of exts, ignoring case.
func HasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// List returns the regular files in dir whose extension is in exts, sorted by
// name. A missing directory is reported as errs.ErrNotFound.
func List(dir string, exts []string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NotFound("directory", dir)
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() || !HasExt(e.Name(), exts) {
			continue
		}
		ext := filepath.Ext(e.Name())
		files = append(files, File{
			Name: e.Name(),
			Stem: strings.TrimSuffix(e.Name(), ext),
			Ext:  ext,
			Path: filepath.Join(dir, e.Name()),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// RequireDir fails with errs.ErrNotFound unless path is an existing directory.
func RequireDir(what, path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return errs.NotFound(what, path)
	}
	return nil
}

// Open decodes an image, applying any EXIF orientation.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return img, nil
}

// Save encodes img in the format implied by the path's extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}

// ForEach calls fn for every item with at most workers calls in flight. The
// first error cancels the context handed to the remaining calls.
func ForEach[T any](ctx context.Context, items []T, workers int, fn func(ctx context.Context, item T) error) error {
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, item)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// gctx is always done after Wait; only the caller's cancellation counts
	return ctx.Err()
}
