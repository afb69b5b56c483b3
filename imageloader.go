package lantern

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageLoader returns a Loader that delivers img synchronously.
func ImageLoader(img image.Image) Loader {
	return func(done func(LoadResult, error)) func() {
		done(LoadResult{Image: img}, nil)
		return nil
	}
}

// FileLoader returns a Loader that decodes the image at path in fsys on its
// own goroutine. PNG, JPEG, GIF, BMP and WebP are recognized. Cancelling
// stops the decode from being delivered; a finished decode reports
// ErrLoadCancelled.
func FileLoader(fsys fs.FS, path string) Loader {
	return func(done func(LoadResult, error)) func() {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			res, err := decodeFile(ctx, fsys, path)
			if ctx.Err() != nil {
				done(LoadResult{}, ErrLoadCancelled)
				return
			}
			done(res, err)
		}()
		return cancel
	}
}

func decodeFile(ctx context.Context, fsys fs.FS, path string) (LoadResult, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("lantern: open image: %w", err)
	}
	defer f.Close()
	if err := ctx.Err(); err != nil {
		return LoadResult{}, err
	}
	img, format, err := image.Decode(f)
	if err != nil {
		return LoadResult{}, fmt.Errorf("lantern: decode image %q: %w", path, err)
	}
	return LoadResult{Image: img, Metadata: map[string]any{"format": format, "path": path}}, nil
}
