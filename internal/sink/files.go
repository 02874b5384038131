// Package sink delivers finished maps: encoded to local files or
// uploaded to S3-compatible object storage. The output format follows
// the file extension, so one render can fan out to map.png, map.jpg and
// map.pdf in a single call.
package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/didzislauva/osmplot/internal/render"
)

// formatFor maps a file extension to an encoder format.
func formatFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png", nil
	case ".jpg", ".jpeg":
		return "jpg", nil
	case ".pdf":
		return "pdf", nil
	default:
		return "", eris.Errorf("sink: unsupported output extension %q", filepath.Ext(path))
	}
}

// Encode renders m into the format implied by the path's extension.
func Encode(m *render.Map, path string, opts render.EncodeOptions) ([]byte, error) {
	format, err := formatFor(path)
	if err != nil {
		return nil, err
	}
	if format == "pdf" {
		return render.EncodePDF(m)
	}
	return render.EncodeRaster(m, format, opts)
}

// WriteFiles encodes m once per distinct format and writes all output
// paths concurrently. Parent directories are created as needed.
func WriteFiles(ctx context.Context, m *render.Map, paths []string, opts render.EncodeOptions) error {
	if len(paths) == 0 {
		return eris.New("sink: no output paths")
	}

	encoded := make(map[string][]byte, 3)
	for _, p := range paths {
		format, err := formatFor(p)
		if err != nil {
			return err
		}
		if _, ok := encoded[format]; ok {
			continue
		}
		data, err := Encode(m, p, opts)
		if err != nil {
			return err
		}
		encoded[format] = data
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range paths {
		p := p // per-iteration copy: go directive < 1.22
		format, _ := formatFor(p)
		data := encoded[format]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrapf(err, "sink: write %s", p)
			}
			if dir := filepath.Dir(p); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return eris.Wrapf(err, "sink: create dir %s", dir)
				}
			}
			if err := os.WriteFile(p, data, 0o644); err != nil {
				return eris.Wrapf(err, "sink: write %s", p)
			}
			zap.L().Info("sink: map written",
				zap.String("path", p),
				zap.Int("bytes", len(data)))
			return nil
		})
	}
	return g.Wait()
}
