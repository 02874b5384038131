package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/geo"
	"github.com/didzislauva/osmplot/internal/observability"
	"github.com/didzislauva/osmplot/internal/render"
	"github.com/didzislauva/osmplot/internal/source"
	"github.com/didzislauva/osmplot/internal/store"
	"github.com/didzislauva/osmplot/pkg/overpass"
)

// resolveExtent picks the box for one run: an explicit --bbox wins, then
// an explicit center, then the configured center.
func resolveExtent(bbox string, lat, lon, km float64) (geo.BBox, error) {
	if bbox != "" {
		return parseBBoxFlag(bbox)
	}
	if lat == 0 && lon == 0 {
		lat, lon = cfg.Map.Lat, cfg.Map.Lon
	}
	if km == 0 {
		km = cfg.Map.SizeKM
	}
	return geo.FromCenter(lat, lon, km)
}

func parseBBoxFlag(raw string) (geo.BBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return geo.BBox{}, eris.Errorf("bbox wants south,west,north,east, got %q", raw)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.BBox{}, eris.Errorf("bbox coordinate %q", p)
		}
		vals[i] = v
	}
	b := geo.BBox{South: vals[0], West: vals[1], North: vals[2], East: vals[3]}
	if err := b.Validate(); err != nil {
		return geo.BBox{}, err
	}
	return b, nil
}

// resolveTitle picks the map title: an explicit flag wins, the configured
// title applies to the configured extent, and a custom extent falls back
// to the generated coordinate title.
func resolveTitle(flagTitle string, customExtent bool) string {
	if flagTitle != "" {
		return flagTitle
	}
	if customExtent {
		return ""
	}
	return cfg.Map.Title
}

func overpassClient() overpass.Client {
	return overpass.NewClient(
		overpass.WithEndpoint(cfg.Source.Endpoint),
		overpass.WithRateLimit(cfg.Source.RateLimit),
		overpass.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Source.TimeoutSecs) * time.Second}),
	)
}

func initCache(ctx context.Context) (store.Cache, error) {
	switch cfg.Cache.Driver {
	case "off":
		return nil, nil
	case "sqlite":
		return store.NewSQLite(cfg.Cache.Path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Cache.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
}

// initSource builds the configured feature source. The overpass kind
// gets the fetch cache in front of it; the shapefile kind reads local
// extracts and needs neither cache nor network. The returned cache is
// nil when absent; the caller owns closing it.
func initSource(ctx context.Context, metrics *observability.Metrics) (source.Source, store.Cache, error) {
	if cfg.Source.Kind == "shapefile" {
		return source.NewShapefileSource(map[feature.Class]string{
			feature.ClassRoads:     cfg.Source.Shapefile.Roads,
			feature.ClassBuildings: cfg.Source.Shapefile.Buildings,
			feature.ClassForests:   cfg.Source.Shapefile.Forests,
		}), nil, nil
	}

	cache, err := initCache(ctx)
	if err != nil {
		return nil, nil, err
	}

	var opts []source.OverpassOption
	if cache != nil {
		if err := cache.Migrate(ctx); err != nil {
			_ = cache.Close()
			return nil, nil, eris.Wrap(err, "migrate cache")
		}
		opts = append(opts, source.WithCache(cache, time.Duration(cfg.Cache.TTLHours)*time.Hour))
	}
	if metrics != nil {
		opts = append(opts, source.WithMetrics(metrics))
	}

	return source.NewOverpassSource(overpassClient(), opts...), cache, nil
}

func renderOptions(title, stylesPath string) (render.Options, error) {
	if stylesPath == "" {
		stylesPath = cfg.Render.StylesPath
	}
	styles, err := render.LoadStyles(stylesPath)
	if err != nil {
		return render.Options{}, err
	}
	return render.Options{
		Title:            title,
		Styles:           styles,
		ScaleBarFraction: cfg.Render.ScaleBarFraction,
	}, nil
}

func encodeOptions(widthFlag int, fontFlag string) render.EncodeOptions {
	opts := render.EncodeOptions{
		WidthPx:     cfg.Render.WidthPx,
		JPEGQuality: cfg.Render.JPEGQuality,
		FontPath:    cfg.Render.FontPath,
	}
	if widthFlag > 0 {
		opts.WidthPx = widthFlag
	}
	if fontFlag != "" {
		opts.FontPath = fontFlag
	}
	return opts
}
