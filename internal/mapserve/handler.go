package mapserve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/didzislauva/osmplot/internal/geo"
	"github.com/didzislauva/osmplot/internal/observability"
	"github.com/didzislauva/osmplot/internal/render"
	"github.com/didzislauva/osmplot/pkg/overpass"
)

// RenderFunc produces a finished map for one bounding box.
type RenderFunc func(ctx context.Context, b geo.BBox, title string) (*render.Map, error)

// Handler serves rendered maps over HTTP.
type Handler struct {
	renderMap RenderFunc
	cache     *RenderCache
	metrics   *observability.Metrics
	encOpts   render.EncodeOptions
	maxSizeKM float64
}

// HandlerOption adjusts a new Handler.
type HandlerOption func(*Handler)

// WithCache caches encoded responses keyed by box, format, width and
// title.
func WithCache(c *RenderCache) HandlerOption {
	return func(h *Handler) { h.cache = c }
}

// WithMetrics wires request counters into the handler.
func WithMetrics(m *observability.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithEncodeOptions sets the default encode options. The width can
// still be overridden per request.
func WithEncodeOptions(opts render.EncodeOptions) HandlerOption {
	return func(h *Handler) { h.encOpts = opts }
}

// WithMaxSizeKM rejects requests whose box exceeds the given ground
// extent on either axis. Zero disables the guard.
func WithMaxSizeKM(km float64) HandlerOption {
	return func(h *Handler) { h.maxSizeKM = km }
}

// NewHandler creates a Handler that renders through fn.
func NewHandler(fn RenderFunc, opts ...HandlerOption) *Handler {
	h := &Handler{renderMap: fn}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the handler's route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /map", h.handleMap)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /cache/stats", h.handleCacheStats)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (h *Handler) handleMap(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	b, err := parseBBox(r)
	if err != nil {
		status := http.StatusBadRequest
		if eris.Is(err, geo.ErrDegenerateLatitude) {
			status = http.StatusUnprocessableEntity
		}
		httpError(w, status, err)
		return
	}

	if h.maxSizeKM > 0 {
		heightKM := b.Height() * geo.MetersPerDegreeLat() / 1000
		widthKM := b.Width() * geo.MetersPerDegreeLon(b.MeanLat()) / 1000
		if heightKM > h.maxSizeKM || widthKM > h.maxSizeKM {
			httpError(w, http.StatusUnprocessableEntity,
				eris.Errorf("mapserve: area %.1f x %.1f km exceeds the %.1f km limit", widthKM, heightKM, h.maxSizeKM))
			return
		}
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "":
		format = "png"
	case "jpeg":
		format = "jpg"
	case "png", "jpg", "pdf":
	default:
		httpError(w, http.StatusBadRequest, eris.Errorf("mapserve: unsupported format %q", format))
		return
	}

	encOpts := h.encOpts
	if ws := r.URL.Query().Get("width"); ws != "" {
		wpx, convErr := strconv.Atoi(ws)
		if convErr != nil || wpx < 16 || wpx > 4096 {
			httpError(w, http.StatusBadRequest, eris.Errorf("mapserve: width must be an integer in 16..4096, got %q", ws))
			return
		}
		encOpts.WidthPx = wpx
	}
	title := r.URL.Query().Get("title")

	key := cacheKey(b, format, encOpts.WidthPx, title)
	if h.cache != nil {
		if data, contentType := h.cache.Get(key); data != nil {
			h.countLookup("hit")
			w.Header().Set("Content-Type", contentType)
			w.Header().Set("X-Cache", "hit")
			_, _ = w.Write(data)
			return
		}
		h.countLookup("miss")
	}

	m, err := h.renderMap(r.Context(), b, title)
	if err != nil {
		h.observeRender(format, "error", start)
		status := statusFor(err)
		zap.L().Error("mapserve: render failed",
			zap.String("bbox", b.String()),
			zap.Int("status", status),
			zap.Error(err))
		httpError(w, status, err)
		return
	}

	var data []byte
	if format == "pdf" {
		data, err = render.EncodePDF(m)
	} else {
		data, err = render.EncodeRaster(m, format, encOpts)
	}
	if err != nil {
		h.observeRender(format, "error", start)
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	h.observeRender(format, "success", start)

	contentType := contentTypeFor(format)
	if h.cache != nil {
		h.cache.Put(key, contentType, data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Cache", "miss")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.cache == nil {
		_ = json.NewEncoder(w).Encode(map[string]bool{"enabled": false})
		return
	}
	_ = json.NewEncoder(w).Encode(h.cache.Stats())
}

func (h *Handler) countLookup(result string) {
	if h.metrics != nil {
		h.metrics.CacheLookups.WithLabelValues("render", result).Inc()
	}
}

func (h *Handler) observeRender(format, outcome string, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.RendersTotal.WithLabelValues(format, outcome).Inc()
	h.metrics.RenderDuration.Observe(time.Since(start).Seconds())
}

// parseBBox accepts either bbox=S,W,N,E or lat=..&lon=..&km=.. query
// parameters. An explicit bbox wins over a center.
func parseBBox(r *http.Request) (geo.BBox, error) {
	q := r.URL.Query()

	if raw := q.Get("bbox"); raw != "" {
		parts := strings.Split(raw, ",")
		if len(parts) != 4 {
			return geo.BBox{}, eris.Errorf("mapserve: bbox wants south,west,north,east, got %q", raw)
		}
		vals := make([]float64, 4)
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return geo.BBox{}, eris.Errorf("mapserve: bbox coordinate %q", p)
			}
			vals[i] = v
		}
		b := geo.BBox{South: vals[0], West: vals[1], North: vals[2], East: vals[3]}
		if err := b.Validate(); err != nil {
			return geo.BBox{}, err
		}
		return b, nil
	}

	latRaw, lonRaw := q.Get("lat"), q.Get("lon")
	if latRaw == "" || lonRaw == "" {
		return geo.BBox{}, eris.New("mapserve: bbox or lat and lon parameters required")
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return geo.BBox{}, eris.Errorf("mapserve: lat %q", latRaw)
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return geo.BBox{}, eris.Errorf("mapserve: lon %q", lonRaw)
	}
	km := 1.0
	if kmRaw := q.Get("km"); kmRaw != "" {
		km, err = strconv.ParseFloat(kmRaw, 64)
		if err != nil {
			return geo.BBox{}, eris.Errorf("mapserve: km %q", kmRaw)
		}
	}
	return geo.FromCenter(lat, lon, km)
}

// statusFor maps a render failure to an HTTP status: degenerate
// geometry is the client's fault, upstream trouble is a bad gateway,
// the rest is internal.
func statusFor(err error) int {
	switch {
	case eris.Is(err, geo.ErrDegenerateLatitude):
		return http.StatusUnprocessableEntity
	case eris.Is(err, overpass.ErrSourceUnavailable), eris.Is(err, overpass.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func httpError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func cacheKey(b geo.BBox, format string, width int, title string) string {
	return fmt.Sprintf("%s|%s|%d|%s", b.String(), format, width, title)
}

func contentTypeFor(format string) string {
	switch format {
	case "jpg":
		return "image/jpeg"
	case "pdf":
		return "application/pdf"
	default:
		return "image/png"
	}
}
