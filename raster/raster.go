package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"runtime"
	"sync"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// ErrRenderFailed wraps per-page rasterization failures. A failed page
// yields no thumbnail but does not abort the rest of a batch.
var ErrRenderFailed = errors.New("page render failed")

// Thumbnail is a rendered page preview.
type Thumbnail struct {
	JPEG   []byte
	Width  int
	Height int
}

// Options configures a Renderer.
type Options struct {
	// MaxDimension caps the larger side of a thumbnail, in pixels.
	MaxDimension int
	// JPEGQuality is the encoder quality, 1 to 100.
	JPEGQuality int
	// Workers bounds batch parallelism. Zero means GOMAXPROCS.
	Workers int
	// Logger receives per-page render failures. Nil uses slog.Default.
	Logger *slog.Logger
}

func defaultOptions() Options {
	return Options{
		MaxDimension: 500,
		JPEGQuality:  85,
		Workers:      runtime.GOMAXPROCS(0),
	}
}

type cacheKey struct {
	path     string
	page     int
	rotation int
}

// pageSource is the slice of the MuPDF document API the renderer draws
// from. Satisfied by fitzSource in production.
type pageSource interface {
	Bound(pageIndex int) (image.Rectangle, error)
	ImageDPI(pageIndex int, dpi float64) (image.Image, error)
	Close() error
}

type fitzSource struct {
	doc *fitz.Document
}

func (s fitzSource) Bound(pageIndex int) (image.Rectangle, error) {
	return s.doc.Bound(pageIndex)
}

func (s fitzSource) ImageDPI(pageIndex int, dpi float64) (image.Image, error) {
	return s.doc.ImageDPI(pageIndex, dpi)
}

func (s fitzSource) Close() error {
	return s.doc.Close()
}

func openFitz(path string) (pageSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return fitzSource{doc: doc}, nil
}

// Renderer rasterizes PDF pages into JPEG thumbnails through MuPDF.
// Rendered pages are cached by (file, page, rotation), so re-rendering
// after a rotation change only pays for the pages that changed.
type Renderer struct {
	opts  Options
	log   *slog.Logger
	open  func(path string) (pageSource, error)
	mu    sync.RWMutex
	cache map[cacheKey]*Thumbnail
}

// NewRenderer creates a renderer with the given options. Zero-valued
// fields fall back to defaults.
func NewRenderer(opts Options) *Renderer {
	def := defaultOptions()
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = def.MaxDimension
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = def.JPEGQuality
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{
		opts:  opts,
		log:   log,
		open:  openFitz,
		cache: make(map[cacheKey]*Thumbnail),
	}
}

// Render rasterizes one page (0-based) of the file at path, applying the
// given clockwise rotation in degrees on top of whatever rotation the
// page itself declares having been baked in by MuPDF.
func (r *Renderer) Render(path string, pageIndex, rotation int) (*Thumbnail, error) {
	doc, err := r.open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrRenderFailed, path, err)
	}
	defer doc.Close()

	return r.renderPage(doc, path, pageIndex, rotation)
}

// RenderBatch rasterizes the pages of one document with bounded
// parallelism. rotations holds one clockwise rotation per page; its
// length sets the page count rendered. progress, when non-nil, is called
// once per page in page order. A page that fails to render reports a
// nil thumbnail and an error wrapping ErrRenderFailed, and the batch
// continues. Only context cancellation aborts the whole batch.
func (r *Renderer) RenderBatch(ctx context.Context, path string, rotations []int, progress func(pageIndex int, thumb *Thumbnail, err error)) ([]*Thumbnail, error) {
	doc, err := r.open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrRenderFailed, path, err)
	}
	defer doc.Close()

	thumbs := make([]*Thumbnail, len(rotations))
	pageErrs := make([]error, len(rotations))

	reporter := newOrderedReporter(len(rotations), progress)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range rotations {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			thumb, err := r.renderPage(doc, path, i, rotations[i])
			if err != nil {
				r.log.Warn("page render failed", "path", path, "page", i, "error", err)
				pageErrs[i] = err
			}
			thumbs[i] = thumb
			reporter.done(i, thumb, pageErrs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return thumbs, nil
}

func (r *Renderer) renderPage(doc pageSource, path string, pageIndex, rotation int) (*Thumbnail, error) {
	rotation = normalizeRotation(rotation)

	key := cacheKey{path: path, page: pageIndex, rotation: rotation}
	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	bounds, err := doc.Bound(pageIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d bounds: %v", ErrRenderFailed, pageIndex, err)
	}
	pageW, pageH := bounds.Dx(), bounds.Dy()
	if pageW <= 0 || pageH <= 0 {
		return nil, fmt.Errorf("%w: page %d has empty bounds", ErrRenderFailed, pageIndex)
	}

	// Render at the DPI that lands the larger side near the target size,
	// then scale exactly. Rendering close to the target keeps MuPDF from
	// rasterizing far more pixels than the thumbnail needs.
	targetW, targetH := fitWithin(pageW, pageH, r.opts.MaxDimension)
	dpi := 72.0 * float64(r.opts.MaxDimension) / float64(max(pageW, pageH))

	img, err := doc.ImageDPI(pageIndex, dpi)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrRenderFailed, pageIndex, err)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)

	rotated := rotateQuarter(scaled, rotation)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rotated, &jpeg.Options{Quality: r.opts.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("%w: page %d encode: %v", ErrRenderFailed, pageIndex, err)
	}

	thumb := &Thumbnail{
		JPEG:   buf.Bytes(),
		Width:  rotated.Bounds().Dx(),
		Height: rotated.Bounds().Dy(),
	}

	r.mu.Lock()
	r.cache[key] = thumb
	r.mu.Unlock()

	return thumb, nil
}

// Invalidate drops all cached thumbnails for the file at path.
func (r *Renderer) Invalidate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.cache {
		if key.path == path {
			delete(r.cache, key)
		}
	}
}

// CacheSize returns the number of cached thumbnails.
func (r *Renderer) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// orderedReporter serializes out-of-order completions into in-order
// progress callbacks.
type orderedReporter struct {
	mu       sync.Mutex
	next     int
	pending  map[int]reportEntry
	progress func(pageIndex int, thumb *Thumbnail, err error)
}

type reportEntry struct {
	thumb *Thumbnail
	err   error
}

func newOrderedReporter(n int, progress func(int, *Thumbnail, error)) *orderedReporter {
	return &orderedReporter{
		pending:  make(map[int]reportEntry, n),
		progress: progress,
	}
}

func (o *orderedReporter) done(index int, thumb *Thumbnail, err error) {
	if o.progress == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending[index] = reportEntry{thumb: thumb, err: err}
	for {
		entry, ok := o.pending[o.next]
		if !ok {
			return
		}
		delete(o.pending, o.next)
		o.progress(o.next, entry.thumb, entry.err)
		o.next++
	}
}
