package raster

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"testing"
)

// fakeSource serves synthetic pages so batch behavior can be tested
// without MuPDF. Pages listed in fail error out of Bound.
type fakeSource struct {
	bounds image.Rectangle
	fail   map[int]bool
}

func (s fakeSource) Bound(pageIndex int) (image.Rectangle, error) {
	if s.fail[pageIndex] {
		return image.Rectangle{}, errors.New("broken page object")
	}
	return s.bounds, nil
}

func (s fakeSource) ImageDPI(pageIndex int, dpi float64) (image.Image, error) {
	return image.NewRGBA(s.bounds), nil
}

func (s fakeSource) Close() error { return nil }

func newFakeRenderer(src fakeSource) *Renderer {
	r := NewRenderer(Options{
		MaxDimension: 50,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	r.open = func(path string) (pageSource, error) { return src, nil }
	return r
}

func TestRenderBatchToleratesPageFailure(t *testing.T) {
	src := fakeSource{
		bounds: image.Rect(0, 0, 100, 200),
		fail:   map[int]bool{1: true},
	}
	r := newFakeRenderer(src)

	type event struct {
		page   int
		hasImg bool
		err    error
	}
	var events []event

	thumbs, err := r.RenderBatch(context.Background(), "batch.pdf", []int{0, 0, 0},
		func(pageIndex int, thumb *Thumbnail, err error) {
			events = append(events, event{page: pageIndex, hasImg: thumb != nil, err: err})
		})
	if err != nil {
		t.Fatalf("RenderBatch: %v", err)
	}

	if len(thumbs) != 3 {
		t.Fatalf("got %d thumbnails, want 3", len(thumbs))
	}
	if thumbs[0] == nil || thumbs[2] == nil {
		t.Error("healthy pages must still render when a sibling fails")
	}
	if thumbs[1] != nil {
		t.Error("failed page must yield a nil thumbnail")
	}

	if len(events) != 3 {
		t.Fatalf("got %d progress events, want 3", len(events))
	}
	for i, ev := range events {
		if ev.page != i {
			t.Errorf("event %d reported page %d, want in-order delivery", i, ev.page)
		}
	}
	if events[1].err == nil || !errors.Is(events[1].err, ErrRenderFailed) {
		t.Errorf("failed page error = %v, want ErrRenderFailed", events[1].err)
	}
	if events[1].hasImg {
		t.Error("failed page must report a nil thumbnail")
	}
	if events[0].err != nil || events[2].err != nil {
		t.Errorf("healthy pages reported errors: %v, %v", events[0].err, events[2].err)
	}
}

func TestRenderThumbnailDimensions(t *testing.T) {
	src := fakeSource{bounds: image.Rect(0, 0, 100, 200)}
	r := newFakeRenderer(src)

	tests := []struct {
		name         string
		rotation     int
		wantW, wantH int
	}{
		{"upright", 0, 25, 50},
		{"quarter turn swaps sides", 90, 50, 25},
		{"half turn keeps sides", 180, 25, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thumb, err := r.Render("dims.pdf", 0, tt.rotation)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if thumb.Width != tt.wantW || thumb.Height != tt.wantH {
				t.Errorf("thumbnail is %dx%d, want %dx%d",
					thumb.Width, thumb.Height, tt.wantW, tt.wantH)
			}

			img, err := jpeg.Decode(bytes.NewReader(thumb.JPEG))
			if err != nil {
				t.Fatalf("decode JPEG: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("encoded image is %dx%d, want %dx%d",
					b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestRenderBatchCancelled(t *testing.T) {
	src := fakeSource{bounds: image.Rect(0, 0, 100, 200)}
	r := newFakeRenderer(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RenderBatch(ctx, "cancelled.pdf", []int{0, 0}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RenderBatch after cancel = %v, want context.Canceled", err)
	}
}
