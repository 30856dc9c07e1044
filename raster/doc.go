// Package raster renders PDF pages into JPEG thumbnails.
//
// Rasterization goes through MuPDF via go-fitz. The [Renderer] type
// renders single pages or whole documents in bounded-parallel batches,
// caching results by (file, page, rotation). Thumbnails are scaled so
// their larger side matches the configured maximum dimension, with the
// requested rotation applied as a quarter-turn pixel rotation after
// scaling.
//
// A page that fails to render inside a batch reports an error wrapping
// [ErrRenderFailed] through the progress callback and leaves a nil slot
// in the result; the rest of the batch still renders.
package raster
