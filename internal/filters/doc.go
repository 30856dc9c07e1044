// Package filters implements the PDF stream decode filters used by the
// rancher engine when reading source documents.
//
// Exported entry points:
//
//	decoded, err := filters.FlateDecode(data, params)
//	decoded, err := filters.ASCIIHexDecode(data)
//	decoded, err := filters.ASCII85Decode(data)
//	decoded, err := filters.CCITTFaxDecode(data, params)
//
// FlateDecode handles the TIFF and PNG predictors (Predictor 2 and 10-15)
// controlled through the DecodeParms dictionary of the stream.
//
// Filters are only ever applied on the read path. Exported documents carry
// source streams through byte-for-byte, so no encode counterparts exist.
package filters
