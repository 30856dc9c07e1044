package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Params carries decode parameters from a stream's DecodeParms dictionary,
// translated to Go primitives (Int -> int, Bool -> bool, and so on).
type Params map[string]interface{}

// Int returns the integer parameter for key, or def when absent.
func (p Params) Int(key string, def int) int {
	if p == nil {
		return def
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns the boolean parameter for key, or def when absent.
func (p Params) Bool(key string, def bool) bool {
	if p == nil {
		return def
	}
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// FlateDecode decompresses Flate (zlib) data and reverses any predictor
// declared in the decode parameters. This is the workhorse filter; nearly
// every content stream and cross-reference stream uses it.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}

	predictor := params.Int("Predictor", 1)
	switch {
	case predictor == 1:
		return out, nil
	case predictor == 2:
		return undoTIFFPredictor(out, params)
	case predictor >= 10 && predictor <= 15:
		return undoPNGPredictor(out, params)
	default:
		return nil, fmt.Errorf("unsupported predictor %d", predictor)
	}
}

// undoTIFFPredictor reverses TIFF Predictor 2, where each sample is stored
// as the difference from the sample to its left.
func undoTIFFPredictor(data []byte, params Params) ([]byte, error) {
	columns := params.Int("Columns", 1)
	colors := params.Int("Colors", 1)
	if bpc := params.Int("BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("TIFF predictor: unsupported BitsPerComponent %d", bpc)
	}

	rowLen := columns * colors
	if rowLen <= 0 || len(data)%rowLen != 0 {
		return nil, fmt.Errorf("TIFF predictor: data length %d not a multiple of row length %d", len(data), rowLen)
	}

	for row := 0; row < len(data); row += rowLen {
		for i := colors; i < rowLen; i++ {
			data[row+i] += data[row+i-colors]
		}
	}
	return data, nil
}

// undoPNGPredictor reverses the PNG row predictors (None, Sub, Up, Average,
// Paeth). Each encoded row is prefixed with a tag byte selecting the
// predictor used for that row; the tag bytes are stripped from the output.
func undoPNGPredictor(data []byte, params Params) ([]byte, error) {
	columns := params.Int("Columns", 1)
	colors := params.Int("Colors", 1)
	if bpc := params.Int("BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("PNG predictor: unsupported BitsPerComponent %d", bpc)
	}

	rowLen := columns * colors
	if rowLen <= 0 || len(data)%(rowLen+1) != 0 {
		return nil, fmt.Errorf("PNG predictor: data length %d not a multiple of row length %d", len(data), rowLen+1)
	}

	rows := len(data) / (rowLen + 1)
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen) // zero row above the first row

	for r := 0; r < rows; r++ {
		tag := data[r*(rowLen+1)]
		src := data[r*(rowLen+1)+1 : (r+1)*(rowLen+1)]
		dst := out[r*rowLen : (r+1)*rowLen]

		switch tag {
		case 0: // None
			copy(dst, src)
		case 1: // Sub
			for i := range src {
				var left byte
				if i >= colors {
					left = dst[i-colors]
				}
				dst[i] = src[i] + left
			}
		case 2: // Up
			for i := range src {
				dst[i] = src[i] + prev[i]
			}
		case 3: // Average
			for i := range src {
				var left byte
				if i >= colors {
					left = dst[i-colors]
				}
				dst[i] = src[i] + byte((int(left)+int(prev[i]))/2)
			}
		case 4: // Paeth
			for i := range src {
				var left, upLeft byte
				if i >= colors {
					left = dst[i-colors]
					upLeft = prev[i-colors]
				}
				dst[i] = src[i] + paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("PNG predictor: unknown row tag %d", tag)
		}

		prev = dst
	}
	return out, nil
}

// paeth selects the neighbor closest to the linear prediction a+b-c,
// as defined by the PNG specification.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
