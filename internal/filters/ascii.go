package filters

import (
	"bytes"
	"encoding/ascii85"
	"fmt"
	"io"
)

// ASCIIHexDecode decodes ASCIIHexDecode data. Hex digit pairs become bytes,
// whitespace is ignored, '>' ends the data, and a trailing odd digit is
// padded with zero per the PDF specification.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	var hi byte
	haveHi := false

	for _, c := range data {
		if isWhitespace(c) {
			continue
		}
		if c == '>' {
			break
		}
		v, err := hexNibble(c)
		if err != nil {
			return nil, err
		}
		if !haveHi {
			hi, haveHi = v, true
		} else {
			out.WriteByte(hi<<4 | v)
			haveHi = false
		}
	}
	if haveHi {
		out.WriteByte(hi << 4)
	}
	return out.Bytes(), nil
}

// ASCII85Decode decodes ASCII85Decode (base-85) data. Whitespace is ignored
// and the optional "<~" prefix and "~>" terminator are stripped before
// handing the body to the standard decoder.
func ASCII85Decode(data []byte) ([]byte, error) {
	body := make([]byte, 0, len(data))
	for _, c := range data {
		if !isWhitespace(c) {
			body = append(body, c)
		}
	}
	body = bytes.TrimPrefix(body, []byte("<~"))
	if i := bytes.Index(body, []byte("~>")); i >= 0 {
		body = body[:i]
	}

	dec := ascii85.NewDecoder(bytes.NewReader(body))
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("ascii85: %w", err)
	}
	return out, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	}
	return 0, fmt.Errorf("invalid hex digit %q", c)
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}
