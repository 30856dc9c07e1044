package core

import (
	"fmt"
	"io"
	"sort"
	"strconv"
)

// WriteObject serializes obj to w in PDF syntax. Dictionaries are written
// with sorted keys so that output is deterministic.
func WriteObject(w io.Writer, obj Object) error {
	switch v := obj.(type) {
	case nil, Null:
		_, err := io.WriteString(w, "null")
		return err

	case Bool:
		_, err := io.WriteString(w, v.String())
		return err

	case Int:
		_, err := io.WriteString(w, v.String())
		return err

	case Real:
		_, err := io.WriteString(w, strconv.FormatFloat(float64(v), 'f', -1, 64))
		return err

	case String:
		return writeStringLiteral(w, string(v))

	case Name:
		return writeName(w, string(v))

	case Array:
		if _, err := io.WriteString(w, "["); err != nil {
			return err
		}
		for i, elem := range v {
			if i > 0 {
				if _, err := io.WriteString(w, " "); err != nil {
					return err
				}
			}
			if err := WriteObject(w, elem); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "]")
		return err

	case Dict:
		return writeDict(w, v)

	case *Stream:
		dict := v.Dict.Clone()
		dict.Set("Length", Int(len(v.Raw)))
		if err := writeDict(w, dict); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\nstream\n"); err != nil {
			return err
		}
		if _, err := w.Write(v.Raw); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\nendstream")
		return err

	case IndirectRef:
		_, err := fmt.Fprintf(w, "%d %d R", v.Number, v.Generation)
		return err

	default:
		return fmt.Errorf("cannot serialize object of type %T", obj)
	}
}

func writeDict(w io.Writer, d Dict) error {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if _, err := io.WriteString(w, "<<"); err != nil {
		return err
	}
	for _, k := range keys {
		if err := writeName(w, k); err != nil {
			return err
		}
		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
		if err := WriteObject(w, d[k]); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ">>")
	return err
}

// writeStringLiteral writes a parenthesized string literal. Backslash,
// parentheses, and bytes outside the printable range are escaped.
func writeStringLiteral(w io.Writer, s string) error {
	buf := make([]byte, 0, len(s)+2)
	buf = append(buf, '(')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(' || c == ')' || c == '\\':
			buf = append(buf, '\\', c)
		case c == '\n':
			buf = append(buf, '\\', 'n')
		case c == '\r':
			buf = append(buf, '\\', 'r')
		case c == '\t':
			buf = append(buf, '\\', 't')
		case c < 0x20:
			buf = append(buf, '\\')
			buf = append(buf, oct(c)...)
		default:
			buf = append(buf, c)
		}
	}
	buf = append(buf, ')')
	_, err := w.Write(buf)
	return err
}

// writeName writes a name object, hex-escaping bytes that are delimiters,
// whitespace, '#', or outside the visible ASCII range.
func writeName(w io.Writer, name string) error {
	buf := make([]byte, 0, len(name)+1)
	buf = append(buf, '/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < '!' || c > '~' || c == '#' || isDelimiter(c) {
			buf = append(buf, '#', hexDigits[c>>4], hexDigits[c&0xf])
		} else {
			buf = append(buf, c)
		}
	}
	_, err := w.Write(buf)
	return err
}

const hexDigits = "0123456789ABCDEF"

func oct(c byte) []byte {
	return []byte{'0' + (c >> 6), '0' + ((c >> 3) & 7), '0' + (c & 7)}
}
