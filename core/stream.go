package core

import (
	"fmt"

	"github.com/gmalette/pdf-rancher/internal/filters"
)

// Decode returns the stream data with all declared filters reversed,
// caching the result. DCTDecode and JPXDecode payloads are passed through
// as-is: they are compressed image formats, not byte filters.
func (s *Stream) Decode() ([]byte, error) {
	if s.decoded != nil {
		return s.decoded, nil
	}

	filterObj := s.Dict.Get("Filter")
	if filterObj == nil {
		s.decoded = s.Raw
		return s.decoded, nil
	}

	paramsObj := s.Dict.Get("DecodeParms")

	var chain []Name
	switch v := filterObj.(type) {
	case Name:
		chain = []Name{v}
	case Array:
		for i, f := range v {
			name, ok := f.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is not a name: %T", i, f)
			}
			chain = append(chain, name)
		}
	default:
		return nil, fmt.Errorf("invalid Filter type %T", filterObj)
	}

	data := s.Raw
	for i, name := range chain {
		var params Dict
		if arr, ok := paramsObj.(Array); ok {
			if i < len(arr) {
				params, _ = arr[i].(Dict)
			}
		} else {
			params, _ = paramsObj.(Dict)
		}

		var err error
		data, err = applyFilter(data, string(name), params)
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s): %w", i, name, err)
		}
	}

	s.decoded = data
	return s.decoded, nil
}

func applyFilter(data []byte, name string, params Dict) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, filterParams(params))
	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)
	case "CCITTFaxDecode", "CCF":
		return filters.CCITTFaxDecode(data, filterParams(params))
	case "DCTDecode", "DCT", "JPXDecode":
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported filter %s", name)
	}
}

// filterParams converts a DecodeParms dictionary to filter parameters,
// translating PDF scalar types to Go primitives.
func filterParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}
	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case Name:
			params[k] = string(obj)
		case String:
			params[k] = string(obj)
		default:
			params[k] = v
		}
	}
	return params
}
