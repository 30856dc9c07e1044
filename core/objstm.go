package core

import (
	"bytes"
	"fmt"
)

// ObjectStream gives access to the objects packed inside a /Type /ObjStm
// stream (PDF 1.5+). The stream starts with N pairs of integers (object
// number, byte offset) followed by the serialized objects themselves.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	decoded []byte
	offsets []objStmOffset
	objects map[int]Object // parsed objects by index
}

type objStmOffset struct {
	objNum int
	offset int
}

// NewObjectStream wraps a stream object, validating its /Type, /N and
// /First entries. Decoding happens lazily on first object access.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}
	if typ, _ := stream.Dict.GetName("Type"); typ != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream (/Type /%s)", typ)
	}

	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First")
	}

	return &ObjectStream{
		stream:  stream,
		n:       int(n),
		first:   int(first),
		objects: make(map[int]Object),
	}, nil
}

// N returns the number of objects stored in the stream.
func (os *ObjectStream) N() int {
	return os.n
}

func (os *ObjectStream) decode() error {
	if os.decoded != nil {
		return nil
	}

	decoded, err := os.stream.Decode()
	if err != nil {
		return fmt.Errorf("decode object stream: %w", err)
	}
	if os.first > len(decoded) {
		return fmt.Errorf("/First offset %d exceeds stream length %d", os.first, len(decoded))
	}
	os.decoded = decoded

	// The header is N whitespace-separated (objNum, offset) integer pairs.
	parser := NewParser(bytes.NewReader(decoded[:os.first]))
	os.offsets = make([]objStmOffset, 0, os.n)
	for i := 0; i < os.n; i++ {
		numObj, err := parser.ParseObject()
		if err != nil {
			return fmt.Errorf("object stream header pair %d: %w", i, err)
		}
		offObj, err := parser.ParseObject()
		if err != nil {
			return fmt.Errorf("object stream header pair %d: %w", i, err)
		}
		num, ok1 := numObj.(Int)
		off, ok2 := offObj.(Int)
		if !ok1 || !ok2 {
			return fmt.Errorf("object stream header pair %d is not integers", i)
		}
		os.offsets = append(os.offsets, objStmOffset{objNum: int(num), offset: int(off)})
	}
	return nil
}

// GetObjectByIndex extracts the object at the given header index (0-based)
// and returns it with its object number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := os.decode(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(os.offsets) {
		return nil, 0, fmt.Errorf("object stream index %d out of range [0, %d)", index, len(os.offsets))
	}

	if obj, ok := os.objects[index]; ok {
		return obj, os.offsets[index].objNum, nil
	}

	start := os.first + os.offsets[index].offset
	end := len(os.decoded)
	if index+1 < len(os.offsets) {
		end = os.first + os.offsets[index+1].offset
	}
	if start >= len(os.decoded) || end > len(os.decoded) || start > end {
		return nil, 0, fmt.Errorf("object stream offsets out of bounds for index %d", index)
	}

	parser := NewParser(bytes.NewReader(os.decoded[start:end]))
	obj, err := parser.ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("parse object at index %d: %w", index, err)
	}

	os.objects[index] = obj
	return obj, os.offsets[index].objNum, nil
}

// GetObjectByNumber finds an object by its object number.
func (os *ObjectStream) GetObjectByNumber(objNum int) (Object, error) {
	if err := os.decode(); err != nil {
		return nil, err
	}
	for i, entry := range os.offsets {
		if entry.objNum == objNum {
			obj, _, err := os.GetObjectByIndex(i)
			return obj, err
		}
	}
	return nil, fmt.Errorf("object %d not found in object stream", objNum)
}
