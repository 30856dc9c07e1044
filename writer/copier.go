package writer

import (
	"fmt"

	"github.com/gmalette/pdf-rancher/core"
)

// Source is the document side of a cross-document copy. The reader
// package satisfies it.
type Source interface {
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// Copier copies object graphs from one source document into a Writer.
// Each indirect reference encountered is translated exactly once, so
// objects shared between pages of the same source (fonts, images,
// resources) are written once and shared in the output too. Use one
// Copier per source document.
type Copier struct {
	writer *Writer
	source Source
	trans  map[core.IndirectRef]core.IndirectRef
}

// NewCopier creates a copier from source into w.
func NewCopier(w *Writer, source Source) *Copier {
	return &Copier{
		writer: w,
		source: source,
		trans:  make(map[core.IndirectRef]core.IndirectRef),
	}
}

// Copy deep-copies obj into the destination document, translating every
// indirect reference it contains, and returns the translated object.
func (c *Copier) Copy(obj core.Object) (core.Object, error) {
	switch v := obj.(type) {
	case core.IndirectRef:
		return c.copyReference(v)

	case core.Dict:
		out := make(core.Dict, len(v))
		for key, val := range v {
			copied, err := c.Copy(val)
			if err != nil {
				return nil, fmt.Errorf("key /%s: %w", key, err)
			}
			out[key] = copied
		}
		return out, nil

	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			copied, err := c.Copy(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = copied
		}
		return out, nil

	case *core.Stream:
		dict, err := c.Copy(v.Dict)
		if err != nil {
			return nil, err
		}
		raw := make([]byte, len(v.Raw))
		copy(raw, v.Raw)
		return &core.Stream{Dict: dict.(core.Dict), Raw: raw}, nil

	default:
		// Scalars carry no references.
		return obj, nil
	}
}

// CopyDict copies a dictionary and registers it as a new indirect object
// in the destination, returning the destination reference. This is the
// entry point for copying a page: the materialized page dictionary goes
// in by value, its resource graph follows by reference.
func (c *Copier) CopyDict(dict core.Dict) (core.IndirectRef, error) {
	copied, err := c.Copy(dict)
	if err != nil {
		return core.IndirectRef{}, err
	}
	return c.writer.Add(copied), nil
}

// copyReference translates one source reference, copying the referenced
// object on first encounter. The destination number is allocated before
// the object body is copied so that cyclic graphs terminate.
func (c *Copier) copyReference(ref core.IndirectRef) (core.Object, error) {
	if dest, ok := c.trans[ref]; ok {
		return dest, nil
	}

	dest := c.writer.Alloc()
	c.trans[ref] = dest

	obj, err := c.source.ResolveReference(ref)
	if err != nil {
		return nil, fmt.Errorf("resolve %d %d R: %w", ref.Number, ref.Generation, err)
	}

	copied, err := c.Copy(obj)
	if err != nil {
		return nil, fmt.Errorf("copy %d %d R: %w", ref.Number, ref.Generation, err)
	}
	c.writer.Put(dest, copied)

	return dest, nil
}
