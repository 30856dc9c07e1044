package writer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gmalette/pdf-rancher/core"
	"github.com/gmalette/pdf-rancher/reader"
)

// buildSinglePageDoc assembles a one-page document with a content stream.
func buildSinglePageDoc(w *Writer) {
	pagesRef := w.Alloc()

	contentRef := w.Add(&core.Stream{
		Dict: core.Dict{},
		Raw:  []byte("BT /F1 24 Tf 100 700 Td (Hi) Tj ET"),
	})
	pageRef := w.Add(core.Dict{
		"Type":     core.Name("Page"),
		"Parent":   pagesRef,
		"MediaBox": core.Array{core.Int(0), core.Int(0), core.Int(612), core.Int(792)},
		"Contents": contentRef,
	})
	w.Put(pagesRef, core.Dict{
		"Type":  core.Name("Pages"),
		"Count": core.Int(1),
		"Kids":  core.Array{pageRef},
	})
	w.SetRoot(w.Add(core.Dict{
		"Type":  core.Name("Catalog"),
		"Pages": pagesRef,
	}))
}

func TestWriterOutputStructure(t *testing.T) {
	w := NewWriter(1, 4)
	buildSinglePageDoc(w)

	var buf bytes.Buffer
	n, err := w.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo returned %d, buffer holds %d", n, buf.Len())
	}

	out := buf.String()
	if !strings.HasPrefix(out, "%PDF-1.4\n") {
		t.Errorf("missing header: %q", out[:16])
	}
	for _, want := range []string{"xref\n0 5\n", "trailer\n", "startxref\n", "%%EOF"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestWriterRoundTrip(t *testing.T) {
	w := NewWriter(1, 4)
	buildSinglePageDoc(w)

	path := filepath.Join(t.TempDir(), "out.pdf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.WriteTo(f); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := reader.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer r.Close()

	if got := r.Version().String(); got != "1.4" {
		t.Errorf("version = %s, want 1.4", got)
	}

	count, err := r.PageCount()
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("PageCount() = %d, want 1", count)
	}

	page, err := r.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage(0) error = %v", err)
	}
	box, err := page.MediaBox()
	if err != nil {
		t.Fatalf("MediaBox() error = %v", err)
	}
	if box[2] != 612 || box[3] != 792 {
		t.Errorf("MediaBox = %v", box)
	}

	contents, err := page.Contents()
	if err != nil {
		t.Fatalf("Contents() error = %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d content streams", len(contents))
	}
	stream := contents[0].(*core.Stream)
	data, err := stream.Decode()
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !strings.Contains(string(data), "(Hi)") {
		t.Errorf("content stream = %q", data)
	}
}

func TestWriterErrors(t *testing.T) {
	t.Run("no root", func(t *testing.T) {
		w := NewWriter(1, 4)
		w.Add(core.Dict{})
		if _, err := w.WriteTo(&bytes.Buffer{}); err == nil {
			t.Error("expected error when no root is set")
		}
	})

	t.Run("unfilled allocation", func(t *testing.T) {
		w := NewWriter(1, 4)
		w.Alloc()
		w.SetRoot(w.Add(core.Dict{"Type": core.Name("Catalog")}))
		if _, err := w.WriteTo(&bytes.Buffer{}); err == nil {
			t.Error("expected error for an allocated but unfilled object")
		}
	})
}

func TestWriterSetVersion(t *testing.T) {
	w := NewWriter(1, 4)
	w.SetVersion(1, 7)
	buildSinglePageDoc(w)

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF-1.7\n") {
		t.Errorf("header = %q", buf.String()[:9])
	}
}

// mapSource is a Source backed by a plain map.
type mapSource map[int]core.Object

func (m mapSource) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	obj, ok := m[ref.Number]
	if !ok {
		return nil, fmt.Errorf("object %d not found", ref.Number)
	}
	return obj, nil
}

func TestCopierTranslatesReferences(t *testing.T) {
	source := mapSource{
		20: core.Dict{"Font": core.Dict{"F1": core.IndirectRef{Number: 21}}},
		21: core.Dict{"Type": core.Name("Font"), "BaseFont": core.Name("Helvetica")},
	}

	w := NewWriter(1, 4)
	copier := NewCopier(w, source)

	pageDict := core.Dict{
		"Type":      core.Name("Page"),
		"Resources": core.IndirectRef{Number: 20},
	}
	ref, err := copier.CopyDict(pageDict)
	if err != nil {
		t.Fatalf("CopyDict() error = %v", err)
	}
	if ref.Number == 0 {
		t.Fatal("no destination reference allocated")
	}

	// The copied page must reference translated numbers, not source ones.
	copied := w.objects[ref.Number].(core.Dict)
	resRef, ok := copied.GetIndirectRef("Resources")
	if !ok {
		t.Fatal("Resources is not a reference in the copy")
	}
	resources := w.objects[resRef.Number].(core.Dict)
	font, _ := resources.GetDict("Font")
	f1, ok := font.GetIndirectRef("F1")
	if !ok {
		t.Fatal("F1 is not a reference in the copy")
	}
	fontDict := w.objects[f1.Number].(core.Dict)
	if base, _ := fontDict.GetName("BaseFont"); base != "Helvetica" {
		t.Errorf("BaseFont = %q", base)
	}
}

func TestCopierDeduplicatesSharedObjects(t *testing.T) {
	source := mapSource{
		30: core.Dict{"Type": core.Name("Font")},
	}

	w := NewWriter(1, 4)
	copier := NewCopier(w, source)

	// Two pages sharing one font.
	ref1, err := copier.CopyDict(core.Dict{"F": core.IndirectRef{Number: 30}})
	if err != nil {
		t.Fatal(err)
	}
	ref2, err := copier.CopyDict(core.Dict{"F": core.IndirectRef{Number: 30}})
	if err != nil {
		t.Fatal(err)
	}

	f1, _ := w.objects[ref1.Number].(core.Dict).GetIndirectRef("F")
	f2, _ := w.objects[ref2.Number].(core.Dict).GetIndirectRef("F")
	if f1 != f2 {
		t.Errorf("shared object copied twice: %v vs %v", f1, f2)
	}
}

func TestCopierSurvivesCycles(t *testing.T) {
	// 40 and 41 reference each other.
	source := mapSource{
		40: core.Dict{"Next": core.IndirectRef{Number: 41}},
		41: core.Dict{"Prev": core.IndirectRef{Number: 40}},
	}

	w := NewWriter(1, 4)
	copier := NewCopier(w, source)

	obj, err := copier.Copy(core.IndirectRef{Number: 40})
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	destRef, ok := obj.(core.IndirectRef)
	if !ok {
		t.Fatalf("got %T, want IndirectRef", obj)
	}

	first := w.objects[destRef.Number].(core.Dict)
	nextRef, _ := first.GetIndirectRef("Next")
	second := w.objects[nextRef.Number].(core.Dict)
	prevRef, _ := second.GetIndirectRef("Prev")
	if prevRef != destRef {
		t.Errorf("cycle not preserved: %v != %v", prevRef, destRef)
	}
}

func TestCopierCopiesStreams(t *testing.T) {
	raw := []byte("stream body")
	source := mapSource{
		50: &core.Stream{Dict: core.Dict{"Kind": core.Name("Content")}, Raw: raw},
	}

	w := NewWriter(1, 4)
	copier := NewCopier(w, source)

	obj, err := copier.Copy(core.IndirectRef{Number: 50})
	if err != nil {
		t.Fatal(err)
	}
	destRef := obj.(core.IndirectRef)
	copied := w.objects[destRef.Number].(*core.Stream)
	if !bytes.Equal(copied.Raw, raw) {
		t.Errorf("stream data = %q", copied.Raw)
	}

	// The copy owns its bytes.
	raw[0] = 'X'
	if copied.Raw[0] == 'X' {
		t.Error("copied stream shares the source buffer")
	}
}

func TestCopierUnresolvableReference(t *testing.T) {
	w := NewWriter(1, 4)
	copier := NewCopier(w, mapSource{})
	if _, err := copier.Copy(core.IndirectRef{Number: 99}); err == nil {
		t.Error("expected error for unresolvable reference")
	}
}
