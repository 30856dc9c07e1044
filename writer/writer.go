package writer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/gmalette/pdf-rancher/core"
)

// Writer builds a new PDF document: objects are allocated and filled in
// any order, then WriteTo serializes the header, body, a classic
// cross-reference table and the trailer in one pass.
type Writer struct {
	major   int
	minor   int
	nextNum int
	objects map[int]core.Object
	root    core.IndirectRef
	info    core.IndirectRef
}

// NewWriter creates a writer producing the given PDF version.
func NewWriter(major, minor int) *Writer {
	return &Writer{
		major:   major,
		minor:   minor,
		nextNum: 1,
		objects: make(map[int]core.Object),
	}
}

// SetVersion changes the header version. Raising the version is the
// common case when merging sources of mixed vintage.
func (w *Writer) SetVersion(major, minor int) {
	w.major = major
	w.minor = minor
}

// Version returns the header version as major, minor.
func (w *Writer) Version() (int, int) {
	return w.major, w.minor
}

// Alloc reserves the next object number and returns its reference. The
// object body is supplied later with Put, which lets object graphs with
// cycles be built reference-first.
func (w *Writer) Alloc() core.IndirectRef {
	ref := core.IndirectRef{Number: w.nextNum}
	w.nextNum++
	return ref
}

// Put stores the body for a previously allocated reference.
func (w *Writer) Put(ref core.IndirectRef, obj core.Object) {
	w.objects[ref.Number] = obj
}

// Add allocates a reference and stores the object in one step.
func (w *Writer) Add(obj core.Object) core.IndirectRef {
	ref := w.Alloc()
	w.Put(ref, obj)
	return ref
}

// SetRoot records the document catalog reference for the trailer.
func (w *Writer) SetRoot(ref core.IndirectRef) {
	w.root = ref
}

// SetInfo records the document info dictionary reference for the trailer.
func (w *Writer) SetInfo(ref core.IndirectRef) {
	w.info = ref
}

// WriteTo serializes the document. Every allocated reference must have
// been filled with Put, and a root must have been set.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	if w.root.Number == 0 {
		return 0, fmt.Errorf("no document catalog set")
	}
	for num := 1; num < w.nextNum; num++ {
		if _, ok := w.objects[num]; !ok {
			return 0, fmt.Errorf("object %d allocated but never filled", num)
		}
	}

	buf := bufio.NewWriter(out)
	var written int64
	count := func(n int, err error) error {
		written += int64(n)
		return err
	}

	// Header plus a comment with bytes above 127 so transfer tools treat
	// the file as binary.
	if err := count(fmt.Fprintf(buf, "%%PDF-%d.%d\n%%\xe2\xe3\xcf\xd3\n", w.major, w.minor)); err != nil {
		return written, err
	}

	nums := make([]int, 0, len(w.objects))
	for num := range w.objects {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	offsets := make(map[int]int64, len(nums))
	var body bytes.Buffer
	for _, num := range nums {
		offsets[num] = written
		body.Reset()
		fmt.Fprintf(&body, "%d 0 obj\n", num)
		if err := core.WriteObject(&body, w.objects[num]); err != nil {
			return written, fmt.Errorf("serialize object %d: %w", num, err)
		}
		body.WriteString("\nendobj\n")
		if err := count(buf.Write(body.Bytes())); err != nil {
			return written, err
		}
	}

	xrefOffset := written
	size := w.nextNum
	if err := count(fmt.Fprintf(buf, "xref\n0 %d\n", size)); err != nil {
		return written, err
	}
	// Object 0 heads the free list.
	if err := count(fmt.Fprintf(buf, "0000000000 65535 f \n")); err != nil {
		return written, err
	}
	for num := 1; num < size; num++ {
		if err := count(fmt.Fprintf(buf, "%010d 00000 n \n", offsets[num])); err != nil {
			return written, err
		}
	}

	trailer := core.Dict{
		"Size": core.Int(size),
		"Root": w.root,
	}
	if w.info.Number != 0 {
		trailer.Set("Info", w.info)
	}

	if err := count(fmt.Fprintf(buf, "trailer\n")); err != nil {
		return written, err
	}
	var trailerBuf bytes.Buffer
	if err := core.WriteObject(&trailerBuf, trailer); err != nil {
		return written, err
	}
	if err := count(buf.Write(trailerBuf.Bytes())); err != nil {
		return written, err
	}
	if err := count(fmt.Fprintf(buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)); err != nil {
		return written, err
	}

	return written, buf.Flush()
}
