package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/gmalette/pdf-rancher/core"
	"github.com/gmalette/pdf-rancher/pages"
)

// ErrEncrypted is returned when a document carries an /Encrypt dictionary.
// Encrypted documents are not supported.
var ErrEncrypted = errors.New("document is encrypted")

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Less reports whether v is older than other.
func (v PDFVersion) Less(other PDFVersion) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

// Reader reads a PDF file: header, cross-reference data, objects (both
// directly stored and packed in object streams) and the page tree.
type Reader struct {
	file      *os.File
	xrefTable *core.XRefTable
	trailer   core.Dict
	version   PDFVersion
	objCache  map[int]core.Object
	objStms   map[int]*core.ObjectStream
	loading   map[int]bool // objects currently being parsed, guards reference cycles
	fileSize  int64
	pageTree  *pages.PageTree
}

// Ensure Reader implements pages.ObjectResolver
var _ pages.ObjectResolver = (*Reader)(nil)

// NewReader creates a new PDF reader for the given file
func NewReader(file *os.File) (*Reader, error) {
	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	reader := &Reader{
		file:     file,
		objCache: make(map[int]core.Object),
		objStms:  make(map[int]*core.ObjectStream),
		loading:  make(map[int]bool),
		fileSize: fileInfo.Size(),
	}

	version, err := reader.parseHeader()
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	reader.version = version

	xrefTable, err := reader.loadXRef()
	if err != nil {
		return nil, fmt.Errorf("failed to load xref: %w", err)
	}
	reader.xrefTable = xrefTable
	reader.trailer = xrefTable.Trailer

	if reader.trailer.Has("Encrypt") {
		return nil, ErrEncrypted
	}

	// The catalog /Version entry overrides the header when newer.
	if catalog, err := reader.GetCatalog(); err == nil {
		if v, ok := parseVersionString(pages.NewCatalog(catalog, reader).Version()); ok && version.Less(v) {
			reader.version = v
		}
	}

	return reader, nil
}

// Open opens a PDF file and returns a Reader
func Open(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	reader, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	return reader, nil
}

// Close closes the PDF file
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)`)

// parseHeader parses the PDF header (%PDF-x.y)
func (r *Reader) parseHeader() (PDFVersion, error) {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return PDFVersion{}, fmt.Errorf("failed to seek to start: %w", err)
	}

	header := make([]byte, 8)
	n, err := r.file.Read(header)
	if err != nil {
		return PDFVersion{}, fmt.Errorf("failed to read header: %w", err)
	}
	if n < 8 {
		return PDFVersion{}, fmt.Errorf("header too short: %d bytes", n)
	}

	headerStr := string(header)
	if !strings.HasPrefix(headerStr, "%PDF-") {
		return PDFVersion{}, fmt.Errorf("invalid PDF header: %s", headerStr)
	}

	version, ok := parseVersionString(headerStr[5:])
	if !ok {
		return PDFVersion{}, fmt.Errorf("invalid version format: %s", headerStr[5:])
	}
	return version, nil
}

func parseVersionString(s string) (PDFVersion, bool) {
	matches := versionRe.FindStringSubmatch(s)
	if len(matches) < 3 {
		return PDFVersion{}, false
	}
	var major, minor int
	fmt.Sscanf(matches[1], "%d", &major)
	fmt.Sscanf(matches[2], "%d", &minor)
	return PDFVersion{Major: major, Minor: minor}, true
}

// loadXRef loads the cross-reference data, following incremental updates.
func (r *Reader) loadXRef() (*core.XRefTable, error) {
	xrefParser := core.NewXRefParser(r.file)
	table, err := xrefParser.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref: %w", err)
	}
	return table, nil
}

// Version returns the PDF version
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// GetObject loads an object by its number, transparently unpacking
// objects stored in object streams. Loaded objects are cached.
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	if obj, ok := r.objCache[objNum]; ok {
		return obj, nil
	}
	if r.loading[objNum] {
		return nil, fmt.Errorf("reference cycle while loading object %d", objNum)
	}
	r.loading[objNum] = true
	defer delete(r.loading, objNum)

	entry, ok := r.xrefTable.Get(objNum)
	if !ok {
		return nil, fmt.Errorf("object %d not found in xref table", objNum)
	}

	var obj core.Object
	var err error
	switch entry.Type {
	case core.EntryInFile:
		obj, err = r.loadFileObject(objNum, entry.Offset)
	case core.EntryInStream:
		obj, err = r.loadStreamObject(objNum, entry.StreamNum, entry.StreamIndex)
	default:
		return nil, fmt.Errorf("object %d is not in use", objNum)
	}
	if err != nil {
		return nil, err
	}

	r.objCache[objNum] = obj
	return obj, nil
}

// loadFileObject parses an indirect object at a byte offset. The parse
// runs over a section reader so that resolving an indirect stream length
// mid-parse does not disturb the position.
func (r *Reader) loadFileObject(objNum int, offset int64) (core.Object, error) {
	if offset < 0 || offset >= r.fileSize {
		return nil, fmt.Errorf("object %d offset %d outside file", objNum, offset)
	}

	section := io.NewSectionReader(r.file, offset, r.fileSize-offset)
	parser := core.NewParser(section)
	parser.SetReferenceResolver(r)

	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object %d: %w", objNum, err)
	}

	if indObj.Ref.Number != objNum {
		return nil, fmt.Errorf("object number mismatch: expected %d, got %d", objNum, indObj.Ref.Number)
	}

	return indObj.Object, nil
}

// loadStreamObject extracts an object from its containing object stream.
func (r *Reader) loadStreamObject(objNum, streamNum, streamIndex int) (core.Object, error) {
	objStm, ok := r.objStms[streamNum]
	if !ok {
		container, err := r.GetObject(streamNum)
		if err != nil {
			return nil, fmt.Errorf("failed to load object stream %d: %w", streamNum, err)
		}
		stream, isStream := container.(*core.Stream)
		if !isStream {
			return nil, fmt.Errorf("object %d is not a stream (got %T)", streamNum, container)
		}
		objStm, err = core.NewObjectStream(stream)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", streamNum, err)
		}
		r.objStms[streamNum] = objStm
	}

	obj, num, err := objStm.GetObjectByIndex(streamIndex)
	if err == nil && num == objNum {
		return obj, nil
	}
	// The index from the xref may be stale; fall back to a number lookup.
	obj, numErr := objStm.GetObjectByNumber(objNum)
	if numErr != nil {
		if err != nil {
			return nil, fmt.Errorf("object %d in stream %d: %w", objNum, streamNum, err)
		}
		return nil, fmt.Errorf("object %d in stream %d: %w", objNum, streamNum, numErr)
	}
	return obj, nil
}

// ResolveReference resolves an indirect reference
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve resolves an object if it's an indirect reference, otherwise
// returns it as-is. Implements pages.ObjectResolver.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// GetCatalog returns the document catalog (root object)
func (r *Reader) GetCatalog() (core.Dict, error) {
	rootRef := r.trailer.Get("Root")
	if rootRef == nil {
		return nil, fmt.Errorf("trailer missing /Root entry")
	}

	ref, ok := rootRef.(core.IndirectRef)
	if !ok {
		return nil, fmt.Errorf("invalid /Root type: %T", rootRef)
	}

	obj, err := r.ResolveReference(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}

	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is not a dictionary: %T", obj)
	}

	return catalog, nil
}

// GetInfo returns the document info dictionary (metadata)
func (r *Reader) GetInfo() (core.Dict, error) {
	infoRef := r.trailer.Get("Info")
	if infoRef == nil {
		return nil, nil // Info is optional
	}

	ref, ok := infoRef.(core.IndirectRef)
	if !ok {
		return nil, fmt.Errorf("invalid /Info type: %T", infoRef)
	}

	obj, err := r.ResolveReference(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve info: %w", err)
	}

	info, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("info is not a dictionary: %T", obj)
	}

	return info, nil
}

// NumObjects returns the object count declared by the trailer.
func (r *Reader) NumObjects() int {
	size, ok := r.trailer.GetInt("Size")
	if !ok {
		return 0
	}
	return int(size)
}

// FileSize returns the size of the PDF file in bytes
func (r *Reader) FileSize() int64 {
	return r.fileSize
}

// XRefTable returns the cross-reference table
// Exposed for debugging/inspection
func (r *Reader) XRefTable() *core.XRefTable {
	return r.xrefTable
}

// ClearCache clears the object cache
// Useful for freeing memory when processing large PDFs
func (r *Reader) ClearCache() {
	r.objCache = make(map[int]core.Object)
	r.objStms = make(map[int]*core.ObjectStream)
}

// CacheSize returns the number of cached objects
func (r *Reader) CacheSize() int {
	return len(r.objCache)
}

// PageCount returns the number of pages in the PDF
func (r *Reader) PageCount() (int, error) {
	if err := r.ensurePageTree(); err != nil {
		return 0, err
	}
	return r.pageTree.Count()
}

// GetPage returns the page at the given index (0-based)
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	if err := r.ensurePageTree(); err != nil {
		return nil, err
	}
	return r.pageTree.GetPage(index)
}

// Pages returns all pages in document order.
func (r *Reader) Pages() ([]*pages.Page, error) {
	if err := r.ensurePageTree(); err != nil {
		return nil, err
	}
	return r.pageTree.Pages()
}

// ensurePageTree loads the page tree if not already loaded
func (r *Reader) ensurePageTree() error {
	if r.pageTree != nil {
		return nil
	}

	catalog, err := r.GetCatalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}

	pagesDict, err := pages.NewCatalog(catalog, r).Pages()
	if err != nil {
		return err
	}

	r.pageTree = pages.NewPageTree(pagesDict, r)
	return nil
}
