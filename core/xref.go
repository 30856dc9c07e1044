package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// XRefEntryType classifies a cross-reference entry.
type XRefEntryType int

const (
	// EntryFree marks a free (deleted or never used) object slot.
	EntryFree XRefEntryType = iota
	// EntryInFile locates an object at a byte offset in the file.
	EntryInFile
	// EntryInStream locates an object inside an object stream.
	EntryInStream
)

// XRefEntry is a single cross-reference entry.
type XRefEntry struct {
	Type        XRefEntryType
	Offset      int64 // byte offset, EntryInFile only
	Generation  int
	StreamNum   int // object number of the containing ObjStm, EntryInStream only
	StreamIndex int // index within the object stream, EntryInStream only
}

// InUse reports whether the entry points at a live object.
func (e *XRefEntry) InUse() bool {
	return e.Type != EntryFree
}

// XRefTable maps object numbers to cross-reference entries, together with
// the trailer dictionary in effect after merging incremental updates.
type XRefTable struct {
	Entries map[int]*XRefEntry
	Trailer Dict
}

// NewXRefTable creates an empty table.
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves the entry for an object number.
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or replaces the entry for an object number.
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries in the table.
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// XRefParser reads the cross-reference data of a PDF file. It understands
// classic xref tables, xref streams (PDF 1.5+), hybrid files carrying both,
// and chains of incremental updates via /Prev.
type XRefParser struct {
	reader io.ReadSeeker
}

// NewXRefParser creates a parser over the given file.
func NewXRefParser(r io.ReadSeeker) *XRefParser {
	return &XRefParser{reader: r}
}

// FindStartXRef locates the offset recorded in the startxref line near the
// end of the file.
func (x *XRefParser) FindStartXRef() (int64, error) {
	fileSize, err := x.reader.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek to end: %w", err)
	}

	readSize := int64(1024)
	if fileSize < readSize {
		readSize = fileSize
	}
	if _, err := x.reader.Seek(fileSize-readSize, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek to tail: %w", err)
	}

	buf := make([]byte, readSize)
	n, err := io.ReadFull(x.reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("read tail: %w", err)
	}
	tail := string(buf[:n])

	idx := strings.LastIndex(tail, "startxref")
	if idx == -1 {
		return 0, fmt.Errorf("startxref not found")
	}

	rest := strings.TrimSpace(tail[idx+len("startxref"):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, fmt.Errorf("startxref offset missing")
	}
	offset, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid startxref offset %q: %w", fields[0], err)
	}
	return offset, nil
}

// LoadAll parses the cross-reference data starting from the startxref
// offset, follows the /Prev chain of incremental updates, folds in hybrid
// /XRefStm sections, and returns the merged table. The trailer of the
// newest section wins.
func (x *XRefParser) LoadAll() (*XRefTable, error) {
	offset, err := x.FindStartXRef()
	if err != nil {
		return nil, err
	}

	// Collect sections newest-first, guarding against /Prev loops.
	var sections []*XRefTable
	seen := make(map[int64]bool)
	for {
		if seen[offset] {
			return nil, fmt.Errorf("cross-reference /Prev loop at offset %d", offset)
		}
		seen[offset] = true

		table, err := x.ParseSection(offset)
		if err != nil {
			return nil, err
		}

		// Hybrid file: the classic table hides objects that live in a
		// parallel xref stream. Fill the gaps from the stream section.
		if stmOffset, ok := table.Trailer.GetInt("XRefStm"); ok {
			stm, err := x.ParseSection(int64(stmOffset))
			if err != nil {
				return nil, fmt.Errorf("hybrid xref stream: %w", err)
			}
			for num, entry := range stm.Entries {
				if existing, ok := table.Entries[num]; !ok || !existing.InUse() {
					table.Entries[num] = entry
				}
			}
		}

		sections = append(sections, table)

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}

	// Merge oldest-first so newer updates override.
	merged := NewXRefTable()
	for i := len(sections) - 1; i >= 0; i-- {
		for num, entry := range sections[i].Entries {
			merged.Set(num, entry)
		}
	}
	merged.Trailer = sections[0].Trailer
	return merged, nil
}

// ParseSection parses one cross-reference section at the given offset,
// dispatching on whether it is a classic table or an xref stream.
func (x *XRefParser) ParseSection(offset int64) (*XRefTable, error) {
	if _, err := x.reader.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to xref at %d: %w", offset, err)
	}

	probe := make([]byte, 4)
	n, _ := x.reader.Read(probe)
	if _, err := x.reader.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	if bytes.HasPrefix(bytes.TrimLeft(probe[:n], " \r\n\t"), []byte("xref")) {
		return x.parseClassicSection()
	}
	// Anything else must be an indirect object holding an xref stream.
	return x.parseStreamSection()
}

// parseClassicSection parses "xref ... trailer <<...>>" at the current
// reader position.
func (x *XRefParser) parseClassicSection() (*XRefTable, error) {
	lexer := NewLexer(x.reader)

	token, err := lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if token.Type != TokenKeyword || string(token.Value) != "xref" {
		return nil, fmt.Errorf("expected 'xref' keyword, got %q", token.Value)
	}

	table := NewXRefTable()
	for {
		token, err = lexer.NextToken()
		if err != nil {
			return nil, err
		}

		if token.Type == TokenKeyword && string(token.Value) == "trailer" {
			trailer, err := parseTrailerDict(lexer)
			if err != nil {
				return nil, err
			}
			table.Trailer = trailer
			return table, nil
		}

		if token.Type != TokenInteger {
			return nil, fmt.Errorf("expected subsection start, got %q", token.Value)
		}
		start, err := strconv.Atoi(string(token.Value))
		if err != nil {
			return nil, err
		}

		token, err = lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if token.Type != TokenInteger {
			return nil, fmt.Errorf("expected subsection count, got %q", token.Value)
		}
		count, err := strconv.Atoi(string(token.Value))
		if err != nil {
			return nil, err
		}

		for i := 0; i < count; i++ {
			entry, err := parseClassicEntry(lexer)
			if err != nil {
				return nil, fmt.Errorf("xref entry %d: %w", start+i, err)
			}
			table.Set(start+i, entry)
		}
	}
}

// parseClassicEntry reads one "nnnnnnnnnn ggggg n|f" entry.
func parseClassicEntry(lexer *Lexer) (*XRefEntry, error) {
	offTok, err := lexer.NextToken()
	if err != nil {
		return nil, err
	}
	genTok, err := lexer.NextToken()
	if err != nil {
		return nil, err
	}
	flagTok, err := lexer.NextToken()
	if err != nil {
		return nil, err
	}

	if offTok.Type != TokenInteger || genTok.Type != TokenInteger {
		return nil, fmt.Errorf("malformed entry %q %q", offTok.Value, genTok.Value)
	}
	offset, err := strconv.ParseInt(string(offTok.Value), 10, 64)
	if err != nil {
		return nil, err
	}
	gen, err := strconv.Atoi(string(genTok.Value))
	if err != nil {
		return nil, err
	}

	switch string(flagTok.Value) {
	case "n":
		return &XRefEntry{Type: EntryInFile, Offset: offset, Generation: gen}, nil
	case "f":
		return &XRefEntry{Type: EntryFree, Generation: gen}, nil
	}
	return nil, fmt.Errorf("invalid entry flag %q", flagTok.Value)
}

// parseTrailerDict parses the dictionary following the "trailer" keyword,
// continuing on the same lexer.
func parseTrailerDict(lexer *Lexer) (Dict, error) {
	parser := &Parser{lexer: lexer}
	parser.nextToken()
	parser.nextToken()

	obj, err := parser.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("trailer dictionary: %w", err)
	}
	dict, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is not a dictionary: %T", obj)
	}
	return dict, nil
}

// parseStreamSection parses an xref stream (an indirect stream object with
// /Type /XRef) at the current reader position. The entry data is binary:
// rows of /W-sized big-endian fields covering the ranges listed in /Index.
func (x *XRefParser) parseStreamSection() (*XRefTable, error) {
	parser := NewParser(x.reader)
	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("xref stream object: %w", err)
	}
	stream, ok := indObj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("xref section is neither a table nor a stream (got %T)", indObj.Object)
	}
	if typ, _ := stream.Dict.GetName("Type"); typ != "XRef" {
		return nil, fmt.Errorf("xref stream has /Type /%s, expected /XRef", typ)
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode xref stream: %w", err)
	}

	wArr, ok := stream.Dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return nil, fmt.Errorf("xref stream missing /W array")
	}
	widths := make([]int, 3)
	for i, w := range wArr {
		n, ok := w.(Int)
		if !ok || n < 0 {
			return nil, fmt.Errorf("invalid /W element %v", w)
		}
		widths[i] = int(n)
	}
	rowLen := widths[0] + widths[1] + widths[2]
	if rowLen == 0 {
		return nil, fmt.Errorf("xref stream /W is all zero")
	}

	size, ok := stream.Dict.GetInt("Size")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /Size")
	}

	// Default index covers object numbers [0, Size).
	index := []int{0, int(size)}
	if idxArr, ok := stream.Dict.GetArray("Index"); ok {
		if len(idxArr)%2 != 0 {
			return nil, fmt.Errorf("xref stream /Index has odd length")
		}
		index = index[:0]
		for _, v := range idxArr {
			n, ok := v.(Int)
			if !ok {
				return nil, fmt.Errorf("invalid /Index element %v", v)
			}
			index = append(index, int(n))
		}
	}

	table := NewXRefTable()
	table.Trailer = stream.Dict

	pos := 0
	for i := 0; i < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+rowLen > len(data) {
				return nil, fmt.Errorf("xref stream data truncated at object %d", start+j)
			}
			f1 := readBigEndian(data[pos:pos+widths[0]], 1) // type defaults to 1 when W[0]==0
			f2 := readBigEndian(data[pos+widths[0]:pos+widths[0]+widths[1]], 0)
			f3 := readBigEndian(data[pos+widths[0]+widths[1]:pos+rowLen], 0)
			pos += rowLen

			var entry *XRefEntry
			switch f1 {
			case 0:
				entry = &XRefEntry{Type: EntryFree, Generation: int(f3)}
			case 1:
				entry = &XRefEntry{Type: EntryInFile, Offset: f2, Generation: int(f3)}
			case 2:
				entry = &XRefEntry{Type: EntryInStream, StreamNum: int(f2), StreamIndex: int(f3)}
			default:
				// Unknown entry types are reserved; treat as free.
				entry = &XRefEntry{Type: EntryFree}
			}
			table.Set(start+j, entry)
		}
	}

	return table, nil
}

// readBigEndian decodes a big-endian integer from buf, returning def for
// zero-width fields.
func readBigEndian(buf []byte, def int64) int64 {
	if len(buf) == 0 {
		return def
	}
	var v int64
	for _, b := range buf {
		v = v<<8 | int64(b)
	}
	return v
}
