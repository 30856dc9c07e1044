// Package reader provides PDF file reading and object loading.
//
// The [Reader] type opens a PDF file, parses its header and
// cross-reference data (classic tables, xref streams, hybrid files and
// chains of incremental updates), and loads objects on demand. Objects
// packed into object streams are unpacked transparently. Loaded objects
// are cached, so resolving the same reference twice is cheap.
//
//	r, err := reader.Open("document.pdf")
//	if err != nil { ... }
//	defer r.Close()
//
//	count, _ := r.PageCount()
//	page, _ := r.GetPage(0)
//
// Reader implements pages.ObjectResolver, so it plugs directly into the
// page tree traversal of the pages package.
//
// Encrypted documents are rejected with [ErrEncrypted] at open time.
package reader
