// Package core implements the PDF object layer shared by the reader and
// writer sides of the engine: the object model (dictionaries, arrays,
// streams, indirect references), the tokenizer and object parser, the
// cross-reference machinery (classic tables, xref streams, object streams,
// incremental updates), and the serializer that turns objects back into
// PDF syntax when a spliced document is written out.
//
// The object model is deliberately small. Values are immutable by
// convention except for Dict, which mutating code copies first (see
// Dict.Clone).
package core
