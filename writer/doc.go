// Package writer builds PDF documents object by object.
//
// # Writer
//
// The [Writer] type assembles an output document. Object numbers are
// handed out with Alloc and filled in with Put, in any order, which is
// what cyclic structures like page trees need:
//
//	w := writer.NewWriter(1, 4)
//	pagesRef := w.Alloc()
//	pageRef := w.Add(pageDict)       // page points up at pagesRef
//	w.Put(pagesRef, pagesDict)       // pages points down at pageRef
//	w.SetRoot(w.Add(catalogDict))
//	w.WriteTo(f)
//
// WriteTo produces the header, the body with one indirect object per
// allocation, a classic cross-reference table and the trailer.
//
// # Copier
//
// The [Copier] type moves object graphs between documents. It keeps a
// translation map from source references to destination references, so
// every source object is written at most once no matter how many pages
// share it. One Copier serves one source document; copying pages of
// several sources into one output takes one copier each.
package writer
