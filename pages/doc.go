// Package pages provides PDF page tree traversal and page access.
//
// This package handles the hierarchical page tree structure in PDFs,
// providing ordered access to individual pages and their attributes.
//
// # Page Tree
//
// PDF documents organize pages in a tree structure. The [PageTree] type
// navigates this hierarchy:
//
//	tree := pages.NewPageTree(pagesDict, resolver)
//	count, _ := tree.Count()
//	page, _ := tree.GetPage(0)  // 0-indexed
//
// # Page Access
//
// The [Page] type represents a single PDF page with:
//
//   - MediaBox - page dimensions
//   - CropBox - visible area (optional)
//   - Rotate - page rotation (0, 90, 180, 270)
//   - Resources - fonts, images, etc.
//   - Contents - content streams
//
// MediaBox, CropBox, Resources and Rotate are inheritable: a page that
// does not declare them takes the value of the nearest ancestor Pages
// node that does. The tree walk resolves inheritance up front, so a
// [Page] always answers with its effective attributes.
//
// [Page.MaterializedDict] produces a standalone copy of the page
// dictionary with inherited attributes written in and the /Parent link
// removed, which is the form a page needs when copied into another
// document.
//
// # Object Resolution
//
// The [ObjectResolver] interface abstracts object lookup:
//
//	type ObjectResolver interface {
//	    Resolve(obj core.Object) (core.Object, error)
//	    ResolveReference(ref core.IndirectRef) (core.Object, error)
//	}
//
// This allows the page tree to resolve indirect references without
// depending on the full reader implementation.
package pages
