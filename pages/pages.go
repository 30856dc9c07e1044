package pages

import (
	"fmt"

	"github.com/gmalette/pdf-rancher/core"
)

// ObjectResolver resolves indirect references against a document.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// Catalog represents the PDF document catalog (root of document structure)
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog creates a new catalog from a dictionary
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{
		dict:     dict,
		resolver: resolver,
	}
}

// Type returns the catalog type (should be "Catalog")
func (c *Catalog) Type() string {
	if name, ok := c.dict.GetName("Type"); ok {
		return string(name)
	}
	return ""
}

// Pages returns the page tree root dictionary.
func (c *Catalog) Pages() (core.Dict, error) {
	pagesRef := c.dict.Get("Pages")
	if pagesRef == nil {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}

	pagesObj, err := c.resolver.Resolve(pagesRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}

	pagesDict, ok := pagesObj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Pages type: %T", pagesObj)
	}

	return pagesDict, nil
}

// Version returns the /Version entry if present. It overrides the header
// version when newer.
func (c *Catalog) Version() string {
	if name, ok := c.dict.GetName("Version"); ok {
		return string(name)
	}
	return ""
}

// inherited carries the inheritable page attributes down the tree during
// traversal. Each Pages node overrides the values it declares.
type inherited struct {
	mediaBox  core.Object
	cropBox   core.Object
	resources core.Object
	rotate    core.Object
}

func (in inherited) override(node core.Dict) inherited {
	if v := node.Get("MediaBox"); v != nil {
		in.mediaBox = v
	}
	if v := node.Get("CropBox"); v != nil {
		in.cropBox = v
	}
	if v := node.Get("Resources"); v != nil {
		in.resources = v
	}
	if v := node.Get("Rotate"); v != nil {
		in.rotate = v
	}
	return in
}

// PageTree flattens the PDF page tree into an ordered page list,
// resolving inheritable attributes along the way.
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page
}

// NewPageTree creates a new page tree from the root pages dictionary
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{
		root:     root,
		resolver: resolver,
	}
}

// Count returns the total number of pages declared by the tree root.
func (t *PageTree) Count() (int, error) {
	count, ok := t.root.GetInt("Count")
	if !ok {
		return 0, fmt.Errorf("page tree missing /Count entry")
	}
	return int(count), nil
}

// GetPage returns the page at the given index (0-based)
func (t *PageTree) GetPage(index int) (*Page, error) {
	if t.pages == nil {
		if err := t.loadPages(); err != nil {
			return nil, err
		}
	}

	if index < 0 || index >= len(t.pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(t.pages))
	}

	return t.pages[index], nil
}

// Pages returns all pages in document order.
func (t *PageTree) Pages() ([]*Page, error) {
	if t.pages == nil {
		if err := t.loadPages(); err != nil {
			return nil, err
		}
	}

	return t.pages, nil
}

func (t *PageTree) loadPages() error {
	t.pages = make([]*Page, 0)
	visited := make(map[core.IndirectRef]bool)

	if err := t.traversePageNode(t.root, core.IndirectRef{}, inherited{}, visited); err != nil {
		return fmt.Errorf("failed to traverse page tree: %w", err)
	}

	return nil
}

// traversePageNode walks one tree node. ref is the node's indirect
// reference when it was reached through one; visited guards against
// /Kids cycles in damaged files.
func (t *PageTree) traversePageNode(node core.Dict, ref core.IndirectRef, inh inherited, visited map[core.IndirectRef]bool) error {
	inh = inh.override(node)

	typeName, ok := node.GetName("Type")
	if !ok {
		// Some producers omit /Type on leaf pages. A node without /Kids
		// is treated as a page.
		if !node.Has("Kids") {
			t.pages = append(t.pages, newPage(node, ref, inh, t.resolver))
			return nil
		}
		typeName = "Pages"
	}

	switch string(typeName) {
	case "Pages":
		kidsObj := node.Get("Kids")
		if kidsObj == nil {
			return fmt.Errorf("Pages node missing /Kids entry")
		}

		kidsResolved, err := t.resolver.Resolve(kidsObj)
		if err != nil {
			return fmt.Errorf("failed to resolve /Kids: %w", err)
		}

		kids, ok := kidsResolved.(core.Array)
		if !ok {
			return fmt.Errorf("invalid /Kids type: %T", kidsResolved)
		}

		for i, kidObj := range kids {
			var kidRef core.IndirectRef
			if r, ok := kidObj.(core.IndirectRef); ok {
				if visited[r] {
					return fmt.Errorf("page tree cycle at object %d", r.Number)
				}
				visited[r] = true
				kidRef = r
			}

			kidResolved, err := t.resolver.Resolve(kidObj)
			if err != nil {
				return fmt.Errorf("failed to resolve kid %d: %w", i, err)
			}

			kidDict, ok := kidResolved.(core.Dict)
			if !ok {
				return fmt.Errorf("invalid kid type: %T", kidResolved)
			}

			if err := t.traversePageNode(kidDict, kidRef, inh, visited); err != nil {
				return err
			}
		}

	case "Page":
		t.pages = append(t.pages, newPage(node, ref, inh, t.resolver))

	default:
		return fmt.Errorf("unexpected page node type: %s", typeName)
	}

	return nil
}

// Page represents a single PDF page with its inheritable attributes
// already resolved from the tree walk.
type Page struct {
	dict     core.Dict
	ref      core.IndirectRef
	inh      inherited
	resolver ObjectResolver
}

func newPage(dict core.Dict, ref core.IndirectRef, inh inherited, resolver ObjectResolver) *Page {
	return &Page{
		dict:     dict,
		ref:      ref,
		inh:      inh,
		resolver: resolver,
	}
}

// Dict returns the raw page dictionary.
func (p *Page) Dict() core.Dict {
	return p.dict
}

// Ref returns the indirect reference the page was reached through, or the
// zero reference when the page dictionary was inlined in its parent.
func (p *Page) Ref() core.IndirectRef {
	return p.ref
}

// MediaBox returns the page media box [x1 y1 x2 y2], inherited from the
// tree when the page does not declare one.
func (p *Page) MediaBox() ([]float64, error) {
	return p.box(p.inh.mediaBox, "MediaBox")
}

// CropBox returns the crop box, defaulting to the media box when absent.
func (p *Page) CropBox() ([]float64, error) {
	if p.inh.cropBox == nil {
		return p.MediaBox()
	}
	return p.box(p.inh.cropBox, "CropBox")
}

func (p *Page) box(obj core.Object, name string) ([]float64, error) {
	if obj == nil {
		return nil, fmt.Errorf("%s not found", name)
	}

	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}

	arr, ok := resolved.(core.Array)
	if !ok {
		return nil, fmt.Errorf("invalid %s type: %T", name, resolved)
	}
	if len(arr) != 4 {
		return nil, fmt.Errorf("invalid %s length: %d (expected 4)", name, len(arr))
	}

	box, ok := arr.Numbers()
	if !ok {
		return nil, fmt.Errorf("non-numeric %s element", name)
	}
	return box, nil
}

// Resources returns the page resources dictionary, inherited from the
// tree when the page does not declare one.
func (p *Page) Resources() (core.Dict, error) {
	if p.inh.resources == nil {
		return nil, fmt.Errorf("resources not found")
	}

	resolved, err := p.resolver.Resolve(p.inh.resources)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Resources: %w", err)
	}

	dict, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid Resources type: %T", resolved)
	}

	return dict, nil
}

// Contents returns the page content stream(s)
func (p *Page) Contents() ([]core.Object, error) {
	contentsObj := p.dict.Get("Contents")
	if contentsObj == nil {
		return nil, nil // Contents is optional
	}

	contentsResolved, err := p.resolver.Resolve(contentsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Contents: %w", err)
	}

	switch v := contentsResolved.(type) {
	case *core.Stream:
		return []core.Object{v}, nil
	case core.Array:
		streams := make([]core.Object, len(v))
		for i, elem := range v {
			resolved, err := p.resolver.Resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve contents[%d]: %w", i, err)
			}
			streams[i] = resolved
		}
		return streams, nil
	default:
		return nil, fmt.Errorf("invalid Contents type: %T", contentsResolved)
	}
}

// Rotate returns the page rotation normalized to 0, 90, 180 or 270.
// Inherited from the tree when the page does not declare one.
func (p *Page) Rotate() int {
	if p.inh.rotate == nil {
		return 0
	}

	resolved, err := p.resolver.Resolve(p.inh.rotate)
	if err != nil {
		return 0
	}
	rotate, ok := resolved.(core.Int)
	if !ok {
		return 0
	}

	return NormalizeRotation(int(rotate))
}

// NormalizeRotation maps an arbitrary degree value to the canonical
// quarter turns 0, 90, 180, 270. Values that are not a multiple of 90
// snap to the nearest lower quarter turn.
func NormalizeRotation(degrees int) int {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	return degrees - degrees%90
}

// Width returns the page width from the media box.
func (p *Page) Width() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[2] - box[0], nil
}

// Height returns the page height from the media box.
func (p *Page) Height() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[3] - box[1], nil
}

// VisualSize returns the width and height as displayed, swapping the two
// when the page rotation is 90 or 270.
func (p *Page) VisualSize() (width, height float64, err error) {
	width, err = p.Width()
	if err != nil {
		return 0, 0, err
	}
	height, err = p.Height()
	if err != nil {
		return 0, 0, err
	}
	if rot := p.Rotate(); rot == 90 || rot == 270 {
		width, height = height, width
	}
	return width, height, nil
}

// MaterializedDict returns a clone of the page dictionary with the
// inheritable attributes written in directly and the /Parent link removed.
// The result stands alone outside its original tree, which is what a page
// copied into another document needs.
func (p *Page) MaterializedDict() (core.Dict, error) {
	dict := p.dict.Clone()
	dict.Delete("Parent")

	if !dict.Has("MediaBox") && p.inh.mediaBox != nil {
		box, err := p.MediaBox()
		if err != nil {
			return nil, err
		}
		dict.Set("MediaBox", boxArray(box))
	}
	if !dict.Has("CropBox") && p.inh.cropBox != nil {
		box, err := p.CropBox()
		if err != nil {
			return nil, err
		}
		dict.Set("CropBox", boxArray(box))
	}
	if !dict.Has("Resources") && p.inh.resources != nil {
		dict.Set("Resources", p.inh.resources)
	}
	if !dict.Has("Rotate") && p.inh.rotate != nil {
		dict.Set("Rotate", core.Int(p.Rotate()))
	}

	return dict, nil
}

func boxArray(box []float64) core.Array {
	arr := make(core.Array, len(box))
	for i, v := range box {
		if v == float64(int64(v)) {
			arr[i] = core.Int(v)
		} else {
			arr[i] = core.Real(v)
		}
	}
	return arr
}
