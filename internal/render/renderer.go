// Package render turns portable-text documents into HTML node trees.
//
// Rendering is table driven: block styles, list kinds, marks and custom node
// types each map to a function. Anything without a table entry renders as
// nothing, so one unknown node never breaks the rest of the document.
package render

import (
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"dailycrypto/internal/model"
)

const (
	ImageWidth  = 1200
	ImageHeight = 675

	defaultAlt = "Article image"
)

// ImageResolver turns an asset reference into a sized URL. Resize sizes a
// URL that was already resolved by the content source.
type ImageResolver interface {
	URL(ref string, w, h int) (string, error)
	Resize(rawURL string, w, h int) string
}

// BlockFunc wraps the rendered inline content of a text block.
type BlockFunc func(children []*html.Node) *html.Node

// ListFunc wraps rendered <li> items.
type ListFunc func(items []*html.Node) *html.Node

// MarkFunc wraps an inline run. def is set for annotations (links) and nil for decorators.
type MarkFunc func(children []*html.Node, def *model.MarkDef) *html.Node

// TypeFunc renders a custom node type such as "image".
type TypeFunc func(r *Renderer, b model.Block) *html.Node

type Renderer struct {
	Blocks map[string]BlockFunc
	Lists  map[string]ListFunc
	Marks  map[string]MarkFunc
	Types  map[string]TypeFunc

	images ImageResolver
}

// New returns a Renderer with the site's default tables.
func New(images ImageResolver) *Renderer {
	return &Renderer{
		Blocks: map[string]BlockFunc{
			"h2":         wrap("h2", "text-3xl font-bold mt-8 mb-4"),
			"h3":         wrap("h3", "text-2xl font-bold mt-6 mb-3"),
			"h4":         wrap("h4", "text-xl font-semibold mt-4 mb-2"),
			"normal":     wrap("p", "text-lg leading-relaxed mb-6"),
			"blockquote": wrap("blockquote", "border-l-4 border-primary pl-6 py-2 my-6 italic text-lg"),
		},
		Lists: map[string]ListFunc{
			"bullet": wrap("ul", "list-disc list-inside mb-6 space-y-2 text-lg"),
			"number": wrap("ol", "list-decimal list-inside mb-6 space-y-2 text-lg"),
		},
		Marks: map[string]MarkFunc{
			"strong": decorator("strong", "font-bold"),
			"em":     decorator("em", "italic"),
			"code":   decorator("code", "bg-muted px-2 py-1 rounded text-sm font-mono"),
			"link":   link,
		},
		Types: map[string]TypeFunc{
			"image": image,
		},
		images: images,
	}
}

// Render maps doc to top-level nodes in document order.
func (r *Renderer) Render(doc model.Document) []*html.Node {
	var out []*html.Node

	for i := 0; i < len(doc); {
		b := doc[i]

		if isListItem(b) {
			j := i + 1
			for j < len(doc) && isListItem(doc[j]) && doc[j].ListItem == b.ListItem {
				j++
			}
			if n := r.list(b.ListItem, doc[i:j]); n != nil {
				out = append(out, n)
			}
			i = j
			continue
		}

		if n := r.node(b); n != nil {
			out = append(out, n)
		}
		i++
	}

	return out
}

// HTML renders doc to markup for templates.
func (r *Renderer) HTML(doc model.Document) template.HTML {
	var sb strings.Builder
	for _, n := range r.Render(doc) {
		if err := html.Render(&sb, n); err != nil {
			continue
		}
	}
	return template.HTML(sb.String())
}

func (r *Renderer) node(b model.Block) *html.Node {
	if b.Type == "block" {
		style := b.Style
		if style == "" {
			style = "normal"
		}
		fn, ok := r.Blocks[style]
		if !ok {
			return nil
		}
		return fn(r.inline(b))
	}

	fn, ok := r.Types[b.Type]
	if !ok {
		return nil
	}
	return fn(r, b)
}

func (r *Renderer) list(kind string, items []model.Block) *html.Node {
	fn, ok := r.Lists[kind]
	if !ok {
		return nil
	}

	lis := make([]*html.Node, 0, len(items))
	for _, item := range items {
		lis = append(lis, element("li", "ml-4", r.inline(item)))
	}
	return fn(lis)
}

func (r *Renderer) inline(b model.Block) []*html.Node {
	defs := make(map[string]*model.MarkDef, len(b.MarkDefs))
	for i := range b.MarkDefs {
		defs[b.MarkDefs[i].Key] = &b.MarkDefs[i]
	}

	out := make([]*html.Node, 0, len(b.Children))
	for _, s := range b.Children {
		if s.Type != "" && s.Type != "span" {
			continue
		}
		out = append(out, r.span(s, defs))
	}
	return out
}

// span wraps the text in its marks; the first mark is the innermost.
func (r *Renderer) span(s model.Span, defs map[string]*model.MarkDef) *html.Node {
	n := &html.Node{Type: html.TextNode, Data: s.Text}

	for _, mark := range s.Marks {
		if def, ok := defs[mark]; ok {
			if fn, ok := r.Marks[def.Type]; ok {
				n = fn([]*html.Node{n}, def)
			}
			continue
		}
		if fn, ok := r.Marks[mark]; ok && mark != "link" {
			n = fn([]*html.Node{n}, nil)
		}
	}
	return n
}

func isListItem(b model.Block) bool {
	return b.Type == "block" && b.ListItem != ""
}

func wrap(tag, class string) func([]*html.Node) *html.Node {
	return func(children []*html.Node) *html.Node {
		return element(tag, class, children)
	}
}

func decorator(tag, class string) MarkFunc {
	return func(children []*html.Node, _ *model.MarkDef) *html.Node {
		return element(tag, class, children)
	}
}

// link opens in a new tab only when the annotation asks for it. Unsafe
// hrefs keep the text but lose the anchor.
func link(children []*html.Node, def *model.MarkDef) *html.Node {
	if def == nil || !safeHref(def.Href) {
		if len(children) == 1 {
			return children[0]
		}
		return element("span", "", children)
	}

	attrs := []html.Attribute{{Key: "href", Val: def.Href}}
	if def.Blank {
		attrs = append(attrs,
			html.Attribute{Key: "target", Val: "_blank"},
			html.Attribute{Key: "rel", Val: "noopener noreferrer"},
		)
	}
	return element("a", "text-primary hover:underline font-medium", children, attrs...)
}

// imageSrc sizes an embedded image at ImageWidth x ImageHeight. The asset
// reference wins over a dereferenced url.
func (r *Renderer) imageSrc(asset *model.Asset) string {
	ref := asset.Ref
	if ref == "" {
		ref = asset.ID
	}
	if ref != "" && r.images != nil {
		if u, err := r.images.URL(ref, ImageWidth, ImageHeight); err == nil && u != "" {
			return u
		}
	}

	if asset.URL == "" {
		return ""
	}
	if r.images == nil {
		return asset.URL
	}
	return r.images.Resize(asset.URL, ImageWidth, ImageHeight)
}

func image(r *Renderer, b model.Block) *html.Node {
	if b.Asset == nil {
		return nil
	}

	src := r.imageSrc(b.Asset)
	if src == "" {
		return nil
	}

	alt := b.Alt
	if alt == "" {
		alt = defaultAlt
	}

	img := element("img", "object-cover w-full h-full", nil,
		html.Attribute{Key: "src", Val: src},
		html.Attribute{Key: "alt", Val: alt},
		html.Attribute{Key: "width", Val: strconv.Itoa(ImageWidth)},
		html.Attribute{Key: "height", Val: strconv.Itoa(ImageHeight)},
		html.Attribute{Key: "loading", Val: "lazy"},
	)
	children := []*html.Node{
		element("div", "relative w-full aspect-video rounded-lg overflow-hidden", []*html.Node{img}),
	}
	if b.Caption != "" {
		children = append(children, element("figcaption", "text-center text-sm text-muted mt-2",
			[]*html.Node{{Type: html.TextNode, Data: b.Caption}}))
	}
	return element("figure", "my-8", children)
}

func element(tag, class string, children []*html.Node, attrs ...html.Attribute) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	if class != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
	}
	n.Attr = append(n.Attr, attrs...)

	for _, c := range children {
		if c == nil {
			continue
		}
		if c.Parent != nil {
			c.Parent.RemoveChild(c)
		}
		n.AppendChild(c)
	}
	return n
}

func safeHref(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	}
	return false
}
