package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mercator-hq/cachescript/pkg/fetch"
	"mercator-hq/cachescript/pkg/manifest"
)

// Prober performs the network request behind a linked resource.
type Prober interface {
	Get(ctx context.Context, url string) (*fetch.Response, error)
}

// Mode is how a resource entered the document.
type Mode string

const (
	// ModeInline means the content was injected as element text.
	ModeInline Mode = "inline"
	// ModeLink means the element references the URL.
	ModeLink Mode = "link"
)

// Insertion records one element appended to the head.
type Insertion struct {
	Kind manifest.Kind `json:"kind"`
	Mode Mode          `json:"mode"`
	URL  string        `json:"url,omitempty"`
	Size int           `json:"size"`
	At   time.Time     `json:"at"`

	// Failed is set when a linked resource did not load.
	Failed bool `json:"failed,omitempty"`
}

// Head is an HTML document whose head receives loaded resources in order.
// It is safe for concurrent use.
type Head struct {
	mu         sync.Mutex
	root       *html.Node
	head       *html.Node
	insertions []Insertion
	prober     Prober
	now        func() time.Time
}

// Option configures a Head.
type Option func(*Head)

// WithProber makes Link issue a request for the linked URL after inserting
// its element and complete only when the request succeeds, the way a
// browser reports onload.
func WithProber(p Prober) Option {
	return func(h *Head) {
		h.prober = p
	}
}

// New creates an empty HTML5 document with the given title.
func New(title string, opts ...Option) *Head {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	htmlEl := element(atom.Html)
	root.AppendChild(htmlEl)

	head := element(atom.Head)
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(element(atom.Body))

	meta := element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"})
	head.AppendChild(meta)
	if title != "" {
		t := element(atom.Title)
		t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
		head.AppendChild(t)
	}

	return newHead(root, head, opts)
}

// Parse reads an existing page and appends resources to its head.
func Parse(r io.Reader, opts ...Option) (*Head, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	head := find(root, atom.Head)
	if head == nil {
		return nil, fmt.Errorf("document has no head element")
	}
	return newHead(root, head, opts), nil
}

func newHead(root, head *html.Node, opts []Option) *Head {
	h := &Head{
		root: root,
		head: head,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InsertExecutable appends a script element holding content.
func (h *Head) InsertExecutable(content string) error {
	n := element(atom.Script)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: content})
	h.append(n, Insertion{Kind: manifest.KindScript, Mode: ModeInline, Size: len(content)})
	return nil
}

// InsertStyle appends a style element holding content.
func (h *Head) InsertStyle(content string) error {
	n := element(atom.Style,
		html.Attribute{Key: "type", Val: "text/css"},
		html.Attribute{Key: "media", Val: "screen, projection"},
	)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: content})
	h.append(n, Insertion{Kind: manifest.KindStyle, Mode: ModeInline, Size: len(content)})
	return nil
}

// Link appends an element that references url and blocks until the linked
// resource has loaded. Without a prober the load completes immediately.
func (h *Head) Link(ctx context.Context, kind manifest.Kind, url string) error {
	var n *html.Node
	switch kind {
	case manifest.KindScript:
		n = element(atom.Script,
			html.Attribute{Key: "type", Val: "text/javascript"},
			html.Attribute{Key: "src", Val: url},
		)
	case manifest.KindStyle:
		n = element(atom.Link,
			html.Attribute{Key: "rel", Val: "stylesheet"},
			html.Attribute{Key: "type", Val: "text/css"},
			html.Attribute{Key: "href", Val: url},
		)
	default:
		return fmt.Errorf("cannot link resource of kind %q", kind)
	}

	// The element goes in before the request starts; the probe only
	// decides when the load completes.
	idx := h.append(n, Insertion{Kind: kind, Mode: ModeLink, URL: url})
	if h.prober == nil {
		return nil
	}

	resp, err := h.prober.Get(ctx, url)
	switch {
	case err != nil:
		h.markFailed(idx)
		return fmt.Errorf("failed to load %s: %w", url, err)
	case !resp.OK():
		h.markFailed(idx)
		return fmt.Errorf("failed to load %s: status %d", url, resp.StatusCode)
	}

	h.mu.Lock()
	h.insertions[idx].Size = len(resp.Body)
	h.mu.Unlock()
	return nil
}

// append adds n to the head and returns the index of its insertion record.
func (h *Head) append(n *html.Node, ins Insertion) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	ins.At = h.now()
	h.head.AppendChild(n)
	h.insertions = append(h.insertions, ins)
	return len(h.insertions) - 1
}

func (h *Head) markFailed(idx int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.insertions[idx].Failed = true
}

// Insertions returns the recorded insertions in document order.
func (h *Head) Insertions() []Insertion {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Insertion(nil), h.insertions...)
}

// Render writes the document as HTML.
func (h *Head) Render(w io.Writer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return html.Render(w, h.root)
}

// String renders the document, returning an empty string on failure.
func (h *Head) String() string {
	var buf bytes.Buffer
	if err := h.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// HeadHTML renders only the children of the head element.
func (h *Head) HeadHTML() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var b strings.Builder
	for c := h.head.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     a.String(),
		DataAtom: a,
		Attr:     attrs,
	}
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}
