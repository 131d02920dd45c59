// Package render appends Pokemon cards to an HTML page.
//
// The page must contain exactly one element marked data-js="pokemons-list".
// Cards are only ever appended to it; earlier pages are never cleared.
package render

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Sternrassler/pokedex-scroll/pkg/pokedex"
	"github.com/Sternrassler/pokedex-scroll/pkg/typecolor"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ListMarker is the data-js value of the list container.
const ListMarker = "pokemons-list"

// ErrListNotFound is returned when a page has no list container.
var ErrListNotFound = errors.New(`no element with data-js="pokemons-list"`)

//go:embed page.html
var defaultPage []byte

// Document is an HTML page with a card list.
type Document struct {
	root *html.Node
	list *html.Node
}

// NewDocument returns the built-in page with an empty list.
func NewDocument() *Document {
	doc, err := Parse(bytes.NewReader(defaultPage))
	if err != nil {
		panic(fmt.Sprintf("render: embedded page: %v", err))
	}
	return doc
}

// Parse reads a page and locates its list container.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	list := findList(root)
	if list == nil {
		return nil, ErrListNotFound
	}

	return &Document{root: root, list: list}, nil
}

// List returns the list container node.
func (d *Document) List() *html.Node {
	return d.list
}

// Append adds one card per record at the end of the list.
func (d *Document) Append(records []pokedex.Record) {
	for _, r := range records {
		d.list.AppendChild(card(r))
	}
}

// LastItem returns the last card in the list, or nil when the list is empty.
func (d *Document) LastItem() *html.Node {
	for n := d.list.LastChild; n != nil; n = n.PrevSibling {
		if n.Type == html.ElementNode && n.DataAtom == atom.Li {
			return n
		}
	}
	return nil
}

// Len returns the number of cards in the list.
func (d *Document) Len() int {
	n := 0
	for c := d.list.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Li {
			n++
		}
	}
	return n
}

// Render writes the page as HTML.
func (d *Document) Render(w io.Writer) error {
	if err := html.Render(w, d.root); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// card builds:
//
//	<li class="card grass" style="--type-color: #27CB50">
//	  <img src="./assets/img/1.png" alt="bulbasaur" class="card-image">
//	  <h2>1. Bulbasaur</h2>
//	  <p>grass | poison</p>
//	</li>
func card(r pokedex.Record) *html.Node {
	primary := r.PrimaryType()

	li := element(atom.Li,
		html.Attribute{Key: "class", Val: "card " + primary},
		html.Attribute{Key: "style", Val: "--type-color: " + typecolor.Color(primary)},
	)

	img := element(atom.Img,
		html.Attribute{Key: "src", Val: r.ImgURL},
		html.Attribute{Key: "alt", Val: r.Name},
		html.Attribute{Key: "class", Val: "card-image"},
	)

	heading := element(atom.H2)
	heading.AppendChild(text(fmt.Sprintf("%s. %s", r.ID, capitalize(r.Name))))

	types := element(atom.P)
	types.AppendChild(text(typeLine(r.Types)))

	li.AppendChild(img)
	li.AppendChild(heading)
	li.AppendChild(types)
	return li
}

func typeLine(types []string) string {
	if len(types) > 1 {
		return strings.Join(types, " | ")
	}
	if len(types) == 1 {
		return types[0]
	}
	return ""
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func findList(n *html.Node) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "data-js" && a.Val == ListMarker {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findList(c); found != nil {
			return found
		}
	}
	return nil
}
