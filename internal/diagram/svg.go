package diagram

import (
	"bytes"
	"encoding/xml"
	"io"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

const (
	svgNamespace = "http://www.w3.org/2000/svg"
	indent       = "    "
	// ClipPathID is the id of the injected freeform clip polygon.
	ClipPathID = "freeform-clip"
)

// node is a generic SVG element. Attributes keep insertion order so output
// is deterministic.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []*node    `xml:",any"`
}

func el(name string, attrs ...string) *node {
	n := &node{XMLName: xml.Name{Local: name}}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.set(attrs[i], attrs[i+1])
	}
	return n
}

func (n *node) set(name, value string) *node {
	for i := range n.Attrs {
		if n.Attrs[i].Name.Local == name {
			n.Attrs[i].Value = value
			return n
		}
	}
	n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
	return n
}

func (n *node) unset(name string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name.Local == name {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return
		}
	}
}

// add appends children, skipping nil ones.
func (n *node) add(children ...*node) *node {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

func text(x, y float64, content string, attrs ...string) *node {
	t := el("text", append([]string{"x", num(x), "y", num(y)}, attrs...)...)
	t.Text = content
	return t
}

// fragment renders a single element with the document indentation.
func fragment(n *node) (string, error) {
	out, err := xml.MarshalIndent(n, "", indent)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategorySerialization, "failed to serialise layer").Build()
	}
	return string(out), nil
}

// Serialize writes the diagram as an SVG document.
func (d *Diagram) Serialize(w io.Writer) error {
	root := el("svg", "xmlns", svgNamespace, "viewBox", d.viewBox.String())

	content := el("g", "id", "content")
	if len(d.clip) > 0 {
		root.add(el("defs").add(
			el("clipPath", "id", ClipPathID).add(
				el("polygon", "points", FormatPoints(d.clip)),
			),
		))
		content.set("clip-path", "url(#"+ClipPathID+")")
	}

	fills := el("g", "id", "fills")
	info := d.informationGroup()
	for _, id := range d.layerOrder() {
		if isFillLayer(id) {
			fills.add(d.layers[id])
		} else {
			info.add(d.layers[id])
		}
	}
	content.add(d.cores, d.routers, fills, d.channels, d.tasks, info)
	root.add(content)

	enc := xml.NewEncoder(w)
	enc.Indent("", indent)
	if err := enc.Encode(root); err != nil {
		return ferrors.WrapError(err, ferrors.CategorySerialization, "failed to serialise diagram").Build()
	}
	if err := enc.Close(); err != nil {
		return ferrors.WrapError(err, ferrors.CategorySerialization, "failed to serialise diagram").Build()
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// String serialises the diagram to SVG text.
func (d *Diagram) String() (string, error) {
	var buf bytes.Buffer
	if err := d.Serialize(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
