package manycore

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// RootElement is the document element of a system description.
const RootElement = "ManycoreSystem"

// Direction names the side of a core a channel leaves from.
type Direction string

const (
	North Direction = "North"
	South Direction = "South"
	East  Direction = "East"
	West  Direction = "West"
)

// Directions lists every valid direction in drawing order.
var Directions = []Direction{North, East, South, West}

// System is a parsed ManycoreSystem document. It is treated as immutable
// once returned by Parse: callers replace it wholesale.
type System struct {
	// XMLName keeps the namespace the document was decoded with so it is
	// written back unchanged.
	XMLName     xml.Name
	Rows        int        `xml:"rows,attr"`
	Columns     int        `xml:"columns,attr"`
	RoutingAlgo string     `xml:"routingAlgo,attr,omitempty"`
	Extra       []xml.Attr `xml:",any,attr"`
	TaskGraph   TaskGraph  `xml:"TaskGraph"`
	Cores       Cores      `xml:"Cores"`
}

type TaskGraph struct {
	Tasks []Task `xml:"Task"`
	Edges []Edge `xml:"Edge"`
}

type Task struct {
	ID    int        `xml:"id,attr"`
	Extra []xml.Attr `xml:",any,attr"`
}

// Edge is a directed communication between two tasks.
type Edge struct {
	From              int        `xml:"from,attr"`
	To                int        `xml:"to,attr"`
	CommunicationCost float64    `xml:"communicationCost,attr"`
	Extra             []xml.Attr `xml:",any,attr"`
}

type Cores struct {
	Core []Core `xml:"Core"`
}

type Core struct {
	ID            int        `xml:"id,attr"`
	AllocatedTask *int       `xml:"allocatedTask,attr,omitempty"`
	Extra         []xml.Attr `xml:",any,attr"`
	Router        Router     `xml:"Router"`
	Channels      Channels   `xml:"Channels"`
}

type Router struct {
	Extra []xml.Attr `xml:",any,attr"`
}

type Channels struct {
	Channel []Channel `xml:"Channel"`
}

type Channel struct {
	Direction Direction  `xml:"direction,attr"`
	Bandwidth float64    `xml:"bandwidth,attr"`
	Extra     []xml.Attr `xml:",any,attr"`
}

// Parser produces validated systems from files.
type Parser interface {
	ParseFile(path string) (*System, error)
}

// FileParser is the Parser backed by ParseFile.
type FileParser struct{}

func (FileParser) ParseFile(path string) (*System, error) { return ParseFile(path) }

// ParseFile reads and validates the document at path.
func ParseFile(path string) (*System, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryIO, "failed to open system file").
			WithContext("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	sys, err := Parse(f)
	if err != nil {
		if c, ok := ferrors.AsClassified(err); ok {
			return nil, c.WithContext("path", path)
		}
		return nil, err
	}
	return sys, nil
}

// Parse decodes and validates a document.
func Parse(r io.Reader) (*System, error) {
	var sys System
	if err := xml.NewDecoder(r).Decode(&sys); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "failed to decode system document").Build()
	}
	if sys.XMLName.Local != RootElement {
		return nil, ferrors.ValidationError("failed to decode system document").
			WithContext("root", sys.XMLName.Local).
			Build()
	}
	sys.keepNamespaceDecls()
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	return &sys, nil
}

// CoreCount is rows × columns.
func (s *System) CoreCount() int { return s.Rows * s.Columns }

// Core returns the core with the given id.
func (s *System) Core(id int) (*Core, bool) {
	for i := range s.Cores.Core {
		if s.Cores.Core[i].ID == id {
			return &s.Cores.Core[i], true
		}
	}
	return nil, false
}

// Position returns the grid row and column of a core id.
func (s *System) Position(id int) (row, col int) {
	return id / s.Columns, id % s.Columns
}

// Neighbour returns the id of the core reached by leaving id towards d.
func (s *System) Neighbour(id int, d Direction) (int, bool) {
	row, col := s.Position(id)
	switch d {
	case North:
		row--
	case South:
		row++
	case East:
		col++
	case West:
		col--
	default:
		return 0, false
	}
	if row < 0 || row >= s.Rows || col < 0 || col >= s.Columns {
		return 0, false
	}
	return row*s.Columns + col, true
}

// TaskCore maps each allocated task to the id of the core running it.
func (s *System) TaskCore() map[int]int {
	out := make(map[int]int)
	for _, c := range s.Cores.Core {
		if c.AllocatedTask != nil {
			out[*c.AllocatedTask] = c.ID
		}
	}
	return out
}

// Attributes returns every attribute of the core keyed "@name", including
// the ones the model names explicitly.
func (c *Core) Attributes() map[string]string {
	out := map[string]string{"@id": strconv.Itoa(c.ID)}
	if c.AllocatedTask != nil {
		out["@allocatedTask"] = strconv.Itoa(*c.AllocatedTask)
	}
	addExtra(out, c.Extra)
	return out
}

// Attributes returns the router's attributes keyed "@name".
func (r *Router) Attributes() map[string]string {
	out := make(map[string]string, len(r.Extra))
	addExtra(out, r.Extra)
	return out
}

// Attributes returns the channel's attributes keyed "@name".
func (ch *Channel) Attributes() map[string]string {
	out := map[string]string{
		"@direction": string(ch.Direction),
		"@bandwidth": formatFloat(ch.Bandwidth),
	}
	addExtra(out, ch.Extra)
	return out
}

// Attr looks up an unmodelled attribute.
func Attr(attrs []xml.Attr, name string) (string, bool) {
	for _, a := range attrs {
		if !qualified(a.Name) && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func addExtra(out map[string]string, attrs []xml.Attr) {
	for _, a := range attrs {
		if qualified(a.Name) {
			continue
		}
		out["@"+a.Name.Local] = a.Value
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// keepNamespaceDecls turns the namespace declarations and prefixed
// attributes captured by the ",any,attr" fields into literal attributes, so
// the encoder writes them back as they were read. The root default
// namespace is carried by XMLName instead.
func (s *System) keepNamespaceDecls() {
	prefixes := make(map[string]string)
	for _, a := range s.Extra {
		if a.Name.Space == xmlnsPrefix {
			prefixes[a.Value] = a.Name.Local
		}
	}
	root := s.Extra[:0]
	for _, a := range s.Extra {
		if a.Name.Space == "" && a.Name.Local == xmlnsPrefix {
			continue
		}
		root = append(root, a)
	}
	s.Extra = literalNames(root, prefixes)

	for i := range s.TaskGraph.Tasks {
		s.TaskGraph.Tasks[i].Extra = literalNames(s.TaskGraph.Tasks[i].Extra, prefixes)
	}
	for i := range s.TaskGraph.Edges {
		s.TaskGraph.Edges[i].Extra = literalNames(s.TaskGraph.Edges[i].Extra, prefixes)
	}
	for i := range s.Cores.Core {
		c := &s.Cores.Core[i]
		c.Extra = literalNames(c.Extra, prefixes)
		c.Router.Extra = literalNames(c.Router.Extra, prefixes)
		for j := range c.Channels.Channel {
			c.Channels.Channel[j].Extra = literalNames(c.Channels.Channel[j].Extra, prefixes)
		}
	}
}

const xmlnsPrefix = "xmlns"

func literalNames(attrs []xml.Attr, prefixes map[string]string) []xml.Attr {
	for i, a := range attrs {
		switch {
		case a.Name.Space == xmlnsPrefix:
			attrs[i].Name = xml.Name{Local: xmlnsPrefix + ":" + a.Name.Local}
		case a.Name.Space != "":
			if p, ok := prefixes[a.Name.Space]; ok {
				attrs[i].Name = xml.Name{Local: p + ":" + a.Name.Local}
			}
		}
	}
	return attrs
}

// qualified reports attribute names that belong to a namespace rather than
// to the system model.
func qualified(n xml.Name) bool {
	return n.Space != "" || n.Local == xmlnsPrefix || strings.Contains(n.Local, ":")
}

// CoreGroupID and RouterGroupID build the element ids shared by Info and the diagram.
func CoreGroupID(id int) string   { return fmt.Sprintf("c%d", id) }
func RouterGroupID(id int) string { return fmt.Sprintf("r%d", id) }
