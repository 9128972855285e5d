package manycore

import (
	"bytes"
	"encoding/xml"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

const indent = "    "

// MarshalIndent renders the canonical text form of the system: an XML
// declaration followed by the document indented with four spaces.
func MarshalIndent(s *System) ([]byte, error) {
	if s == nil {
		return nil, ferrors.NotLoaded("You must load a system first.").Build()
	}
	doc := *s
	if doc.XMLName.Local == "" {
		doc.XMLName.Local = RootElement
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", indent)
	if err := enc.Encode(&doc); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategorySerialization, "failed to serialise system").Build()
	}
	if err := enc.Close(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategorySerialization, "failed to serialise system").Build()
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
