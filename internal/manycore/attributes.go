package manycore

import (
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AttributeType describes how a configurable attribute can be presented.
type AttributeType string

const (
	AttributeNumber      AttributeType = "number"
	AttributeText        AttributeType = "text"
	AttributeBoolean     AttributeType = "boolean"
	AttributeRouting     AttributeType = "routing"
	AttributeCoordinates AttributeType = "coordinates"
)

// Routing algorithms a channel load layer can be computed with.
const (
	AlgorithmRowFirst    = "RowFirst"
	AlgorithmColumnFirst = "ColumnFirst"
	AlgorithmObserved    = "Observed"
)

// RoutingKey is the channel group entry that carries the routing layer.
const RoutingKey = "@routingAlgorithm"

// CoordinatesKey is the core group entry that labels cores with their grid position.
const CoordinatesKey = "@coordinates"

// ObservedLoadAttr is the channel attribute read by the Observed algorithm.
const ObservedLoadAttr = "actualComLoad"

// ProcessedAttribute is one entry of a configurable attribute group.
type ProcessedAttribute struct {
	Display string        `json:"display"`
	Type    AttributeType `json:"type"`
}

// AttributeGroup maps "@name" keys to their presentation.
type AttributeGroup map[string]ProcessedAttribute

// ConfigurableAttributes is the set of attributes a configuration may toggle.
type ConfigurableAttributes struct {
	Core              AttributeGroup `json:"core"`
	Router            AttributeGroup `json:"router"`
	Channel           AttributeGroup `json:"channel"`
	Algorithms        []string       `json:"algorithms"`
	ObservedAlgorithm *string        `json:"observedAlgorithm,omitempty"`
}

// Group returns the attribute group by its short name (core, router, channel).
func (a *ConfigurableAttributes) Group(name string) (AttributeGroup, bool) {
	switch name {
	case "core":
		return a.Core, true
	case "router":
		return a.Router, true
	case "channel":
		return a.Channel, true
	default:
		return nil, false
	}
}

// ConfigurableAttributes derives the attribute groups from the values
// present in the document. A key's type is number when every value parses
// as a float, boolean when every value is true/false, text otherwise.
func (s *System) ConfigurableAttributes() *ConfigurableAttributes {
	cores := make([]map[string]string, 0, len(s.Cores.Core))
	routers := make([]map[string]string, 0, len(s.Cores.Core))
	var channels []map[string]string
	for i := range s.Cores.Core {
		c := &s.Cores.Core[i]
		cores = append(cores, c.Attributes())
		routers = append(routers, c.Router.Attributes())
		for j := range c.Channels.Channel {
			channels = append(channels, c.Channels.Channel[j].Attributes())
		}
	}
	// Identity and geometry are structural, not presentable.
	core := group(cores, "@id")
	core[CoordinatesKey] = ProcessedAttribute{Display: "Coordinates", Type: AttributeCoordinates}
	channel := group(channels, "@direction")
	if len(s.TaskGraph.Edges) > 0 || s.RoutingAlgo != "" {
		channel[RoutingKey] = ProcessedAttribute{Display: "Routing", Type: AttributeRouting}
	}

	out := &ConfigurableAttributes{
		Core:       core,
		Router:     group(routers),
		Channel:    channel,
		Algorithms: []string{AlgorithmRowFirst, AlgorithmColumnFirst},
	}
	if s.RoutingAlgo != "" {
		observed := s.RoutingAlgo
		out.ObservedAlgorithm = &observed
		out.Algorithms = append(out.Algorithms, AlgorithmObserved)
	}
	return out
}

func group(elements []map[string]string, skip ...string) AttributeGroup {
	values := make(map[string][]string)
	for _, attrs := range elements {
		for k, v := range attrs {
			values[k] = append(values[k], v)
		}
	}
	out := make(AttributeGroup, len(values))
	for k, vs := range values {
		if slices.Contains(skip, k) {
			continue
		}
		out[k] = ProcessedAttribute{Display: DisplayName(k), Type: inferType(vs)}
	}
	return out
}

func inferType(values []string) AttributeType {
	number, boolean := true, true
	for _, v := range values {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			number = false
		}
		if v != "true" && v != "false" {
			boolean = false
		}
	}
	switch {
	case number:
		return AttributeNumber
	case boolean:
		return AttributeBoolean
	default:
		return AttributeText
	}
}

// DisplayName turns an attribute key such as "@allocatedTask" into
// "Allocated Task".
func DisplayName(key string) string {
	name := strings.TrimPrefix(key, "@")
	var words []string
	start := 0
	runes := []rune(name)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1]) {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	words = append(words, string(runes[start:]))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
