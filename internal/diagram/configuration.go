package diagram

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"sort"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// ArgumentType selects how an enabled attribute is drawn.
type ArgumentType string

const (
	ArgText         ArgumentType = "Text"
	ArgColouredText ArgumentType = "ColouredText"
	ArgFill         ArgumentType = "Fill"
	ArgBoolean      ArgumentType = "Boolean"
	ArgCoordinates  ArgumentType = "Coordinates"
	ArgRouting      ArgumentType = "Routing"
)

// Load presentations for the routing layer.
const (
	LoadPercentage = "Percentage"
	LoadFraction   = "Fraction"
)

// Orientations for the coordinates layer: row 0 at the top or at the bottom.
const (
	OrientationTop    = "T"
	OrientationBottom = "B"
)

// ItemArgument configures one enabled attribute. Which fields matter
// depends on Type; the struct stays comparable so changed layers can be
// detected with ==.
type ItemArgument struct {
	Type              ArgumentType `json:"type"`
	Display           string       `json:"display,omitempty"`
	Colour            string       `json:"colour,omitempty"`
	Bounds            [4]float64   `json:"bounds"`
	Colours           [4]string    `json:"colours"`
	Value             bool         `json:"value,omitempty"`
	Orientation       string       `json:"orientation,omitempty"`
	Algorithm         string       `json:"algorithm,omitempty"`
	LoadConfiguration string       `json:"loadConfiguration,omitempty"`
}

// ItemConfiguration maps "@attribute" keys to their argument. Absent keys
// are disabled.
type ItemConfiguration map[string]ItemArgument

// Configuration is the full set of enabled visual layers. It is supplied
// whole on every update.
type Configuration struct {
	CoreConfig    ItemConfiguration `json:"coreConfig"`
	RouterConfig  ItemConfiguration `json:"routerConfig"`
	ChannelConfig ItemConfiguration `json:"channelConfig"`
	CoreFills     map[string]string `json:"coreFills,omitempty"`
	RouterFills   map[string]string `json:"routerFills,omitempty"`
}

// BaseConfiguration holds the numeric base settings keyed by name.
type BaseConfiguration map[string]float64

// FontSizeKey is the only base setting.
const FontSizeKey = "fontSize"

// ConfigurableBaseAttribute declares one base setting and its range.
type ConfigurableBaseAttribute struct {
	Type    string  `json:"type"`
	Display string  `json:"display"`
	Default float64 `json:"default"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// ConfigurableBaseConfiguration returns the declared base settings.
func ConfigurableBaseConfiguration() map[string]ConfigurableBaseAttribute {
	return map[string]ConfigurableBaseAttribute{
		FontSizeKey: {Type: "FontSize", Display: "Font size", Default: 16, Min: 8, Max: 48},
	}
}

// DefaultBaseConfiguration returns every base setting at its default.
func DefaultBaseConfiguration() BaseConfiguration {
	out := make(BaseConfiguration)
	for k, attr := range ConfigurableBaseConfiguration() {
		out[k] = attr.Default
	}
	return out
}

// ResolveBase validates base against the declared ranges and fills in
// defaults for missing settings.
func ResolveBase(base BaseConfiguration) (BaseConfiguration, error) {
	declared := ConfigurableBaseConfiguration()
	out := DefaultBaseConfiguration()
	keys := make([]string, 0, len(base))
	for k := range base {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := base[k]
		attr, ok := declared[k]
		if !ok {
			return nil, ferrors.ValidationError("unknown base configuration setting").
				WithContext("configuration", k).
				Build()
		}
		if math.IsNaN(v) || v < attr.Min || v > attr.Max {
			return nil, ferrors.ValidationError("base configuration value out of range").
				WithContext("configuration", k).
				WithContext("value", v).
				WithContext("min", attr.Min).
				WithContext("max", attr.Max).
				Build()
		}
		out[k] = v
	}
	return out, nil
}

// WholeConfiguration is the document written by storeConfiguration and
// read back by loadConfiguration.
type WholeConfiguration struct {
	BaseConfiguration BaseConfiguration `json:"baseConfiguration"`
	Configuration     Configuration     `json:"configuration"`
}

// ParseWholeConfiguration decodes and shape-checks a stored configuration.
// It does not need a system: attribute names are checked on update.
func ParseWholeConfiguration(data []byte) (*WholeConfiguration, error) {
	var whole WholeConfiguration
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&whole); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "Invalid configuration file").Build()
	}
	if dec.More() {
		return nil, ferrors.ValidationError("Invalid configuration file").
			WithContext("configuration", "trailing data").
			Build()
	}
	for _, group := range []ItemConfiguration{whole.Configuration.CoreConfig, whole.Configuration.RouterConfig, whole.Configuration.ChannelConfig} {
		for key, arg := range group {
			if !knownArgument(arg.Type) {
				return nil, ferrors.ValidationError("Invalid configuration file").
					WithContext("configuration", key).
					WithContext("type", string(arg.Type)).
					Build()
			}
		}
	}
	if _, err := ResolveBase(whole.BaseConfiguration); err != nil {
		return nil, err
	}
	return &whole, nil
}

func knownArgument(t ArgumentType) bool {
	switch t {
	case ArgText, ArgColouredText, ArgFill, ArgBoolean, ArgCoordinates, ArgRouting:
		return true
	default:
		return false
	}
}

var hexColour = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func validColour(c string) bool { return hexColour.MatchString(c) }

// colourFor picks the colour of the highest bound not above v.
func colourFor(v float64, bounds [4]float64, colours [4]string) string {
	colour := colours[0]
	for i := range bounds {
		if v >= bounds[i] {
			colour = colours[i]
		}
	}
	return colour
}
