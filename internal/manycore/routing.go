package manycore

import (
	"strconv"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// ChannelKey identifies the channel leaving Core towards Direction.
type ChannelKey struct {
	Core      int
	Direction Direction
}

// ChannelLoads returns the communication load carried by every channel.
// RowFirst and ColumnFirst route each task graph edge with dimension-order
// routing between the cores the two tasks are allocated to; Observed reads
// the actualComLoad attribute of each channel.
func (s *System) ChannelLoads(algorithm string) (map[ChannelKey]float64, error) {
	loads := make(map[ChannelKey]float64)
	switch algorithm {
	case AlgorithmRowFirst, AlgorithmColumnFirst:
		placement := s.TaskCore()
		for _, e := range s.TaskGraph.Edges {
			from, okFrom := placement[e.From]
			to, okTo := placement[e.To]
			if !okFrom || !okTo {
				continue
			}
			for _, hop := range s.route(from, to, algorithm == AlgorithmRowFirst) {
				loads[hop] += e.CommunicationCost
			}
		}
	case AlgorithmObserved:
		if s.RoutingAlgo == "" {
			return nil, ferrors.ValidationError("system has no observed routing").Build()
		}
		for _, c := range s.Cores.Core {
			for _, ch := range c.Channels.Channel {
				raw, ok := Attr(ch.Extra, ObservedLoadAttr)
				if !ok {
					continue
				}
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid observed channel load").
						WithContext("core", c.ID).
						WithContext("direction", string(ch.Direction)).
						Build()
				}
				loads[ChannelKey{Core: c.ID, Direction: ch.Direction}] = v
			}
		}
	default:
		return nil, ferrors.ValidationError("unknown routing algorithm").
			WithContext("algorithm", algorithm).
			Build()
	}
	return loads, nil
}

// route lists the hops between two cores. rowFirst travels along the row
// (East/West) before changing rows.
func (s *System) route(from, to int, rowFirst bool) []ChannelKey {
	var hops []ChannelKey
	cur := from
	step := func(d Direction) {
		hops = append(hops, ChannelKey{Core: cur, Direction: d})
		cur, _ = s.Neighbour(cur, d)
	}
	horizontal := func() {
		_, tc := s.Position(to)
		for {
			_, cc := s.Position(cur)
			switch {
			case cc < tc:
				step(East)
			case cc > tc:
				step(West)
			default:
				return
			}
		}
	}
	vertical := func() {
		tr, _ := s.Position(to)
		for {
			cr, _ := s.Position(cur)
			switch {
			case cr < tr:
				step(South)
			case cr > tr:
				step(North)
			default:
				return
			}
		}
	}
	if rowFirst {
		horizontal()
		vertical()
	} else {
		vertical()
		horizontal()
	}
	return hops
}
