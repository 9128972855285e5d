package manycore

import (
	"math"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// MaxCores bounds rows × columns.
const MaxCores = 1 << 16

func invalid(message string) *ferrors.ErrorBuilder {
	return ferrors.ValidationError(message)
}

// Validate checks the structural invariants of the document.
func (s *System) Validate() error {
	if s.Rows < 1 || s.Columns < 1 {
		return invalid("rows and columns must be at least 1").
			WithContext("rows", s.Rows).
			WithContext("columns", s.Columns).
			Build()
	}
	if s.Rows > MaxCores/s.Columns {
		return invalid("grid is too large").
			WithContext("rows", s.Rows).
			WithContext("columns", s.Columns).
			WithContext("max_cores", MaxCores).
			Build()
	}
	if got, want := len(s.Cores.Core), s.CoreCount(); got != want {
		return invalid("core count does not match grid size").
			WithContext("cores", got).
			WithContext("expected", want).
			Build()
	}

	tasks := make(map[int]struct{}, len(s.TaskGraph.Tasks))
	for _, t := range s.TaskGraph.Tasks {
		if _, dup := tasks[t.ID]; dup {
			return invalid("duplicate task id").WithContext("task", t.ID).Build()
		}
		tasks[t.ID] = struct{}{}
	}
	for _, e := range s.TaskGraph.Edges {
		if _, ok := tasks[e.From]; !ok {
			return invalid("edge references unknown task").WithContext("task", e.From).Build()
		}
		if _, ok := tasks[e.To]; !ok {
			return invalid("edge references unknown task").WithContext("task", e.To).Build()
		}
		if e.CommunicationCost < 0 || math.IsNaN(e.CommunicationCost) {
			return invalid("communication cost must be a non-negative number").
				WithContext("from", e.From).
				WithContext("to", e.To).
				Build()
		}
	}

	seen := make([]bool, s.CoreCount())
	allocated := make(map[int]int)
	for _, c := range s.Cores.Core {
		if c.ID < 0 || c.ID >= len(seen) {
			return invalid("core id out of range").WithContext("core", c.ID).Build()
		}
		if seen[c.ID] {
			return invalid("duplicate core id").WithContext("core", c.ID).Build()
		}
		seen[c.ID] = true

		if c.AllocatedTask != nil {
			task := *c.AllocatedTask
			if _, ok := tasks[task]; !ok {
				return invalid("core allocated to unknown task").
					WithContext("core", c.ID).
					WithContext("task", task).
					Build()
			}
			if other, dup := allocated[task]; dup {
				return invalid("task allocated to more than one core").
					WithContext("task", task).
					WithContext("cores", []int{other, c.ID}).
					Build()
			}
			allocated[task] = c.ID
		}

		directions := make(map[Direction]struct{}, len(c.Channels.Channel))
		for _, ch := range c.Channels.Channel {
			if _, ok := s.Neighbour(c.ID, ch.Direction); !ok {
				if !validDirection(ch.Direction) {
					return invalid("invalid channel direction").
						WithContext("core", c.ID).
						WithContext("direction", string(ch.Direction)).
						Build()
				}
				return invalid("channel points outside the grid").
					WithContext("core", c.ID).
					WithContext("direction", string(ch.Direction)).
					Build()
			}
			if _, dup := directions[ch.Direction]; dup {
				return invalid("duplicate channel direction").
					WithContext("core", c.ID).
					WithContext("direction", string(ch.Direction)).
					Build()
			}
			directions[ch.Direction] = struct{}{}
			if ch.Bandwidth < 0 || math.IsNaN(ch.Bandwidth) || math.IsInf(ch.Bandwidth, 0) {
				return invalid("channel bandwidth must be a non-negative number").
					WithContext("core", c.ID).
					WithContext("direction", string(ch.Direction)).
					Build()
			}
		}
	}
	return nil
}

func validDirection(d Direction) bool {
	for _, v := range Directions {
		if v == d {
			return true
		}
	}
	return false
}
