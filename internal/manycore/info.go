package manycore

import (
	"strconv"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// Info returns the attributes of the element behind a group id: "c<id>"
// for a core, "r<id>" for a router.
func (s *System) Info(groupID string) (map[string]string, error) {
	if len(groupID) < 2 {
		return nil, invalidGroup(groupID)
	}
	id, err := strconv.Atoi(groupID[1:])
	if err != nil {
		return nil, invalidGroup(groupID)
	}
	core, ok := s.Core(id)
	if !ok {
		return nil, invalidGroup(groupID)
	}
	switch groupID[0] {
	case 'c':
		return core.Attributes(), nil
	case 'r':
		return core.Router.Attributes(), nil
	default:
		return nil, invalidGroup(groupID)
	}
}

func invalidGroup(groupID string) error {
	return ferrors.ValidationError("Invalid group id").WithContext("group_id", groupID).Build()
}
