package models

import (
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
)

// Link is an existing delegator to delegate relation.
type Link struct {
	From id.ActorID
	To   id.ActorID
}

// VerifyChain rejects a new delegation from source to target when it would
// create a chain deeper than one hop: source must not itself be a delegate,
// and target must not itself delegate.
func VerifyChain(kind Kind, source, target id.ActorID, existing []Link) error {
	for _, l := range existing {
		if l.To == source {
			return dErrors.Validation(kind.ErrorPrefix()+".source_is_delegated_to",
				"the delegating actor is already a delegate of another actor")
		}
	}
	for _, l := range existing {
		if l.From == target {
			return dErrors.Validation(kind.ErrorPrefix()+".target_delegates",
				"the receiving actor already delegates to another actor")
		}
	}
	return nil
}
