// Package access decides whether a caller may view a poll's results. The
// decision is pure: every fact it needs (payment lookups, vote counts) is
// gathered by the caller beforehand, so the policy itself never touches
// storage.
package access

import (
	"pollgate/internal/domain"
	"pollgate/pkg/errors"
)

// RequesterFacts are the read-only facts about the caller and the poll's
// current state that the verdict depends on.
type RequesterFacts struct {
	// IsAdmin is true when the presented admin token matches the poll's
	IsAdmin bool
	// PaidByHash is true when a paid payment exists for the caller's identity hash
	PaidByHash bool
	// PaidByToken is true when a paid payment exists for the presented reveal token
	PaidByToken bool
	// TotalVotes is the poll's current stored vote count
	TotalVotes int
}

// CanViewResults renders the visibility verdict for a poll. Evaluation
// order, first match wins:
//
//  1. admin token matched
//  2. public poll
//  3. pay_to_view with a paid payment by reveal token or identity hash
//  4. reveal_after_n_votes with the threshold reached
//
// A visibility value outside the known modes is a data-integrity defect
// and always denies.
func CanViewResults(poll *domain.Poll, facts RequesterFacts) (bool, error) {
	if facts.IsAdmin {
		return true, nil
	}

	switch poll.Visibility {
	case domain.VisibilityPublic:
		return true, nil

	case domain.VisibilityPayToView:
		// The reveal token is a capability: a shared link keeps working
		// across devices and browsers, so it wins over the hash lookup.
		if facts.PaidByToken {
			return true, nil
		}
		return facts.PaidByHash, nil

	case domain.VisibilityRevealAfterN:
		return facts.TotalVotes >= poll.RevealAfterNVotes, nil

	default:
		return false, errors.NewIntegrityError("poll has unknown visibility mode")
	}
}
