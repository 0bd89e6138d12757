package services

import "errors"

// Business-rule violations are expected outcomes, not failures: each gets a
// distinct sentinel so handlers can render the precise condition. Anything
// not matched here is treated as a storage failure.
var (
	// ErrValidation marks invalid or missing input fields.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientCredits means the professional's balance does not
	// cover the lead cost. No mutation happens.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrAlreadyUnlocked guards unlock idempotency: the professional holds
	// an unlock record for this lead already and must not be charged again.
	ErrAlreadyUnlocked = errors.New("lead already unlocked")

	// ErrNotUnlocked rejects a proposal from a professional who has not
	// unlocked any lead of the request.
	ErrNotUnlocked = errors.New("lead not unlocked")

	// ErrDuplicateProposal rejects a second live proposal by the same
	// professional on the same request.
	ErrDuplicateProposal = errors.New("duplicate proposal")

	// ErrRequestNotAccepting means the service request is no longer pending.
	ErrRequestNotAccepting = errors.New("request not accepting proposals")

	// ErrAlreadyDecided means a competing accept or reject resolved the
	// proposal first.
	ErrAlreadyDecided = errors.New("proposal already decided")

	// ErrEditNotAllowed rejects edits of a request that is not pending or
	// already has an accepted proposal.
	ErrEditNotAllowed = errors.New("request can no longer be edited")

	// ErrNotFound means the referenced request, lead or proposal does not
	// exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the actor does not own the resource they are
	// acting on.
	ErrForbidden = errors.New("forbidden")
)
