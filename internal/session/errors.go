package session

import "errors"

var (
	// ErrNoActiveSession is returned by any session operation invoked
	// while no current session exists. Surfaced rather than auto-recovered:
	// silently creating an implicit session would hide workflow mistakes.
	ErrNoActiveSession = errors.New("no active session")

	// ErrEmptyGoal is returned when init is called without a goal.
	ErrEmptyGoal = errors.New("goal is required")

	// ErrInvalidMode is returned for modes outside {implicit, explicit}.
	ErrInvalidMode = errors.New("mode must be 'implicit' or 'explicit'")

	// ErrEmptyAgent is returned when an agent name is missing.
	ErrEmptyAgent = errors.New("agent name is required")
)
