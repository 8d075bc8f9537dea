package jwt

import "errors"

// Outcome is the three-way result of a parse, for callers that prefer a
// switch over errors.Is chains.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeExpired
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeExpired:
		return "expired"
	default:
		return "malformed"
	}
}

// Classify maps an error returned by Parse to its Outcome. Any error that is
// not ErrExpired counts as malformed.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrExpired):
		return OutcomeExpired
	default:
		return OutcomeMalformed
	}
}
