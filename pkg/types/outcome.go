package types

// Outcome is the result of one lenient fetch cycle.
type Outcome int

const (
	// OutcomeOK means a new record was fetched.
	OutcomeOK Outcome = iota
	// OutcomeEmpty means the portal had no data this cycle. Previously
	// fetched data is still valid.
	OutcomeEmpty
	// OutcomeAuthFailed means the credentials or supplier id were rejected.
	OutcomeAuthFailed
	// OutcomeFailed is any other failure.
	OutcomeFailed
	// OutcomeThrottled means the cycle was skipped to respect the portal's
	// fair-use interval.
	OutcomeThrottled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeAuthFailed:
		return "auth_failed"
	case OutcomeFailed:
		return "failed"
	case OutcomeThrottled:
		return "throttled"
	}
	return "unknown"
}
