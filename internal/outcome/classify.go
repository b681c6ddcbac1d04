package outcome

// Reading is what a surface showed at one point in time.
type Reading struct {
	Text    string
	Present bool
}

// Observation is the page state sampled by the runner on each poll.
type Observation struct {
	URL       string
	Error     Reading // the route's validation error surface
	Denied    Reading // the route's access-denied surface
	Indicator Reading // the success indicator element, if one is configured
}

// Expectation is what the contract says a route can legitimately show.
type Expectation struct {
	// Messages are the validation messages the route may emit, canonical form.
	Messages []string

	SuccessPath string
	// RequireIndicator makes Success wait for the indicator element, and for
	// IndicatorText inside it when that is set.
	RequireIndicator bool
	IndicatorText    string

	RequiresAuth bool
	// DeniedPhrases are the access-denied messages. Empty accepts any text
	// shown on the denied surface.
	DeniedPhrases []string
	// DeniedRedirect is where an unauthenticated visit is sent. Landing there
	// counts as AuthDenied even when no message is shown.
	DeniedRedirect string
}

// Classify maps one observation to an Outcome. It returns false while the
// page has not reached any terminal state; the caller turns a wait that
// never resolves into Timeout.
//
// Precedence, highest first:
//  1. a known validation message on the error surface
//  2. the success path (and indicator) reached
//  3. an access-denied message or redirect on an authenticated-only route
//  4. any other text on the error surface, reported verbatim
func Classify(obs Observation, exp Expectation) (Outcome, bool) {
	if obs.Error.Present && NormalizeText(obs.Error.Text) != "" {
		for _, m := range exp.Messages {
			if MessageMatches(obs.Error.Text, m) {
				return ValidationError(m), true
			}
		}
	}

	if exp.SuccessPath != "" && obs.URL != "" && SamePath(obs.URL, exp.SuccessPath) && indicatorSatisfied(obs, exp) {
		return Success(PathOf(exp.SuccessPath)), true
	}

	if exp.RequiresAuth {
		if obs.Denied.Present && NormalizeText(obs.Denied.Text) != "" {
			if len(exp.DeniedPhrases) == 0 {
				return AuthDenied(NormalizeText(obs.Denied.Text)), true
			}
			for _, p := range exp.DeniedPhrases {
				if MessageMatches(obs.Denied.Text, p) {
					return AuthDenied(p), true
				}
			}
		}
		if exp.DeniedRedirect != "" && obs.URL != "" && SamePath(obs.URL, exp.DeniedRedirect) &&
			!SamePath(exp.DeniedRedirect, exp.SuccessPath) {
			return AuthDenied(""), true
		}
	}

	if obs.Error.Present {
		if text := NormalizeText(obs.Error.Text); text != "" {
			return ValidationError(text), true
		}
	}

	return Outcome{}, false
}

func indicatorSatisfied(obs Observation, exp Expectation) bool {
	if !exp.RequireIndicator {
		return true
	}
	if !obs.Indicator.Present {
		return false
	}
	if exp.IndicatorText == "" {
		return true
	}
	return MessageMatches(obs.Indicator.Text, exp.IndicatorText)
}
