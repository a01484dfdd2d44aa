package cascade

// Tier is one state of the fallback cascade.
type Tier int

const (
	// TierDirectLink follows detail links found on the card page.
	TierDirectLink Tier = iota
	// TierDomCandidate visits canonical URLs for identifiers in DOM attributes.
	TierDomCandidate
	// TierProbe clicks a grid over script-drawn widgets.
	TierProbe
	// TierFreeText visits canonical URLs for identifiers in raw markup.
	TierFreeText
	// TierCurrentPage extracts the current view as is.
	TierCurrentPage
	// TierDone is the terminal state.
	TierDone
)

// String returns the tier name used in logs and metrics.
func (t Tier) String() string {
	switch t {
	case TierDirectLink:
		return "direct_link"
	case TierDomCandidate:
		return "dom_candidate"
	case TierProbe:
		return "probe"
	case TierFreeText:
		return "free_text"
	case TierCurrentPage:
		return "current_page"
	case TierDone:
		return "done"
	default:
		return "unknown"
	}
}

// transitions maps a finished tier to the next one, indexed by whether the
// card has any records so far.
var transitions = map[Tier][2]Tier{
	//                  no records        records
	TierDirectLink:   {TierDomCandidate, TierDomCandidate},
	TierDomCandidate: {TierProbe, TierDone},
	TierProbe:        {TierFreeText, TierDone},
	TierFreeText:     {TierCurrentPage, TierDone},
	TierCurrentPage:  {TierDone, TierDone},
}

// Next returns the tier that follows t.
func Next(t Tier, hasRecords bool) Tier {
	row, ok := transitions[t]
	if !ok {
		return TierDone
	}
	if hasRecords {
		return row[1]
	}
	return row[0]
}
