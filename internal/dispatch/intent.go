package dispatch

import "github.com/asterbyte/jarvis/pkg/provider/nlp"

// Intent is the closed set of command categories the dispatcher routes on.
// Analyzer output outside this set collapses to [IntentUnknown].
type Intent int

const (
	IntentUnknown Intent = iota
	IntentAutomation
	IntentInformation
	IntentSystemControl
	IntentEntertainment
	IntentProductivity
	IntentPersonal
)

// ParseIntent maps an analyzer intent name to the closed enum.
func ParseIntent(name string) Intent {
	switch name {
	case nlp.IntentAutomation:
		return IntentAutomation
	case nlp.IntentInformation:
		return IntentInformation
	case nlp.IntentSystemControl:
		return IntentSystemControl
	case nlp.IntentEntertainment:
		return IntentEntertainment
	case nlp.IntentProductivity:
		return IntentProductivity
	case nlp.IntentPersonal:
		return IntentPersonal
	default:
		return IntentUnknown
	}
}

// String returns the analyzer-facing name of the intent.
func (i Intent) String() string {
	switch i {
	case IntentAutomation:
		return nlp.IntentAutomation
	case IntentInformation:
		return nlp.IntentInformation
	case IntentSystemControl:
		return nlp.IntentSystemControl
	case IntentEntertainment:
		return nlp.IntentEntertainment
	case IntentProductivity:
		return nlp.IntentProductivity
	case IntentPersonal:
		return nlp.IntentPersonal
	default:
		return nlp.IntentUnknown
	}
}
