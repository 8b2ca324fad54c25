package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Intent is the fixed vocabulary the conversation controller understands.
// There is deliberately no NLU here: classification is ordered keyword
// substring matching, and any ambiguity falls back to IntentUnknown so the
// controller re-prompts instead of guessing.
type Intent string

const (
	IntentUnknown Intent = "UNKNOWN"

	// Greeting stage
	IntentAffirm  Intent = "AFFIRM"
	IntentDecline Intent = "DECLINE"

	// Resolution selection (COLLECTING_DOCS and legacy SELECTING_RESOLUTION)
	IntentOwnRegime  Intent = "OWN_REGIME"
	IntentServiceRAR Intent = "SERVICE_RAR"
	IntentTotalLoss  Intent = "TOTAL_LOSS"

	// Offer decision
	IntentAcceptOffer Intent = "ACCEPT_OFFER"
)

// intentRule maps a keyword set to one intent. Rules are evaluated in order;
// a text matching keywords of more than one distinct intent is ambiguous.
type intentRule struct {
	intent   Intent
	keywords []string
}

// Classifier resolves free text into an Intent for one stage of the flow.
// It is an interface so the controller can be tested with a fixed classifier
// and so the keyword tables can be replaced without touching the FSM.
type Classifier interface {
	Greeting(text string) Intent
	Resolution(text string) Intent
	Offer(text string) Intent
}

// KeywordClassifier is the production classifier: lower-cased substring
// matching against small fixed Romanian vocabularies.
type KeywordClassifier struct{}

// NewKeywordClassifier returns the fixed-vocabulary classifier.
func NewKeywordClassifier() KeywordClassifier {
	return KeywordClassifier{}
}

var greetingRules = []intentRule{
	{IntentAffirm, []string{"da", "deschide", "dauna", "daună"}},
	{IntentDecline, []string{"nu", "alta", "altă"}},
}

var resolutionRules = []intentRule{
	{IntentServiceRAR, []string{"service", "rar"}},
	{IntentOwnRegime, []string{"regie"}},
	{IntentTotalLoss, []string{"totala", "totală"}},
}

var offerRules = []intentRule{
	{IntentAcceptOffer, []string{"accept", "da"}},
	{IntentServiceRAR, []string{"service", "rar"}},
	{IntentOwnRegime, []string{"regie"}},
	{IntentTotalLoss, []string{"totala", "totală"}},
}

// Greeting classifies the open-a-case yes/no answer.
func (KeywordClassifier) Greeting(text string) Intent {
	return classify(greetingRules, text)
}

// Resolution classifies the settlement path answer.
func (KeywordClassifier) Resolution(text string) Intent {
	return classify(resolutionRules, text)
}

// Offer classifies the accept-or-change answer to a settlement offer.
func (KeywordClassifier) Offer(text string) Intent {
	return classify(offerRules, text)
}

func classify(rules []intentRule, text string) Intent {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return IntentUnknown
	}
	words := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	matched := IntentUnknown
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if !keywordMatches(lowered, words, kw) {
				continue
			}
			if matched != IntentUnknown && matched != rule.intent {
				// Keywords of two distinct intents matched: ambiguous.
				return IntentUnknown
			}
			matched = rule.intent
			break
		}
	}
	return matched
}

// keywordMatches guards short keywords against accidental substring hits:
// "da" sits inside "daună" and "nu" inside "număr", so keywords under four
// letters must stand alone as a word. Longer keywords stay substring matches
// to catch inflections ("acceptă", "totală").
func keywordMatches(lowered string, words []string, kw string) bool {
	if utf8.RuneCountInString(kw) < 4 {
		for _, w := range words {
			if w == kw {
				return true
			}
		}
		return false
	}
	return strings.Contains(lowered, kw)
}
