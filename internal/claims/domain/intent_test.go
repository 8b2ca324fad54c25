package domain

import "testing"

func TestGreeting_AffirmAndDecline(t *testing.T) {
	cls := NewKeywordClassifier()

	cases := map[string]Intent{
		"Da":                          IntentAffirm,
		"da, deschide dosar de dauna": IntentAffirm,
		"vreau sa deschid o dauna":    IntentAffirm,
		"nu, multumesc":               IntentDecline,
		"am alta intrebare":           IntentDecline,
		"ce faci":                     IntentUnknown,
		"":                            IntentUnknown,
	}
	for text, want := range cases {
		if got := cls.Greeting(text); got != want {
			t.Fatalf("Greeting(%q) = %s, want %s", text, got, want)
		}
	}
}

func TestResolution_KeywordPaths(t *testing.T) {
	cls := NewKeywordClassifier()

	cases := map[string]Intent{
		"vreau la service RAR": IntentServiceRAR,
		"regie proprie":        IntentOwnRegime,
		"dauna totala":         IntentTotalLoss,
		"daună totală":         IntentTotalLoss,
		"nu stiu inca":         IntentUnknown,
	}
	for text, want := range cases {
		if got := cls.Resolution(text); got != want {
			t.Fatalf("Resolution(%q) = %s, want %s", text, got, want)
		}
	}
}

func TestClassify_AmbiguousTextReprompts(t *testing.T) {
	cls := NewKeywordClassifier()

	// Keywords from two distinct intents in one message.
	if got := cls.Resolution("service sau regie, nu stiu"); got != IntentUnknown {
		t.Fatalf("ambiguous resolution answer must be UNKNOWN, got %s", got)
	}
	// Multiple keywords of the same intent stay unambiguous.
	if got := cls.Greeting("da da, deschide dauna"); got != IntentAffirm {
		t.Fatalf("repeated affirm keywords must stay AFFIRM, got %s", got)
	}
}

func TestOffer_AcceptBeatsNothing(t *testing.T) {
	cls := NewKeywordClassifier()

	if got := cls.Offer("accept oferta"); got != IntentAcceptOffer {
		t.Fatalf("Offer(accept) = %s", got)
	}
	if got := cls.Offer("prefer regie proprie"); got != IntentOwnRegime {
		t.Fatalf("Offer(regie) = %s", got)
	}
}

func TestOffer_ShortAffirmDoesNotShadowTotalLoss(t *testing.T) {
	cls := NewKeywordClassifier()

	// "da" only counts as a standalone word; "daună" must not read as accept.
	cases := map[string]Intent{
		"Da":             IntentAcceptOffer,
		"da, accept":     IntentAcceptOffer,
		"Daună totală":   IntentTotalLoss,
		"dauna totala":   IntentTotalLoss,
		"vreau service":  IntentServiceRAR,
		"da sau totala?": IntentUnknown,
	}
	for text, want := range cases {
		if got := cls.Offer(text); got != want {
			t.Fatalf("Offer(%q) = %s, want %s", text, got, want)
		}
	}
}

func TestClassify_ShortKeywordsMatchWholeWordsOnly(t *testing.T) {
	cls := NewKeywordClassifier()

	if got := cls.Greeting("număr de telefon"); got != IntentUnknown {
		t.Fatalf("Greeting(număr) = %s, want UNKNOWN", got)
	}
	if got := cls.Resolution("repararea nu e gata"); got != IntentUnknown {
		t.Fatalf("Resolution(repararea) = %s, want UNKNOWN", got)
	}
}
