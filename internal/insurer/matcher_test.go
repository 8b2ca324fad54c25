package insurer

import "testing"

func testInsurers() []Insurer {
	return []Insurer{
		{Name: "Allianz", ClaimsEmail: "daune@allianz.example"},
		{Name: "Groupama", ClaimsEmail: "daune@groupama.example", Aliases: []string{"Groupama Asigurari"}},
		{Name: "Omniasig", ClaimsEmail: "daune@omniasig.example", Aliases: []string{"Omniasig VIG"}},
	}
}

func TestMatchInsurer_ContainmentBothDirections(t *testing.T) {
	cases := map[string]string{
		"Allianz-Tiriac Asigurari S.A.": "Allianz",
		"GROUPAMA":                      "Groupama",
		"Omniasig VIG":                  "Omniasig",
		"omniasig":                      "Omniasig",
	}
	for raw, want := range cases {
		ins, ok := MatchInsurer(raw, testInsurers())
		if !ok {
			t.Fatalf("MatchInsurer(%q): no match", raw)
		}
		if ins.Name != want {
			t.Fatalf("MatchInsurer(%q) = %s, want %s", raw, ins.Name, want)
		}
	}
}

func TestMatchInsurer_NoMatch(t *testing.T) {
	if _, ok := MatchInsurer("Asigurarea Necunoscuta SRL", testInsurers()); ok {
		t.Fatal("unknown insurer must not match")
	}
	if _, ok := MatchInsurer("", testInsurers()); ok {
		t.Fatal("empty name must not match")
	}
}
