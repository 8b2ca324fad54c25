package insurer

import "strings"

// MatchInsurer resolves an OCR'd insurer name against the known insurer list.
// Matching is containment in either direction on normalized names and aliases:
// an amiabila often carries "Allianz-Tiriac Asigurari S.A." where the list
// holds "Allianz".
func MatchInsurer(raw string, insurers []Insurer) (Insurer, bool) {
	needle := normalizeName(raw)
	if needle == "" {
		return Insurer{}, false
	}

	for _, ins := range insurers {
		candidates := append([]string{ins.Name}, ins.Aliases...)
		for _, cand := range candidates {
			name := normalizeName(cand)
			if name == "" {
				continue
			}
			if strings.Contains(needle, name) || strings.Contains(name, needle) {
				return ins, true
			}
		}
	}
	return Insurer{}, false
}

func normalizeName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	for _, noise := range []string{"s.a.", "sa.", "asigurari", "asigurări", "asigurare", "-", "."} {
		lowered = strings.ReplaceAll(lowered, noise, " ")
	}
	return strings.Join(strings.Fields(lowered), " ")
}
