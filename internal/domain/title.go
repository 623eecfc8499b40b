package domain

import "strings"

const msgTitleFormat = `Title format is incorrect - please make sure your title uses the "[Location][H] What you have [W] What you want" format.`

// ParseTitle classifies a submission title of the form
// "[Location][H] have [W] want". It never fails: a title that does not fit the
// grammar yields KindInvalid with a single format error.
func (r *Rules) ParseTitle(title string) PostInfo {
	// "[loc][H]have[W]want" splits into
	// "", "loc", "", "H", "have", "W", "want".
	parts := splitBrackets(title)
	if len(parts) != 7 ||
		strings.TrimSpace(parts[0]) != "" ||
		strings.TrimSpace(parts[2]) != "" ||
		!strings.EqualFold(parts[3], "h") ||
		!strings.EqualFold(parts[5], "w") {
		return PostInfo{
			Kind:   KindInvalid,
			Errors: []string{msgTitleFormat},
		}
	}

	info := PostInfo{
		Have: strings.TrimSpace(parts[4]),
		Want: strings.TrimSpace(parts[6]),
	}
	haveMoney := matches(r.payment, info.Have)
	wantMoney := matches(r.payment, info.Want)
	switch {
	case haveMoney && !wantMoney:
		info.Kind = KindBuy
	case wantMoney && !haveMoney:
		info.Kind = KindSell
	default:
		info.Kind = KindTrade
	}
	return info
}

func isBracket(r rune) bool {
	return r == '[' || r == ']'
}

// splitBrackets splits s around every '[' and ']', keeping empty segments.
func splitBrackets(s string) []string {
	var parts []string
	start := 0
	for i, c := range s {
		if isBracket(c) {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
