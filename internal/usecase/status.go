package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/V4T54L/compliance-gate/internal/domain"
)

// ResolveStatus maps a status token to its display severity and label. A
// non-blank displayLabel is used verbatim; otherwise the label is derived from
// the token ("awaiting-access" -> "Awaiting Access"). Unknown tokens resolve to
// neutral.
func ResolveStatus(token, displayLabel string) domain.StatusView {
	label := strings.TrimSpace(displayLabel)
	if label == "" {
		label = humanizeToken(token)
	}
	return domain.StatusView{
		Token:    token,
		Severity: domain.StatusToken(strings.ToLower(strings.TrimSpace(token))).Severity(),
		Label:    label,
	}
}

func humanizeToken(token string) string {
	words := strings.FieldsFunc(token, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
