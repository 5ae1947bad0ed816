// Package phone приводит телефонные номера к единому виду: только цифры, с кодом страны.
package phone

import "strings"

// DefaultCountryCode добавляется к десятизначным мобильным номерам без кода
const DefaultCountryCode = "39"

// Normalize: "+39 333 123-4567" -> "393331234567", "0039..." -> "39...", "3331234567" -> "393331234567"
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	digits = strings.TrimPrefix(digits, "00")
	if len(digits) == 10 && strings.HasPrefix(digits, "3") {
		digits = DefaultCountryCode + digits
	}
	return digits
}

// Allowlist - множество нормализованных номеров, на которые разрешена отправка
type Allowlist map[string]struct{}

func NewAllowlist(numbers []string) Allowlist {
	list := make(Allowlist, len(numbers))
	for _, n := range numbers {
		if normalized := Normalize(n); normalized != "" {
			list[normalized] = struct{}{}
		}
	}
	return list
}

func (a Allowlist) Contains(number string) bool {
	_, ok := a[Normalize(number)]
	return ok
}
