// Package textnorm содержит общие операции над текстом объявлений.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold приводит строку к нижнему регистру и убирает диакритику ("Città" -> "citta").
// Трансформер создаётся на каждый вызов: transform.Transformer не потокобезопасен.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// CollapseSpaces убирает повторяющиеся пробельные символы
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TitleCase - "SESTO SAN GIOVANNI" -> "Sesto San Giovanni"
func TitleCase(s string) string {
	return cases.Title(language.Italian).String(CollapseSpaces(s))
}

// Words разбивает сложенную строку на слова (буквы и цифры)
func Words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ContainsPhrase ищет фразу по границам слов в уже сложенном тексте
func ContainsPhrase(text, phrase string) bool {
	return PhraseIndex(text, phrase) >= 0
}

// PhraseIndex возвращает позицию фразы с учётом границ слов или -1
func PhraseIndex(text, phrase string) int {
	if phrase == "" {
		return -1
	}
	offset := 0
	for {
		idx := strings.Index(text[offset:], phrase)
		if idx < 0 {
			return -1
		}
		start := offset + idx
		end := start + len(phrase)
		if isBoundary(text, start-1) && isBoundary(text, end) {
			return start
		}
		offset = start + 1
	}
}

func isBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	r := rune(text[i])
	if r >= 0x80 {
		// многобайтовые символы после Fold встречаются редко, считаем их частью слова
		return false
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
