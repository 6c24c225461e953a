package app

import (
	"regexp"
	"strings"
	"unicode"
)

var digits = regexp.MustCompile(`\d+`)

// CleanLabel превращает имя класса детектора в читаемую метку:
// "traffic_light-2" -> "Traffic Light".
func CleanLabel(label string) string {
	label = strings.NewReplacer("_", " ", "-", " ").Replace(label)
	label = titleCase(label)
	label = digits.ReplaceAllString(label, "")
	return strings.Join(strings.Fields(label), " ")
}

// LabelPrompts строит по промпту на каждый класс: "<base> <Label>".
// Пустые после очистки метки пропускаются.
func LabelPrompts(base string, labels []string) []string {
	base = strings.TrimSpace(base)
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		clean := CleanLabel(l)
		if clean == "" {
			continue
		}
		if base == "" {
			out = append(out, clean)
			continue
		}
		out = append(out, base+" "+clean)
	}
	return out
}

// titleCase: первая буква каждого слова заглавная, остальные строчные.
// Словом считается последовательность букв, как в str.title.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}
