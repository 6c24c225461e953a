package telegram

import (
	"fmt"
	"strings"

	"vision-cascade/internal/domain/entity"
)

// SplitPrompts разбирает строку "a; b; c" в список промптов.
func SplitPrompts(text string) []string {
	return entity.NormalizePrompts(strings.Split(text, ";"))
}

// FormatScores формирует ответ для режима оценки промптов.
func FormatScores(scores entity.Scores) string {
	if len(scores) == 0 {
		return msgNoPrompts
	}
	var sb strings.Builder
	sb.WriteString("🔎 Значимые промпты:\n")
	for _, sp := range scores {
		fmt.Fprintf(&sb, "• %s — %.2f\n", sp.Prompt, sp.Probability)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatCascade перечисляет найденные объекты и упавшие детекторы.
func FormatCascade(res *entity.CascadeResult) string {
	var sb strings.Builder
	if len(res.Detections) == 0 {
		sb.WriteString(msgNothingFound)
	} else {
		fmt.Fprintf(&sb, "🎯 Найдено объектов: %d\n", len(res.Detections))
		for _, d := range res.Detections {
			fmt.Fprintf(&sb, "• %s (%s)\n", d.Text(), d.Detector)
		}
	}

	if res.Partial() {
		names := make([]string, 0, len(res.Failures))
		for _, f := range res.Failures {
			names = append(names, f.Detector)
		}
		fmt.Fprintf(&sb, "\n⚠️ Не отработали: %s", strings.Join(names, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}
