package vision

import (
	"fmt"
	"strings"

	"vision-cascade/internal/domain/entity"
)

const (
	promptPrefix = "A road scene where a "
	promptSuffix = " is visible"
)

// ShortPrompt убирает шаблонные префикс и суффикс промпта для подписи на кадре.
func ShortPrompt(prompt string) string {
	prompt = strings.TrimPrefix(prompt, promptPrefix)
	return strings.TrimSuffix(prompt, promptSuffix)
}

// ScoreCaptions возвращает подписи вида "pothole (0.87)" по убыванию вероятности.
func ScoreCaptions(scores entity.Scores) []string {
	captions := make([]string, 0, len(scores))
	for _, sp := range scores {
		captions = append(captions, fmt.Sprintf("%s (%.2f)", ShortPrompt(sp.Prompt), sp.Probability))
	}
	return captions
}
