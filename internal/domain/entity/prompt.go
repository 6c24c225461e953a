package entity

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/samber/lo"
)

// ScoredPrompt — промпт и его вероятность после сигмоиды.
type ScoredPrompt struct {
	Prompt      string  `json:"prompt"`
	Probability float64 `json:"probability"`
}

// Scores — упорядоченное отображение промпт -> вероятность (по убыванию вероятности).
type Scores []ScoredPrompt

// Prompts возвращает промпты в порядке ранжирования.
func (s Scores) Prompts() []string {
	return lo.Map(s, func(sp ScoredPrompt, _ int) string { return sp.Prompt })
}

// Get возвращает вероятность промпта, если он есть среди значимых.
func (s Scores) Get(prompt string) (float64, bool) {
	for _, sp := range s {
		if sp.Prompt == prompt {
			return sp.Probability, true
		}
	}
	return 0, false
}

// Map превращает результат в обычную map для JSON-ответов.
func (s Scores) Map() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, sp := range s {
		out[sp.Prompt] = sp.Probability
	}
	return out
}

// MarshalJSON пишет объект {"prompt": probability} с сохранением порядка ранжирования.
func (s Scores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sp := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sp.Prompt)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(sp.Probability)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NormalizePrompts обрезает пробелы, выкидывает пустые строки и дубликаты.
// Порядок первых вхождений сохраняется.
func NormalizePrompts(raw []string) []string {
	trimmed := lo.FilterMap(raw, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	})
	return lo.Uniq(trimmed)
}
