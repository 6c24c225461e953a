package app

import (
	"github.com/samber/lo"

	"vision-cascade/internal/domain/entity"
	"vision-cascade/internal/domain/port"
)

// Dispatch возвращает объединение детекторов, на которые ведут значимые промпты.
// Промпты без записи в реестре ничего не добавляют. Порядок по первому появлению.
func Dispatch(significant []string, registry map[string]port.Detector) []port.Detector {
	selected := lo.FilterMap(significant, func(p string, _ int) (port.Detector, bool) {
		d, ok := registry[p]
		return d, ok
	})
	return lo.Uniq(selected)
}

// SelectDetectors выбирает имена детекторов для значимых промптов по снимку реестра.
func SelectDetectors(significant entity.Scores, snap *RegistrySnapshot) []string {
	if len(significant) == 0 {
		return []string{}
	}
	return snap.Names(Dispatch(significant.Prompts(), snap.PromptDetectors()))
}
