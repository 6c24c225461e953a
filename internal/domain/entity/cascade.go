package entity

// CascadeResult хранит итог прогона каскада по одному изображению.
type CascadeResult struct {
	Scores     Scores            // значимые промпты по убыванию вероятности
	Detectors  []string          // детекторы, выбранные по значимым промптам
	Detections []Detection       // плоский список найденных объектов
	Failures   []DetectorFailure // детекторы, которые упали или вернули мусор
}

// Partial сообщает, что часть детекторов не отработала.
func (r *CascadeResult) Partial() bool {
	return len(r.Failures) > 0
}
