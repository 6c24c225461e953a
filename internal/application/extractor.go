package app

import (
	"fmt"

	"vision-cascade/internal/domain/entity"
)

// ExtractDetections разворачивает сырые ответы детекторов в плоский список записей.
// Координаты приводятся к int отбрасыванием дробной части.
func ExtractDetections(outputs []entity.DetectorOutput) []entity.Detection {
	detections := make([]entity.Detection, 0)
	for _, out := range outputs {
		if out.Result.Empty() {
			continue
		}
		for _, b := range out.Result.Boxes {
			label, ok := out.Result.Names[b.ClassIndex]
			if !ok {
				label = fmt.Sprintf("class_%d", b.ClassIndex)
			}
			detections = append(detections, entity.Detection{
				Detector:   out.Name,
				Label:      label,
				Confidence: b.Confidence,
				Box: entity.Box{
					X1: int(b.XYXY[0]),
					Y1: int(b.XYXY[1]),
					X2: int(b.XYXY[2]),
					Y2: int(b.XYXY[3]),
				},
			})
		}
	}
	return detections
}
