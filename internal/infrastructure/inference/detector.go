package inference

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strconv"

	"vision-cascade/internal/domain/entity"
	"vision-cascade/internal/domain/port"
)

// Detector представляет YOLO-модель, загруженную в сервис детекции под своим именем.
type Detector struct {
	client *Client
	name   string
}

type boxDTO struct {
	Class      int        `json:"cls"`
	Confidence float64    `json:"conf"`
	XYXY       [4]float64 `json:"xyxy"`
}

type detectResponse struct {
	Boxes []boxDTO       `json:"boxes"`
	Names map[int]string `json:"names"`
}

// Detect отправляет кадр в сервис и возвращает рамки с таблицей классов.
func (d *Detector) Detect(ctx context.Context, img image.Image, confidence float64) (*entity.RawResult, error) {
	fields := map[string]string{
		"model": d.name,
		"conf":  strconv.FormatFloat(confidence, 'f', -1, 64),
	}

	var resp detectResponse
	if err := d.client.postImage(ctx, "/detect", img, fields, &resp); err != nil {
		return nil, fmt.Errorf("detect %s: %w", d.name, err)
	}

	res := &entity.RawResult{
		Boxes: make([]entity.RawBox, 0, len(resp.Boxes)),
		Names: resp.Names,
	}
	for _, b := range resp.Boxes {
		res.Boxes = append(res.Boxes, entity.RawBox{ClassIndex: b.Class, Confidence: b.Confidence, XYXY: b.XYXY})
	}
	return res, nil
}

// Labels возвращает имена классов модели в порядке индексов
func (d *Detector) Labels(ctx context.Context) ([]string, error) {
	var resp struct {
		Labels []string `json:"labels"`
	}
	if err := d.client.getJSON(ctx, "/models/"+url.PathEscape(d.name)+"/labels", &resp); err != nil {
		return nil, fmt.Errorf("labels %s: %w", d.name, err)
	}
	return resp.Labels, nil
}

// Loader загружает веса в сервис детекции.
type Loader struct {
	client *Client
}

// NewLoader создаёт загрузчик детекторов
func NewLoader(client *Client) *Loader {
	return &Loader{client: client}
}

func (l *Loader) Load(ctx context.Context, name, path string) (port.Detector, error) {
	request := struct {
		Name string `json:"name"`
		Path string `json:"path"`
	}{Name: name, Path: path}

	if err := l.client.postJSON(ctx, "/models/load", request, nil); err != nil {
		return nil, fmt.Errorf("load model %s: %w", name, err)
	}
	return &Detector{client: l.client, name: name}, nil
}

var (
	_ port.LabeledDetector = (*Detector)(nil)
	_ port.DetectorLoader  = (*Loader)(nil)
)
