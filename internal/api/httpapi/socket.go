package httpapi

import (
	"context"
	"errors"
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"vision-cascade/internal/domain/entity"
	"vision-cascade/internal/infrastructure/imageio"
)

const maxFrameMessage = 16 << 20

// frameMessage кадр живого потока: base64 или data URL и необязательные промпты.
type frameMessage struct {
	Image   string   `json:"image"`
	Prompts []string `json:"prompts"`
}

type frameError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Frames обслуживает WebSocket /ws/frames: на каждый кадр уходит один ответ "clip" или "yolo".
func (h *Handler) Frames(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log(r).Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected shutdown")
	conn.SetReadLimit(maxFrameMessage)

	logger := h.log(r)
	ctx := r.Context()
	for {
		var msg frameMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			logger.Debugw("frame stream closed", "error", err)
			return
		}

		reply := h.handleFrame(ctx, msg)
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			logger.Debugw("frame reply failed", "error", err)
			return
		}
	}
}

func (h *Handler) handleFrame(ctx context.Context, msg frameMessage) any {
	if msg.Image == "" {
		return frameError{Type: "error", Error: "No image received!"}
	}
	img, err := imageio.DecodeBase64(msg.Image)
	if err != nil {
		return frameError{Type: "error", Error: err.Error()}
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	if prompts := entity.NormalizePrompts(msg.Prompts); len(prompts) > 0 {
		scores, err := h.cascade.ScorePrompts(ctx, img, prompts)
		if err != nil {
			return frameError{Type: "error", Error: err.Error()}
		}
		return scoresDTO{Type: "clip", Data: scores}
	}

	res, err := h.cascade.Detect(ctx, img, nil)
	if err != nil {
		return frameError{Type: "error", Error: err.Error()}
	}
	return toCascadeDTO(res)
}
