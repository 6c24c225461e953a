package httpapi

import (
	"context"
	"encoding/base64"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func TestFrames(t *testing.T) {
	h := newTestHandler(t, nil)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/frames", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	frame := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngImage(t))

	require.NoError(t, wsjson.Write(ctx, conn, frameMessage{Image: frame, Prompts: []string{"face", "car", "tree"}}))
	var reply map[string]any
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	require.Equal(t, "clip", reply["type"])
	require.Contains(t, reply["data"], "face")

	require.NoError(t, wsjson.Write(ctx, conn, frameMessage{Image: frame}))
	reply = nil
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	require.Equal(t, "yolo", reply["type"])
	require.Len(t, reply["data"], 1)

	require.NoError(t, wsjson.Write(ctx, conn, frameMessage{}))
	reply = nil
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	require.Equal(t, "error", reply["type"])
	require.Equal(t, "No image received!", reply["error"])
}
