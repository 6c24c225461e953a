package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoxCenter(t *testing.T) {
	b := Box{X1: 10, Y1: 20, X2: 18, Y2: 26}
	x, y := b.Center()
	require.Equal(t, 14, x)
	require.Equal(t, 23, y)
	require.Equal(t, 8, b.Width())
	require.Equal(t, 6, b.Height())
}

func TestDetectionText(t *testing.T) {
	d := Detection{Label: "face", Confidence: 0.9234}
	require.Equal(t, "face: 0.92", d.Text())
}

func TestRawResultEmpty(t *testing.T) {
	var nilResult *RawResult
	require.True(t, nilResult.Empty())
	require.True(t, (&RawResult{}).Empty())
	require.False(t, (&RawResult{Boxes: []RawBox{{}}}).Empty())
}

func TestDetectorFailureUnwrap(t *testing.T) {
	f := DetectorFailure{Detector: "face_detection", Err: ErrUnknownDetector}
	require.ErrorIs(t, f, ErrUnknownDetector)
	require.Contains(t, f.Error(), "face_detection")
}
