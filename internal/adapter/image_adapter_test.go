package adapter

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQRCodeRenderer_RenderPNG(t *testing.T) {
	r := NewQRCodeRenderer(zap.NewNop())

	raw, err := r.RenderPNG(context.Background(), "VIP-2026-0001", 128)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())

	_, err = r.RenderPNG(context.Background(), "  ", 128)
	assert.Error(t, err)
}

func TestQRCodeRenderer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewQRCodeRenderer(zap.NewNop()).RenderPNG(ctx, "code", 0)
	assert.ErrorIs(t, err, context.Canceled)
}
