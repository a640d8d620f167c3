package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// DefaultImageSize is the PNG edge length in pixels.
const DefaultImageSize = 256

// CouponImageRenderer turns a coupon into a shareable image.
// This abstraction keeps the image library out of the application layer.
type CouponImageRenderer interface {
	// RenderPNG encodes payload as a PNG of size x size pixels.
	RenderPNG(ctx context.Context, payload string, size int) ([]byte, error)
}

// QRCodeRenderer renders the payload as a QR code.
type QRCodeRenderer struct {
	logger *zap.Logger
}

// NewQRCodeRenderer creates a QRCodeRenderer.
func NewQRCodeRenderer(logger *zap.Logger) *QRCodeRenderer {
	return &QRCodeRenderer{logger: logger}
}

// RenderPNG encodes payload at medium error correction.
func (r *QRCodeRenderer) RenderPNG(ctx context.Context, payload string, size int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("qr payload is empty")
	}
	if size <= 0 {
		size = DefaultImageSize
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	r.logger.Debug("coupon image rendered",
		zap.Int("size", size),
		zap.Int("bytes", len(png)),
	)
	return png, nil
}
