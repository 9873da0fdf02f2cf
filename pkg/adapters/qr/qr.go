// Package qr renders deep-link payloads as PNG QR codes and stores them on
// the entity they point to.
package qr

import (
	"context"
	"fmt"

	"github.com/aretw0/libris/pkg/ports"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// Generator implements ports.QRGenerator with go-qrcode.
type Generator struct {
	Size  int
	Level qrcode.RecoveryLevel
}

// NewGenerator returns a 256px generator with medium error correction.
func NewGenerator() Generator {
	return Generator{Size: 256, Level: qrcode.Medium}
}

func (g Generator) Make(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("qr: empty payload")
	}
	png, err := qrcode.Encode(payload, g.Level, g.Size)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	return png, nil
}

// Sink stores rendered images.
type Sink interface {
	SetBookQR(ctx context.Context, id uuid.UUID, png []byte) error
	SetLocationQR(ctx context.Context, id uuid.UUID, png []byte) error
}

// Attacher renders and stores in the caller's goroutine.
type Attacher struct {
	gen  ports.QRGenerator
	sink Sink
}

// NewAttacher implements ports.QRAttacher synchronously.
func NewAttacher(gen ports.QRGenerator, sink Sink) *Attacher {
	return &Attacher{gen: gen, sink: sink}
}

func (a *Attacher) Attach(ctx context.Context, target ports.QRTarget, id uuid.UUID, payload string) ([]byte, error) {
	png, err := a.gen.Make(payload)
	if err != nil {
		return nil, err
	}
	switch target {
	case ports.QRBook:
		err = a.sink.SetBookQR(ctx, id, png)
	case ports.QRLocation:
		err = a.sink.SetLocationQR(ctx, id, png)
	default:
		err = fmt.Errorf("qr: unknown target %q", target)
	}
	if err != nil {
		return nil, err
	}
	return png, nil
}
