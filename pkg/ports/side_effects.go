package ports

import (
	"context"

	"github.com/google/uuid"
)

// QRGenerator renders a payload string into PNG bytes. It has no side effects.
type QRGenerator interface {
	Make(payload string) ([]byte, error)
}

// QRTarget names the kind of entity a QR image belongs to.
type QRTarget string

const (
	QRBook     QRTarget = "book"
	QRLocation QRTarget = "location"
)

// QRAttacher renders and stores the QR image of a freshly created entity.
// Synchronous implementations return the PNG; asynchronous ones return nil
// and store it later. The entity row already exists when Attach runs, so a
// failure leaves the record without an image.
type QRAttacher interface {
	Attach(ctx context.Context, target QRTarget, id uuid.UUID, payload string) ([]byte, error)
}

// Mailer delivers registration verification codes.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}
