package service

import (
	"context"

	"github.com/rryowa/shopapi/internal/models"
)

// ConfirmationNotifier delivers confirmation tokens. Delivery is asynchronous and best effort.
type ConfirmationNotifier interface {
	NotifyConfirmation(ctx context.Context, msg models.ConfirmationMessage)
}
