package notifications

import (
	"context"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/pkg/logger"
)

// Notifier delivers a short text to a user. Push transport lives in a
// separate service; the engine only depends on this seam.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, text string) error
}

// LogNotifier writes notifications to the structured log. The default
// implementation until a push transport is wired in.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Notify(ctx context.Context, userID uuid.UUID, text string) error {
	n.logg.Info(n.logg.WithFields(ctx, map[string]any{
		"user_id": userID,
		"text":    text,
	}), "notification dispatched")
	return nil
}
