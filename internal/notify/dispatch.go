package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opshq/backoffice/internal/jobs"
	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

// DispatchHandler returns the jobs handler for notify.dispatch: it persists
// the notification row and pushes the event to the organization's room.
func DispatchHandler(repo repository.NotificationRepo, hub *Hub) jobs.Handler {
	return func(ctx context.Context, j *jobs.Job) error {
		var p jobs.NotifyPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return fmt.Errorf("decode notify payload: %w", err)
		}

		n := &models.Notification{OrgID: p.OrgID, Kind: p.Kind, Message: p.Message}
		if _, err := repo.CreateNotification(ctx, n); err != nil {
			return fmt.Errorf("persist notification: %w", err)
		}

		if hub != nil {
			hub.Publish(p.OrgID, p.Kind, p.Message)
		}

		return nil
	}
}
