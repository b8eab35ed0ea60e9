package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/unosend/unosend/internal/domain"
	"github.com/unosend/unosend/internal/pkg/logger"
)

// Dispatcher fans an event out to every matching subscription of an
// organization and records one WebhookLog row per delivery outcome.
type Dispatcher struct {
	repo      Repository
	emails    EmailReader
	deliverer Deliverer
}

// NewDispatcher creates a dispatcher backed by the given repository,
// email reader, and deliverer.
func NewDispatcher(repo Repository, emails EmailReader, deliverer Deliverer) *Dispatcher {
	return &Dispatcher{repo: repo, emails: emails, deliverer: deliverer}
}

// Dispatch delivers the event to all enabled webhooks of the organization that
// subscribe to it. Each outcome is persisted unconditionally; a failure
// against one subscription never prevents attempts against the others.
// Webhooks not subscribed to the event are skipped without a log entry.
func (d *Dispatcher) Dispatch(ctx context.Context, orgID string, event domain.WebhookEvent, data map[string]interface{}) error {
	hooks, err := d.repo.ListEnabled(ctx, orgID)
	if err != nil {
		return fmt.Errorf("list webhooks: %w", err)
	}
	if len(hooks) == 0 {
		return nil
	}

	payload := Payload{
		Type:      event,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	for i := range hooks {
		hook := &hooks[i]
		if !hook.Subscribed(event) {
			continue
		}

		res := d.deliverer.Deliver(ctx, hook.URL, hook.Secret, hook.ID, payload)

		l := &domain.WebhookLog{
			ID:        uuid.New().String(),
			WebhookID: hook.ID,
			EventType: event,
			Payload:   raw,
			Success:   res.Success,
			Error:     res.Error,
			Attempts:  res.Attempts,
			CreatedAt: time.Now().UTC(),
		}
		if res.StatusCode != 0 {
			status := res.StatusCode
			l.ResponseStatus = &status
		}

		if err := d.repo.InsertLog(ctx, l); err != nil {
			logger.Error("webhook log insert failed",
				"webhook_id", hook.ID, "event", string(event), "error", err.Error())
		}
		if !res.Success {
			logger.Warn("webhook delivery failed",
				"webhook_id", hook.ID, "event", string(event),
				"attempts", res.Attempts, "error", res.Error)
		}
	}
	return nil
}

// TriggerEmailEvent loads the email's originator, recipients, and subject and
// dispatches the event with that data, merging in any extra fields (such as an
// error message for email.failed). A missing email is a silent no-op; this is
// a best-effort notification path.
func (d *Dispatcher) TriggerEmailEvent(ctx context.Context, orgID string, event domain.WebhookEvent, emailID string, extra map[string]interface{}) error {
	em, err := d.emails.Get(ctx, emailID)
	if errors.Is(err, ErrEmailNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load email: %w", err)
	}

	data := map[string]interface{}{
		"email_id": emailID,
		"from":     em.FromEmail,
		"to":       em.ToEmails,
		"subject":  em.Subject,
	}
	for k, v := range extra {
		data[k] = v
	}

	return d.Dispatch(ctx, orgID, event, data)
}
