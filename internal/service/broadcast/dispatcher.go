package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/unosend/unosend/internal/domain"
	"github.com/unosend/unosend/internal/mailer"
	"github.com/unosend/unosend/internal/pkg/logger"
)

// BroadcastResult is the per-broadcast outcome of one run.
type BroadcastResult struct {
	BroadcastID     string `json:"broadcast_id"`
	Status          string `json:"status"`
	SentCount       int    `json:"sent_count"`
	TotalRecipients int    `json:"total_recipients"`
	Error           string `json:"error,omitempty"`
}

// RunResult summarizes one dispatcher run.
type RunResult struct {
	Processed int               `json:"processed"`
	Results   []BroadcastResult `json:"results"`
}

// UsageRecorder counts sent emails against an organization's billing period.
type UsageRecorder interface {
	RecordSent(ctx context.Context, orgID string, n int) error
}

// Dispatcher expands and sends due broadcasts.
type Dispatcher struct {
	repo      Repository
	mail      mailer.Mailer
	usage     UsageRecorder
	baseURL   string
	batchSize int
	sendDelay time.Duration
	now       func() time.Time
}

// NewDispatcher creates a broadcast dispatcher. baseURL is the application
// origin used for unsubscribe links; sendDelay paces per-contact sends to
// stay under provider rate limits.
func NewDispatcher(repo Repository, mail mailer.Mailer, usage UsageRecorder, baseURL string, batchSize int, sendDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		mail:      mail,
		usage:     usage,
		baseURL:   baseURL,
		batchSize: batchSize,
		sendDelay: sendDelay,
		now:       time.Now,
	}
}

// Run claims one batch of due broadcasts and sends each to completion. A
// broadcast failing to expand is marked failed and the run continues with
// the next one; only the claim query itself returns an error.
func (d *Dispatcher) Run(ctx context.Context) (*RunResult, error) {
	now := d.now().UTC()
	batch, err := d.repo.ClaimDue(ctx, now, d.batchSize)
	if err != nil {
		return nil, fmt.Errorf("claiming due broadcasts: %w", err)
	}

	res := &RunResult{Processed: len(batch), Results: make([]BroadcastResult, 0, len(batch))}
	for i := range batch {
		res.Results = append(res.Results, d.sendOne(ctx, &batch[i]))
	}

	if res.Processed > 0 {
		logger.Info("broadcast batch processed", "processed", fmt.Sprintf("%d", res.Processed))
	}
	return res, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, b *domain.Broadcast) BroadcastResult {
	contacts, err := d.repo.SubscribedContacts(ctx, b.AudienceID)
	if err != nil {
		logger.Error("loading broadcast contacts failed",
			"broadcast_id", b.ID, "error", err.Error())
		if mfErr := d.repo.MarkFailed(ctx, b.ID); mfErr != nil {
			logger.Error("marking broadcast failed failed",
				"broadcast_id", b.ID, "error", mfErr.Error())
		}
		return BroadcastResult{
			BroadcastID: b.ID,
			Status:      string(domain.BroadcastFailed),
			Error:       err.Error(),
		}
	}

	sent := 0
	for i := range contacts {
		if d.sendToContact(ctx, b, &contacts[i]) {
			sent++
		}
		if d.sendDelay > 0 && i < len(contacts)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(d.sendDelay):
			}
		}
	}

	sentAt := d.now().UTC()
	if err := d.repo.MarkSent(ctx, b.ID, sent, len(contacts), sentAt); err != nil {
		logger.Error("marking broadcast sent failed",
			"broadcast_id", b.ID, "error", err.Error())
	}
	if sent > 0 {
		if err := d.usage.RecordSent(ctx, b.OrganizationID, sent); err != nil {
			logger.Error("usage increment failed",
				"org_id", b.OrganizationID, "broadcast_id", b.ID, "error", err.Error())
		}
	}

	logger.Info("broadcast completed",
		"broadcast_id", b.ID,
		"sent", fmt.Sprintf("%d", sent),
		"recipients", fmt.Sprintf("%d", len(contacts)))

	return BroadcastResult{
		BroadcastID:     b.ID,
		Status:          string(domain.BroadcastSent),
		SentCount:       sent,
		TotalRecipients: len(contacts),
	}
}

// sendToContact expands one contact into an Email row, sends it, and records
// the outcome. Returns true when the provider accepted the message.
func (d *Dispatcher) sendToContact(ctx context.Context, b *domain.Broadcast, c *domain.Contact) bool {
	nowMillis := d.now().UTC().UnixMilli()
	unsubURL := UnsubscribeURL(d.baseURL, c.ID, nowMillis)
	html := Render(b.HTMLContent, c, unsubURL)
	subject := Render(b.Subject, c, unsubURL)

	em := &domain.Email{
		ID:             uuid.New().String(),
		OrganizationID: b.OrganizationID,
		BroadcastID:    &b.ID,
		FromEmail:      b.FromEmail,
		FromName:       b.FromName,
		ToEmails:       []string{c.Email},
		Subject:        subject,
		HTMLContent:    html,
		Status:         domain.EmailSending,
		CreatedAt:      d.now().UTC(),
	}
	if err := d.repo.InsertEmail(ctx, em); err != nil {
		logger.Error("inserting broadcast email failed",
			"broadcast_id", b.ID, "contact", c.Email, "error", err.Error())
		return false
	}

	sent, err := d.mail.Send(ctx, mailer.Message{
		From:    em.FromAddress(),
		To:      em.ToEmails,
		Subject: em.Subject,
		HTML:    em.HTMLContent,
	})
	if err != nil {
		logger.Warn("broadcast send failed",
			"broadcast_id", b.ID, "contact", c.Email, "error", err.Error())
		if uErr := d.repo.UpdateEmailOutcome(ctx, em.ID, domain.EmailFailed, "", err.Error()); uErr != nil {
			logger.Error("recording email failure failed", "email_id", em.ID, "error", uErr.Error())
		}
		return false
	}

	if err := d.repo.UpdateEmailOutcome(ctx, em.ID, domain.EmailDelivered, sent.MessageID, ""); err != nil {
		logger.Error("recording email delivery failed", "email_id", em.ID, "error", err.Error())
	}
	return true
}

// Cancel cancels a scheduled broadcast on behalf of the organization. It
// returns ErrNotFound for unknown ids and ErrNotCancellable when the
// broadcast has already started or finished.
func (d *Dispatcher) Cancel(ctx context.Context, orgID, broadcastID string) error {
	return d.repo.Cancel(ctx, orgID, broadcastID)
}
