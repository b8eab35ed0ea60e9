package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/unosend/unosend/internal/domain"
	"github.com/unosend/unosend/internal/mailer"
	"github.com/unosend/unosend/internal/pkg/logger"
)

// ItemResult is the per-email outcome of one batch run.
type ItemResult struct {
	EmailID string `json:"email_id"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Processed int          `json:"processed"`
	Sent      int          `json:"sent"`
	Failed    int          `json:"failed"`
	Results   []ItemResult `json:"results"`
}

// Processor claims and sends due scheduled emails.
type Processor struct {
	repo      EmailRepository
	mail      mailer.Mailer
	events    EventTrigger
	usage     UsageRecorder
	batchSize int
	now       func() time.Time
}

// NewProcessor creates a scheduled-email processor. batchSize caps how many
// emails a single run claims.
func NewProcessor(repo EmailRepository, mail mailer.Mailer, events EventTrigger, usage UsageRecorder, batchSize int) *Processor {
	return &Processor{
		repo:      repo,
		mail:      mail,
		events:    events,
		usage:     usage,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run claims one batch of due emails and sends them. Send failures are
// recorded per email and never fail the run; only the claim query itself
// returns an error.
func (p *Processor) Run(ctx context.Context) (*BatchResult, error) {
	now := p.now().UTC()
	batch, err := p.repo.ClaimDue(ctx, now, p.batchSize)
	if err != nil {
		return nil, fmt.Errorf("claiming due emails: %w", err)
	}

	res := &BatchResult{Processed: len(batch), Results: make([]ItemResult, 0, len(batch))}
	for i := range batch {
		em := &batch[i]
		if outcome := p.sendOne(ctx, em); outcome.Error == "" {
			res.Sent++
			res.Results = append(res.Results, outcome)
		} else {
			res.Failed++
			res.Results = append(res.Results, outcome)
		}
	}

	if res.Processed > 0 {
		logger.Info("scheduled batch processed",
			"processed", res.Processed, "sent", res.Sent, "failed", res.Failed)
	}
	return res, nil
}

func (p *Processor) sendOne(ctx context.Context, em *domain.Email) ItemResult {
	sent, err := p.mail.Send(ctx, mailer.Message{
		From:    em.FromAddress(),
		To:      em.ToEmails,
		CC:      em.CCEmails,
		BCC:     em.BCCEmails,
		ReplyTo: em.ReplyTo,
		Subject: em.Subject,
		HTML:    em.HTMLContent,
		Text:    em.TextContent,
	})
	if err != nil {
		p.recordFailure(ctx, em, err)
		return ItemResult{EmailID: em.ID, Status: string(domain.EmailFailed), Error: err.Error()}
	}

	sentAt := p.now().UTC()
	if err := p.repo.MarkSent(ctx, em.ID, sent.MessageID, sentAt); err != nil {
		logger.Error("marking email sent failed", "email_id", em.ID, "error", err.Error())
	}
	if err := p.repo.InsertEvent(ctx, &domain.EmailEvent{
		ID:        uuid.New().String(),
		EmailID:   em.ID,
		EventType: domain.EventSent,
		CreatedAt: sentAt,
	}); err != nil {
		logger.Error("inserting sent event failed", "email_id", em.ID, "error", err.Error())
	}
	if err := p.events.TriggerEmailEvent(ctx, em.OrganizationID, domain.WebhookEmailSent, em.ID, nil); err != nil {
		logger.Warn("email.sent webhook failed", "email_id", em.ID, "error", err.Error())
	}
	if err := p.usage.RecordSent(ctx, em.OrganizationID, 1); err != nil {
		logger.Error("usage increment failed",
			"org_id", em.OrganizationID, "email_id", em.ID, "error", err.Error())
	}

	return ItemResult{EmailID: em.ID, Status: string(domain.EmailSent)}
}

func (p *Processor) recordFailure(ctx context.Context, em *domain.Email, sendErr error) {
	logger.Warn("email send failed", "email_id", em.ID, "error", sendErr.Error())

	if err := p.repo.MarkFailed(ctx, em.ID, sendErr.Error()); err != nil {
		logger.Error("marking email failed failed", "email_id", em.ID, "error", err.Error())
	}
	if err := p.events.TriggerEmailEvent(ctx, em.OrganizationID, domain.WebhookEmailFailed, em.ID, map[string]interface{}{
		"error": sendErr.Error(),
	}); err != nil {
		logger.Warn("email.failed webhook failed", "email_id", em.ID, "error", err.Error())
	}
}

// SweepStuck fails emails that have sat in queued longer than threshold.
// Returns the number of emails swept.
func (p *Processor) SweepStuck(ctx context.Context, threshold time.Duration) (int64, error) {
	cutoff := p.now().UTC().Add(-threshold)
	n, err := p.repo.FailStuckQueued(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping stuck emails: %w", err)
	}
	if n > 0 {
		logger.Warn("swept stuck queued emails", "count", fmt.Sprintf("%d", n))
	}
	return n, nil
}
