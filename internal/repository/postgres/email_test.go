package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/unosend/unosend/internal/service/webhook"
)

func TestClaimDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	sched := now.Add(-time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "broadcast_id", "from_email", "from_name",
		"to_emails", "cc_emails", "bcc_emails", "reply_to",
		"subject", "html_content", "text_content",
		"status", "scheduled_for", "created_at", "updated_at",
	}).AddRow(
		"em_1", "org_1", nil, "news@acme.com", "Acme",
		"{a@example.com}", "{}", "{}", "",
		"hello", "<p>hi</p>", "",
		"queued", sched, now, now,
	)

	mock.ExpectQuery("UPDATE emails SET status = 'queued'").
		WithArgs(now, 50).
		WillReturnRows(rows)

	repo := NewEmailRepo(db)
	batch, err := repo.ClaimDue(context.Background(), now, 50)
	if err != nil {
		t.Fatalf("ClaimDue: %v", err)
	}
	if len(batch) != 1 || batch[0].ID != "em_1" {
		t.Errorf("batch = %+v", batch)
	}
	if batch[0].ToEmails[0] != "a@example.com" {
		t.Errorf("ToEmails = %v", batch[0].ToEmails)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMarkSentGuardsStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sentAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE emails").
		WithArgs("em_1", "ses-123", sentAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewEmailRepo(db)
	if err := repo.MarkSent(context.Background(), "em_1", "ses-123", sentAt); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM emails").
		WithArgs("em_missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewEmailRepo(db)
	if _, err := repo.Get(context.Background(), "em_missing"); err != webhook.ErrEmailNotFound {
		t.Errorf("err = %v, want ErrEmailNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestFailStuckQueued(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	cutoff := time.Date(2026, 3, 14, 11, 45, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE emails").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	repo := NewEmailRepo(db)
	n, err := repo.FailStuckQueued(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("FailStuckQueued: %v", err)
	}
	if n != 4 {
		t.Errorf("swept %d, want 4", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
