package broadcast

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/unosend/unosend/internal/domain"
	"github.com/unosend/unosend/internal/mailer"
)

type memRepo struct {
	mu       sync.Mutex
	due      []domain.Broadcast
	claimErr error

	contacts    map[string][]domain.Contact // by audience id
	contactsErr map[string]error

	emails   []domain.Email
	outcomes map[string]outcome // by email id

	sentMarks   map[string][2]int // broadcastID -> {sentCount, totalRecipients}
	failedMarks []string

	broadcasts map[string]*domain.Broadcast // for Cancel, keyed by id
}

type outcome struct {
	status domain.EmailStatus
	msgID  string
	errMsg string
}

func newMemRepo() *memRepo {
	return &memRepo{
		contacts:    make(map[string][]domain.Contact),
		contactsErr: make(map[string]error),
		outcomes:    make(map[string]outcome),
		sentMarks:   make(map[string][2]int),
		broadcasts:  make(map[string]*domain.Broadcast),
	}
}

func (r *memRepo) ClaimDue(_ context.Context, _ time.Time, limit int) ([]domain.Broadcast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	n := limit
	if n > len(r.due) {
		n = len(r.due)
	}
	batch := r.due[:n]
	r.due = r.due[n:]
	return batch, nil
}

func (r *memRepo) MarkSent(_ context.Context, id string, sent, total int, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sentMarks[id] = [2]int{sent, total}
	return nil
}

func (r *memRepo) MarkFailed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failedMarks = append(r.failedMarks, id)
	return nil
}

func (r *memRepo) Cancel(_ context.Context, orgID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.broadcasts[id]
	if !ok || b.OrganizationID != orgID {
		return ErrNotFound
	}
	if b.Status != domain.BroadcastScheduled {
		return ErrNotCancellable
	}
	b.Status = domain.BroadcastCancelled
	return nil
}

func (r *memRepo) SubscribedContacts(_ context.Context, audienceID string) ([]domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.contactsErr[audienceID]; err != nil {
		return nil, err
	}
	var subs []domain.Contact
	for _, c := range r.contacts[audienceID] {
		if c.Subscribed {
			subs = append(subs, c)
		}
	}
	return subs, nil
}

func (r *memRepo) InsertEmail(_ context.Context, em *domain.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, *em)
	return nil
}

func (r *memRepo) UpdateEmailOutcome(_ context.Context, id string, status domain.EmailStatus, msgID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[id] = outcome{status: status, msgID: msgID, errMsg: errMsg}
	return nil
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []mailer.Message
	failFor map[string]error // keyed by first To address
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) (*mailer.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(msg.To) > 0 {
		if err, ok := m.failFor[msg.To[0]]; ok {
			return nil, err
		}
	}
	m.sent = append(m.sent, msg)
	return &mailer.Result{MessageID: "ses-" + msg.To[0]}, nil
}

type fakeUsage struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *fakeUsage) RecordSent(_ context.Context, orgID string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[orgID] += n
	return nil
}

func dueBroadcast(id, org, audience string) domain.Broadcast {
	return domain.Broadcast{
		ID:             id,
		OrganizationID: org,
		AudienceID:     audience,
		Subject:        "Hello {{first_name}}",
		FromEmail:      "news@acme.com",
		FromName:       "Acme",
		HTMLContent:    "<p>Hi {{first_name}}, <a href=\"{{unsubscribe_url}}\">unsubscribe</a></p>",
		Status:         domain.BroadcastSending,
	}
}

func TestRunExpandsSubscribedContactsOnly(t *testing.T) {
	repo := newMemRepo()
	repo.due = []domain.Broadcast{dueBroadcast("bc_1", "org_1", "aud_1")}
	repo.contacts["aud_1"] = []domain.Contact{
		{ID: "ct_1", Email: "a@example.com", FirstName: "Ann", Subscribed: true},
		{ID: "ct_2", Email: "b@example.com", FirstName: "Bob", Subscribed: true},
		{ID: "ct_3", Email: "c@example.com", FirstName: "Cat", Subscribed: false},
		{ID: "ct_4", Email: "d@example.com", FirstName: "Dan", Subscribed: true},
	}
	fm := &fakeMailer{}
	fu := &fakeUsage{}
	d := NewDispatcher(repo, fm, fu, "https://app.test", 10, 0)

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Processed != 1 {
		t.Fatalf("processed %d, want 1", res.Processed)
	}
	r := res.Results[0]
	if r.SentCount != 3 || r.TotalRecipients != 3 {
		t.Errorf("counts = %d/%d, want 3/3", r.SentCount, r.TotalRecipients)
	}
	if len(repo.emails) != 3 {
		t.Fatalf("expanded %d emails, want 3", len(repo.emails))
	}
	for _, em := range repo.emails {
		if em.ToEmails[0] == "c@example.com" {
			t.Error("unsubscribed contact received an email")
		}
		if em.BroadcastID == nil || *em.BroadcastID != "bc_1" {
			t.Errorf("email %s not linked to broadcast", em.ID)
		}
	}
	if got := repo.sentMarks["bc_1"]; got != [2]int{3, 3} {
		t.Errorf("MarkSent counters = %v", got)
	}
	if fu.counts["org_1"] != 3 {
		t.Errorf("usage counted %d, want 3", fu.counts["org_1"])
	}
}

func TestRunRendersPersonalization(t *testing.T) {
	repo := newMemRepo()
	repo.due = []domain.Broadcast{dueBroadcast("bc_1", "org_1", "aud_1")}
	repo.contacts["aud_1"] = []domain.Contact{
		{ID: "ct_1", Email: "ann@example.com", FirstName: "Ann", Subscribed: true},
	}
	fm := &fakeMailer{}
	d := NewDispatcher(repo, fm, &fakeUsage{}, "https://app.test", 10, 0)

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(fm.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(fm.sent))
	}
	msg := fm.sent[0]
	if msg.Subject != "Hello Ann" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "Hi Ann,") {
		t.Errorf("html not personalized: %q", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "https://app.test/unsubscribe/") {
		t.Errorf("html missing unsubscribe link: %q", msg.HTML)
	}
	if msg.From != "Acme <news@acme.com>" {
		t.Errorf("from = %q", msg.From)
	}
}

func TestRunIsolatesContactFailures(t *testing.T) {
	repo := newMemRepo()
	repo.due = []domain.Broadcast{dueBroadcast("bc_1", "org_1", "aud_1")}
	repo.contacts["aud_1"] = []domain.Contact{
		{ID: "ct_1", Email: "a@example.com", Subscribed: true},
		{ID: "ct_2", Email: "bad@example.com", Subscribed: true},
		{ID: "ct_3", Email: "c@example.com", Subscribed: true},
	}
	fm := &fakeMailer{failFor: map[string]error{"bad@example.com": errors.New("throttled")}}
	fu := &fakeUsage{}
	d := NewDispatcher(repo, fm, fu, "https://app.test", 10, 0)

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	r := res.Results[0]
	if r.SentCount != 2 || r.TotalRecipients != 3 {
		t.Errorf("counts = %d/%d, want 2/3", r.SentCount, r.TotalRecipients)
	}
	if r.Status != string(domain.BroadcastSent) {
		t.Errorf("status = %q, broadcast should complete despite contact failure", r.Status)
	}

	// The failed contact's email row records the error
	var failedSeen, deliveredSeen int
	for _, em := range repo.emails {
		o := repo.outcomes[em.ID]
		switch o.status {
		case domain.EmailFailed:
			failedSeen++
			if !strings.Contains(o.errMsg, "throttled") {
				t.Errorf("failure message = %q", o.errMsg)
			}
		case domain.EmailDelivered:
			deliveredSeen++
			if o.msgID == "" {
				t.Error("delivered email missing provider message id")
			}
		}
	}
	if failedSeen != 1 || deliveredSeen != 2 {
		t.Errorf("outcomes failed=%d delivered=%d, want 1/2", failedSeen, deliveredSeen)
	}
	if fu.counts["org_1"] != 2 {
		t.Errorf("usage counted %d, want 2", fu.counts["org_1"])
	}
}

func TestRunMarksBroadcastFailedOnContactQueryError(t *testing.T) {
	repo := newMemRepo()
	repo.due = []domain.Broadcast{
		dueBroadcast("bc_1", "org_1", "aud_bad"),
		dueBroadcast("bc_2", "org_1", "aud_ok"),
	}
	repo.contactsErr["aud_bad"] = errors.New("db timeout")
	repo.contacts["aud_ok"] = []domain.Contact{
		{ID: "ct_1", Email: "a@example.com", Subscribed: true},
	}
	d := NewDispatcher(repo, &fakeMailer{}, &fakeUsage{}, "https://app.test", 10, 0)

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run should not fail on a per-broadcast error: %v", err)
	}
	if res.Results[0].Status != string(domain.BroadcastFailed) {
		t.Errorf("bc_1 status = %q", res.Results[0].Status)
	}
	if len(repo.failedMarks) != 1 || repo.failedMarks[0] != "bc_1" {
		t.Errorf("failedMarks = %v", repo.failedMarks)
	}
	// The second broadcast still runs
	if res.Results[1].Status != string(domain.BroadcastSent) || res.Results[1].SentCount != 1 {
		t.Errorf("bc_2 result = %+v", res.Results[1])
	}
}

func TestRunRespectsBatchSize(t *testing.T) {
	repo := newMemRepo()
	repo.due = []domain.Broadcast{
		dueBroadcast("bc_1", "org_1", "aud_1"),
		dueBroadcast("bc_2", "org_1", "aud_1"),
		dueBroadcast("bc_3", "org_1", "aud_1"),
	}
	d := NewDispatcher(repo, &fakeMailer{}, &fakeUsage{}, "https://app.test", 2, 0)

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 2 {
		t.Errorf("processed %d, want 2", res.Processed)
	}
	if len(repo.due) != 1 {
		t.Errorf("%d broadcasts left unclaimed, want 1", len(repo.due))
	}
}

func TestCancel(t *testing.T) {
	repo := newMemRepo()
	repo.broadcasts["bc_1"] = &domain.Broadcast{
		ID: "bc_1", OrganizationID: "org_1", Status: domain.BroadcastScheduled,
	}
	repo.broadcasts["bc_2"] = &domain.Broadcast{
		ID: "bc_2", OrganizationID: "org_1", Status: domain.BroadcastSending,
	}
	d := NewDispatcher(repo, &fakeMailer{}, &fakeUsage{}, "https://app.test", 10, 0)

	if err := d.Cancel(context.Background(), "org_1", "bc_1"); err != nil {
		t.Errorf("cancel scheduled: %v", err)
	}
	if repo.broadcasts["bc_1"].Status != domain.BroadcastCancelled {
		t.Errorf("bc_1 status = %q", repo.broadcasts["bc_1"].Status)
	}

	if err := d.Cancel(context.Background(), "org_1", "bc_2"); !errors.Is(err, ErrNotCancellable) {
		t.Errorf("cancel sending: err = %v, want ErrNotCancellable", err)
	}
	if err := d.Cancel(context.Background(), "org_1", "bc_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cancel missing: err = %v, want ErrNotFound", err)
	}
	// Wrong organization must not see the broadcast
	if err := d.Cancel(context.Background(), "org_2", "bc_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cancel cross-org: err = %v, want ErrNotFound", err)
	}
}
