package runner

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/dhcgn/nwsl/content"
	"github.com/dhcgn/nwsl/model"
)

type fakeInbox struct {
	messages []model.Message
	err      error
}

func (f *fakeInbox) ListAllMessages(ctx context.Context) ([]model.Message, error) {
	return f.messages, f.err
}

type fakeOutbox struct {
	calls int
	from  string
	to    []string
	raw   []byte
	err   error
}

func (f *fakeOutbox) SendMessage(ctx context.Context, from string, to []string, raw []byte) error {
	f.calls++
	f.from = from
	f.to = to
	f.raw = raw
	return f.err
}

func subscribeMessages(addrs ...string) []model.Message {
	msgs := make([]model.Message, len(addrs))
	for i, addr := range addrs {
		msgs[i] = model.Message{From: addr, Subject: "subscribe"}
	}
	return msgs
}

var plainPair = content.Pair{Plain: "# Weekly\n\nhello"}

func TestSend_DryRunNeverSends(t *testing.T) {
	tests := []struct {
		name     string
		messages []model.Message
		pair     content.Pair
	}{
		{"with subscribers", subscribeMessages("a@example.com", "b@example.com"), plainPair},
		{"no subscribers", nil, plainPair},
		{"html content", subscribeMessages("a@example.com"), content.Pair{HTML: "<html><h1>T</h1></html>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outbox := &fakeOutbox{}
			r, err := New(&fakeInbox{messages: tt.messages}, outbox, nil, nil, nil)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			report, err := r.Send(context.Background(), tt.pair, Options{
				Sender: "news@example.com",
				DryRun: true,
			})
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if outbox.calls != 0 {
				t.Fatalf("dry run reached the outbox %d time(s)", outbox.calls)
			}
			if report.Sent {
				t.Errorf("dry run reported Sent")
			}
		})
	}
}

func TestSend_NonInteractiveSendsWithoutPrompt(t *testing.T) {
	outbox := &fakeOutbox{}
	confirm := func(string, int) (bool, error) {
		t.Fatal("confirm must not be consulted on non-interactive runs")
		return false, nil
	}

	r, err := New(&fakeInbox{messages: subscribeMessages("a@example.com")}, outbox, nil, confirm, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := r.Send(context.Background(), plainPair, Options{
		Sender:      "Newsletter <news@example.com>",
		Interactive: false,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !report.Sent || outbox.calls != 1 {
		t.Fatalf("expected exactly one send, got sent=%v calls=%d", report.Sent, outbox.calls)
	}
	if outbox.from != "news@example.com" {
		t.Errorf("envelope from = %q, want bare address", outbox.from)
	}
	if !reflect.DeepEqual(outbox.to, []string{"a@example.com"}) {
		t.Errorf("envelope to = %v", outbox.to)
	}
}

func TestSend_InteractiveDeclined(t *testing.T) {
	outbox := &fakeOutbox{}
	confirm := func(string, int) (bool, error) { return false, nil }

	r, err := New(&fakeInbox{messages: subscribeMessages("a@example.com")}, outbox, nil, confirm, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := r.Send(context.Background(), plainPair, Options{
		Sender:      "news@example.com",
		Interactive: true,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if outbox.calls != 0 || report.Sent {
		t.Fatalf("declined send still reached the outbox")
	}
}

func TestSend_InteractiveConfirmed(t *testing.T) {
	outbox := &fakeOutbox{}
	var askedSubject string
	confirm := func(subject string, recipients int) (bool, error) {
		askedSubject = subject
		return true, nil
	}

	r, err := New(&fakeInbox{messages: subscribeMessages("a@example.com")}, outbox, nil, confirm, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := r.Send(context.Background(), plainPair, Options{
		Sender:      "news@example.com",
		Interactive: true,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !report.Sent || outbox.calls != 1 {
		t.Fatalf("confirmed send did not go out")
	}
	// Subject falls back to the derived title.
	if askedSubject != "Weekly" {
		t.Errorf("confirm subject = %q, want %q", askedSubject, "Weekly")
	}
	if !strings.Contains(string(outbox.raw), "Subject: Weekly") {
		t.Errorf("composed message missing derived subject")
	}
}

func TestSend_SubjectOverride(t *testing.T) {
	outbox := &fakeOutbox{}
	r, err := New(&fakeInbox{messages: subscribeMessages("a@example.com")}, outbox, nil, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := r.Send(context.Background(), plainPair, Options{
		Sender:  "news@example.com",
		Subject: "Special Edition",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if report.Subject != "Special Edition" {
		t.Errorf("Subject = %q", report.Subject)
	}
	if !strings.Contains(string(outbox.raw), "Subject: Special Edition") {
		t.Errorf("composed message missing override subject")
	}
}

func TestSend_TruncatedScanSendsPartialSet(t *testing.T) {
	messages := []model.Message{
		{From: "a@example.com", Subject: "subscribe"},
		{From: "garbage", Subject: "subscribe"},
		{From: "b@example.com", Subject: "subscribe"},
	}
	outbox := &fakeOutbox{}
	r, err := New(&fakeInbox{messages: messages}, outbox, nil, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := r.Send(context.Background(), plainPair, Options{Sender: "news@example.com"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !report.ScanHalted {
		t.Errorf("report should flag the truncated scan")
	}
	if !reflect.DeepEqual(outbox.to, []string{"a@example.com"}) {
		t.Errorf("envelope to = %v, want only the pre-halt member", outbox.to)
	}
}

func TestSend_NoSubscribersSkipsSend(t *testing.T) {
	outbox := &fakeOutbox{}
	r, err := New(&fakeInbox{}, outbox, nil, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := r.Send(context.Background(), plainPair, Options{Sender: "news@example.com"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if outbox.calls != 0 || report.Sent {
		t.Fatalf("send attempted with zero subscribers")
	}
}

func TestSend_TransportErrorsSurface(t *testing.T) {
	listErr := errors.New("connection refused")
	r, err := New(&fakeInbox{err: listErr}, &fakeOutbox{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := r.Send(context.Background(), plainPair, Options{Sender: "news@example.com"}); !errors.Is(err, listErr) {
		t.Errorf("Send() error = %v, want wrapped list error", err)
	}

	sendErr := fmt.Errorf("550 rejected")
	r, err = New(&fakeInbox{messages: subscribeMessages("a@example.com")}, &fakeOutbox{err: sendErr}, nil, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := r.Send(context.Background(), plainPair, Options{Sender: "news@example.com"}); !errors.Is(err, sendErr) {
		t.Errorf("Send() error = %v, want wrapped send error", err)
	}
}

func TestSubscribers(t *testing.T) {
	r, err := New(&fakeInbox{messages: []model.Message{
		{From: "a@example.com", Subject: "subscribe"},
		{From: "a@example.com", Subject: "unsubscribe"},
		{From: "b@example.com", Subject: "subscribe"},
	}}, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	set, err := r.Subscribers(context.Background())
	if err != nil {
		t.Fatalf("Subscribers() error = %v", err)
	}
	if !reflect.DeepEqual(set.Addresses(), []string{"b@example.com"}) {
		t.Errorf("Subscribers() = %v", set.Addresses())
	}
}
