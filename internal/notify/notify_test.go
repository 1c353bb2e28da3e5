package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/eventcrm/apiserver/internal/mq"
	"github.com/eventcrm/apiserver/types"
)

func TestRenderWelcome(t *testing.T) {
	subject, body, err := renderWelcome("Alice", types.RoleSupplier)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Welcome to Event Management CRM" {
		t.Fatalf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "Hello Alice,") {
		t.Fatalf("body must greet by first name: %s", body)
	}
	if !strings.Contains(body, "<strong>Supplier</strong>") {
		t.Fatalf("body must name the role: %s", body)
	}
}

func TestRenderPasswordReset(t *testing.T) {
	link := resetURL("http://localhost:5173/", "abc123")
	if link != "http://localhost:5173/reset-password?token=abc123" {
		t.Fatalf("unexpected reset link %q", link)
	}

	subject, body, err := renderPasswordReset("Bob", link)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Password Reset Request - Event Management CRM" {
		t.Fatalf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, `href="http://localhost:5173/reset-password?token=abc123"`) {
		t.Fatalf("body must carry the reset link: %s", body)
	}
	if !strings.Contains(body, "expire in 10 minutes") {
		t.Fatalf("body must state the expiry window: %s", body)
	}
}

func TestResetURLEscapesToken(t *testing.T) {
	link := resetURL("http://app.example.com", "a+b/c")
	if !strings.HasSuffix(link, "token="+"a%2Bb%2Fc") {
		t.Fatalf("token must be query-escaped: %q", link)
	}
}

func TestQueueDispatcherPublishesJobs(t *testing.T) {
	backend := &fakeBackend{}
	dispatcher := NewQueueDispatcher(mq.New(backend), "notifications")
	ctx := context.Background()

	if err := dispatcher.SendWelcome(ctx, "a@b.com", "Alice", types.RoleClient); err != nil {
		t.Fatalf("send welcome: %v", err)
	}
	if err := dispatcher.SendPasswordReset(ctx, "a@b.com", "Alice", "tok-123"); err != nil {
		t.Fatalf("send reset: %v", err)
	}

	if len(backend.published) != 2 {
		t.Fatalf("expected 2 published jobs, got %d", len(backend.published))
	}

	var welcome Job
	if err := json.Unmarshal(backend.published[0].data, &welcome); err != nil {
		t.Fatalf("decode welcome job: %v", err)
	}
	if welcome.Kind != KindWelcome || welcome.To != "a@b.com" || welcome.Role != "Client" {
		t.Fatalf("unexpected welcome job: %+v", welcome)
	}
	if backend.published[0].attrs["kind"] != KindWelcome {
		t.Fatalf("expected kind attribute, got %v", backend.published[0].attrs)
	}

	var reset Job
	if err := json.Unmarshal(backend.published[1].data, &reset); err != nil {
		t.Fatalf("decode reset job: %v", err)
	}
	if reset.Kind != KindPasswordReset || reset.Token != "tok-123" {
		t.Fatalf("unexpected reset job: %+v", reset)
	}
}

func TestQueueDispatcherSurfacesPublishFailure(t *testing.T) {
	backend := &fakeBackend{publishErr: errors.New("broker down")}
	dispatcher := NewQueueDispatcher(mq.New(backend), "notifications")

	if err := dispatcher.SendPasswordReset(context.Background(), "a@b.com", "Alice", "tok"); err == nil {
		t.Fatal("expected the publish failure to surface")
	}
}

func TestWorkerHandle(t *testing.T) {
	sender := &fakeSender{}
	worker := newTestWorker(sender)
	ctx := context.Background()

	job, _ := json.Marshal(Job{Kind: KindPasswordReset, To: "a@b.com", FirstName: "Alice", Token: "tok-123"})
	if err := worker.handle(ctx, mq.Message{ID: "1", Data: job}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(sender.sent))
	}
	if sender.sent[0].to != "a@b.com" {
		t.Fatalf("unexpected recipient %q", sender.sent[0].to)
	}
	if !strings.Contains(sender.sent[0].body, "token=tok-123") {
		t.Fatalf("body must carry the token link: %s", sender.sent[0].body)
	}
}

func TestWorkerDropsMalformedAndUnknownJobs(t *testing.T) {
	sender := &fakeSender{}
	worker := newTestWorker(sender)
	ctx := context.Background()

	if err := worker.handle(ctx, mq.Message{ID: "1", Data: []byte("{not json")}); err != nil {
		t.Fatalf("malformed jobs must be dropped, not retried: %v", err)
	}

	job, _ := json.Marshal(Job{Kind: "sms", To: "a@b.com"})
	if err := worker.handle(ctx, mq.Message{ID: "2", Data: job}); err != nil {
		t.Fatalf("unknown kinds must be dropped, not retried: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("dropped jobs must not be sent, got %d sends", len(sender.sent))
	}
}

func TestWorkerNacksOnSendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp unavailable")}
	worker := newTestWorker(sender)

	job, _ := json.Marshal(Job{Kind: KindWelcome, To: "a@b.com", FirstName: "Alice", Role: "Client"})
	if err := worker.handle(context.Background(), mq.Message{ID: "1", Data: job}); err == nil {
		t.Fatal("a send failure must surface so the broker redelivers")
	}
}

func newTestWorker(sender *fakeSender) *Worker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWorker(mq.New(&fakeBackend{}), "notifications", sender, "http://localhost:5173", logger)
}

type publishedMessage struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakeBackend struct {
	published  []publishedMessage
	publishErr error
}

func (b *fakeBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if b.publishErr != nil {
		return "", b.publishErr
	}
	b.published = append(b.published, publishedMessage{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

func (b *fakeBackend) Subscribe(ctx context.Context, channel string, handler mq.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *fakeBackend) Close() error { return nil }

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (s *fakeSender) Send(to, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}
