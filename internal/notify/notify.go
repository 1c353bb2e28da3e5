// Package notify dispatches account emails. Dispatch is decoupled from
// credential state: a failed send never rolls back a committed store write.
package notify

import (
	"context"
	"encoding/json"

	"github.com/eventcrm/apiserver/internal/mailer"
	"github.com/eventcrm/apiserver/internal/mq"
	"github.com/eventcrm/apiserver/types"
)

// Job kinds carried over the notification channel.
const (
	KindWelcome       = "welcome"
	KindPasswordReset = "password_reset"
)

// Job is the broker payload for one outbound email.
type Job struct {
	Kind      string `json:"kind"`
	To        string `json:"to"`
	FirstName string `json:"firstName"`
	Role      string `json:"role,omitempty"`
	Token     string `json:"token,omitempty"`
}

// Dispatcher delivers account notifications. Implementations either send
// directly over SMTP or hand the job to a broker for the notifier worker.
type Dispatcher interface {
	SendWelcome(ctx context.Context, to, firstName string, role types.Role) error
	SendPasswordReset(ctx context.Context, to, firstName, resetToken string) error
}

// SMTPDispatcher renders and sends emails in-process.
type SMTPDispatcher struct {
	sender      mailer.Sender
	frontendURL string
}

func NewSMTPDispatcher(sender mailer.Sender, frontendURL string) *SMTPDispatcher {
	return &SMTPDispatcher{sender: sender, frontendURL: frontendURL}
}

func (d *SMTPDispatcher) SendWelcome(ctx context.Context, to, firstName string, role types.Role) error {
	subject, body, err := renderWelcome(firstName, role)
	if err != nil {
		return err
	}
	return d.sender.Send(to, subject, body)
}

func (d *SMTPDispatcher) SendPasswordReset(ctx context.Context, to, firstName, resetToken string) error {
	subject, body, err := renderPasswordReset(firstName, resetURL(d.frontendURL, resetToken))
	if err != nil {
		return err
	}
	return d.sender.Send(to, subject, body)
}

// QueueDispatcher publishes jobs to the notification channel. A publish
// failure is the dispatch failure surfaced to callers.
type QueueDispatcher struct {
	queue   *mq.MQ
	channel string
}

func NewQueueDispatcher(queue *mq.MQ, channel string) *QueueDispatcher {
	return &QueueDispatcher{queue: queue, channel: channel}
}

func (d *QueueDispatcher) SendWelcome(ctx context.Context, to, firstName string, role types.Role) error {
	return d.publish(ctx, Job{Kind: KindWelcome, To: to, FirstName: firstName, Role: string(role)})
}

func (d *QueueDispatcher) SendPasswordReset(ctx context.Context, to, firstName, resetToken string) error {
	return d.publish(ctx, Job{Kind: KindPasswordReset, To: to, FirstName: firstName, Token: resetToken})
}

func (d *QueueDispatcher) publish(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = d.queue.Publish(ctx, d.channel, data, map[string]string{"kind": job.Kind})
	return err
}
