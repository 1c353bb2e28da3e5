package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/eventcrm/apiserver/internal/mailer"
	"github.com/eventcrm/apiserver/internal/mq"
	"github.com/eventcrm/apiserver/types"
)

// Worker consumes queued notification jobs and sends them over SMTP.
type Worker struct {
	queue       *mq.MQ
	channel     string
	sender      mailer.Sender
	frontendURL string
	logger      *slog.Logger
}

func NewWorker(queue *mq.MQ, channel string, sender mailer.Sender, frontendURL string, logger *slog.Logger) *Worker {
	return &Worker{
		queue:       queue,
		channel:     channel,
		sender:      sender,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// Run blocks consuming the notification channel until the context ends.
// A handler error nacks the message so the broker can redeliver it.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("notifier worker started", "channel", w.channel)
	return w.queue.Subscribe(ctx, w.channel, w.handle)
}

func (w *Worker) handle(ctx context.Context, msg mq.Message) error {
	var job Job
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		// Undecodable jobs can never succeed; drop them.
		w.logger.Error("dropping malformed notification job", "id", msg.ID, "err", err)
		return nil
	}

	var (
		subject, body string
		err           error
	)
	switch job.Kind {
	case KindWelcome:
		subject, body, err = renderWelcome(job.FirstName, types.Role(job.Role))
	case KindPasswordReset:
		subject, body, err = renderPasswordReset(job.FirstName, resetURL(w.frontendURL, job.Token))
	default:
		w.logger.Error("dropping notification job of unknown kind", "id", msg.ID, "kind", job.Kind)
		return nil
	}
	if err != nil {
		return fmt.Errorf("render %s notification: %w", job.Kind, err)
	}

	if err := w.sender.Send(job.To, subject, body); err != nil {
		w.logger.Error("send notification failed", "id", msg.ID, "kind", job.Kind, "err", err)
		return err
	}
	w.logger.Info("notification sent", "id", msg.ID, "kind", job.Kind)
	return nil
}
