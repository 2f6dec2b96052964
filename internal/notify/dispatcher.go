// Package notify turns task notifications into emails: it loads the task as
// it is when the job runs, renders one text for everyone, encloses the
// attachment and sends one message per recipient.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/platform/logger"
	"github.com/phrazzld/jiralike-api/internal/platform/mailer"
	"github.com/phrazzld/jiralike-api/internal/service"
)

// TaskReader loads the task snapshot to render.
type TaskReader interface {
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.TaskDetail, error)
}

// FileOpener reads attachment content by name.
type FileOpener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Dispatcher delivers notifications through a mailer.Transport.
type Dispatcher struct {
	tasks     TaskReader
	files     FileOpener
	transport mailer.Transport
	from      string
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher. from is the sender address.
func NewDispatcher(
	tasks TaskReader,
	files FileOpener,
	transport mailer.Transport,
	from string,
	logger *slog.Logger,
) *Dispatcher {
	if tasks == nil || files == nil || transport == nil {
		panic("dispatcher dependencies cannot be nil") // ALLOW-PANIC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		tasks:     tasks,
		files:     files,
		transport: transport,
		from:      from,
		logger:    logger.With(slog.String("component", "notification_dispatcher")),
	}
}

// Dispatch sends n. A task deleted before the job ran is skipped, and a
// missing attachment only drops the enclosure. Other failures are returned
// for the caller to log; nothing is retried.
func (d *Dispatcher) Dispatch(ctx context.Context, n domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, d.logger).With(
		slog.String("task_id", n.TaskID.String()),
		slog.String("kind", string(n.Kind)))

	recipients := domain.MergeRecipients(n.Recipients)
	if len(recipients) == 0 {
		log.Debug("notification has no recipients")
		return nil
	}

	detail, err := d.tasks.GetTask(ctx, n.TaskID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			log.Warn("task no longer exists, dropping notification")
			return nil
		}
		return fmt.Errorf("failed to load task: %w", err)
	}

	subject, body := Render(detail, n.Kind)

	attachment, err := d.attachment(ctx, detail.File)
	if err != nil {
		return err
	}
	if detail.File != nil && attachment == nil {
		log.Warn("attachment content missing, sending without it",
			slog.String("name", detail.File.Name))
	}

	msgs := make([]*mailer.Message, 0, len(recipients))
	for _, to := range recipients {
		msgs = append(msgs, &mailer.Message{
			From:       d.from,
			To:         to,
			Subject:    subject,
			Body:       body,
			Attachment: attachment,
		})
	}

	if err := d.transport.Send(ctx, msgs); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	log.Info("notification sent", slog.Int("recipient_count", len(msgs)))
	return nil
}

// attachment reads the task's file. It returns nil when there is no file or
// its content is gone.
func (d *Dispatcher) attachment(ctx context.Context, file *domain.TaskFile) (*mailer.Attachment, error) {
	if file == nil {
		return nil, nil
	}

	r, err := d.files.Open(ctx, file.Name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	defer func() { _ = r.Close() }()

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}

	return &mailer.Attachment{
		Name:     file.Name,
		MimeType: file.MimeType,
		Content:  content,
	}, nil
}
