package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/events"
	"github.com/phrazzld/jiralike-api/internal/platform/logger"
	"github.com/phrazzld/jiralike-api/internal/store"
)

// sniffLen is how much of an upload is buffered to detect its MIME type.
const sniffLen = 3072

// FileStorage holds the bytes of task attachments by name.
// Open must return an error matching fs.ErrNotExist for unknown names.
type FileStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Upload is a file sent by a client.
type Upload struct {
	Name     string
	MimeType string
	Content  io.Reader
}

// TaskService implements the task lifecycle: creation, discussion, closing,
// deletion and the single attachment. Every mutation runs in one
// transaction and, once committed, emits a notification for the task's
// subscribers.
type TaskService interface {
	// CreateTask creates an open task owned by actor and subscribes actor.
	CreateTask(ctx context.Context, actor *domain.User, headline, description string) (*domain.Task, error)

	// GetTask returns a task with its comments and attachment.
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.TaskDetail, error)

	// ListTasks returns tasks matching filter, newest first.
	ListTasks(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)

	// ListComments returns the thread of a task, oldest first.
	ListComments(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error)

	// AddComment appends to an open task's thread and subscribes actor.
	AddComment(ctx context.Context, actor *domain.User, taskID uuid.UUID, text string) (*domain.Comment, error)

	// CloseTask closes a task. Only the owner may close it.
	CloseTask(ctx context.Context, actor *domain.User, taskID uuid.UUID) (*domain.Task, error)

	// DeleteTask removes a task and everything attached to it. Superusers only.
	DeleteTask(ctx context.Context, actor *domain.User, taskID uuid.UUID) error

	// AttachFile stores upload as the task's attachment, replacing any
	// previous one, and subscribes actor.
	AttachFile(ctx context.Context, actor *domain.User, taskID uuid.UUID, upload Upload) (*domain.TaskFile, error)

	// RetrieveFile opens the task's attachment and subscribes actor.
	// The caller must close the returned reader.
	RetrieveFile(ctx context.Context, actor *domain.User, taskID uuid.UUID) (*domain.TaskFile, io.ReadCloser, error)
}

type taskServiceImpl struct {
	tx       store.TxManager
	tasks    store.TaskStore
	comments store.CommentStore
	files    store.TaskFileStore
	registry *SubscriptionRegistry
	storage  FileStorage
	emitter  events.EventEmitter
	logger   *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	tx store.TxManager,
	tasks store.TaskStore,
	comments store.CommentStore,
	files store.TaskFileStore,
	subs store.SubscriptionStore,
	storage FileStorage,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	switch {
	case tx == nil:
		return nil, domain.NewValidationError("tx", "cannot be nil", domain.ErrValidation)
	case tasks == nil:
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	case comments == nil:
		return nil, domain.NewValidationError("comments", "cannot be nil", domain.ErrValidation)
	case files == nil:
		return nil, domain.NewValidationError("files", "cannot be nil", domain.ErrValidation)
	case subs == nil:
		return nil, domain.NewValidationError("subs", "cannot be nil", domain.ErrValidation)
	case storage == nil:
		return nil, domain.NewValidationError("storage", "cannot be nil", domain.ErrValidation)
	case emitter == nil:
		return nil, domain.NewValidationError("emitter", "cannot be nil", domain.ErrValidation)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		tx:       tx,
		tasks:    tasks,
		comments: comments,
		files:    files,
		registry: NewSubscriptionRegistry(subs, logger),
		storage:  storage,
		emitter:  emitter,
		logger:   logger.With(slog.String("component", "task_service")),
	}, nil
}

// txStores is the set of stores bound to one transaction.
type txStores struct {
	tasks    store.TaskStore
	comments store.CommentStore
	files    store.TaskFileStore
	registry *SubscriptionRegistry
}

func (s *taskServiceImpl) bind(tx *sql.Tx) txStores {
	return txStores{
		tasks:    s.tasks.WithTx(tx),
		comments: s.comments.WithTx(tx),
		files:    s.files.WithTx(tx),
		registry: s.registry.WithTx(tx),
	}
}

// translate converts store errors into service errors. Errors the API
// already understands pass through; anything else is wrapped with op.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrTaskNotFound):
		return ErrTaskNotFound
	case errors.Is(err, store.ErrTaskFileNotFound):
		return ErrFileNotFound
	case isExpected(err):
		return err
	default:
		return NewTaskServiceError(op, "unexpected failure", err)
	}
}

func requireActor(actor *domain.User) error {
	if actor == nil || actor.ID == uuid.Nil {
		return domain.ErrUnauthorized
	}
	return nil
}

// notify emits n after the change that produced it has committed.
// Delivery is fire-and-forget: failures are logged, never returned.
func (s *taskServiceImpl) notify(ctx context.Context, n domain.Notification) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(n.Recipients) == 0 {
		log.Debug("no recipients, skipping notification",
			slog.String("task_id", n.TaskID.String()),
			slog.String("kind", string(n.Kind)))
		return
	}

	if err := s.emitter.EmitEvent(ctx, events.NewNotificationEvent(n)); err != nil {
		log.Warn("failed to emit notification",
			slog.String("task_id", n.TaskID.String()),
			slog.String("kind", string(n.Kind)),
			slog.String("error", err.Error()))
	}
}

// CreateTask implements TaskService.CreateTask
func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	actor *domain.User,
	headline, description string,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := requireActor(actor); err != nil {
		return nil, err
	}

	task, err := domain.NewTask(actor.ID, headline, description)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		st := s.bind(tx)
		if err := st.tasks.Create(ctx, task); err != nil {
			return err
		}
		_, err := st.registry.EnsureSubscribed(ctx, task.ID, actor.Email)
		return err
	})
	if err != nil {
		log.Error("failed to create task",
			slog.String("user_id", actor.ID.String()),
			slog.String("error", err.Error()))
		return nil, translate("create_task", err)
	}

	task.OwnerUsername = actor.Username
	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", actor.ID.String()))

	s.notify(ctx, domain.Notification{
		TaskID:     task.ID,
		Kind:       domain.NotificationTaskCreated,
		Recipients: domain.MergeRecipients([]string{actor.Email}),
	})
	return task, nil
}

// GetTask implements TaskService.GetTask
func (s *taskServiceImpl) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.TaskDetail, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, translate("get_task", err)
	}

	comments, err := s.comments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, translate("get_task", err)
	}

	file, err := s.files.GetByTask(ctx, taskID)
	if err != nil {
		if !errors.Is(err, store.ErrTaskFileNotFound) {
			return nil, translate("get_task", err)
		}
		file = nil
	}

	return &domain.TaskDetail{Task: *task, Comments: comments, File: file}, nil
}

// ListTasks implements TaskService.ListTasks
func (s *taskServiceImpl) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", "must be open or closed", domain.ErrInvalidTaskStatus)
	}

	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, translate("list_tasks", err)
	}
	return tasks, nil
}

// ListComments implements TaskService.ListComments
func (s *taskServiceImpl) ListComments(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, translate("list_comments", err)
	}

	comments, err := s.comments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, translate("list_comments", err)
	}
	return comments, nil
}

// AddComment implements TaskService.AddComment
func (s *taskServiceImpl) AddComment(
	ctx context.Context,
	actor *domain.User,
	taskID uuid.UUID,
	text string,
) (*domain.Comment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		comment    *domain.Comment
		recipients []string
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		st := s.bind(tx)

		task, err := st.tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.IsOpen() {
			return ErrTaskClosed
		}

		comment, err = domain.NewComment(task.ID, actor.ID, text)
		if err != nil {
			return err
		}
		if err := st.comments.Create(ctx, comment); err != nil {
			return err
		}
		if _, err := st.registry.EnsureSubscribed(ctx, task.ID, actor.Email); err != nil {
			return err
		}

		recipients, err = st.registry.Subscribers(ctx, task.ID)
		return err
	})
	if err != nil {
		log.Debug("failed to add comment",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
		return nil, translate("add_comment", err)
	}

	comment.OwnerUsername = actor.Username
	s.notify(ctx, domain.Notification{
		TaskID:     taskID,
		Kind:       domain.NotificationCommentAdded,
		Recipients: recipients,
	})
	return comment, nil
}

// CloseTask implements TaskService.CloseTask
func (s *taskServiceImpl) CloseTask(
	ctx context.Context,
	actor *domain.User,
	taskID uuid.UUID,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		task       *domain.Task
		recipients []string
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		st := s.bind(tx)

		var err error
		task, err = st.tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.IsOwnedBy(actor.ID) {
			return ErrNotTaskOwner
		}
		if err := task.Close(); err != nil {
			if errors.Is(err, domain.ErrTaskAlreadyClosed) {
				return ErrTaskAlreadyClosed
			}
			return err
		}
		if err := st.tasks.UpdateStatus(ctx, task); err != nil {
			return err
		}
		if _, err := st.registry.EnsureSubscribed(ctx, task.ID, actor.Email); err != nil {
			return err
		}

		recipients, err = st.registry.Subscribers(ctx, task.ID)
		return err
	})
	if err != nil {
		log.Debug("failed to close task",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
		return nil, translate("close_task", err)
	}

	log.Info("task closed", slog.String("task_id", taskID.String()))
	s.notify(ctx, domain.Notification{
		TaskID:     taskID,
		Kind:       domain.NotificationTaskClosed,
		Recipients: recipients,
	})
	return task, nil
}

// DeleteTask implements TaskService.DeleteTask
func (s *taskServiceImpl) DeleteTask(ctx context.Context, actor *domain.User, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsSuperuser {
		return ErrNotSuperuser
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Delete(ctx, taskID)
	})
	if err != nil {
		return translate("delete_task", err)
	}

	log.Info("task deleted",
		slog.String("task_id", taskID.String()),
		slog.String("user_id", actor.ID.String()))
	return nil
}

// detectMimeType buffers the head of r and returns its MIME type together
// with a reader that still yields the full content.
func detectMimeType(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// AttachFile implements TaskService.AttachFile
func (s *taskServiceImpl) AttachFile(
	ctx context.Context,
	actor *domain.User,
	taskID uuid.UUID,
	upload Upload,
) (*domain.TaskFile, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, translate("attach_file", err)
	}

	name := domain.SanitizeFileName(upload.Name)
	if name == "" {
		return nil, domain.NewValidationError("file", "must have a name", domain.ErrValidation)
	}
	if upload.Content == nil {
		return nil, domain.NewValidationError("file", "is required", domain.ErrValidation)
	}

	mimeType := upload.MimeType
	content := upload.Content
	if mimeType == "" || mimeType == domain.DefaultMimeType || len(mimeType) > domain.MaxMimeTypeLength {
		detected, r, err := detectMimeType(upload.Content)
		if err != nil {
			return nil, NewTaskServiceError("attach_file", "failed to read upload", err)
		}
		mimeType, content = detected, r
	}

	// Size is known only after the write.
	file, err := domain.NewTaskFile(taskID, actor.ID, name, mimeType, 0)
	if err != nil {
		return nil, err
	}

	file.Size, err = s.storage.Save(ctx, name, content)
	if err != nil {
		log.Error("failed to store file",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
		return nil, NewTaskServiceError("attach_file", "failed to store file", err)
	}

	var recipients []string
	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		st := s.bind(tx)

		if _, err := st.tasks.GetForUpdate(ctx, taskID); err != nil {
			return err
		}
		if err := st.files.Upsert(ctx, file); err != nil {
			return err
		}
		if _, err := st.registry.EnsureSubscribed(ctx, taskID, actor.Email); err != nil {
			return err
		}

		var err error
		recipients, err = st.registry.Recipients(ctx, taskID, actor.Email)
		return err
	})
	if err != nil {
		return nil, translate("attach_file", err)
	}

	file.OwnerUsername = actor.Username
	log.Info("file attached",
		slog.String("task_id", taskID.String()),
		slog.String("name", name),
		slog.Int64("size", file.Size))

	s.notify(ctx, domain.Notification{
		TaskID:     taskID,
		Kind:       domain.NotificationFileAttached,
		Recipients: recipients,
	})
	return file, nil
}

// RetrieveFile implements TaskService.RetrieveFile
func (s *taskServiceImpl) RetrieveFile(
	ctx context.Context,
	actor *domain.User,
	taskID uuid.UUID,
) (*domain.TaskFile, io.ReadCloser, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}

	var (
		file       *domain.TaskFile
		content    io.ReadCloser
		recipients []string
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		st := s.bind(tx)

		if _, err := st.tasks.GetByID(ctx, taskID); err != nil {
			return err
		}

		var err error
		file, err = st.files.GetByTask(ctx, taskID)
		if err != nil {
			return err
		}

		if _, err := st.registry.EnsureSubscribed(ctx, taskID, actor.Email); err != nil {
			return err
		}
		recipients, err = st.registry.Recipients(ctx, taskID, actor.Email)
		if err != nil {
			return err
		}

		content, err = s.storage.Open(ctx, file.Name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Warn("attachment record without content",
					slog.String("task_id", taskID.String()),
					slog.String("name", file.Name))
				return ErrFileNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		if content != nil {
			_ = content.Close()
		}
		return nil, nil, translate("retrieve_file", err)
	}

	s.notify(ctx, domain.Notification{
		TaskID:     taskID,
		Kind:       domain.NotificationFileDownloaded,
		Recipients: recipients,
	})
	return file, content, nil
}
