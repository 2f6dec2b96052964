package notify_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/events"
	"github.com/phrazzld/jiralike-api/internal/jobs"
	"github.com/phrazzld/jiralike-api/internal/mocks"
	"github.com/phrazzld/jiralike-api/internal/notify"
	"github.com/phrazzld/jiralike-api/internal/platform/filestore"
	"github.com/phrazzld/jiralike-api/internal/platform/logger"
	"github.com/phrazzld/jiralike-api/internal/service"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// taskReaderFunc adapts a function to notify.TaskReader.
type taskReaderFunc func(ctx context.Context, id uuid.UUID) (*domain.TaskDetail, error)

func (f taskReaderFunc) GetTask(ctx context.Context, id uuid.UUID) (*domain.TaskDetail, error) {
	return f(ctx, id)
}

func sampleDetail() *domain.TaskDetail {
	return &domain.TaskDetail{
		Task: domain.Task{
			ID:            uuid.New(),
			Headline:      "Broken login",
			Description:   "Users cannot sign in",
			Status:        domain.TaskStatusOpen,
			OwnerUsername: "alice",
		},
		Comments: []*domain.Comment{
			{Text: "I can reproduce", OwnerUsername: "bob"},
			{Text: "Old note"},
		},
	}
}

func newStorage(t *testing.T) *filestore.Store {
	t.Helper()
	s, err := filestore.New(afero.NewMemMapFs(), "/files", nil)
	require.NoError(t, err)
	return s
}

func TestRender(t *testing.T) {
	detail := sampleDetail()

	subject, body := notify.Render(detail, domain.NotificationCommentAdded)

	assert.Equal(t, "Broken login", subject)
	assert.Equal(t,
		"New comment: Broken login\n\n"+
			"Users cannot sign in\n"+
			"from user alice\n"+
			"\nComments:\n"+
			"I can reproduce from user bob\n"+
			"Old note from user anonymous\n",
		body)
}

func TestRender_WithoutCommentsMentionsAttachment(t *testing.T) {
	detail := sampleDetail()
	detail.Comments = nil
	detail.OwnerUsername = ""
	detail.File = &domain.TaskFile{Name: "trace.log"}

	_, body := notify.Render(detail, domain.NotificationFileAttached)

	assert.True(t, strings.HasPrefix(body, "Attachment added: Broken login\n"))
	assert.Contains(t, body, "from user anonymous\n")
	assert.NotContains(t, body, "Comments:")
	assert.Contains(t, body, "Attachment: trace.log\n")
}

func TestDispatch_OneMessagePerRecipient(t *testing.T) {
	ctx := context.Background()
	detail := sampleDetail()
	storage := newStorage(t)
	_, err := storage.Save(ctx, "trace.log", strings.NewReader("stack"))
	require.NoError(t, err)
	detail.File = &domain.TaskFile{Name: "trace.log", MimeType: "text/plain"}

	transport := &mocks.MockTransport{}
	d := notify.NewDispatcher(taskReaderFunc(func(context.Context, uuid.UUID) (*domain.TaskDetail, error) {
		return detail, nil
	}), storage, transport, "tracker@example.com", nil)

	err = d.Dispatch(ctx, domain.Notification{
		TaskID:     detail.ID,
		Kind:       domain.NotificationFileAttached,
		Recipients: []string{"alice@example.com", "BOB@example.com", "alice@example.com"},
	})
	require.NoError(t, err)

	batches := transport.Batches()
	require.Len(t, batches, 1)
	msgs := batches[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, "alice@example.com", msgs[0].To)
	assert.Equal(t, "bob@example.com", msgs[1].To)
	for _, m := range msgs {
		assert.Equal(t, "tracker@example.com", m.From)
		assert.Equal(t, "Broken login", m.Subject)
		assert.Equal(t, msgs[0].Body, m.Body)
		require.NotNil(t, m.Attachment)
		assert.Equal(t, "trace.log", m.Attachment.Name)
		assert.Equal(t, "text/plain", m.Attachment.MimeType)
		assert.Equal(t, []byte("stack"), m.Attachment.Content)
	}
}

func TestDispatch_SkipsCases(t *testing.T) {
	ctx := context.Background()

	t.Run("no recipients", func(t *testing.T) {
		transport := &mocks.MockTransport{}
		d := notify.NewDispatcher(taskReaderFunc(func(context.Context, uuid.UUID) (*domain.TaskDetail, error) {
			t.Fatal("task should not be loaded")
			return nil, nil
		}), newStorage(t), transport, "from@example.com", nil)

		require.NoError(t, d.Dispatch(ctx, domain.Notification{TaskID: uuid.New()}))
		assert.Empty(t, transport.Batches())
	})

	t.Run("task deleted", func(t *testing.T) {
		transport := &mocks.MockTransport{}
		d := notify.NewDispatcher(taskReaderFunc(func(context.Context, uuid.UUID) (*domain.TaskDetail, error) {
			return nil, service.ErrTaskNotFound
		}), newStorage(t), transport, "from@example.com", nil)

		err := d.Dispatch(ctx, domain.Notification{TaskID: uuid.New(), Recipients: []string{"a@example.com"}})
		require.NoError(t, err)
		assert.Empty(t, transport.Batches())
	})

	t.Run("attachment content missing", func(t *testing.T) {
		detail := sampleDetail()
		detail.File = &domain.TaskFile{Name: "gone.bin"}
		transport := &mocks.MockTransport{}
		d := notify.NewDispatcher(taskReaderFunc(func(context.Context, uuid.UUID) (*domain.TaskDetail, error) {
			return detail, nil
		}), newStorage(t), transport, "from@example.com", nil)

		err := d.Dispatch(ctx, domain.Notification{TaskID: detail.ID, Recipients: []string{"a@example.com"}})
		require.NoError(t, err)
		msgs := transport.Messages()
		require.Len(t, msgs, 1)
		assert.Nil(t, msgs[0].Attachment)
	})
}

func TestDispatch_Errors(t *testing.T) {
	ctx := context.Background()
	n := domain.Notification{TaskID: uuid.New(), Kind: domain.NotificationTaskClosed, Recipients: []string{"a@example.com"}}

	loadErr := errors.New("db down")
	d := notify.NewDispatcher(taskReaderFunc(func(context.Context, uuid.UUID) (*domain.TaskDetail, error) {
		return nil, loadErr
	}), newStorage(t), &mocks.MockTransport{}, "from@example.com", nil)
	assert.ErrorIs(t, d.Dispatch(ctx, n), loadErr)

	sendErr := errors.New("smtp unavailable")
	d = notify.NewDispatcher(taskReaderFunc(func(context.Context, uuid.UUID) (*domain.TaskDetail, error) {
		return sampleDetail(), nil
	}), newStorage(t), &mocks.MockTransport{Err: sendErr}, "from@example.com", nil)
	assert.ErrorIs(t, d.Dispatch(ctx, n), sendErr)
}

func TestNewDispatcher_NilDependenciesPanic(t *testing.T) {
	assert.Panics(t, func() {
		notify.NewDispatcher(nil, nil, nil, "", nil)
	})
}

// End to end: service emits, handler queues, worker dispatches.
func TestQueueingHandler_DeliversThroughWorkerPool(t *testing.T) {
	ctx := context.Background()
	log, _ := logger.GetTestLogger(t)

	mem := mocks.NewMemoryStore()
	storage := newStorage(t)
	emitter := events.NewInMemoryEventEmitter(log)
	svc, err := service.NewTaskService(mocks.NewMockTxManager(mem), mem.Tasks(), mem.Comments(),
		mem.Files(), mem.Subscriptions(), storage, emitter, log)
	require.NoError(t, err)

	transport := &mocks.MockTransport{}
	dispatcher := notify.NewDispatcher(svc, storage, transport, "tracker@example.com", log)

	queue := jobs.NewQueue(10, log)
	pool := jobs.NewWorkerPool(queue, jobs.WorkerPoolConfig{WorkerCount: 1, JobTimeout: time.Second}, log)
	emitter.RegisterHandler(notify.NewQueueingHandler(queue, dispatcher, log))
	pool.Start()

	alice, err := domain.NewUser("alice@example.com", "alice", "password123456")
	require.NoError(t, err)
	require.NoError(t, mem.Users().Create(ctx, alice))

	task, err := svc.CreateTask(ctx, alice, "Broken login", "Users cannot sign in")
	require.NoError(t, err)

	queue.Close()
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Stop(stopCtx))

	msgs := transport.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice@example.com", msgs[0].To)
	assert.Equal(t, task.Headline, msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "Task created: Broken login")
	assert.Contains(t, msgs[0].Body, "from user alice")
}

func TestQueueingHandler_FullQueue(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	d := notify.NewDispatcher(taskReaderFunc(func(context.Context, uuid.UUID) (*domain.TaskDetail, error) {
		return sampleDetail(), nil
	}), newStorage(t), &mocks.MockTransport{}, "from@example.com", nil)
	h := notify.NewQueueingHandler(queue, d, nil)

	event := events.NewNotificationEvent(domain.Notification{TaskID: uuid.New(), Recipients: []string{"a@example.com"}})
	require.NoError(t, h.HandleEvent(context.Background(), event))

	err := h.HandleEvent(context.Background(), event)
	assert.ErrorIs(t, err, jobs.ErrQueueFull)
}
