package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// MemoryStore is an in-memory implementation of every store interface with
// the same observable semantics as the Postgres stores: unique emails,
// cascading task deletes, owner anonymization on user delete and a unique
// (task, email) subscription pair. It is safe for concurrent use.
//
// Fail lets a test inject an error for a named operation such as
// "tasks.Create" or "subscriptions.Add".
type MemoryStore struct {
	mu sync.Mutex

	users         map[uuid.UUID]domain.User
	tasks         map[uuid.UUID]domain.Task
	comments      map[uuid.UUID][]domain.Comment
	files         map[uuid.UUID]domain.TaskFile
	subscriptions map[uuid.UUID][]domain.Subscription

	Fail func(op string) error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[uuid.UUID]domain.User),
		tasks:         make(map[uuid.UUID]domain.Task),
		comments:      make(map[uuid.UUID][]domain.Comment),
		files:         make(map[uuid.UUID]domain.TaskFile),
		subscriptions: make(map[uuid.UUID][]domain.Subscription),
	}
}

func (m *MemoryStore) fail(op string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op)
}

// Users returns the store.UserStore view.
func (m *MemoryStore) Users() store.UserStore { return memUsers{m} }

// Tasks returns the store.TaskStore view.
func (m *MemoryStore) Tasks() store.TaskStore { return memTasks{m} }

// Comments returns the store.CommentStore view.
func (m *MemoryStore) Comments() store.CommentStore { return memComments{m} }

// Files returns the store.TaskFileStore view.
func (m *MemoryStore) Files() store.TaskFileStore { return memFiles{m} }

// Subscriptions returns the store.SubscriptionStore view.
func (m *MemoryStore) Subscriptions() store.SubscriptionStore { return memSubscriptions{m} }

// snapshot is a deep copy of the store contents.
type snapshot struct {
	users         map[uuid.UUID]domain.User
	tasks         map[uuid.UUID]domain.Task
	comments      map[uuid.UUID][]domain.Comment
	files         map[uuid.UUID]domain.TaskFile
	subscriptions map[uuid.UUID][]domain.Subscription
}

func (m *MemoryStore) snapshot() snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := snapshot{
		users:         make(map[uuid.UUID]domain.User, len(m.users)),
		tasks:         make(map[uuid.UUID]domain.Task, len(m.tasks)),
		comments:      make(map[uuid.UUID][]domain.Comment, len(m.comments)),
		files:         make(map[uuid.UUID]domain.TaskFile, len(m.files)),
		subscriptions: make(map[uuid.UUID][]domain.Subscription, len(m.subscriptions)),
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	for k, v := range m.tasks {
		s.tasks[k] = v
	}
	for k, v := range m.comments {
		s.comments[k] = append([]domain.Comment(nil), v...)
	}
	for k, v := range m.files {
		s.files[k] = v
	}
	for k, v := range m.subscriptions {
		s.subscriptions[k] = append([]domain.Subscription(nil), v...)
	}
	return s
}

func (m *MemoryStore) restore(s snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = s.users
	m.tasks = s.tasks
	m.comments = s.comments
	m.files = s.files
	m.subscriptions = s.subscriptions
}

// usernameLocked resolves the display name of an optional owner.
func (m *MemoryStore) usernameLocked(owner uuid.NullUUID) string {
	if !owner.Valid {
		return ""
	}
	return m.users[owner.UUID].Username
}

// SubscriptionCount returns the number of subscription rows for a task.
func (m *MemoryStore) SubscriptionCount(taskID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscriptions[taskID])
}

// TaskCount returns the number of stored tasks.
func (m *MemoryStore) TaskCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// PutUser stores u as-is, bypassing validation and hashing.
func (m *MemoryStore) PutUser(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
}

// memUsers implements store.UserStore.
type memUsers struct{ m *MemoryStore }

var _ store.UserStore = memUsers{}

func (s memUsers) WithTx(*sql.Tx) store.UserStore { return s }

func (s memUsers) Create(ctx context.Context, user *domain.User) error {
	if err := s.m.fail("users.Create"); err != nil {
		return err
	}
	if err := user.Validate(); err != nil {
		return err
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.users {
		if u.Email == user.Email {
			return store.ErrEmailExists
		}
	}

	if user.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
		if err != nil {
			return err
		}
		user.HashedPassword = string(hash)
		user.Password = ""
	}
	s.m.users[user.ID] = *user
	return nil
}

func (s memUsers) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := s.m.fail("users.GetByID"); err != nil {
		return nil, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &u, nil
}

func (s memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := s.m.fail("users.GetByEmail"); err != nil {
		return nil, err
	}
	email = domain.NormalizeEmail(email)
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s memUsers) SetSuperuser(ctx context.Context, id uuid.UUID, superuser bool) error {
	if err := s.m.fail("users.SetSuperuser"); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	u.IsSuperuser = superuser
	u.UpdatedAt = time.Now().UTC()
	s.m.users[id] = u
	return nil
}

func (s memUsers) Delete(ctx context.Context, id uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.m.users, id)

	orphan := func(owner *uuid.NullUUID) {
		if owner.Valid && owner.UUID == id {
			*owner = uuid.NullUUID{}
		}
	}
	for k, t := range s.m.tasks {
		orphan(&t.OwnerID)
		s.m.tasks[k] = t
	}
	for k, list := range s.m.comments {
		for i := range list {
			orphan(&list[i].OwnerID)
		}
		s.m.comments[k] = list
	}
	for k, f := range s.m.files {
		orphan(&f.OwnerID)
		s.m.files[k] = f
	}
	return nil
}

// memTasks implements store.TaskStore.
type memTasks struct{ m *MemoryStore }

var _ store.TaskStore = memTasks{}

func (s memTasks) WithTx(*sql.Tx) store.TaskStore { return s }

func (s memTasks) Create(ctx context.Context, task *domain.Task) error {
	if err := s.m.fail("tasks.Create"); err != nil {
		return err
	}
	if err := task.Validate(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.tasks[task.ID]; ok {
		return store.ErrDuplicate
	}
	s.m.tasks[task.ID] = *task
	return nil
}

func (s memTasks) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if err := s.m.fail("tasks.GetByID"); err != nil {
		return nil, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	t.OwnerUsername = s.m.usernameLocked(t.OwnerID)
	return &t, nil
}

func (s memTasks) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.GetByID(ctx, id)
}

func (s memTasks) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	if err := s.m.fail("tasks.List"); err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	out := make([]*domain.Task, 0)
	for _, t := range s.m.tasks {
		if query != "" && !strings.Contains(strings.ToLower(t.Headline), query) {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.OwnerID != uuid.Nil && !t.IsOwnedBy(filter.OwnerID) {
			continue
		}
		t.OwnerUsername = s.m.usernameLocked(t.OwnerID)
		out = append(out, &t)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s memTasks) UpdateStatus(ctx context.Context, task *domain.Task) error {
	if err := s.m.fail("tasks.UpdateStatus"); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tasks[task.ID]
	if !ok {
		return store.ErrTaskNotFound
	}
	t.Status = task.Status
	t.UpdatedAt = task.UpdatedAt
	s.m.tasks[task.ID] = t
	return nil
}

func (s memTasks) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.m.fail("tasks.Delete"); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.m.tasks, id)
	delete(s.m.comments, id)
	delete(s.m.files, id)
	delete(s.m.subscriptions, id)
	return nil
}

// memComments implements store.CommentStore.
type memComments struct{ m *MemoryStore }

var _ store.CommentStore = memComments{}

func (s memComments) WithTx(*sql.Tx) store.CommentStore { return s }

func (s memComments) Create(ctx context.Context, comment *domain.Comment) error {
	if err := s.m.fail("comments.Create"); err != nil {
		return err
	}
	if err := comment.Validate(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.tasks[comment.TaskID]; !ok {
		return store.ErrTaskNotFound
	}
	s.m.comments[comment.TaskID] = append(s.m.comments[comment.TaskID], *comment)
	return nil
}

func (s memComments) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error) {
	if err := s.m.fail("comments.ListByTask"); err != nil {
		return nil, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	list := s.m.comments[taskID]
	out := make([]*domain.Comment, 0, len(list))
	for _, c := range list {
		c.OwnerUsername = s.m.usernameLocked(c.OwnerID)
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// memFiles implements store.TaskFileStore.
type memFiles struct{ m *MemoryStore }

var _ store.TaskFileStore = memFiles{}

func (s memFiles) WithTx(*sql.Tx) store.TaskFileStore { return s }

func (s memFiles) Upsert(ctx context.Context, file *domain.TaskFile) error {
	if err := s.m.fail("files.Upsert"); err != nil {
		return err
	}
	if err := file.Validate(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.tasks[file.TaskID]; !ok {
		return store.ErrTaskNotFound
	}
	if existing, ok := s.m.files[file.TaskID]; ok {
		file.ID = existing.ID
	}
	s.m.files[file.TaskID] = *file
	return nil
}

func (s memFiles) GetByTask(ctx context.Context, taskID uuid.UUID) (*domain.TaskFile, error) {
	if err := s.m.fail("files.GetByTask"); err != nil {
		return nil, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	f, ok := s.m.files[taskID]
	if !ok {
		return nil, store.ErrTaskFileNotFound
	}
	f.OwnerUsername = s.m.usernameLocked(f.OwnerID)
	return &f, nil
}

// memSubscriptions implements store.SubscriptionStore.
type memSubscriptions struct{ m *MemoryStore }

var _ store.SubscriptionStore = memSubscriptions{}

func (s memSubscriptions) WithTx(*sql.Tx) store.SubscriptionStore { return s }

func (s memSubscriptions) Add(ctx context.Context, sub *domain.Subscription) (bool, error) {
	if err := s.m.fail("subscriptions.Add"); err != nil {
		return false, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.tasks[sub.TaskID]; !ok {
		return false, store.ErrTaskNotFound
	}
	for _, existing := range s.m.subscriptions[sub.TaskID] {
		if existing.Email == sub.Email {
			return false, nil
		}
	}
	s.m.subscriptions[sub.TaskID] = append(s.m.subscriptions[sub.TaskID], *sub)
	return true, nil
}

func (s memSubscriptions) ListEmails(ctx context.Context, taskID uuid.UUID) ([]string, error) {
	if err := s.m.fail("subscriptions.ListEmails"); err != nil {
		return nil, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	list := s.m.subscriptions[taskID]
	out := make([]string, 0, len(list))
	for _, sub := range list {
		out = append(out, sub.Email)
	}
	return out, nil
}
