//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/platform/postgres"
	"github.com/phrazzld/jiralike-api/internal/store"
	"github.com/phrazzld/jiralike-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func uniqueEmail(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8] + "@example.com"
}

func TestPostgresUserStore(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx, cancel := context.WithTimeout(context.Background(), testdb.TestTimeout)
		defer cancel()

		users := postgres.NewPostgresUserStore(tx, bcrypt.MinCost, nil)

		email := uniqueEmail("user-store")
		user, err := domain.NewUser(email, "alice", "a-long-enough-password")
		require.NoError(t, err)

		require.NoError(t, users.Create(ctx, user))
		assert.Empty(t, user.Password, "plaintext must be cleared")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte("a-long-enough-password")))

		got, err := users.GetByEmail(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "alice", got.Username)

		require.NoError(t, users.SetSuperuser(ctx, user.ID, true))
		got, err = users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, got.IsSuperuser)
		assert.ErrorIs(t, users.SetSuperuser(ctx, uuid.New(), true), store.ErrUserNotFound)

		_, err = users.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrUserNotFound)

		// A unique violation aborts the transaction, so it runs last.
		dup, err := domain.NewUser(email, "bob", "another-long-password")
		require.NoError(t, err)
		assert.ErrorIs(t, users.WithTx(tx).Create(ctx, dup), store.ErrEmailExists)
	})
}

func TestPostgresTaskLifecycle(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx, cancel := context.WithTimeout(context.Background(), testdb.TestTimeout)
		defer cancel()

		ownerID := testdb.MustInsertUser(ctx, t, tx, uniqueEmail("owner"), "owner", false)

		tasks := postgres.NewPostgresTaskStore(tx, nil)
		comments := postgres.NewPostgresCommentStore(tx, nil)
		files := postgres.NewPostgresTaskFileStore(tx, nil)
		subs := postgres.NewPostgresSubscriptionStore(tx, nil)
		users := postgres.NewPostgresUserStore(tx, bcrypt.MinCost, nil)

		task, err := domain.NewTask(ownerID, "Integration_100% headline", "desc")
		require.NoError(t, err)
		require.NoError(t, tasks.Create(ctx, task))

		got, err := tasks.GetForUpdate(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "owner", got.OwnerUsername)
		assert.Equal(t, domain.TaskStatusOpen, got.Status)

		listed, err := tasks.List(ctx, domain.TaskFilter{Query: "100%", OwnerID: ownerID})
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, task.ID, listed[0].ID)

		listed, err = tasks.List(ctx, domain.TaskFilter{Query: "100x"})
		require.NoError(t, err)
		assert.Empty(t, listed, "LIKE wildcards in the query must be literal")

		c1, err := domain.NewComment(task.ID, ownerID, "first")
		require.NoError(t, err)
		require.NoError(t, comments.Create(ctx, c1))
		c2, err := domain.NewComment(task.ID, ownerID, "second")
		require.NoError(t, err)
		c2.CreatedAt = c1.CreatedAt.Add(time.Second)
		require.NoError(t, comments.Create(ctx, c2))

		thread, err := comments.ListByTask(ctx, task.ID)
		require.NoError(t, err)
		require.Len(t, thread, 2)
		assert.Equal(t, "first", thread[0].Text)
		assert.Equal(t, "owner", thread[1].OwnerUsername)

		orphan, err := domain.NewComment(uuid.New(), ownerID, "nowhere")
		require.NoError(t, err)
		assert.ErrorIs(t, comments.Create(ctx, orphan), store.ErrTaskNotFound)

		f1, err := domain.NewTaskFile(task.ID, ownerID, "a.txt", "text/plain", 3)
		require.NoError(t, err)
		require.NoError(t, files.Upsert(ctx, f1))
		f2, err := domain.NewTaskFile(task.ID, ownerID, "b.txt", "text/plain", 5)
		require.NoError(t, err)
		require.NoError(t, files.Upsert(ctx, f2))
		assert.Equal(t, f1.ID, f2.ID, "upsert keeps the existing row")

		stored, err := files.GetByTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "b.txt", stored.Name)
		assert.Equal(t, int64(5), stored.Size)

		sub, err := domain.NewSubscription(task.ID, "watcher@example.com")
		require.NoError(t, err)
		added, err := subs.Add(ctx, sub)
		require.NoError(t, err)
		assert.True(t, added)

		again, err := domain.NewSubscription(task.ID, "watcher@example.com")
		require.NoError(t, err)
		added, err = subs.Add(ctx, again)
		require.NoError(t, err)
		assert.False(t, added)

		emails, err := subs.ListEmails(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"watcher@example.com"}, emails)

		require.NoError(t, task.Close())
		require.NoError(t, tasks.UpdateStatus(ctx, task))

		// Deleting the owner anonymizes the task and its content.
		require.NoError(t, users.Delete(ctx, ownerID))
		got, err = tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.False(t, got.OwnerID.Valid)
		assert.Empty(t, got.OwnerUsername)
		assert.Equal(t, domain.TaskStatusClosed, got.Status)

		// Deleting the task cascades.
		require.NoError(t, tasks.Delete(ctx, task.ID))
		thread, err = comments.ListByTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Empty(t, thread)
		_, err = files.GetByTask(ctx, task.ID)
		assert.ErrorIs(t, err, store.ErrTaskFileNotFound)
		emails, err = subs.ListEmails(ctx, task.ID)
		require.NoError(t, err)
		assert.Empty(t, emails)

		assert.ErrorIs(t, tasks.Delete(ctx, task.ID), store.ErrTaskNotFound)
	})
}

// Concurrent adds of the same address run on separate connections so that
// the unique constraint, not a lock in Go, is what collapses them.
func TestPostgresSubscriptionStore_ConcurrentAdd(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()

	ownerID := testdb.MustInsertUser(ctx, t, db, uniqueEmail("concurrent"), "concurrent", false)
	task, err := domain.NewTask(ownerID, "concurrent", "subscriptions")
	require.NoError(t, err)
	require.NoError(t, postgres.NewPostgresTaskStore(db, nil).Create(ctx, task))
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM tasks WHERE id = $1`, task.ID)
		_, _ = db.Exec(`DELETE FROM users WHERE id = $1`, ownerID)
	})

	subs := postgres.NewPostgresSubscriptionStore(db, nil)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := domain.NewSubscription(task.ID, "race@example.com")
			if err != nil {
				return
			}
			added, err := subs.Add(ctx, sub)
			if err == nil {
				results <- added
			}
		}()
	}
	wg.Wait()
	close(results)

	addedCount := 0
	for added := range results {
		if added {
			addedCount++
		}
	}
	assert.Equal(t, 1, addedCount)

	emails, err := subs.ListEmails(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"race@example.com"}, emails)
}
