package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/mail"
)

type recordingEnqueuer struct {
	tasks []backlite.Task
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	r.tasks = append(r.tasks, task)
	return "task-id", nil
}

type staticAdmins []entities.User

func (s staticAdmins) ListAdmins() ([]entities.User, error) { return s, nil }

func newDispatcher(t *testing.T, admins ...entities.User) (*Dispatcher, *recordingEnqueuer) {
	t.Helper()
	renderer, err := mail.NewRenderer("https://library.example.com/")
	require.NoError(t, err)
	queue := &recordingEnqueuer{}
	return NewDispatcher(queue, renderer, staticAdmins(admins)), queue
}

func emailTask(t *testing.T, task backlite.Task) mail.Message {
	t.Helper()
	email, ok := task.(SendEmailTask)
	require.True(t, ok, "expected SendEmailTask, got %T", task)
	return email.Message
}

func TestDispatcher_InvitationCreated(t *testing.T) {
	d, queue := newDispatcher(t)

	inv := &entities.LocationInvitation{Email: "friend@example.com", Token: "3f1c6a2e-1111-4222-8333-444455556666", ExpiresAt: time.Now().Add(time.Hour)}
	err := d.InvitationCreated(inv, &entities.Location{Name: "Home"}, &entities.User{Name: "Alice"})
	require.NoError(t, err)

	require.Len(t, queue.tasks, 1)
	msg := emailTask(t, queue.tasks[0])
	assert.Equal(t, []string{"friend@example.com"}, msg.To)
	assert.Equal(t, mail.TemplateInvitation, msg.Template)
	assert.Contains(t, msg.Text, "https://library.example.com/invitations/3f1c6a2e-1111-4222-8333-444455556666")
	assert.Contains(t, msg.Text, "Alice")
}

func TestDispatcher_SignupPendingGoesToAdmins(t *testing.T) {
	d, queue := newDispatcher(t, entities.User{Email: "admin1@example.com"}, entities.User{Email: "admin2@example.com"})

	require.NoError(t, d.SignupPending(&entities.User{ID: 5, Email: "new@example.com"}))
	require.Len(t, queue.tasks, 1)
	msg := emailTask(t, queue.tasks[0])
	assert.Equal(t, []string{"admin1@example.com", "admin2@example.com"}, msg.To)
	assert.Equal(t, mail.TemplateSignupPending, msg.Template)
}

func TestDispatcher_SignupPendingWithoutAdmins(t *testing.T) {
	d, queue := newDispatcher(t)
	require.NoError(t, d.SignupPending(&entities.User{ID: 5, Email: "new@example.com"}))
	assert.Empty(t, queue.tasks)
}

func TestDispatcher_SignupDecided(t *testing.T) {
	d, queue := newDispatcher(t)
	user := &entities.User{Email: "new@example.com", Name: "New"}

	require.NoError(t, d.SignupDecided(user, entities.RequestStatusApproved, ""))
	require.NoError(t, d.SignupDecided(user, entities.RequestStatusDenied, "not a member of the club"))
	assert.Error(t, d.SignupDecided(user, entities.RequestStatusPending, ""))

	require.Len(t, queue.tasks, 2)
	assert.Equal(t, mail.TemplateSignupApproved, emailTask(t, queue.tasks[0]).Template)
	denied := emailTask(t, queue.tasks[1])
	assert.Equal(t, mail.TemplateSignupDenied, denied.Template)
	assert.Contains(t, denied.Text, "not a member of the club")
}

func TestDispatcher_EnqueueEnrichment(t *testing.T) {
	d, queue := newDispatcher(t)
	require.NoError(t, d.EnqueueEnrichment(9, 2))
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, EnrichBookTask{BookID: 9, UserID: 2}, queue.tasks[0])
}
