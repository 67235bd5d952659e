package tasks

import (
	"context"
	"fmt"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/logging"
	"github.com/mrlokans/shelfshare/internal/mail"
)

// Enqueuer persists a task for later processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// AdminLister returns the administrators who review signups.
type AdminLister interface {
	ListAdmins() ([]entities.User, error)
}

// Dispatcher turns domain events into queued tasks: rendered emails and
// metadata enrichment.
type Dispatcher struct {
	queue    Enqueuer
	renderer *mail.Renderer
	admins   AdminLister
}

func NewDispatcher(queue Enqueuer, renderer *mail.Renderer, admins AdminLister) *Dispatcher {
	return &Dispatcher{queue: queue, renderer: renderer, admins: admins}
}

func (d *Dispatcher) InvitationCreated(invitation *entities.LocationInvitation, location *entities.Location, inviter *entities.User) error {
	data := mail.InvitationData{
		LocationName: location.Name,
		Token:        invitation.Token,
		ExpiresAt:    invitation.ExpiresAt,
	}
	if inviter != nil {
		data.InviterName = displayName(inviter)
	}
	msg, err := d.renderer.Invitation(invitation.Email, data)
	if err != nil {
		return err
	}
	return d.send(msg)
}

// SignupPending emails every admin. Having no admins to notify is not an error.
func (d *Dispatcher) SignupPending(user *entities.User) error {
	admins, err := d.admins.ListAdmins()
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	to := make([]string, 0, len(admins))
	for _, a := range admins {
		to = append(to, a.Email)
	}
	if len(to) == 0 {
		logging.Component("tasks").WithField("user_id", user.ID).Warn("no admins to notify about pending signup")
		return nil
	}
	msg, err := d.renderer.SignupPending(to, mail.SignupData{Name: displayName(user), Email: user.Email})
	if err != nil {
		return err
	}
	return d.send(msg)
}

func (d *Dispatcher) SignupDecided(user *entities.User, decision entities.RequestStatus, note string) error {
	data := mail.SignupData{Name: displayName(user), Email: user.Email, Note: note}
	var (
		msg mail.Message
		err error
	)
	switch decision {
	case entities.RequestStatusApproved:
		msg, err = d.renderer.SignupApproved(user.Email, data)
	case entities.RequestStatusDenied:
		msg, err = d.renderer.SignupDenied(user.Email, data)
	default:
		return fmt.Errorf("no email for signup decision %q", decision)
	}
	if err != nil {
		return err
	}
	return d.send(msg)
}

// EnqueueEnrichment implements the book service's enrichment queue.
func (d *Dispatcher) EnqueueEnrichment(bookID, userID uint) error {
	_, err := d.queue.Enqueue(context.Background(), EnrichBookTask{BookID: bookID, UserID: userID})
	return err
}

func (d *Dispatcher) send(msg mail.Message) error {
	_, err := d.queue.Enqueue(context.Background(), SendEmailTask{Message: msg})
	if err != nil {
		return fmt.Errorf("queue %s email: %w", msg.Template, err)
	}
	return nil
}

func displayName(u *entities.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
