package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/database/books"
	"github.com/mrlokans/shelfshare/internal/database/dbtest"
	"github.com/mrlokans/shelfshare/internal/database/invitations"
	"github.com/mrlokans/shelfshare/internal/database/locations"
	"github.com/mrlokans/shelfshare/internal/database/ratings"
	"github.com/mrlokans/shelfshare/internal/database/removals"
	"github.com/mrlokans/shelfshare/internal/database/settings"
	"github.com/mrlokans/shelfshare/internal/database/shelves"
	"github.com/mrlokans/shelfshare/internal/database/signups"
	"github.com/mrlokans/shelfshare/internal/database/users"
	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/metadata"
)

// env wires real repositories over a throwaway sqlite database with an
// owner, a member and an outsider.
type env struct {
	db          *gorm.DB
	users       *users.Repository
	locations   *locations.Repository
	shelves     *shelves.Repository
	books       *books.Repository
	ratings     *ratings.Repository
	invitations *invitations.Repository
	removals    *removals.Repository
	signups     *signups.Repository
	settings    *settings.Repository

	owner    *entities.User
	member   *entities.User
	outsider *entities.User
	location *entities.Location
	shelf    *entities.Shelf
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.Open(t)
	e := &env{
		db:          db,
		users:       users.NewRepository(db),
		locations:   locations.NewRepository(db),
		shelves:     shelves.NewRepository(db),
		books:       books.NewRepository(db),
		ratings:     ratings.NewRepository(db),
		invitations: invitations.NewRepository(db),
		removals:    removals.NewRepository(db),
		signups:     signups.NewRepository(db),
		settings:    settings.NewRepository(db),
	}
	e.owner = dbtest.CreateUser(t, db, "owner@example.com")
	e.member = dbtest.CreateUser(t, db, "member@example.com")
	e.outsider = dbtest.CreateUser(t, db, "outsider@example.com")
	e.location = dbtest.CreateLocation(t, db, e.owner, "Home")
	dbtest.AddMember(t, db, e.location, e.member)
	e.shelf = dbtest.CreateShelf(t, db, e.location, "Living room")
	return e
}

func (e *env) book(t *testing.T, title string) *entities.Book {
	t.Helper()
	return dbtest.CreateBook(t, e.db, e.shelf, e.owner, title)
}

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
}

func (r *recordingAudit) LogAction(_ uint, _ entities.AuditEventType, action, _ string, _ uint, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func (r *recordingAudit) LogSignupDecision(_, _ uint, decision entities.RequestStatus, _ string) {
	r.LogAction(0, entities.AuditEventSignup, "signup_"+string(decision), "", 0, "")
}

func (r *recordingAudit) LogSettings(_ uint, action, _ string) {
	r.LogAction(0, entities.AuditEventSettings, action, "", 0, "")
}

type recordingNotifier struct {
	invitations []*entities.LocationInvitation
	pending     []*entities.User
	decisions   []entities.RequestStatus
	err         error
}

func (n *recordingNotifier) InvitationCreated(inv *entities.LocationInvitation, _ *entities.Location, _ *entities.User) error {
	n.invitations = append(n.invitations, inv)
	return n.err
}

func (n *recordingNotifier) SignupPending(user *entities.User) error {
	n.pending = append(n.pending, user)
	return n.err
}

func (n *recordingNotifier) SignupDecided(_ *entities.User, decision entities.RequestStatus, _ string) error {
	n.decisions = append(n.decisions, decision)
	return n.err
}

type recordingQueue struct{ bookIDs []uint }

func (q *recordingQueue) EnqueueEnrichment(bookID, _ uint) error {
	q.bookIDs = append(q.bookIDs, bookID)
	return nil
}

type fakeLookup struct {
	result *metadata.BookMetadata
	err    error
}

func (f *fakeLookup) LookupISBN(context.Context, string) (*metadata.BookMetadata, error) {
	return f.result, f.err
}
