package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/lifecycle"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type ticketFixture struct {
	store   *memStore
	tickets *TicketService
	alice   *domain.Account // ops head
	bob     *domain.Account // ops user
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	store := newMemStore()
	logger := zap.NewNop()
	notifications := NewNotificationService(store, nil, logger)
	tickets := NewTicketService(TicketDependencies{
		Store:         store,
		Notifications: notifications,
		Logger:        logger,
	})

	alice := &domain.Account{Username: "alice", Role: domain.RoleHead, Department: "ops"}
	bob := &domain.Account{Username: "bob", Role: domain.RoleUser, Department: "ops"}
	for _, account := range []*domain.Account{alice, bob} {
		if err := store.Accounts().Create(context.Background(), account); err != nil {
			t.Fatalf("seed account %s: %v", account.Username, err)
		}
	}
	return &ticketFixture{store: store, tickets: tickets, alice: alice, bob: bob}
}

func (f *ticketFixture) mustCreate(t *testing.T, creator *domain.Account) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(context.Background(), creator, TicketCreateInput{
		Title:       "laptop broken",
		Description: "screen flickers",
	})
	if err != nil {
		t.Fatalf("CreateTicket error = %v", err)
	}
	return ticket
}

func (f *ticketFixture) mustUpdate(t *testing.T, actor *domain.Account, id string, patch lifecycle.UpdatePatch) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.UpdateTicket(context.Background(), actor, id, patch)
	if err != nil {
		t.Fatalf("UpdateTicket error = %v", err)
	}
	return ticket
}

func TestCreateTicket_PendingAndHeadNotified(t *testing.T) {
	f := newTicketFixture(t)

	ticket := f.mustCreate(t, f.bob)

	if ticket.Status != domain.TicketStatusPending {
		t.Errorf("status = %q, want Pending", ticket.Status)
	}
	if ticket.Category != domain.DefaultTicketCategory {
		t.Errorf("category = %q, want %q", ticket.Category, domain.DefaultTicketCategory)
	}

	got := f.store.byType("alice", domain.NotificationNewTicket)
	if len(got) != 1 {
		t.Fatalf("alice new_ticket notifications = %d, want 1 (%s)", len(got), describeNotifications(f.store.notifications))
	}
	if got[0].TicketID != ticket.ID || got[0].Actor != "bob" {
		t.Errorf("notification = %+v, want ticket %s from bob", got[0], ticket.ID)
	}
	// the creator does not hear about their own filing
	if n := f.store.byType("bob", domain.NotificationNewTicket); len(n) != 0 {
		t.Errorf("bob notifications = %d, want 0", len(n))
	}
}

func TestAcceptTicket_CreatorNotified(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.mustCreate(t, f.bob)

	updated := f.mustUpdate(t, f.alice, ticket.ID, lifecycle.UpdatePatch{
		Status: stRef(domain.TicketStatusInProgress),
	})

	if updated.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %q, want In Progress", updated.Status)
	}
	got := f.store.byType("bob", domain.NotificationStatusChanged)
	if len(got) != 1 {
		t.Fatalf("bob status_update notifications = %d, want 1", len(got))
	}
	if got[0].NewStatus == nil || *got[0].NewStatus != domain.TicketStatusInProgress {
		t.Errorf("notification new status = %v, want In Progress", got[0].NewStatus)
	}
}

func TestTwoPartyConfirmation_FinishesAndNotifiesBoth(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.mustCreate(t, f.bob)
	f.mustUpdate(t, f.alice, ticket.ID, lifecycle.UpdatePatch{Status: stRef(domain.TicketStatusInProgress)})

	// bob marks done: status unchanged, alice asked to confirm
	afterUser := f.mustUpdate(t, f.bob, ticket.ID, lifecycle.UpdatePatch{UserMarkedDone: boolRef(true)})
	if afterUser.Status != domain.TicketStatusInProgress {
		t.Errorf("status after user confirm = %q, want In Progress", afterUser.Status)
	}
	if got := f.store.byType("alice", domain.NotificationConfirmPending); len(got) != 1 {
		t.Fatalf("alice confirm_pending notifications = %d, want 1", len(got))
	}

	// alice confirms: auto-finish, both notified in one call
	afterHead := f.mustUpdate(t, f.alice, ticket.ID, lifecycle.UpdatePatch{HeadMarkedDone: boolRef(true)})
	if afterHead.Status != domain.TicketStatusFinished {
		t.Fatalf("status = %q, want Finished", afterHead.Status)
	}
	for _, recipient := range []string{"alice", "bob"} {
		if got := f.store.byType(recipient, domain.NotificationFinished); len(got) != 1 {
			t.Errorf("%s finished notifications = %d, want 1 (%s)", recipient, len(got), describeNotifications(f.store.notifications))
		}
	}
}

func TestRejectTicket_ResetsFlagsAndNotifiesHeads(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.mustCreate(t, f.bob)
	f.mustUpdate(t, f.bob, ticket.ID, lifecycle.UpdatePatch{UserMarkedDone: boolRef(true)})
	f.mustUpdate(t, f.alice, ticket.ID, lifecycle.UpdatePatch{HeadMarkedDone: boolRef(true)})

	rejected := f.mustUpdate(t, f.alice, ticket.ID, lifecycle.UpdatePatch{
		Status: stRef(domain.TicketStatusPending),
	})

	if rejected.Status != domain.TicketStatusPending {
		t.Fatalf("status = %q, want Pending", rejected.Status)
	}
	if rejected.UserMarkedDone || rejected.HeadMarkedDone {
		t.Error("confirmation flags must be cleared on reset")
	}
	rejections := 0
	for _, n := range f.store.byType("alice", domain.NotificationStatusChanged) {
		if n.NewStatus != nil && *n.NewStatus == domain.TicketStatusPending {
			rejections++
		}
	}
	if rejections != 1 {
		t.Errorf("alice rejection notifications = %d, want 1", rejections)
	}
}

func TestUpdateTicket_IdempotentPatchEmitsNothing(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.mustCreate(t, f.bob)
	before := len(f.store.notifications)

	updated := f.mustUpdate(t, f.bob, ticket.ID, lifecycle.UpdatePatch{
		Title:  strRef(ticket.Title),
		Status: stRef(domain.TicketStatusPending),
	})

	if updated.Status != domain.TicketStatusPending {
		t.Errorf("status = %q, want Pending", updated.Status)
	}
	if updated.Version != ticket.Version {
		t.Errorf("version = %d, want unchanged %d", updated.Version, ticket.Version)
	}
	if len(f.store.notifications) != before {
		t.Errorf("notifications grew by %d, want 0", len(f.store.notifications)-before)
	}
}

func TestUpdateTicket_ForbiddenForOutsiders(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.mustCreate(t, f.bob)

	mallory := &domain.Account{Username: "mallory", Role: domain.RoleUser, Department: "finance"}
	if err := f.store.Accounts().Create(context.Background(), mallory); err != nil {
		t.Fatalf("seed mallory: %v", err)
	}

	_, err := f.tickets.UpdateTicket(context.Background(), mallory, ticket.ID, lifecycle.UpdatePatch{
		UserMarkedDone: boolRef(true),
	})
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus != 403 {
		t.Errorf("error = %v, want 403 forbidden", err)
	}
}

func TestUpdateTicket_ExplicitFinishedRejected(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.mustCreate(t, f.bob)
	before := len(f.store.notifications)

	_, err := f.tickets.UpdateTicket(context.Background(), f.alice, ticket.ID, lifecycle.UpdatePatch{
		Status: stRef(domain.TicketStatusFinished),
	})
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_FAILED" {
		t.Fatalf("error = %v, want validation failure", err)
	}

	stored := f.store.tickets[ticket.ID]
	if stored.Status != domain.TicketStatusPending {
		t.Errorf("stored status = %q, want untouched Pending", stored.Status)
	}
	if len(f.store.notifications) != before {
		t.Error("rejected update still produced notifications")
	}
}

func TestUpdateTicket_UnknownStatusRejected(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.mustCreate(t, f.bob)

	_, err := f.tickets.UpdateTicket(context.Background(), f.bob, ticket.ID, lifecycle.UpdatePatch{
		Status: stRef(domain.TicketStatus("Escalated")),
	})
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_FAILED" {
		t.Errorf("error = %v, want validation failure", err)
	}
}

func TestUpdateTicket_VersionConflictSurfacesAsConflict(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.mustCreate(t, f.bob)

	// another writer bumps the row between our read and our write
	f.store.raceAfterRead = func() {
		f.store.tickets[ticket.ID].Version++
	}

	_, err := f.tickets.UpdateTicket(context.Background(), f.bob, ticket.ID, lifecycle.UpdatePatch{
		UserMarkedDone: boolRef(true),
	})
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "CONFLICT" {
		t.Errorf("error = %v, want CONFLICT", err)
	}
}

func TestRemindTicket(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.mustCreate(t, f.bob)

	reminded, err := f.tickets.RemindTicket(context.Background(), f.bob, ticket.ID)
	if err != nil {
		t.Fatalf("RemindTicket error = %v", err)
	}
	if !reminded.ReminderSent || reminded.LastRemindedAt == nil {
		t.Error("reminder flag/timestamp not set")
	}
	if got := f.store.byType("alice", domain.NotificationReminder); len(got) != 1 {
		t.Errorf("alice reminder notifications = %d, want 1", len(got))
	}

	// heads cannot nudge themselves
	_, err = f.tickets.RemindTicket(context.Background(), f.alice, ticket.ID)
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus != 403 {
		t.Errorf("error = %v, want 403 forbidden", err)
	}
}

func TestListTickets_RoleScoping(t *testing.T) {
	f := newTicketFixture(t)
	f.mustCreate(t, f.bob)
	f.mustCreate(t, f.alice)

	carol := &domain.Account{Username: "carol", Role: domain.RoleHead, Department: "finance"}
	if err := f.store.Accounts().Create(context.Background(), carol); err != nil {
		t.Fatalf("seed carol: %v", err)
	}
	f.mustCreate(t, carol)

	headView, err := f.tickets.ListTickets(context.Background(), TicketListQuery{
		Role:       domain.RoleHead,
		Department: "ops",
	})
	if err != nil {
		t.Fatalf("ListTickets(head) error = %v", err)
	}
	if len(headView) != 2 {
		t.Errorf("head sees %d tickets, want 2 (whole department)", len(headView))
	}

	userView, err := f.tickets.ListTickets(context.Background(), TicketListQuery{
		Role:     domain.RoleUser,
		Username: "bob",
	})
	if err != nil {
		t.Fatalf("ListTickets(user) error = %v", err)
	}
	if len(userView) != 1 || userView[0].CreatedBy != "bob" {
		t.Errorf("user view = %d tickets, want only bob's", len(userView))
	}
}

func TestCreateTicket_HeadlessDepartmentNotifiesNobody(t *testing.T) {
	f := newTicketFixture(t)

	// finance has no head; fan-out must stay department-scoped rather
	// than falling back to heads of other departments.
	dana := &domain.Account{Username: "dana", Role: domain.RoleUser, Department: "finance"}
	if err := f.store.Accounts().Create(context.Background(), dana); err != nil {
		t.Fatalf("seed dana: %v", err)
	}

	f.mustCreate(t, dana)

	if got := f.store.byType("alice", domain.NotificationNewTicket); len(got) != 0 {
		t.Errorf("ops head notified about a finance ticket: %s", describeNotifications(f.store.notifications))
	}
	if len(f.store.notifications) != 0 {
		t.Errorf("notifications = %d, want 0 for a headless department", len(f.store.notifications))
	}
}
