package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"MentorMatchserver/internal/domain"
	"MentorMatchserver/internal/service"
	"MentorMatchserver/internal/store/memory"
)

type ledgerFixture struct {
	t     *testing.T
	store *memory.Store
	svc   *service.LedgerService
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := memory.NewStore()
	return &ledgerFixture{
		t:     t,
		store: store,
		svc: &service.LedgerService{
			Users:  store,
			Ledger: store,
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			Now:    func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) },
		},
	}
}

func (f *ledgerFixture) user(name string, role domain.Role) string {
	f.t.Helper()
	u, err := f.store.CreateUser(context.Background(), name+"@example.com", name, role, "hash")
	if err != nil {
		f.t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return u.ID
}

func (f *ledgerFixture) status(viewer, target string) domain.RelationshipStatus {
	f.t.Helper()
	st, err := f.svc.RelationshipStatus(context.Background(), viewer, target)
	if err != nil {
		f.t.Fatalf("RelationshipStatus: %v", err)
	}
	return st
}

func (f *ledgerFixture) send(from, to string) domain.ConnectionRequest {
	f.t.Helper()
	req, err := f.svc.SendRequest(context.Background(), from, to)
	if err != nil {
		f.t.Fatalf("SendRequest: %v", err)
	}
	return req
}

func TestSendRequestStatuses(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.user("a", domain.RoleMentee)
	b := f.user("b", domain.RoleMentor)

	req := f.send(a, b)
	if req.Status != domain.RequestPending || req.SenderID != a || req.ReceiverID != b || req.ID == "" {
		t.Fatalf("request = %+v", req)
	}
	if got := f.status(a, b); got != domain.RelationshipRequested {
		t.Fatalf("status(a,b) = %s, want requested", got)
	}
	if got := f.status(b, a); got != domain.RelationshipPending {
		t.Fatalf("status(b,a) = %s, want pending", got)
	}
}

func TestSendRequestGuards(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.user("a", domain.RoleMentee)
	b := f.user("b", domain.RoleMentor)
	ctx := context.Background()

	if _, err := f.svc.SendRequest(ctx, a, a); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("self request: got %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, a, "nope"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("malformed id: got %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, a, "00000000-0000-4000-8000-000000000000"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown target: got %v", err)
	}

	f.send(a, b)
	if _, err := f.svc.SendRequest(ctx, a, b); !errors.Is(err, domain.ErrRequestExists) {
		t.Fatalf("duplicate: got %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, b, a); !errors.Is(err, domain.ErrRequestExists) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("reverse duplicate: got %v", err)
	}
}

func TestAcceptRequestConnects(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.user("a", domain.RoleMentee)
	b := f.user("b", domain.RoleMentor)
	ctx := context.Background()

	req := f.send(a, b)

	if _, err := f.svc.AcceptRequest(ctx, a, req.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("sender accepting: got %v", err)
	}

	conn, err := f.svc.AcceptRequest(ctx, b, req.ID)
	if err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	if conn.UserAID != a || conn.UserBID != b || conn.RequestID != req.ID || conn.Status != domain.ConnectionActive {
		t.Fatalf("connection = %+v", conn)
	}

	if got := f.status(a, b); got != domain.RelationshipConnected {
		t.Fatalf("status(a,b) = %s", got)
	}
	if got := f.status(b, a); got != domain.RelationshipConnected {
		t.Fatalf("status(b,a) = %s", got)
	}

	if _, err := f.svc.SendRequest(ctx, a, b); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("send after connect: got %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, b, a); !errors.Is(err, domain.ErrAlreadyConnected) {
		t.Fatalf("reverse send after connect: got %v", err)
	}
	if _, err := f.svc.AcceptRequest(ctx, b, req.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second accept: got %v", err)
	}
}

func TestDeclineRequest(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.user("a", domain.RoleMentee)
	b := f.user("b", domain.RoleMentor)
	ctx := context.Background()

	req := f.send(a, b)
	if err := f.svc.DeclineRequest(ctx, a, req.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("sender declining: got %v", err)
	}
	if err := f.svc.DeclineRequest(ctx, b, req.ID); err != nil {
		t.Fatalf("DeclineRequest: %v", err)
	}
	if err := f.svc.DeclineRequest(ctx, b, req.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second decline: got %v", err)
	}
	if _, err := f.svc.AcceptRequest(ctx, b, req.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("accept after decline: got %v", err)
	}
	if got := f.status(a, b); got != domain.RelationshipNone {
		t.Fatalf("status after decline = %s", got)
	}

	// Either party may ask again after a decline.
	again := f.send(b, a)
	if err := f.svc.CancelRequest(ctx, b, again.ID); err != nil {
		t.Fatalf("CancelRequest: %v", err)
	}
	f.send(a, b)
}

func TestCancelRequestRemovesRow(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.user("a", domain.RoleMentee)
	b := f.user("b", domain.RoleMentor)
	ctx := context.Background()

	req := f.send(a, b)
	if err := f.svc.CancelRequest(ctx, b, req.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("receiver cancelling: got %v", err)
	}
	if err := f.svc.CancelRequest(ctx, a, req.ID); err != nil {
		t.Fatalf("CancelRequest: %v", err)
	}
	if err := f.svc.CancelRequest(ctx, a, req.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second cancel: got %v", err)
	}

	l, err := f.svc.ListLedger(ctx, b)
	if err != nil {
		t.Fatalf("ListLedger: %v", err)
	}
	if len(l.Received) != 0 {
		t.Fatalf("cancelled request still listed: %+v", l.Received)
	}

	f.send(a, b)
}

func TestDisconnect(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.user("a", domain.RoleMentee)
	b := f.user("b", domain.RoleMentor)
	ctx := context.Background()

	req := f.send(a, b)
	if _, err := f.svc.AcceptRequest(ctx, b, req.ID); err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}

	removed, err := f.svc.Disconnect(ctx, b, a)
	if err != nil || !removed {
		t.Fatalf("Disconnect = %v, %v", removed, err)
	}
	if got := f.status(a, b); got != domain.RelationshipNone {
		t.Fatalf("status after disconnect = %s", got)
	}

	removed, err = f.svc.Disconnect(ctx, a, b)
	if err != nil || removed {
		t.Fatalf("second Disconnect = %v, %v", removed, err)
	}
	if _, err := f.svc.Disconnect(ctx, a, a); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("self disconnect: got %v", err)
	}

	f.send(a, b)
}

func TestConcurrentSendRequestSameDirection(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.user("a", domain.RoleMentee)
	b := f.user("b", domain.RoleMentor)

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.SendRequest(context.Background(), a, b)
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("ok = %d, conflicts = %d", ok, conflicts)
	}

	l, err := f.svc.ListLedger(context.Background(), a)
	if err != nil {
		t.Fatalf("ListLedger: %v", err)
	}
	if len(l.Sent) != 1 {
		t.Fatalf("pending rows = %d, want 1", len(l.Sent))
	}
}

func TestConcurrentSendRequestOppositeDirections(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.user("a", domain.RoleMentee)
	b := f.user("b", domain.RoleMentor)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pair := range [][2]string{{a, b}, {b, a}} {
		wg.Add(1)
		go func(i int, from, to string) {
			defer wg.Done()
			_, errs[i] = f.svc.SendRequest(context.Background(), from, to)
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	if (errs[0] == nil) == (errs[1] == nil) {
		t.Fatalf("exactly one direction should win: %v / %v", errs[0], errs[1])
	}
}

func TestLedgerScenario(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.user("a", domain.RoleMentee)
	b := f.user("b", domain.RoleMentor)
	ctx := context.Background()

	f.send(a, b)

	lb, err := f.svc.ListLedger(ctx, b)
	if err != nil {
		t.Fatalf("ListLedger(b): %v", err)
	}
	if len(lb.Received) != 1 || lb.Received[0].User.ID != a || lb.Received[0].User.Name != "a" {
		t.Fatalf("b received = %+v", lb.Received)
	}
	if lb.Connections == nil || lb.Sent == nil {
		t.Fatalf("empty collections must not be nil: %+v", lb)
	}

	if _, err := f.svc.AcceptRequest(ctx, b, lb.Received[0].RequestID); err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}

	for _, tc := range []struct{ me, other string }{{a, b}, {b, a}} {
		l, err := f.svc.ListLedger(ctx, tc.me)
		if err != nil {
			t.Fatalf("ListLedger: %v", err)
		}
		if len(l.Connections) != 1 || l.Connections[0].User.ID != tc.other || l.Connections[0].Status != domain.ConnectionActive {
			t.Fatalf("connections for %s = %+v", tc.me, l.Connections)
		}
		if len(l.Received) != 0 || len(l.Sent) != 0 {
			t.Fatalf("requests for %s should be empty: %+v", tc.me, l)
		}
	}
}

func TestRelationshipStatusSelfAndBulk(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.user("a", domain.RoleMentee)
	b := f.user("b", domain.RoleMentor)
	c := f.user("c", domain.RoleBoth)
	d := f.user("d", domain.RoleBoth)
	ctx := context.Background()

	if got := f.status(a, a); got != domain.RelationshipNone {
		t.Fatalf("self status = %s", got)
	}

	f.send(a, b)
	f.send(c, a)

	got, err := f.svc.RelationshipStatuses(ctx, a, []string{b, c, d})
	if err != nil {
		t.Fatalf("RelationshipStatuses: %v", err)
	}
	want := map[string]domain.RelationshipStatus{
		b: domain.RelationshipRequested,
		c: domain.RelationshipPending,
		d: domain.RelationshipNone,
	}
	for id, st := range want {
		if got[id] != st {
			t.Fatalf("status(%s) = %s, want %s", id, got[id], st)
		}
	}
}

type failingLedgerStore struct{}

var errDown = errors.New("connection refused")

func (failingLedgerStore) InTx(context.Context, func(service.LedgerTx) error) error {
	return domain.Unavailable("begin ledger tx", errDown)
}

func (failingLedgerStore) PairStates(context.Context, string, []string) (map[string]domain.PairState, error) {
	return nil, domain.Unavailable("pair states", errDown)
}

func (failingLedgerStore) ListLedger(context.Context, string) (domain.Ledger, error) {
	return domain.Ledger{}, domain.Unavailable("list ledger", errDown)
}

func TestStoreOutageIsNotNotFound(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.user("a", domain.RoleMentee)
	b := f.user("b", domain.RoleMentor)
	f.svc.Ledger = failingLedgerStore{}
	ctx := context.Background()

	_, err := f.svc.SendRequest(ctx, a, b)
	if !errors.Is(err, domain.ErrUnavailable) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("SendRequest: got %v", err)
	}
	_, err = f.svc.AcceptRequest(ctx, b, "00000000-0000-4000-8000-000000000000")
	if !errors.Is(err, domain.ErrUnavailable) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("AcceptRequest: got %v", err)
	}
	if _, err := f.svc.RelationshipStatus(ctx, a, b); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("RelationshipStatus: got %v", err)
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	requests []service.ConnectionEvent
	accepted []service.ConnectionEvent
	fail     bool
}

func (n *recordingNotifier) NotifyConnectionRequest(_ context.Context, ev service.ConnectionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, ev)
	if n.fail {
		return errors.New("push down")
	}
	return nil
}

func (n *recordingNotifier) NotifyConnectionAccepted(_ context.Context, ev service.ConnectionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = append(n.accepted, ev)
	if n.fail {
		return errors.New("push down")
	}
	return nil
}

func TestNotificationsAfterCommit(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.user("a", domain.RoleMentee)
	b := f.user("b", domain.RoleMentor)
	n := &recordingNotifier{fail: true}
	f.svc.Notifier = n
	ctx := context.Background()

	req := f.send(a, b)
	if _, err := f.svc.SendRequest(ctx, a, b); err == nil {
		t.Fatalf("duplicate should fail")
	}
	conn, err := f.svc.AcceptRequest(ctx, b, req.ID)
	if err != nil {
		t.Fatalf("AcceptRequest with failing notifier: %v", err)
	}

	if len(n.requests) != 1 || n.requests[0].ToUserID != b || n.requests[0].RequestID != req.ID {
		t.Fatalf("request events = %+v", n.requests)
	}
	if len(n.accepted) != 1 || n.accepted[0].ToUserID != a || n.accepted[0].ConnectionID != conn.ID {
		t.Fatalf("accepted events = %+v", n.accepted)
	}
}
