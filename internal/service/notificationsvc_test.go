package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"MentorMatchserver/internal/domain"
	"MentorMatchserver/internal/notifications"
)

type stubNotificationTokensStore struct {
	upsertFunc func(context.Context, string, string, domain.Platform, time.Time) (domain.NotificationToken, error)
	deleteFunc func(context.Context, string, string) error
	listFunc   func(context.Context, string) ([]domain.NotificationToken, error)
}

func (s *stubNotificationTokensStore) UpsertToken(ctx context.Context, userID, token string, platform domain.Platform, when time.Time) (domain.NotificationToken, error) {
	if s.upsertFunc != nil {
		return s.upsertFunc(ctx, userID, token, platform, when)
	}
	return domain.NotificationToken{}, errors.New("upsert not stubbed")
}

func (s *stubNotificationTokensStore) DeleteToken(ctx context.Context, userID, token string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, userID, token)
	}
	return errors.New("delete not stubbed")
}

func (s *stubNotificationTokensStore) ListTokens(ctx context.Context, userID string) ([]domain.NotificationToken, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, userID)
	}
	return nil, errors.New("list not stubbed")
}

type stubNotificationUsersStore struct {
	getByIDFunc func(context.Context, string) (domain.User, error)
}

func (s *stubNotificationUsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	if s.getByIDFunc != nil {
		return s.getByIDFunc(ctx, id)
	}
	return domain.User{}, errors.New("get user not stubbed")
}

type stubPushSender struct {
	sendFunc func(context.Context, string, notifications.Message) error
}

func (s *stubPushSender) Send(ctx context.Context, token string, msg notifications.Message) error {
	if s.sendFunc != nil {
		return s.sendFunc(ctx, token, msg)
	}
	return nil
}

func TestNotificationServiceRegisterTokenValidation(t *testing.T) {
	svc := &NotificationService{
		Tokens: &stubNotificationTokensStore{},
	}

	if _, err := svc.RegisterToken(context.Background(), "user-1", "", "android"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty token, got %v", err)
	}
	if _, err := svc.RegisterToken(context.Background(), "user-1", "token", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty platform, got %v", err)
	}
}

func TestNotificationServiceNotifyRequestDeletesInvalidToken(t *testing.T) {
	deleted := false
	tokens := &stubNotificationTokensStore{
		listFunc: func(_ context.Context, userID string) ([]domain.NotificationToken, error) {
			if userID != "user-2" {
				t.Fatalf("unexpected user id: %s", userID)
			}
			return []domain.NotificationToken{{Token: "token-1", Platform: domain.PlatformAndroid}}, nil
		},
		deleteFunc: func(_ context.Context, userID, token string) error {
			if userID != "user-2" || token != "token-1" {
				t.Fatalf("unexpected delete args: %s %s", userID, token)
			}
			deleted = true
			return nil
		},
	}

	users := &stubNotificationUsersStore{
		getByIDFunc: func(_ context.Context, id string) (domain.User, error) {
			if id != "user-1" {
				t.Fatalf("unexpected sender id: %s", id)
			}
			return domain.User{ID: "user-1", Name: "Alice"}, nil
		},
	}

	sender := &stubPushSender{
		sendFunc: func(_ context.Context, token string, msg notifications.Message) error {
			if token != "token-1" {
				t.Fatalf("unexpected token: %s", token)
			}
			if msg.Data["type"] != "connection_request" || msg.Data["request_id"] != "req-1" {
				t.Fatalf("unexpected data: %+v", msg.Data)
			}
			if msg.Notification != nil {
				t.Fatalf("android pushes are data-only")
			}
			return notifications.ErrInvalidToken
		},
	}

	svc := &NotificationService{
		Tokens: tokens,
		Users:  users,
		Sender: sender,
	}

	err := svc.NotifyConnectionRequest(context.Background(), ConnectionEvent{
		RequestID:  "req-1",
		FromUserID: "user-1",
		ToUserID:   "user-2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Fatalf("expected invalid token to be deleted")
	}
}

func TestNotificationServiceNotifyAcceptedAddsAlertForIOS(t *testing.T) {
	var got notifications.Message
	svc := &NotificationService{
		Tokens: &stubNotificationTokensStore{
			listFunc: func(context.Context, string) ([]domain.NotificationToken, error) {
				return []domain.NotificationToken{{Token: "ios-1", Platform: domain.PlatformIOS}}, nil
			},
		},
		Users: &stubNotificationUsersStore{
			getByIDFunc: func(_ context.Context, id string) (domain.User, error) {
				return domain.User{ID: id, Name: "Bob"}, nil
			},
		},
		Sender: &stubPushSender{
			sendFunc: func(_ context.Context, _ string, msg notifications.Message) error {
				got = msg
				return nil
			},
		},
	}

	err := svc.NotifyConnectionAccepted(context.Background(), ConnectionEvent{
		RequestID:    "req-1",
		ConnectionID: "conn-1",
		FromUserID:   "user-2",
		ToUserID:     "user-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Data["type"] != "connection_accepted" || got.Data["connection_id"] != "conn-1" {
		t.Fatalf("unexpected data: %+v", got.Data)
	}
	if got.Notification == nil || got.Notification.Body != "Bob accepted your connection request." {
		t.Fatalf("unexpected alert: %+v", got.Notification)
	}
}

func TestNotificationServiceNoTokensSkipsLookup(t *testing.T) {
	svc := &NotificationService{
		Tokens: &stubNotificationTokensStore{
			listFunc: func(context.Context, string) ([]domain.NotificationToken, error) { return nil, nil },
		},
		Users:  &stubNotificationUsersStore{},
		Sender: &stubPushSender{},
	}
	if err := svc.NotifyConnectionRequest(context.Background(), ConnectionEvent{FromUserID: "a", ToUserID: "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
