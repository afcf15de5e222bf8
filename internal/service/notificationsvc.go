package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"MentorMatchserver/internal/domain"
	"MentorMatchserver/internal/notifications"
)

type NotificationTokensStore interface {
	UpsertToken(ctx context.Context, userID, token string, platform domain.Platform, when time.Time) (domain.NotificationToken, error)
	DeleteToken(ctx context.Context, userID, token string) error
	ListTokens(ctx context.Context, userID string) ([]domain.NotificationToken, error)
}

type PushSender interface {
	Send(ctx context.Context, token string, msg notifications.Message) error
}

// NotificationService delivers best-effort pushes about ledger events. It
// satisfies ConnectionNotifier.
type NotificationService struct {
	Tokens NotificationTokensStore
	Users  LedgerUsersStore
	Sender PushSender
	Logger *slog.Logger
	Now    func() time.Time
}

func (s *NotificationService) RegisterToken(ctx context.Context, userID, token, platform string) (domain.NotificationToken, error) {
	if s.Tokens == nil {
		return domain.NotificationToken{}, errors.New("notifications unavailable")
	}
	token = strings.TrimSpace(token)
	p, ok := domain.ParsePlatform(platform)
	fields := map[string]string{}
	if token == "" {
		fields["token"] = "required"
	}
	if !ok {
		fields["platform"] = "must be ios or android"
	}
	if len(fields) > 0 {
		return domain.NotificationToken{}, domain.NewValidationError(fields)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return s.Tokens.UpsertToken(ctx, userID, token, p, now().UTC().Truncate(time.Millisecond))
}

func (s *NotificationService) DeleteToken(ctx context.Context, userID, token string) error {
	if s.Tokens == nil {
		return errors.New("notifications unavailable")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewValidationError(map[string]string{"token": "required"})
	}
	return s.Tokens.DeleteToken(ctx, userID, token)
}

func (s *NotificationService) NotifyConnectionRequest(ctx context.Context, ev ConnectionEvent) error {
	return s.push(ctx, ev, "connection_request", "New connection request", "%s wants to connect with you.")
}

func (s *NotificationService) NotifyConnectionAccepted(ctx context.Context, ev ConnectionEvent) error {
	return s.push(ctx, ev, "connection_accepted", "Connection accepted", "%s accepted your connection request.")
}

func (s *NotificationService) push(ctx context.Context, ev ConnectionEvent, kind, title, bodyFmt string) error {
	if s.Tokens == nil || s.Sender == nil || s.Users == nil {
		return nil
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tokens, err := s.Tokens.ListTokens(ctx, ev.ToUserID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	from, err := s.Users.GetUserByID(ctx, ev.FromUserID)
	if err != nil {
		return err
	}

	data := map[string]string{
		"type":    kind,
		"user_id": from.ID,
		"name":    from.Name,
	}
	if ev.RequestID != "" {
		data["request_id"] = ev.RequestID
	}
	if ev.ConnectionID != "" {
		data["connection_id"] = ev.ConnectionID
	}
	alert := &notifications.Notification{
		Title: title,
		Body:  fmt.Sprintf(bodyFmt, from.Name),
	}

	for _, t := range tokens {
		msg := notifications.Message{Data: data}
		if t.Platform == domain.PlatformIOS {
			msg.Notification = alert
		}
		if err := s.Sender.Send(ctx, t.Token, msg); err != nil {
			if errors.Is(err, notifications.ErrInvalidToken) {
				if delErr := s.Tokens.DeleteToken(ctx, ev.ToUserID, t.Token); delErr != nil {
					logger.Error("notifications: delete invalid token failed", "err", delErr, "user_id", ev.ToUserID)
				}
				continue
			}
			logger.Error("notifications: send failed", "err", err, "user_id", ev.ToUserID, "type", kind)
		}
	}
	return nil
}
