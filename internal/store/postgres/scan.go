package postgres

import (
	"encoding/hex"
	"errors"
	"time"

	"MentorMatchserver/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

func timestamptzPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	tt := t.Time
	return &tt
}

func uuidOrEmpty(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuidBytesToString(u.Bytes)
}

func uuidBytesToString(b [16]byte) string {
	var buf [36]byte
	hex.Encode(buf[0:8], b[0:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], b[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], b[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], b[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:36], b[10:16])
	return string(buf[:])
}

// pgUUID is used where pgx encodes in binary (COPY) and a string will not do.
func pgUUID(s string) (pgtype.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}

func textArrayOrEmpty(a pgtype.FlatArray[string]) []string {
	if a == nil {
		return nil
	}
	return []string(a)
}

// uniqueViolation reports the index name of a 23505 error.
func uniqueViolation(err error) (string, bool) {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		return pgerr.ConstraintName, true
	}
	return "", false
}

// foreignKeyViolation reports whether err is a 23503, i.e. a referenced row
// such as the target user is gone.
func foreignKeyViolation(err error) bool {
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && pgerr.Code == "23503"
}

// storeError maps unique violations on the ledger indexes to conflicts, a
// missing referenced user to ErrNotFound and everything else to
// ErrUnavailable.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
		return err
	}
	if foreignKeyViolation(err) {
		return domain.ErrNotFound
	}
	if name, ok := uniqueViolation(err); ok {
		switch name {
		case "connection_requests_pending_pair_uq":
			return domain.ErrRequestExists
		case "connections_pair_uq":
			return domain.ErrAlreadyConnected
		case "users_email_uq":
			return domain.ErrEmailTaken
		case "external_accounts_provider_uq", "external_accounts_user_provider_uq":
			return domain.ErrExternalAccountExists
		}
	}
	return domain.Unavailable(op, err)
}
