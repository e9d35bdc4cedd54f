package database

import (
	"annictgram/internal/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

const subscriptionColumns = "id, chat_id, user_id, account_name, end_cursor, last_activity_at"

// UpsertSubscription stores a subscription of chatID to account. A repeated
// subscription restarts from the given checkpoint.
func (d *Database) UpsertSubscription(
	ctx context.Context,
	chatID int64,
	userID int64,
	accountName string,
	checkpoint domain.Checkpoint,
) (domain.Subscription, error) {
	accountName = strings.TrimSpace(accountName)
	if accountName == "" {
		return domain.Subscription{}, errors.New("account name is empty")
	}

	query := `insert into subscriptions (chat_id, user_id, account_name, end_cursor, last_activity_at)
	values (?, ?, ?, ?, ?)
	on conflict (chat_id, account_name) do update
	set user_id = excluded.user_id,
	end_cursor = excluded.end_cursor,
	last_activity_at = excluded.last_activity_at
	returning ` + subscriptionColumns

	row := d.db.QueryRowContext(ctx, query,
		chatID,
		userID,
		accountName,
		nullString(checkpoint.Cursor),
		nullTime(checkpoint.Time))

	sub, err := scanSubscription(row)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("scan row: %w", err)
	}

	return sub, nil
}

// RemoveSubscription reports whether a subscription was deleted.
func (d *Database) RemoveSubscription(ctx context.Context, chatID int64, accountName string) (bool, error) {
	query := "delete from subscriptions where chat_id = ? and account_name = ?"

	res, err := d.db.ExecContext(ctx, query, chatID, strings.TrimSpace(accountName))
	if err != nil {
		return false, fmt.Errorf("execute query: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return n > 0, nil
}

func (d *Database) GetChatSubscriptions(ctx context.Context, chatID int64) ([]domain.Subscription, error) {
	query := "select " + subscriptionColumns + " from subscriptions where chat_id = ? order by account_name"

	return d.querySubscriptions(ctx, "GetChatSubscriptions", query, chatID)
}

func (d *Database) GetAllSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	query := "select " + subscriptionColumns + " from subscriptions order by id"

	return d.querySubscriptions(ctx, "GetAllSubscriptions", query)
}

func (d *Database) querySubscriptions(
	ctx context.Context,
	operation string,
	query string,
	args ...any,
) ([]domain.Subscription, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"operation", operation)
		}
	}()

	var subs []domain.Subscription
	for rows.Next() {
		sub, scanErr := scanSubscription(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan row: %w", scanErr)
		}

		subs = append(subs, sub)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return subs, nil
}

func (d *Database) LoadCheckpoint(ctx context.Context, subscriptionID int64) (domain.Checkpoint, error) {
	query := "select end_cursor, last_activity_at from subscriptions where id = ?"

	var cursor, lastActivityAt sql.NullString
	err := d.db.QueryRowContext(ctx, query, subscriptionID).Scan(&cursor, &lastActivityAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Checkpoint{}, fmt.Errorf("subscription %d: %w", subscriptionID, ErrSubscriptionNotFound)
	}
	if err != nil {
		return domain.Checkpoint{}, fmt.Errorf("scan row: %w", err)
	}

	return checkpointFromColumns(cursor, lastActivityAt)
}

func (d *Database) SaveCheckpoint(
	ctx context.Context,
	subscriptionID int64,
	checkpoint domain.Checkpoint,
) error {
	query := "update subscriptions set end_cursor = ?, last_activity_at = ? where id = ?"

	res, err := d.db.ExecContext(ctx, query,
		nullString(checkpoint.Cursor),
		nullTime(checkpoint.Time),
		subscriptionID)
	if err != nil {
		return fmt.Errorf("execute query: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("subscription %d: %w", subscriptionID, ErrSubscriptionNotFound)
	}

	return nil
}

func (d *Database) GetChatSettingsWithDefault(ctx context.Context, chatID int64) (domain.ChatSettings, error) {
	query := "select notify_flags from chat_settings where chat_id = ?"

	var flags int64
	err := d.db.QueryRowContext(ctx, query, chatID).Scan(&flags)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChatSettings{ChatID: chatID, NotifyFlags: domain.NotifyAll}, nil
	}
	if err != nil {
		return domain.ChatSettings{}, fmt.Errorf("scan row: %w", err)
	}

	return domain.ChatSettings{ChatID: chatID, NotifyFlags: domain.NotifyFlags(flags)}, nil
}

func (d *Database) UpsertChatSettings(ctx context.Context, settings domain.ChatSettings) error {
	query := `insert into chat_settings (chat_id, notify_flags)
	values (?, ?)
	on conflict (chat_id) do update
	set notify_flags = excluded.notify_flags`

	_, err := d.db.ExecContext(ctx, query, settings.ChatID, int64(settings.NotifyFlags))

	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (domain.Subscription, error) {
	var sub domain.Subscription
	var cursor, lastActivityAt sql.NullString

	if err := row.Scan(&sub.ID, &sub.ChatID, &sub.UserID, &sub.AccountName, &cursor, &lastActivityAt); err != nil {
		return domain.Subscription{}, err
	}

	checkpoint, err := checkpointFromColumns(cursor, lastActivityAt)
	if err != nil {
		return domain.Subscription{}, err
	}

	sub.AccountName = strings.TrimSpace(sub.AccountName)
	sub.Checkpoint = checkpoint

	return sub, nil
}

func checkpointFromColumns(cursor, lastActivityAt sql.NullString) (domain.Checkpoint, error) {
	var checkpoint domain.Checkpoint

	if cursor.Valid {
		checkpoint.Cursor = &cursor.String
	}

	if lastActivityAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastActivityAt.String)
		if err != nil {
			return domain.Checkpoint{}, fmt.Errorf("parse last activity time: %w", err)
		}
		checkpoint.Time = &t
	}

	return checkpoint, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}
