package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
	"docuchat/internal/domain/repositories"
)

const messageColumns = "id, conversation_id, role, content, rating, edited, original_content, model_used, created_at, updated_at"

// PostgresMessageRepository implements the MessageRepository interface
type PostgresMessageRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(config *RepositoryConfig) repositories.MessageRepository {
	return &PostgresMessageRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create appends a message to its conversation
func (r *PostgresMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (conversation_id, role, content, rating, edited, original_content, model_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, r.tables.Messages)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		msg.Rating,
		msg.Edited,
		msg.OriginalContent,
		msg.ModelUsed,
	).Scan(&msg.ID, &msg.CreatedAt, &msg.UpdatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("conversation %s: %w", msg.ConversationID, domain.ErrNotFound)
		}
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

// Get retrieves a message by ID
func (r *PostgresMessageRepository) Get(ctx context.Context, id string) (*models.Message, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, messageColumns, r.tables.Messages)

	executor := GetExecutor(ctx, r.pool)
	var msg models.Message
	err := executor.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.Role,
		&msg.Content,
		&msg.Rating,
		&msg.Edited,
		&msg.OriginalContent,
		&msg.ModelUsed,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get message: %w", err)
	}

	return &msg, nil
}

// List retrieves a conversation's messages ordered by creation time
func (r *PostgresMessageRepository) List(ctx context.Context, conversationID string) ([]models.Message, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE conversation_id = $1
		ORDER BY created_at, id
	`, messageColumns, r.tables.Messages)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Content,
			&msg.Rating,
			&msg.Edited,
			&msg.OriginalContent,
			&msg.ModelUsed,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return messages, nil
}

// Update persists mutable message fields and bumps updated_at
func (r *PostgresMessageRepository) Update(ctx context.Context, msg *models.Message) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET content = $1, rating = $2, edited = $3, original_content = $4, model_used = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`, r.tables.Messages)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		msg.Content,
		msg.Rating,
		msg.Edited,
		msg.OriginalContent,
		msg.ModelUsed,
		msg.ID,
	).Scan(&msg.UpdatedAt)

	if err != nil {
		if IsPgNoRowsError(err) {
			return fmt.Errorf("message %s: %w", msg.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("update message: %w", err)
	}

	return nil
}

// Delete removes a single message
func (r *PostgresMessageRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, r.tables.Messages)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// DeleteAfter removes every message in the conversation created strictly
// after the given message. Ordering matches List: (created_at, id).
func (r *PostgresMessageRepository) DeleteAfter(ctx context.Context, conversationID, messageID string) error {
	executor := GetExecutor(ctx, r.pool)

	anchorQuery := fmt.Sprintf(`
		SELECT 1
		FROM %s
		WHERE id = $1 AND conversation_id = $2
	`, r.tables.Messages)

	var one int
	if err := executor.QueryRow(ctx, anchorQuery, messageID, conversationID).Scan(&one); err != nil {
		if IsPgNoRowsError(err) {
			return fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
		}
		return fmt.Errorf("delete messages after: %w", err)
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE conversation_id = $1
		  AND (created_at, id) > (SELECT created_at, id FROM %s WHERE id = $2)
	`, r.tables.Messages, r.tables.Messages)

	if _, err := executor.Exec(ctx, query, conversationID, messageID); err != nil {
		return fmt.Errorf("delete messages after: %w", err)
	}

	return nil
}
