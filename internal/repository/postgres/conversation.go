package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
	"docuchat/internal/domain/repositories"
)

// PostgresConversationRepository implements the ConversationRepository interface.
// Multi-document sets are stored sorted so that set equality reduces to
// array equality in SQL.
type PostgresConversationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(config *RepositoryConfig) repositories.ConversationRepository {
	return &PostgresConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new conversation
func (r *PostgresConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, document_ids)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, r.tables.Conversations)

	var docIDs []string
	if len(conv.DocumentIDs) > 0 {
		docIDs = sortedCopy(conv.DocumentIDs)
		conv.DocumentIDs = docIDs
	}

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, conv.DocumentID, docIDs).Scan(&conv.ID, &conv.CreatedAt)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("document %v: %w", conv.DocumentID, domain.ErrNotFound)
		}
		return fmt.Errorf("create conversation: %w", err)
	}

	return nil
}

// Get retrieves a conversation by ID
func (r *PostgresConversationRepository) Get(ctx context.Context, id string) (*models.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, document_ids, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	conv, err := scanConversation(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return conv, nil
}

// FindByDocument finds the single-document conversation for a document
func (r *PostgresConversationRepository) FindByDocument(ctx context.Context, documentID string) (*models.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, document_ids, created_at
		FROM %s
		WHERE document_id = $1
		ORDER BY created_at
		LIMIT 1
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	conv, err := scanConversation(executor.QueryRow(ctx, query, documentID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation for document %s: %w", documentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	return conv, nil
}

// FindByDocumentSet finds a multi-document conversation whose document set
// equals the given ids, regardless of order
func (r *PostgresConversationRepository) FindByDocumentSet(ctx context.Context, documentIDs []string) (*models.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, document_ids, created_at
		FROM %s
		WHERE document_ids = $1
		ORDER BY created_at
		LIMIT 1
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	conv, err := scanConversation(executor.QueryRow(ctx, query, sortedCopy(documentIDs)))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation for document set: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	return conv, nil
}

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var conv models.Conversation
	err := row.Scan(
		&conv.ID,
		&conv.DocumentID,
		&conv.DocumentIDs,
		&conv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}
