package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
	"docuchat/internal/domain/repositories"
)

const documentColumns = "id, name, type, size, content, summary, brief_summary, key_points, tags, category, version, parent_version_id, collection_id, uploaded_at, updated_at"

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, type, size, content, summary, brief_summary, key_points, tags, category, version, parent_version_id, collection_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, uploaded_at, updated_at
	`, r.tables.Documents)

	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	version := doc.Version
	if version == 0 {
		version = 1
	}

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.Name,
		doc.Type,
		doc.Size,
		doc.Content,
		doc.Summary,
		doc.BriefSummary,
		doc.KeyPoints,
		tags,
		doc.Category,
		version,
		doc.ParentVersionID,
		doc.CollectionID,
	).Scan(&doc.ID, &doc.UploadedAt, &doc.UpdatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("parent version %v: %w", doc.ParentVersionID, domain.ErrNotFound)
		}
		return fmt.Errorf("create document: %w", err)
	}

	doc.Tags = tags
	doc.Version = version
	return nil
}

// Get retrieves a document by ID
func (r *PostgresDocumentRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return doc, nil
}

// List retrieves all documents, newest first
func (r *PostgresDocumentRepository) List(ctx context.Context) ([]*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY uploaded_at DESC, id DESC
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []*models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	return docs, nil
}

// UpdateSummary sets the asynchronously-generated summary fields
func (r *PostgresDocumentRepository) UpdateSummary(ctx context.Context, id string, summary, briefSummary *string, keyPoints []string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET summary = $1, brief_summary = $2, key_points = $3, updated_at = now()
		WHERE id = $4
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, summary, briefSummary, keyPoints, id)
	if err != nil {
		return fmt.Errorf("update document summary: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// FindChildVersion retrieves the version created from the given document,
// or nil when none exists
func (r *PostgresDocumentRepository) FindChildVersion(ctx context.Context, parentID string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE parent_version_id = $1
		ORDER BY version DESC, uploaded_at DESC
		LIMIT 1
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, parentID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find child version: %w", err)
	}

	return doc, nil
}

// Delete removes a document, cascading to its chunks and to every
// conversation referencing it. Chunks and single-document conversations
// cascade through foreign keys; multi-document conversations reference
// documents through an array column and are removed explicitly.
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string) error {
	executor := GetExecutor(ctx, r.pool)

	multiQuery := fmt.Sprintf(`
		DELETE FROM %s
		WHERE $1 = ANY(document_ids)
	`, r.tables.Conversations)

	if _, err := executor.Exec(ctx, multiQuery, id); err != nil {
		return fmt.Errorf("delete document conversations: %w", err)
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, r.tables.Documents)

	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ReplaceChunks atomically replaces all chunks for a document
func (r *PostgresDocumentRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []models.DocumentChunk) error {
	executor := GetExecutor(ctx, r.pool)

	deleteQuery := fmt.Sprintf(`
		DELETE FROM %s
		WHERE document_id = $1
	`, r.tables.DocumentChunks)

	if _, err := executor.Exec(ctx, deleteQuery, documentID); err != nil {
		return fmt.Errorf("delete document chunks: %w", err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (document_id, chunk_index, content, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, r.tables.DocumentChunks)

	for i := range chunks {
		chunk := &chunks[i]
		chunk.DocumentID = documentID
		err := executor.QueryRow(ctx, insertQuery,
			documentID,
			chunk.ChunkIndex,
			chunk.Content,
			chunk.Metadata,
		).Scan(&chunk.ID, &chunk.CreatedAt)

		if err != nil {
			if IsPgForeignKeyError(err) {
				return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
			}
			return fmt.Errorf("insert document chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	return nil
}

// GetChunks retrieves a document's chunks ordered by chunk index
func (r *PostgresDocumentRepository) GetChunks(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, chunk_index, content, metadata, created_at
		FROM %s
		WHERE document_id = $1
		ORDER BY chunk_index
	`, r.tables.DocumentChunks)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document chunks: %w", err)
	}
	defer rows.Close()

	chunks := []models.DocumentChunk{}
	for rows.Next() {
		var chunk models.DocumentChunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.ChunkIndex,
			&chunk.Content,
			&chunk.Metadata,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get document chunks: %w", err)
	}

	return chunks, nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.Name,
		&doc.Type,
		&doc.Size,
		&doc.Content,
		&doc.Summary,
		&doc.BriefSummary,
		&doc.KeyPoints,
		&doc.Tags,
		&doc.Category,
		&doc.Version,
		&doc.ParentVersionID,
		&doc.CollectionID,
		&doc.UploadedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
