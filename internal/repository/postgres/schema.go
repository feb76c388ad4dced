package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitSchema creates the tables for this environment's prefix if they do
// not exist yet. Single-document conversations and messages cascade via
// foreign keys; multi-document conversations reference documents through a
// text array, so their cascade is handled by the document repository.
func InitSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				size INTEGER NOT NULL,
				content TEXT NOT NULL,
				summary TEXT,
				brief_summary TEXT,
				key_points TEXT[],
				tags TEXT[] NOT NULL DEFAULT '{}',
				category TEXT,
				version INTEGER NOT NULL DEFAULT 1,
				parent_version_id UUID,
				collection_id UUID,
				uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, tables.Documents),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				document_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				chunk_index INTEGER NOT NULL,
				content TEXT NOT NULL,
				metadata JSONB,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				UNIQUE (document_id, chunk_index)
			)`, tables.DocumentChunks, tables.Documents),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				document_id UUID REFERENCES %s(id) ON DELETE CASCADE,
				document_ids TEXT[],
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, tables.Conversations, tables.Documents),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				conversation_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				role TEXT NOT NULL,
				content TEXT NOT NULL,
				rating INTEGER,
				edited BOOLEAN NOT NULL DEFAULT false,
				original_content TEXT,
				model_used TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, tables.Messages, tables.Conversations),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				type TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				data JSONB,
				result JSONB,
				error TEXT,
				progress INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				completed_at TIMESTAMPTZ
			)`, tables.Jobs),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
