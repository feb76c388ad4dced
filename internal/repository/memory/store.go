// Package memory provides a map-backed store engine. It implements the same
// repository interfaces as the postgres engine, so the core never depends on
// which one is wired. Used by tests and when DATABASE_URL is unset.
package memory

import (
	"context"
	"sync"

	"docuchat/internal/domain/models"
	"docuchat/internal/domain/repositories"
)

// Store holds all entities behind a single mutex. Per-entity repositories
// share it, so cascade deletes see a consistent view.
type Store struct {
	mu sync.RWMutex

	documents     map[string]*models.Document
	chunks        map[string][]models.DocumentChunk // by document id
	conversations map[string]*models.Conversation
	messages      map[string][]models.Message // by conversation id, creation order
	msgConv       map[string]string           // message id -> conversation id
	jobs          map[string]*models.Job
	jobOrder      []string // creation order
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		documents:     make(map[string]*models.Document),
		chunks:        make(map[string][]models.DocumentChunk),
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]models.Message),
		msgConv:       make(map[string]string),
		jobs:          make(map[string]*models.Job),
	}
}

// Documents returns the document repository view of the store.
func (s *Store) Documents() repositories.DocumentRepository {
	return &documentRepo{store: s}
}

// Conversations returns the conversation repository view of the store.
func (s *Store) Conversations() repositories.ConversationRepository {
	return &conversationRepo{store: s}
}

// Messages returns the message repository view of the store.
func (s *Store) Messages() repositories.MessageRepository {
	return &messageRepo{store: s}
}

// Jobs returns the job repository view of the store.
func (s *Store) Jobs() repositories.JobRepository {
	return &jobRepo{store: s}
}

// TxManager returns a pass-through transaction manager. The store's mutex
// already serializes each operation; multi-step operations are atomic
// enough for the append-only / replace-as-a-batch entities this system has.
func (s *Store) TxManager() repositories.TransactionManager {
	return passthroughTxManager{}
}

type passthroughTxManager struct{}

func (passthroughTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

func copyDocument(doc *models.Document) *models.Document {
	cp := *doc
	cp.KeyPoints = append([]string(nil), doc.KeyPoints...)
	cp.Tags = append([]string(nil), doc.Tags...)
	return &cp
}

func copyConversation(conv *models.Conversation) *models.Conversation {
	cp := *conv
	cp.DocumentIDs = append([]string(nil), conv.DocumentIDs...)
	return &cp
}

func copyJob(job *models.Job) *models.Job {
	cp := *job
	return &cp
}
