package sqlite

import (
	"log/slog"

	planningRepo "planwise/internal/domain/repositories/planning"
)

// NewStore wires every planning repository on one database
func NewStore(db *DB, logger *slog.Logger) *planningRepo.Store {
	return &planningRepo.Store{
		Tx:            NewTransactionManager(db, logger),
		Users:         NewUserRepository(db),
		Projects:      NewProjectRepository(db),
		Members:       NewMemberRepository(db),
		Documents:     NewDocumentRepository(db, logger),
		Versions:      NewVersionRepository(db),
		History:       NewApprovalHistoryRepository(db),
		Conversations: NewConversationRepository(db),
	}
}
