package planning

import (
	planningRepo "planwise/internal/domain/repositories/planning"
	"planwise/internal/repository/postgres"
)

// NewStore wires every planning repository on one pool
func NewStore(config *postgres.RepositoryConfig) *planningRepo.Store {
	return &planningRepo.Store{
		Tx:            postgres.NewTransactionManager(config.Pool, config.Logger),
		Users:         NewUserRepository(config),
		Projects:      NewProjectRepository(config),
		Members:       NewMemberRepository(config),
		Documents:     NewDocumentRepository(config),
		Versions:      NewVersionRepository(config),
		History:       NewApprovalHistoryRepository(config),
		Conversations: NewConversationRepository(config),
	}
}
