package testhelpers

import (
	"github.com/earthwork-discovery/internal/domain/repository"
	"github.com/earthwork-discovery/internal/repository/postgres"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func NewResultsRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.ResultsRepository {
	return postgres.NewResultsRepository(postgres.NewDBForTest(db, logger), logger)
}
