package api

import (
	"github.com/lysyi3m/cdn-comb/app/catalog"
	"github.com/lysyi3m/cdn-comb/app/database"
	"github.com/lysyi3m/cdn-comb/app/migration"
	"github.com/lysyi3m/cdn-comb/app/tasks"
)

type Handler struct {
	assetRepo     database.AssetRepository
	versionRepo   database.VersionRepository
	migrationRepo database.MigrationRepository
	alertRepo     database.AlertRepository
	candidateRepo database.CandidateRepository
	configCache   *catalog.ConfigCache
	manager       *migration.Manager
	scheduler     tasks.TaskSchedulerInterface
}
