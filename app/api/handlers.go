package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/cdn-comb/app/catalog"
	"github.com/lysyi3m/cdn-comb/app/database"
	"github.com/lysyi3m/cdn-comb/app/migration"
	"github.com/lysyi3m/cdn-comb/app/tasks"
)

func NewHandler(configCache *catalog.ConfigCache, assetRepo database.AssetRepository,
	versionRepo database.VersionRepository, migrationRepo database.MigrationRepository,
	alertRepo database.AlertRepository, candidateRepo database.CandidateRepository,
	manager *migration.Manager, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		assetRepo:     assetRepo,
		versionRepo:   versionRepo,
		migrationRepo: migrationRepo,
		alertRepo:     alertRepo,
		candidateRepo: candidateRepo,
		configCache:   configCache,
		manager:       manager,
		scheduler:     scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if assetCount, err := h.assetRepo.GetAssetCount(); err == nil {
		health["assets"] = assetCount
	}

	health["loaded_configurations"] = h.configCache.GetGroupCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if assetCount, err := h.assetRepo.GetAssetCount(); err == nil {
		stats["assets"] = assetCount
	}
	if versionCount, err := h.versionRepo.GetVersionCount(); err == nil {
		stats["archived_versions"] = versionCount
	}
	if candidateCount, err := h.candidateRepo.GetUnresolvedCount(); err == nil {
		stats["pending_candidates"] = candidateCount
	}
	if alertCount, err := h.alertRepo.GetAlertCount(); err == nil {
		stats["alerts"] = alertCount
	}
	if outcomes, err := h.migrationRepo.CountByOutcome(); err == nil {
		byOutcome := make(map[string]int, len(outcomes))
		for outcome, count := range outcomes {
			byOutcome[string(outcome)] = count
		}
		stats["migrations"] = byOutcome
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListAssets(c *gin.Context) {
	assets, err := h.assetRepo.GetActiveAssets()
	if err != nil {
		slog.Error("Database error", "operation", "list_assets", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	list := make([]map[string]interface{}, 0, len(assets))
	for _, asset := range assets {
		list = append(list, assetInfo(&asset))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"assets": list,
		"total":  len(list),
	})
}

func (h *Handler) APIGetAssetHistory(c *gin.Context) {
	baseName := c.Param("base_name")
	if baseName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing base name parameter"})
		return
	}

	asset, err := h.assetRepo.GetAsset(baseName)
	if err != nil {
		slog.Error("Database error", "operation", "get_asset", "base_name", baseName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if asset == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}

	versions, err := h.versionRepo.GetVersions(baseName)
	if err != nil {
		slog.Error("Database error", "operation", "get_versions", "base_name", baseName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	archive := make([]map[string]interface{}, 0, len(versions))
	for _, v := range versions {
		archive = append(archive, map[string]interface{}{
			"version":      v.Version,
			"locator":      v.Locator,
			"content_hash": v.ContentHash,
			"size":         v.Size,
			"archived_at":  v.ArchivedAt.Format(time.RFC3339),
		})
	}

	records, err := h.migrationRepo.GetRecords(baseName, 50)
	if err != nil {
		slog.Error("Database error", "operation", "get_records", "base_name", baseName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"active":     assetInfo(asset),
		"archive":    archive,
		"migrations": recordList(records),
	})
}

func (h *Handler) APIListMigrations(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	records, err := h.migrationRepo.GetRecentRecords(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_migrations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"migrations": recordList(records),
		"total":      len(records),
	})
}

func (h *Handler) APIListAlerts(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	alerts, err := h.alertRepo.GetRecentAlerts(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_alerts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	list := make([]map[string]interface{}, 0, len(alerts))
	for _, a := range alerts {
		list = append(list, map[string]interface{}{
			"kind":         string(a.Kind),
			"base_name":    a.BaseName,
			"from_version": a.FromVersion,
			"to_version":   a.ToVersion,
			"locator":      a.Locator,
			"details":      a.Details,
			"created_at":   a.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"alerts": list,
		"total":  len(list),
	})
}

func (h *Handler) APIGetStatus(c *gin.Context) {
	status, err := h.manager.Status()
	if err != nil {
		slog.Error("Failed to build status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"active_assets":      status.ActiveAssets,
		"archived_versions":  status.ArchivedVersions,
		"pending_candidates": status.PendingCandidates,
		"outcomes":           status.Outcomes,
		"recent":             recordList(status.Recent),
	})
}

type migrateRequest struct {
	Locator string `json:"locator" binding:"required"`
}

func (h *Handler) APIMigrateAsset(c *gin.Context) {
	baseName := c.Param("base_name")
	if baseName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing base name parameter"})
		return
	}

	var req migrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid locator in request body"})
		return
	}

	record, err := h.manager.Migrate(c.Request.Context(), baseName, req.Locator)
	if err != nil {
		if errors.Is(err, database.ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
			return
		}
		slog.Error("Migration failed", "base_name", baseName, "locator", req.Locator, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Migration failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"success":   record.Outcome == database.OutcomeSucceeded,
		"migration": recordInfo(*record),
	})
}

type rollbackRequest struct {
	Version string `json:"version" binding:"required"`
}

func (h *Handler) APIRollbackAsset(c *gin.Context) {
	baseName := c.Param("base_name")
	if baseName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing base name parameter"})
		return
	}

	var req rollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid version in request body"})
		return
	}

	record, err := h.manager.Rollback(c.Request.Context(), baseName, req.Version)
	if err != nil {
		if errors.Is(err, database.ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
			return
		}
		if errors.Is(err, migration.ErrVersionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Version not found in archive"})
			return
		}
		slog.Error("Rollback failed", "base_name", baseName, "version", req.Version, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rollback failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"success":   record.Outcome == database.OutcomeRolledBack,
		"migration": recordInfo(*record),
	})
}

func (h *Handler) APIRunDetection(c *gin.Context) {
	if err := h.scheduler.RequestDetection(); err != nil {
		slog.Error("Failed to enqueue detection task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue detection task", "details": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Detection pass enqueued",
	})
}

func assetInfo(asset *database.TrackedAsset) map[string]interface{} {
	info := map[string]interface{}{
		"base_name":                 asset.BaseName,
		"locator":                   asset.Locator,
		"version":                   asset.Version,
		"file_type":                 asset.FileType,
		"domain":                    asset.Domain,
		"category":                  asset.Category,
		"priority":                  asset.Priority,
		"content_hash":              asset.ContentHash,
		"size":                      asset.Size,
		"consecutive_failure_count": asset.ConsecutiveFailureCount,
		"updated_at":                asset.UpdatedAt.Format(time.RFC3339),
	}
	if asset.LastCheckedAt != nil {
		info["last_checked_at"] = asset.LastCheckedAt.Format(time.RFC3339)
	}
	return info
}

func recordInfo(r database.MigrationRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":           r.ID,
		"base_name":    r.BaseName,
		"from_version": r.FromVersion,
		"to_version":   r.ToVersion,
		"outcome":      string(r.Outcome),
		"reason":       r.Reason,
		"duration_ms":  r.DurationMs,
		"occurred_at":  r.OccurredAt.Format(time.RFC3339),
	}
}

func recordList(records []database.MigrationRecord) []map[string]interface{} {
	list := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		list = append(list, recordInfo(r))
	}
	return list
}
