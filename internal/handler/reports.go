package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/samoht625/cursor-eng-ctx/internal/adapter/store"
	"github.com/samoht625/cursor-eng-ctx/internal/port"
)

// detailDiffLines caps the diff attached to a single-change response.
const detailDiffLines = 2000

// ReportsHandler serves the analysis reporting endpoints.
type ReportsHandler struct {
	store    *store.SQLiteStore
	vcs      port.CommitSource
	repoPath string // fallback when a record carries no repo path
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(s *store.SQLiteStore, vcs port.CommitSource, repoPath string) *ReportsHandler {
	return &ReportsHandler{store: s, vcs: vcs, repoPath: repoPath}
}

// Register sets up the reporting routes.
func (h *ReportsHandler) Register(router fiber.Router) {
	router.Get("/analyses", h.ListAnalyses)
	router.Get("/analyses/:hash", h.GetAnalysis)
	router.Get("/stats", h.Stats)
	router.Get("/authors", h.Authors)
}

// ListAnalyses returns scored change records, filterable by author and
// relative time window, sortable by whitelisted columns.
func (h *ReportsHandler) ListAnalyses(c fiber.Ctx) error {
	filter := store.AnalysisFilter{
		Author:     c.Query("author"),
		TimeFilter: c.Query("time_filter"),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}

	results, err := h.store.ListAnalyses(c.Context(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"analyses": results, "count": len(results)})
}

// GetAnalysis returns one record by merge hash (revert-chain links
// included), with an on-demand truncated diff when the repo is reachable.
func (h *ReportsHandler) GetAnalysis(c fiber.Ctx) error {
	hash := c.Params("hash")

	analysis, err := h.store.GetAnalysisByHash(c.Context(), hash)
	if errors.Is(err, port.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "commit not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	repoPath := analysis.RepoPath
	if repoPath == "" {
		repoPath = h.repoPath
	}

	diff := ""
	if repoPath != "" {
		// Diff failures render an empty diff, never a failed response.
		diff, _ = h.vcs.Diff(c.Context(), repoPath, hash, detailDiffLines)
	}

	return c.JSON(fiber.Map{"analysis": analysis, "diff": diff})
}

// Stats returns the reporting rollup: overall and per-author impact points,
// score distributions, and size totals.
func (h *ReportsHandler) Stats(c fiber.Ctx) error {
	summary, err := h.store.SummaryStats(c.Context(), c.Query("time_filter"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(summary)
}

// Authors returns the distinct authors with scored records.
func (h *ReportsHandler) Authors(c fiber.Ctx) error {
	authors, err := h.store.Authors(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"authors": authors})
}
