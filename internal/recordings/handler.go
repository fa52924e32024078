package recordings

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/upstandfm/audio-transcoder/internal/keys"
	"github.com/upstandfm/audio-transcoder/pkg/response"
)

// Handler handles recording read endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a recordings handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// ListByStandup handles GET /standups/:standupId/recordings.
func (h *Handler) ListByStandup(c *gin.Context) {
	standupID := c.Param("standupId")
	if !keys.ValidShortID(standupID) {
		response.BadRequest(c, "invalid standup id")
		return
	}

	list, err := h.repo.ListByStandup(c.Request.Context(), standupID)
	if err != nil {
		h.logger.Error("list recordings failed", zap.Error(err), zap.String("standup_id", standupID))
		response.Internal(c, "failed to list recordings")
		return
	}
	response.OK(c, list)
}
