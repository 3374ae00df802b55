package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getScores(c *gin.Context) {
	identityID, ok := pathID(c, "identityId")
	if !ok {
		return
	}

	snapshot, err := h.scores.Scores(c.Request.Context(), identityID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, scoreToResponse(*snapshot))
}
