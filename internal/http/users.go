package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"frame-weaver/internal/service"
)

type createUserRequest struct {
	IdentityID  int64  `json:"identityId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

type updateWalletRequest struct {
	WalletAddress string `json:"walletAddress"`
}

func (h *Handler) getOrCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.authorizeIdentity(c, req.IdentityID) {
		return
	}

	user, err := h.users.GetOrCreate(c.Request.Context(), service.GetOrCreateInput{
		IdentityID:  req.IdentityID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) updateWallet(c *gin.Context) {
	identityID, ok := pathID(c, "identityId")
	if !ok {
		return
	}
	var req updateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.authorizeIdentity(c, identityID) {
		return
	}

	user, err := h.users.UpdateWallet(c.Request.Context(), identityID, req.WalletAddress)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

// pathID parses a positive integer path parameter, writing 400 otherwise.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
