package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type claimRequest struct {
	UserID        int64  `json:"userId"`
	WalletAddress string `json:"walletAddress"`
}

func (h *Handler) canClaim(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	elig, err := h.claims.Eligibility(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, eligibilityToResponse(elig))
}

func (h *Handler) claim(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID > 0 && !h.authorizeUser(c, req.UserID) {
		return
	}

	claim, err := h.claims.Claim(c.Request.Context(), req.UserID, req.WalletAddress)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var hash string
	if claim.TransactionHash != nil {
		hash = *claim.TransactionHash
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"claim":           claimToResponse(*claim),
		"transactionHash": hash,
		"message":         fmt.Sprintf("%s tokens sent successfully", claim.Amount),
	})
}

func (h *Handler) claimHistory(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	claims, err := h.claims.History(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]ClaimResponse, len(claims))
	for i := range claims {
		resp[i] = claimToResponse(claims[i])
	}
	c.JSON(http.StatusOK, resp)
}
