package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"frame-weaver/internal/service"
)

type recordNFTRequest struct {
	UserID          int64    `json:"userId" binding:"required"`
	TokenID         string   `json:"tokenId" binding:"required"`
	TransactionHash *string  `json:"transactionHash"`
	RawScore        *float64 `json:"rawScore" binding:"required"`
	CompositeScore  *float64 `json:"compositeScore" binding:"required"`
}

type mintNFTRequest struct {
	UserID         int64    `json:"userId"`
	WalletAddress  string   `json:"walletAddress"`
	RawScore       *float64 `json:"rawScore" binding:"required"`
	CompositeScore *float64 `json:"compositeScore" binding:"required"`
	Username       string   `json:"username"`
	IdentityID     int64    `json:"identityId"`
}

func (h *Handler) recordNFT(c *gin.Context) {
	var req recordNFTRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.authorizeUser(c, req.UserID) {
		return
	}

	record, err := h.nfts.Record(c.Request.Context(), service.RecordInput{
		UserID:          req.UserID,
		TokenID:         req.TokenID,
		TransactionHash: req.TransactionHash,
		RawScore:        *req.RawScore,
		CompositeScore:  *req.CompositeScore,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mintRecordToResponse(*record))
}

func (h *Handler) listNFTs(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	records, err := h.nfts.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]MintRecordResponse, len(records))
	for i := range records {
		resp[i] = mintRecordToResponse(records[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) mintNFT(c *gin.Context) {
	var req mintNFTRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID > 0 && !h.authorizeUser(c, req.UserID) {
		return
	}

	res, err := h.nfts.Mint(c.Request.Context(), service.MintInput{
		UserID:         req.UserID,
		WalletAddress:  req.WalletAddress,
		IdentityID:     req.IdentityID,
		Username:       req.Username,
		RawScore:       *req.RawScore,
		CompositeScore: *req.CompositeScore,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"txHash":  res.TransactionHash,
		"tokenId": res.TokenID,
		"nft":     mintRecordToResponse(*res.Record),
	})
}

func (h *Handler) nftMetadata(c *gin.Context) {
	url, err := h.nfts.MetadataURL(c.Request.Context(), c.Param("tokenId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *Handler) walletInfo(c *gin.Context) {
	if h.wallet == nil {
		h.writeError(c, service.ErrDisbursementUnavailable)
		return
	}
	info, err := h.wallet.Info(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"configured":   info.Configured,
		"adminAddress": info.AdminAddress,
		"tokenBalance": info.TokenBalance,
		"ethBalance":   info.NativeBalance,
	})
}
