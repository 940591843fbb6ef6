package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vieilles-charrues/mintauction/internal/issuance"
)

// MintHandler exposes the program mint.
type MintHandler struct {
	issuance *issuance.Service
}

// NewMintHandler constructs a MintHandler.
func NewMintHandler(svc *issuance.Service) *MintHandler {
	return &MintHandler{issuance: svc}
}

// initializeMintRequest describes the mint to create.
type initializeMintRequest struct {
	Name     string `json:"name"`     // Token name.
	Symbol   string `json:"symbol"`   // Ticker symbol.
	URI      string `json:"uri"`      // Off-chain metadata JSON.
	Decimals uint8  `json:"decimals"` // Decimal precision.
}

// Initialize creates the mint and its metadata, paid by the caller.
func (h *MintHandler) Initialize(c *gin.Context) {
	payer, ok := requireWallet(c)
	if !ok {
		return
	}
	var body initializeMintRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	info, errInit := h.issuance.Initialize(c.Request.Context(), payer, issuance.InitParams{
		Name:     strings.TrimSpace(body.Name),
		Symbol:   strings.TrimSpace(body.Symbol),
		URI:      strings.TrimSpace(body.URI),
		Decimals: body.Decimals,
	})
	if errInit != nil {
		writeError(c, errInit, "initialize mint failed")
		return
	}
	c.JSON(http.StatusCreated, formatMintInfo(info))
}

// mintTokensRequest describes an issuance.
type mintTokensRequest struct {
	Destination string `json:"destination"` // Owner wallet; defaults to the caller.
	Quantity    uint64 `json:"quantity"`    // Units to mint, zero allowed.
}

// MintTokens issues units to the destination owner's holding account.
func (h *MintHandler) MintTokens(c *gin.Context) {
	caller, ok := requireWallet(c)
	if !ok {
		return
	}
	var body mintTokensRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	destination, errParse := parseAddress(body.Destination)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid destination"})
		return
	}
	if destination.IsZero() {
		destination = caller
	}

	holding, errMint := h.issuance.MintTokens(c.Request.Context(), destination, body.Quantity)
	if errMint != nil {
		writeError(c, errMint, "mint tokens failed")
		return
	}
	info, errInfo := h.issuance.Info(c.Request.Context())
	if errInfo != nil {
		writeError(c, errInfo, "load mint failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"holding_account": holding.Address,
		"owner":           holding.Owner,
		"amount":          holding.Amount,
		"ui_amount":       uiAmount(holding.Amount, info.Mint.Decimals),
		"supply":          info.Mint.Supply,
	})
}

// Get returns the mint and its metadata.
func (h *MintHandler) Get(c *gin.Context) {
	info, errInfo := h.issuance.Info(c.Request.Context())
	if errInfo != nil {
		writeError(c, errInfo, "load mint failed")
		return
	}
	c.JSON(http.StatusOK, formatMintInfo(info))
}

func formatMintInfo(info *issuance.MintInfo) gin.H {
	out := gin.H{
		"address":        info.Mint.Address,
		"decimals":       info.Mint.Decimals,
		"supply":         info.Mint.Supply,
		"ui_supply":      uiAmount(info.Mint.Supply, info.Mint.Decimals),
		"mint_authority": info.Mint.MintAuthority,
		"created_at":     info.Mint.CreatedAt,
	}
	if info.Metadata != nil {
		out["metadata"] = gin.H{
			"address":          info.Metadata.Address,
			"name":             info.Metadata.Name,
			"symbol":           info.Metadata.Symbol,
			"uri":              info.Metadata.URI,
			"update_authority": info.Metadata.UpdateAuthority,
			"is_mutable":       info.Metadata.IsMutable,
		}
	}
	return out
}
