package handlers

import (
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/vieilles-charrues/mintauction/internal/ledger"
	internalsettings "github.com/vieilles-charrues/mintauction/internal/settings"
)

// FaucetHandler credits devnet lamports.
type FaucetHandler struct {
	runtime     *ledger.Runtime
	maxLamports uint64
}

// NewFaucetHandler constructs a FaucetHandler capped at maxLamports per request.
func NewFaucetHandler(runtime *ledger.Runtime, maxLamports uint64) *FaucetHandler {
	return &FaucetHandler{runtime: runtime, maxLamports: maxLamports}
}

// airdropRequest names the recipient and amount.
type airdropRequest struct {
	Address  string `json:"address"`  // Recipient.
	Lamports uint64 `json:"lamports"` // Amount in smallest currency units.
}

// Airdrop credits lamports to an address.
func (h *FaucetHandler) Airdrop(c *gin.Context) {
	var body airdropRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	address, errParse := solana.PublicKeyFromBase58(strings.TrimSpace(body.Address))
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return
	}
	if body.Lamports == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lamports must be positive"})
		return
	}
	if body.Lamports > h.maxLamports {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "airdrop exceeds limit of " + uiAmount(h.maxLamports, internalsettings.NativeDecimals) + " SOL",
		})
		return
	}

	ctx := c.Request.Context()
	errExec := h.runtime.Execute(ctx, []solana.PublicKey{address}, func(tx *ledger.Tx) error {
		return ledger.System{}.Airdrop(tx, address, body.Lamports)
	})
	if errExec != nil {
		writeError(c, errExec, "airdrop failed")
		return
	}
	lamports, errBalance := ledger.System{}.Balance(ctx, h.runtime.View(ctx), address)
	if errBalance != nil {
		writeError(c, errBalance, "load balance failed")
		return
	}

	log.WithFields(log.Fields{"address": address.String(), "lamports": body.Lamports}).Info("airdrop")
	c.JSON(http.StatusOK, gin.H{
		"address":  address.String(),
		"lamports": lamports,
		"sol":      uiAmount(lamports, internalsettings.NativeDecimals),
	})
}
