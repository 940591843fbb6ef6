package handlers

import (
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/vieilles-charrues/mintauction/internal/ledger"
	internalsettings "github.com/vieilles-charrues/mintauction/internal/settings"
)

// AccountHandler reports balances held by an address.
type AccountHandler struct {
	runtime *ledger.Runtime
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(runtime *ledger.Runtime) *AccountHandler {
	return &AccountHandler{runtime: runtime}
}

// Get returns the native balance and token holdings of an address.
func (h *AccountHandler) Get(c *gin.Context) {
	address, errParse := solana.PublicKeyFromBase58(strings.TrimSpace(c.Param("address")))
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return
	}
	ctx := c.Request.Context()
	conn := h.runtime.View(ctx)

	lamports, errBalance := ledger.System{}.Balance(ctx, conn, address)
	if errBalance != nil {
		writeError(c, errBalance, "load balance failed")
		return
	}
	holdings, errHoldings := ledger.Token{}.Holdings(ctx, conn, address)
	if errHoldings != nil {
		writeError(c, errHoldings, "load holdings failed")
		return
	}

	tokens := make([]gin.H, 0, len(holdings))
	for _, holding := range holdings {
		mintAddress, errMint := solana.PublicKeyFromBase58(holding.Mint)
		if errMint != nil {
			writeError(c, errMint, "load holdings failed")
			return
		}
		mint, errGet := ledger.Token{}.GetMint(ctx, conn, mintAddress)
		if errGet != nil {
			writeError(c, errGet, "load mint failed")
			return
		}
		tokens = append(tokens, gin.H{
			"holding_account": holding.Address,
			"mint":            holding.Mint,
			"amount":          holding.Amount,
			"decimals":        mint.Decimals,
			"ui_amount":       uiAmount(holding.Amount, mint.Decimals),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"address":  address.String(),
		"lamports": lamports,
		"sol":      uiAmount(lamports, internalsettings.NativeDecimals),
		"tokens":   tokens,
	})
}
