package handlers

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/vieilles-charrues/mintauction/internal/auction"
	"github.com/vieilles-charrues/mintauction/internal/programerr"
)

// ContextWalletKey is the gin context key holding the authenticated wallet.
const ContextWalletKey = "wallet"

var programErrorStatus = map[programerr.Code]int{
	programerr.CodeAuthorization:         http.StatusForbidden,
	programerr.CodePaymentTransferFailed: http.StatusPaymentRequired,
	programerr.CodeInsufficientFunds:     http.StatusPaymentRequired,
	programerr.CodeAccountAlreadyInUse:   http.StatusConflict,
	programerr.CodeAccountNotFound:       http.StatusNotFound,
	programerr.CodeInvalidArgument:       http.StatusBadRequest,
	programerr.CodeMissingSigner:         http.StatusUnauthorized,
	auction.CodeAuctionEnded:             http.StatusConflict,
	auction.CodeBidTooLow:                http.StatusConflict,
	auction.CodeAuctionNotEnded:          http.StatusConflict,
	auction.CodeNotHighestBidder:         http.StatusForbidden,
	auction.CodeAlreadyClaimed:           http.StatusConflict,
	auction.CodeAuctionAlreadyStarted:    http.StatusConflict,
	auction.CodeInvalidDuration:          http.StatusBadRequest,
	auction.CodeTreasuryMismatch:         http.StatusBadRequest,
	auction.CodeInvalidTokenAccount:      http.StatusBadRequest,
}

// writeError renders err. Program errors keep their code and name; anything
// else is logged and reported as an internal error.
func writeError(c *gin.Context, err error, fallback string) {
	perr, ok := programerr.From(err)
	if !ok {
		log.WithError(err).WithField("path", c.FullPath()).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
		return
	}
	status, known := programErrorStatus[perr.Code]
	if !known {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  perr.Code,
		"name":  perr.Name,
	})
}

// callerWallet returns the wallet set by the auth middleware.
func callerWallet(c *gin.Context) (solana.PublicKey, bool) {
	value, exists := c.Get(ContextWalletKey)
	if !exists {
		return solana.PublicKey{}, false
	}
	wallet, ok := value.(solana.PublicKey)
	return wallet, ok && !wallet.IsZero()
}

func requireWallet(c *gin.Context) (solana.PublicKey, bool) {
	wallet, ok := callerWallet(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing wallet"})
		return solana.PublicKey{}, false
	}
	return wallet, true
}

// parseAddress parses an optional base58 address; empty input yields the zero key.
func parseAddress(raw string) (solana.PublicKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return solana.PublicKey{}, nil
	}
	return solana.PublicKeyFromBase58(raw)
}

// uiAmount renders a base-unit amount with the given decimal precision.
func uiAmount(amount uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).String()
}
