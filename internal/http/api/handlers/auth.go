package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/vieilles-charrues/mintauction/internal/config"
	"github.com/vieilles-charrues/mintauction/internal/security"
)

// AuthHandler runs the wallet sign-in flow.
type AuthHandler struct {
	challenges *security.ChallengeStore
	jwtCfg     config.JWTConfig
	nowFn      func() time.Time
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(challenges *security.ChallengeStore, jwtCfg config.JWTConfig, nowFn func() time.Time) *AuthHandler {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &AuthHandler{challenges: challenges, jwtCfg: jwtCfg, nowFn: nowFn}
}

// challengeRequest names the wallet that wants to sign in.
type challengeRequest struct {
	Wallet string `json:"wallet"` // Base58 wallet address.
}

// Challenge issues a one-time message for the wallet to sign.
func (h *AuthHandler) Challenge(c *gin.Context) {
	var body challengeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	wallet, errParse := solana.PublicKeyFromBase58(strings.TrimSpace(body.Wallet))
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet"})
		return
	}

	challenge, errIssue := h.challenges.Issue(c.Request.Context(), wallet)
	if errIssue != nil {
		writeError(c, errIssue, "issue challenge failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"challenge_id": challenge.ID,
		"message":      challenge.Nonce,
		"expires_at":   challenge.ExpiresAt,
	})
}

// verifyRequest carries the signed challenge.
type verifyRequest struct {
	ChallengeID string `json:"challenge_id"` // Challenge UUID.
	Signature   string `json:"signature"`    // Base58 ed25519 signature of the message.
}

// Verify checks the signature and returns a session token.
func (h *AuthHandler) Verify(c *gin.Context) {
	var body verifyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.ChallengeID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "challenge_id is required"})
		return
	}
	signature, errParse := solana.SignatureFromBase58(strings.TrimSpace(body.Signature))
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature encoding"})
		return
	}

	wallet, errRedeem := h.challenges.Redeem(c.Request.Context(), strings.TrimSpace(body.ChallengeID), signature)
	if errRedeem != nil {
		switch {
		case errors.Is(errRedeem, security.ErrChallengeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "challenge not found"})
		case errors.Is(errRedeem, security.ErrChallengeExpired),
			errors.Is(errRedeem, security.ErrChallengeUsed),
			errors.Is(errRedeem, security.ErrInvalidSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"error": errRedeem.Error()})
		default:
			writeError(c, errRedeem, "verify challenge failed")
		}
		return
	}

	token, expiresAt, errToken := security.IssueWalletToken(h.jwtCfg.Secret, wallet.String(), h.jwtCfg.Expiry, h.nowFn())
	if errToken != nil {
		writeError(c, errToken, "issue token failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"wallet":     wallet.String(),
		"expires_at": expiresAt,
	})
}
