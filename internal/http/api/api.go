// Package api registers the HTTP surface through which callers submit
// operations and read ledger state.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/vieilles-charrues/mintauction/internal/auction"
	"github.com/vieilles-charrues/mintauction/internal/config"
	"github.com/vieilles-charrues/mintauction/internal/http/api/handlers"
	"github.com/vieilles-charrues/mintauction/internal/issuance"
	"github.com/vieilles-charrues/mintauction/internal/ledger"
	"github.com/vieilles-charrues/mintauction/internal/security"
	"gorm.io/gorm"
)

// Dependencies are the services the routes are served by.
type Dependencies struct {
	DB         *gorm.DB
	Runtime    *ledger.Runtime
	Issuance   *issuance.Service
	Auctions   *auction.Service
	Challenges *security.ChallengeStore
	BidLimiter handlers.BidLimiter
	JWT        config.JWTConfig
	Faucet     config.FaucetConfig
	Now        func() time.Time
}

// RegisterRoutes registers routes, middleware, and handlers.
func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	v0 := r.Group("/v0")

	authHandler := handlers.NewAuthHandler(deps.Challenges, deps.JWT, deps.Now)
	v0.POST("/auth/challenge", authHandler.Challenge)
	v0.POST("/auth/verify", authHandler.Verify)

	authed := v0.Group("")
	authed.Use(walletAuthMiddleware(deps.JWT))

	mintHandler := handlers.NewMintHandler(deps.Issuance)
	v0.GET("/mint", mintHandler.Get)
	authed.POST("/mint/initialize", mintHandler.Initialize)
	authed.POST("/mint/tokens", mintHandler.MintTokens)

	auctionHandler := handlers.NewAuctionHandler(deps.Auctions, deps.Issuance.MintAddress(), deps.BidLimiter)
	v0.GET("/auctions/:mint", auctionHandler.Get)
	v0.GET("/auctions/:mint/bids", auctionHandler.ListBids)
	v0.GET("/auctions/:mint/settlement", auctionHandler.Settlement)
	authed.POST("/auctions", auctionHandler.Start)
	authed.POST("/auctions/:mint/bids", auctionHandler.PlaceBid)
	authed.POST("/auctions/:mint/claim", auctionHandler.Claim)

	accountHandler := handlers.NewAccountHandler(deps.Runtime)
	v0.GET("/accounts/:address", accountHandler.Get)

	if deps.Faucet.Enabled {
		faucetHandler := handlers.NewFaucetHandler(deps.Runtime, deps.Faucet.MaxLamports)
		v0.POST("/faucet/airdrop", faucetHandler.Airdrop)
	}
}

// walletAuthMiddleware validates wallet session JWTs and stores the wallet in context.
func walletAuthMiddleware(jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseWalletToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		wallet, errParse := solana.PublicKeyFromBase58(claims.Wallet)
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid wallet"})
			return
		}

		c.Set(handlers.ContextWalletKey, wallet)
		c.Next()
	}
}
