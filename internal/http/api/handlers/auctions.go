package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/vieilles-charrues/mintauction/internal/auction"
	"github.com/vieilles-charrues/mintauction/internal/models"
	"github.com/vieilles-charrues/mintauction/internal/ratelimit"
	internalsettings "github.com/vieilles-charrues/mintauction/internal/settings"
)

// BidLimiter throttles bids per bidder.
type BidLimiter interface {
	AllowBid(ctx context.Context, bidder string) (ratelimit.Result, error)
}

// AuctionHandler serves the auction lifecycle endpoints.
type AuctionHandler struct {
	auctions    *auction.Service
	defaultMint solana.PublicKey
	limiter     BidLimiter
}

// NewAuctionHandler constructs an AuctionHandler. defaultMint is used when a
// start request names no mint.
func NewAuctionHandler(auctions *auction.Service, defaultMint solana.PublicKey, limiter BidLimiter) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, defaultMint: defaultMint, limiter: limiter}
}

// startAuctionRequest opens an auction.
type startAuctionRequest struct {
	Mint            string `json:"mint"`             // Auctioned mint; defaults to the program mint.
	DurationSeconds int64  `json:"duration_seconds"` // Seconds until the deadline.
}

// Start opens the auction for a mint.
func (h *AuctionHandler) Start(c *gin.Context) {
	payer, ok := requireWallet(c)
	if !ok {
		return
	}
	var body startAuctionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	mint, errParse := parseAddress(body.Mint)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mint"})
		return
	}
	if mint.IsZero() {
		mint = h.defaultMint
	}

	record, errStart := h.auctions.Start(c.Request.Context(), payer, mint, body.DurationSeconds)
	if errStart != nil {
		writeError(c, errStart, "start auction failed")
		return
	}
	c.JSON(http.StatusCreated, h.formatRecord(record))
}

// Get returns the auction record and its lifecycle state.
func (h *AuctionHandler) Get(c *gin.Context) {
	mint, ok := h.mintParam(c)
	if !ok {
		return
	}
	record, errGet := h.auctions.Get(c.Request.Context(), mint)
	if errGet != nil {
		writeError(c, errGet, "load auction failed")
		return
	}
	c.JSON(http.StatusOK, h.formatRecord(record))
}

// placeBidRequest carries a bid in smallest currency units.
type placeBidRequest struct {
	Amount uint64 `json:"amount"` // Lamports.
}

// PlaceBid records the caller's bid.
func (h *AuctionHandler) PlaceBid(c *gin.Context) {
	bidder, ok := requireWallet(c)
	if !ok {
		return
	}
	mint, ok := h.mintParam(c)
	if !ok {
		return
	}
	var body placeBidRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if h.limiter != nil {
		result, errLimit := h.limiter.AllowBid(c.Request.Context(), bidder.String())
		if errLimit != nil {
			log.WithError(errLimit).Warn("bid rate limit check failed")
		} else if !result.Allowed {
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many bids"})
			return
		}
	}

	record, errBid := h.auctions.PlaceBid(c.Request.Context(), mint, bidder, body.Amount)
	if errBid != nil {
		writeError(c, errBid, "place bid failed")
		return
	}
	c.JSON(http.StatusOK, h.formatRecord(record))
}

// ListBids returns the accepted bids, oldest first.
func (h *AuctionHandler) ListBids(c *gin.Context) {
	mint, ok := h.mintParam(c)
	if !ok {
		return
	}
	bids, errList := h.auctions.Bids(c.Request.Context(), mint)
	if errList != nil {
		writeError(c, errList, "list bids failed")
		return
	}
	out := make([]gin.H, 0, len(bids))
	for _, bid := range bids {
		out = append(out, gin.H{
			"bidder":    bid.Bidder,
			"amount":    bid.Amount,
			"ui_amount": uiAmount(bid.Amount, internalsettings.NativeDecimals),
			"placed_at": bid.PlacedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"bids": out})
}

// claimRequest names the payment destination and the winner's token account.
type claimRequest struct {
	Treasury           string `json:"treasury"`             // Defaults to the configured treasury.
	WinnerTokenAccount string `json:"winner_token_account"` // Defaults to the caller's holding account.
}

// Claim settles the auction for the caller.
func (h *AuctionHandler) Claim(c *gin.Context) {
	claimant, ok := requireWallet(c)
	if !ok {
		return
	}
	mint, ok := h.mintParam(c)
	if !ok {
		return
	}
	var body claimRequest
	if c.Request.ContentLength != 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	treasury, errTreasury := parseAddress(body.Treasury)
	if errTreasury != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid treasury"})
		return
	}
	tokenAccount, errAccount := parseAddress(body.WinnerTokenAccount)
	if errAccount != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid winner_token_account"})
		return
	}

	settlement, errClaim := h.auctions.Claim(c.Request.Context(), auction.ClaimParams{
		Mint:               mint,
		Claimant:           claimant,
		Treasury:           treasury,
		WinnerTokenAccount: tokenAccount,
	})
	if errClaim != nil {
		writeError(c, errClaim, "claim failed")
		return
	}
	c.JSON(http.StatusOK, formatSettlement(settlement))
}

// Settlement returns the claim receipt.
func (h *AuctionHandler) Settlement(c *gin.Context) {
	mint, ok := h.mintParam(c)
	if !ok {
		return
	}
	settlement, errGet := h.auctions.Settlement(c.Request.Context(), mint)
	if errGet != nil {
		writeError(c, errGet, "load settlement failed")
		return
	}
	c.JSON(http.StatusOK, formatSettlement(settlement))
}

func (h *AuctionHandler) mintParam(c *gin.Context) (solana.PublicKey, bool) {
	mint, errParse := solana.PublicKeyFromBase58(strings.TrimSpace(c.Param("mint")))
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mint"})
		return solana.PublicKey{}, false
	}
	return mint, true
}

func (h *AuctionHandler) formatRecord(record *models.AuctionRecord) gin.H {
	now := h.auctions.Now()
	return gin.H{
		"address":           record.Address,
		"token_mint":        record.TokenMint,
		"highest_bid":       record.HighestBid,
		"highest_bid_ui":    uiAmount(record.HighestBid, internalsettings.NativeDecimals),
		"highest_bidder":    record.HighestBidder,
		"end_time":          record.EndTime,
		"claimed":           record.Claimed,
		"state":             auction.StateOf(record, now).String(),
		"seconds_remaining": max(0, record.EndTime-now),
	}
}

func formatSettlement(settlement *models.Settlement) gin.H {
	return gin.H{
		"id":                   settlement.ID,
		"auction":              settlement.Auction,
		"mint":                 settlement.Mint,
		"claimant":             settlement.Claimant,
		"treasury":             settlement.Treasury,
		"winner_token_account": settlement.WinnerTokenAccount,
		"amount":               settlement.Amount,
		"ui_amount":            uiAmount(settlement.Amount, internalsettings.NativeDecimals),
		"minted_quantity":      settlement.MintedQuantity,
		"settled_at":           settlement.SettledAt,
		"steps":                settlement.Steps,
	}
}
