package auction

import "github.com/vieilles-charrues/mintauction/internal/programerr"

// Auction failure codes.
const (
	CodeAuctionEnded programerr.Code = 6000 + iota
	CodeBidTooLow
	CodeAuctionNotEnded
	CodeNotHighestBidder
	CodeAlreadyClaimed
	CodeAuctionAlreadyStarted
	CodeInvalidDuration
	CodeTreasuryMismatch
	CodeInvalidTokenAccount
)

var (
	ErrAuctionEnded          = programerr.New(CodeAuctionEnded, "AuctionEnded", "Auction has ended")
	ErrBidTooLow             = programerr.New(CodeBidTooLow, "BidTooLow", "Bid too low")
	ErrAuctionNotEnded       = programerr.New(CodeAuctionNotEnded, "AuctionNotEnded", "Auction has not ended")
	ErrNotHighestBidder      = programerr.New(CodeNotHighestBidder, "NotHighestBidder", "Not the highest bidder")
	ErrAlreadyClaimed        = programerr.New(CodeAlreadyClaimed, "AlreadyClaimed", "Auction already claimed")
	ErrAuctionAlreadyStarted = programerr.New(CodeAuctionAlreadyStarted, "AuctionAlreadyStarted", "Auction already started for this mint")
	ErrInvalidDuration       = programerr.New(CodeInvalidDuration, "InvalidDuration", "Duration must be positive")
	ErrTreasuryMismatch      = programerr.New(CodeTreasuryMismatch, "TreasuryMismatch", "Treasury does not match the configured treasury")
	ErrInvalidTokenAccount   = programerr.New(CodeInvalidTokenAccount, "InvalidTokenAccount", "Winner token account is not the claimant's holding account")

	// ErrAuctionNotFound is returned when no record exists for a mint.
	ErrAuctionNotFound = programerr.ErrAccountNotFound
	// ErrMintNotFound is returned when starting an auction for an unknown mint.
	ErrMintNotFound = programerr.ErrAccountNotFound
)
