package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuctionRecord is the live state of the single auction for a mint.
type AuctionRecord struct {
	Address string `gorm:"type:varchar(44);primaryKey"` // Derived from ("auction", mint).

	TokenMint     string `gorm:"type:varchar(44);not null;uniqueIndex"` // Auctioned mint, immutable.
	HighestBid    uint64 `gorm:"not null;default:0"`                    // Smallest currency units.
	HighestBidder string `gorm:"type:varchar(44);not null;default:''"`  // Empty until the first bid.
	EndTime       int64  `gorm:"not null;index"`                        // Unix seconds, set once at start.
	Claimed       bool   `gorm:"not null;default:false;index"`          // Set once by settlement.
	Bump          uint8  `gorm:"not null;default:0"`                    // Derivation bump of the address.
	Payer         string `gorm:"type:varchar(44);default:''"`           // Wallet that started the auction.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Bid is one accepted bid, kept as an audit trail.
type Bid struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Auction  string `gorm:"type:varchar(44);not null;index"` // Auction record address.
	Bidder   string `gorm:"type:varchar(44);not null;index"` // Bidding wallet.
	Amount   uint64 `gorm:"not null"`                        // Bid in smallest currency units.
	PlacedAt int64  `gorm:"not null"`                        // Runtime clock at acceptance.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// SettlementStep records one leg of a claim.
type SettlementStep struct {
	Leg    string `json:"leg"`
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// Settlement is the receipt of a successful claim.
type Settlement struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // Receipt UUID.

	Auction            string `gorm:"type:varchar(44);not null;uniqueIndex"` // Auction record address.
	Mint               string `gorm:"type:varchar(44);not null;index"`       // Minted token.
	Claimant           string `gorm:"type:varchar(44);not null;index"`       // Winning wallet.
	Treasury           string `gorm:"type:varchar(44);not null"`             // Payment destination.
	WinnerTokenAccount string `gorm:"type:varchar(44);not null"`             // Holding account credited.
	Amount             uint64 `gorm:"not null"`                              // Paid amount.
	MintedQuantity     uint64 `gorm:"not null"`                              // Units minted to the winner.
	SettledAt          int64  `gorm:"not null"`                              // Runtime clock at settlement.

	Steps datatypes.JSONSlice[SettlementStep] `gorm:"type:jsonb"` // Ordered settlement legs.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// WalletChallenge is a one-time nonce a wallet signs to open a session.
type WalletChallenge struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // Challenge UUID.

	Wallet    string    `gorm:"type:varchar(44);not null;index"` // Wallet expected to sign.
	Nonce     string    `gorm:"type:varchar(128);not null"`      // Message to sign.
	ExpiresAt time.Time `gorm:"not null"`                        // Expiry.
	Used      bool      `gorm:"not null;default:false"`          // Consumed flag.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
