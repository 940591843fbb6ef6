// Package auction runs the English auction for a mint: one record per mint,
// strictly increasing bids until a fixed deadline, and a single claim by the
// highest bidder that pays the treasury and mints one unit to the winner.
//
// Every operation executes as one ledger unit of work, which locks the
// auction record for its duration. A failed operation leaves no trace.
//
// Bids are not escrowed. A winner who cannot pay at claim time leaves the
// auction unclaimable, since no higher bid can arrive after the deadline.
package auction

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
	"github.com/vieilles-charrues/mintauction/internal/authority"
	"github.com/vieilles-charrues/mintauction/internal/ledger"
	"github.com/vieilles-charrues/mintauction/internal/models"
	"github.com/vieilles-charrues/mintauction/internal/programerr"
	"gorm.io/gorm"
)

// Payments moves native currency.
type Payments interface {
	Transfer(tx *ledger.Tx, from, to solana.PublicKey, lamports uint64) error
}

// Tokens is the token program as seen by the auction.
type Tokens interface {
	LoadMint(tx *ledger.Tx, mint solana.PublicKey) (*models.Mint, error)
	HoldingAddress(mint, owner solana.PublicKey) (solana.PublicKey, error)
	EnsureHoldingAccount(tx *ledger.Tx, mint, owner solana.PublicKey) (*models.HoldingAccount, error)
	MintTo(tx *ledger.Tx, mint, destination solana.PublicKey, quantity uint64, signer authority.Proof) error
}

// Service executes auction operations.
type Service struct {
	runtime       *ledger.Runtime
	payments      Payments
	tokens        Tokens
	mintAuthority authority.Authority
	treasury      solana.PublicKey
}

// Option configures a Service.
type Option func(*Service)

// WithTreasury pins the payment destination. Claims naming another treasury fail.
func WithTreasury(treasury solana.PublicKey) Option {
	return func(s *Service) { s.treasury = treasury }
}

// WithPayments replaces the native transfer program.
func WithPayments(payments Payments) Option {
	return func(s *Service) { s.payments = payments }
}

// WithTokens replaces the token program.
func WithTokens(tokens Tokens) Option {
	return func(s *Service) { s.tokens = tokens }
}

// NewService constructs a Service on runtime.
func NewService(runtime *ledger.Runtime, opts ...Option) (*Service, error) {
	if runtime == nil {
		return nil, fmt.Errorf("auction: runtime is nil")
	}
	mintAuthority, err := authority.MintAuthority(runtime.ProgramID())
	if err != nil {
		return nil, fmt.Errorf("auction: derive mint authority: %w", err)
	}
	s := &Service{
		runtime:       runtime,
		payments:      ledger.System{},
		tokens:        ledger.Token{},
		mintAuthority: mintAuthority,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Treasury returns the configured treasury, zero when unset.
func (s *Service) Treasury() solana.PublicKey { return s.treasury }

// Now returns the runtime clock in unix seconds.
func (s *Service) Now() int64 { return s.runtime.Now().Unix() }

// Address derives the record address of the auction for mint.
func (s *Service) Address(mint solana.PublicKey) (solana.PublicKey, error) {
	record, err := authority.AuctionAddress(s.runtime.ProgramID(), mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("auction: derive record address: %w", err)
	}
	return record.Address, nil
}

// Start opens the auction for mint, ending durationSeconds from now.
func (s *Service) Start(ctx context.Context, payer, mint solana.PublicKey, durationSeconds int64) (*models.AuctionRecord, error) {
	if durationSeconds <= 0 {
		return nil, ErrInvalidDuration
	}
	recordAuthority, err := authority.AuctionAddress(s.runtime.ProgramID(), mint)
	if err != nil {
		return nil, fmt.Errorf("auction: derive record address: %w", err)
	}

	var record *models.AuctionRecord
	errExec := s.runtime.Execute(ctx, []solana.PublicKey{recordAuthority.Address, payer}, func(tx *ledger.Tx) error {
		if _, errMint := s.tokens.LoadMint(tx, mint); errMint != nil {
			return errMint
		}
		existing, errLoad := findRecord(tx.Locked(), recordAuthority.Address)
		if errLoad != nil {
			return errLoad
		}
		if existing != nil {
			return ErrAuctionAlreadyStarted
		}
		if durationSeconds > math.MaxInt64-tx.Now() {
			return ErrInvalidDuration
		}

		record = &models.AuctionRecord{
			Address:   recordAuthority.Address.String(),
			TokenMint: mint.String(),
			EndTime:   tx.Now() + durationSeconds,
			Bump:      recordAuthority.Bump,
		}
		if !payer.IsZero() {
			record.Payer = payer.String()
		}
		if errCreate := tx.DB().Create(record).Error; errCreate != nil {
			return fmt.Errorf("auction: create record: %w", errCreate)
		}
		return nil
	})
	if errExec != nil {
		return nil, errExec
	}

	log.WithFields(log.Fields{
		"auction":  record.Address,
		"mint":     record.TokenMint,
		"end_time": record.EndTime,
	}).Info("Auction started.")
	return record, nil
}

// PlaceBid records amount as the new highest bid by bidder. No funds move.
func (s *Service) PlaceBid(ctx context.Context, mint, bidder solana.PublicKey, amount uint64) (*models.AuctionRecord, error) {
	if bidder.IsZero() {
		return nil, fmt.Errorf("%w: bidder", programerr.ErrMissingRequiredSigner)
	}
	address, err := s.Address(mint)
	if err != nil {
		return nil, err
	}

	var record *models.AuctionRecord
	errExec := s.runtime.Execute(ctx, []solana.PublicKey{address}, func(tx *ledger.Tx) error {
		current, errLoad := loadRecord(tx.Locked(), address)
		if errLoad != nil {
			return errLoad
		}
		if tx.Now() >= current.EndTime {
			return ErrAuctionEnded
		}
		if amount <= current.HighestBid {
			return ErrBidTooLow
		}
		if amount > ledger.MaxAmount {
			return fmt.Errorf("%w: bid %d exceeds %d", programerr.ErrInvalidArgument, amount, ledger.MaxAmount)
		}

		errUpdate := tx.DB().Model(&models.AuctionRecord{}).
			Where("address = ?", current.Address).
			Updates(map[string]any{"highest_bid": amount, "highest_bidder": bidder.String()}).Error
		if errUpdate != nil {
			return fmt.Errorf("auction: update record: %w", errUpdate)
		}
		bid := models.Bid{Auction: current.Address, Bidder: bidder.String(), Amount: amount, PlacedAt: tx.Now()}
		if errCreate := tx.DB().Create(&bid).Error; errCreate != nil {
			return fmt.Errorf("auction: record bid: %w", errCreate)
		}

		current.HighestBid = amount
		current.HighestBidder = bidder.String()
		record = current
		return nil
	})
	if errExec != nil {
		return nil, errExec
	}

	log.WithFields(log.Fields{
		"auction": record.Address,
		"bidder":  record.HighestBidder,
		"amount":  record.HighestBid,
	}).Info("Bid placed.")
	return record, nil
}

// Get returns the auction record for mint.
func (s *Service) Get(ctx context.Context, mint solana.PublicKey) (*models.AuctionRecord, error) {
	address, err := s.Address(mint)
	if err != nil {
		return nil, err
	}
	return loadRecord(s.runtime.View(ctx), address)
}

// Bids returns the accepted bids for mint, oldest first.
func (s *Service) Bids(ctx context.Context, mint solana.PublicKey) ([]models.Bid, error) {
	address, err := s.Address(mint)
	if err != nil {
		return nil, err
	}
	var bids []models.Bid
	errFind := s.runtime.View(ctx).
		Where("auction = ?", address.String()).
		Order("id ASC").
		Find(&bids).Error
	if errFind != nil {
		return nil, fmt.Errorf("auction: list bids: %w", errFind)
	}
	return bids, nil
}

// Settlement returns the claim receipt for mint.
func (s *Service) Settlement(ctx context.Context, mint solana.PublicKey) (*models.Settlement, error) {
	address, err := s.Address(mint)
	if err != nil {
		return nil, err
	}
	var settlement models.Settlement
	errFind := s.runtime.View(ctx).Where("auction = ?", address.String()).First(&settlement).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: settlement for %s", programerr.ErrAccountNotFound, address)
		}
		return nil, fmt.Errorf("auction: load settlement: %w", errFind)
	}
	return &settlement, nil
}

// ListExpiredUnclaimed returns auctions whose deadline is at or before now and
// that have not been claimed.
func (s *Service) ListExpiredUnclaimed(ctx context.Context, now int64) ([]models.AuctionRecord, error) {
	var records []models.AuctionRecord
	errFind := s.runtime.View(ctx).
		Where("claimed = ? AND end_time <= ?", false, now).
		Order("end_time ASC").
		Find(&records).Error
	if errFind != nil {
		return nil, fmt.Errorf("auction: list expired: %w", errFind)
	}
	return records, nil
}

func findRecord(conn *gorm.DB, address solana.PublicKey) (*models.AuctionRecord, error) {
	var record models.AuctionRecord
	errFind := conn.Where("address = ?", address.String()).Limit(1).Find(&record).Error
	if errFind != nil {
		return nil, fmt.Errorf("auction: load record: %w", errFind)
	}
	if record.Address == "" {
		return nil, nil
	}
	return &record, nil
}

func loadRecord(conn *gorm.DB, address solana.PublicKey) (*models.AuctionRecord, error) {
	record, err := findRecord(conn, address)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: auction %s", ErrAuctionNotFound, address)
	}
	return record, nil
}
