package auction

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/vieilles-charrues/mintauction/internal/ledger"
	"github.com/vieilles-charrues/mintauction/internal/models"
	"github.com/vieilles-charrues/mintauction/internal/programerr"
	internalsettings "github.com/vieilles-charrues/mintauction/internal/settings"
)

// Settlement legs.
const (
	LegPayment = "payment"
	LegMint    = "mint"
)

// ClaimParams names the parties of a claim.
type ClaimParams struct {
	Mint     solana.PublicKey
	Claimant solana.PublicKey
	// Treasury receives the payment. Zero means the configured treasury.
	Treasury solana.PublicKey
	// WinnerTokenAccount, when set, must be the claimant's holding account for the mint.
	WinnerTokenAccount solana.PublicKey
}

// Claim settles a finished auction for its highest bidder: the winning bid is
// paid from the claimant to the treasury, one unit is minted to the
// claimant's holding account, and the record is closed. Either all of it
// happens or none of it does; a failed claim leaves the auction claimable.
func (s *Service) Claim(ctx context.Context, params ClaimParams) (*models.Settlement, error) {
	if params.Claimant.IsZero() {
		return nil, fmt.Errorf("%w: claimant", programerr.ErrMissingRequiredSigner)
	}
	treasury := params.Treasury
	if treasury.IsZero() {
		treasury = s.treasury
	}
	address, err := s.Address(params.Mint)
	if err != nil {
		return nil, err
	}
	holdingAddress, err := s.tokens.HoldingAddress(params.Mint, params.Claimant)
	if err != nil {
		return nil, err
	}

	var settlement *models.Settlement
	writable := []solana.PublicKey{address, params.Claimant, treasury, params.Mint, holdingAddress}
	errExec := s.runtime.Execute(ctx, writable, func(tx *ledger.Tx) error {
		record, errLoad := loadRecord(tx.Locked(), address)
		if errLoad != nil {
			return errLoad
		}
		if tx.Now() < record.EndTime {
			return ErrAuctionNotEnded
		}
		if record.HighestBidder != params.Claimant.String() {
			return ErrNotHighestBidder
		}
		if record.Claimed {
			return ErrAlreadyClaimed
		}
		if treasury.IsZero() {
			return fmt.Errorf("%w: treasury required", programerr.ErrInvalidArgument)
		}
		if !s.treasury.IsZero() && !treasury.Equals(s.treasury) {
			return ErrTreasuryMismatch
		}
		if !params.WinnerTokenAccount.IsZero() && !params.WinnerTokenAccount.Equals(holdingAddress) {
			return ErrInvalidTokenAccount
		}

		if errPay := s.payments.Transfer(tx, params.Claimant, treasury, record.HighestBid); errPay != nil {
			return fmt.Errorf("%w: %w", programerr.ErrPaymentTransferFailed, errPay)
		}
		if _, errHolding := s.tokens.EnsureHoldingAccount(tx, params.Mint, params.Claimant); errHolding != nil {
			return errHolding
		}
		errMint := s.tokens.MintTo(tx, params.Mint, holdingAddress, internalsettings.ClaimMintQuantity, s.mintAuthority.Signer())
		if errMint != nil {
			return errMint
		}

		result := tx.DB().Model(&models.AuctionRecord{}).
			Where("address = ? AND claimed = ?", record.Address, false).
			Update("claimed", true)
		if result.Error != nil {
			return fmt.Errorf("auction: close record: %w", result.Error)
		}
		if result.RowsAffected != 1 {
			return ErrAlreadyClaimed
		}

		settlement = &models.Settlement{
			ID:                 uuid.NewString(),
			Auction:            record.Address,
			Mint:               record.TokenMint,
			Claimant:           params.Claimant.String(),
			Treasury:           treasury.String(),
			WinnerTokenAccount: holdingAddress.String(),
			Amount:             record.HighestBid,
			MintedQuantity:     internalsettings.ClaimMintQuantity,
			SettledAt:          tx.Now(),
			Steps: []models.SettlementStep{
				{Leg: LegPayment, From: params.Claimant.String(), To: treasury.String(), Amount: record.HighestBid},
				{Leg: LegMint, To: holdingAddress.String(), Amount: internalsettings.ClaimMintQuantity},
			},
		}
		if errCreate := tx.DB().Create(settlement).Error; errCreate != nil {
			return fmt.Errorf("auction: record settlement: %w", errCreate)
		}
		return nil
	})
	if errExec != nil {
		return nil, errExec
	}

	log.WithFields(log.Fields{
		"auction":  settlement.Auction,
		"winner":   settlement.Claimant,
		"amount":   settlement.Amount,
		"treasury": settlement.Treasury,
	}).Info("Auction settled.")
	return settlement, nil
}
