package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/vieilles-charrues/mintauction/internal/authority"
	"github.com/vieilles-charrues/mintauction/internal/models"
	"github.com/vieilles-charrues/mintauction/internal/programerr"
	internalsettings "github.com/vieilles-charrues/mintauction/internal/settings"
	"gorm.io/gorm"
)

// Token manages mints and the holding accounts that carry their balances.
type Token struct{}

// CreateMintParams describes a new mint.
type CreateMintParams struct {
	// Address is the derived mint address; Signer must prove it.
	Address       solana.PublicKey
	Signer        authority.Proof
	Decimals      uint8
	MintAuthority solana.PublicKey
	Payer         solana.PublicKey
}

// CreateMint creates a mint with zero supply.
func (Token) CreateMint(tx *Tx, params CreateMintParams) (*models.Mint, error) {
	if params.Decimals > internalsettings.MaxDecimals {
		return nil, fmt.Errorf("%w: decimals %d exceeds %d", programerr.ErrInvalidArgument, params.Decimals, internalsettings.MaxDecimals)
	}
	if params.MintAuthority.IsZero() {
		return nil, fmt.Errorf("%w: mint authority required", programerr.ErrInvalidArgument)
	}
	if errVerify := params.Signer.Verify(params.Address); errVerify != nil {
		return nil, errVerify
	}

	var count int64
	errCount := tx.DB().Model(&models.Mint{}).Where("address = ?", params.Address.String()).Count(&count).Error
	if errCount != nil {
		return nil, fmt.Errorf("ledger: check mint: %w", errCount)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: mint %s", programerr.ErrAccountAlreadyInUse, params.Address)
	}

	mint := models.Mint{
		Address:       params.Address.String(),
		Decimals:      params.Decimals,
		MintAuthority: params.MintAuthority.String(),
		Bump:          params.Signer.Bump,
	}
	if !params.Payer.IsZero() {
		mint.Payer = params.Payer.String()
	}
	if errCreate := tx.DB().Create(&mint).Error; errCreate != nil {
		return nil, fmt.Errorf("ledger: create mint: %w", errCreate)
	}
	return &mint, nil
}

// HoldingAddress returns the associated holding account of owner for mint.
func (Token) HoldingAddress(mint, owner solana.PublicKey) (solana.PublicKey, error) {
	address, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("ledger: associated token address: %w", err)
	}
	return address, nil
}

// EnsureHoldingAccount returns owner's holding account for mint, creating it if absent.
func (t Token) EnsureHoldingAccount(tx *Tx, mint, owner solana.PublicKey) (*models.HoldingAccount, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: holding account owner required", programerr.ErrInvalidArgument)
	}
	if _, errMint := loadMint(tx.DB(), mint); errMint != nil {
		return nil, errMint
	}
	address, err := t.HoldingAddress(mint, owner)
	if err != nil {
		return nil, err
	}

	var holding models.HoldingAccount
	errFind := tx.DB().Where("address = ?", address.String()).Limit(1).Find(&holding).Error
	if errFind != nil {
		return nil, fmt.Errorf("ledger: load holding account: %w", errFind)
	}
	if holding.Address != "" {
		return &holding, nil
	}

	holding = models.HoldingAccount{
		Address: address.String(),
		Mint:    mint.String(),
		Owner:   owner.String(),
	}
	if errCreate := tx.DB().Create(&holding).Error; errCreate != nil {
		return nil, fmt.Errorf("ledger: create holding account: %w", errCreate)
	}
	return &holding, nil
}

// MintTo credits quantity new units of mint to the destination holding
// account. The proof must sign as the mint's authority. A zero quantity is
// accepted and changes nothing.
func (Token) MintTo(tx *Tx, mint, destination solana.PublicKey, quantity uint64, signer authority.Proof) error {
	record, err := loadMint(tx.Locked(), mint)
	if err != nil {
		return err
	}
	mintAuthority, errParse := solana.PublicKeyFromBase58(record.MintAuthority)
	if errParse != nil {
		return fmt.Errorf("ledger: parse mint authority: %w", errParse)
	}
	if errVerify := signer.Verify(mintAuthority); errVerify != nil {
		return errVerify
	}

	var holding models.HoldingAccount
	errFind := tx.Locked().Where("address = ?", destination.String()).First(&holding).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: holding account %s", programerr.ErrAccountNotFound, destination)
		}
		return fmt.Errorf("ledger: load holding account: %w", errFind)
	}
	if holding.Mint != record.Address {
		return fmt.Errorf("%w: holding account %s belongs to mint %s", programerr.ErrInvalidArgument, destination, holding.Mint)
	}
	if quantity == 0 {
		return nil
	}
	if quantity > MaxAmount-record.Supply || quantity > MaxAmount-holding.Amount {
		return fmt.Errorf("%w: supply overflow", programerr.ErrInvalidArgument)
	}

	errSupply := tx.DB().Model(&models.Mint{}).
		Where("address = ?", record.Address).
		Update("supply", record.Supply+quantity).Error
	if errSupply != nil {
		return fmt.Errorf("ledger: update supply: %w", errSupply)
	}
	errAmount := tx.DB().Model(&models.HoldingAccount{}).
		Where("address = ?", holding.Address).
		Update("amount", holding.Amount+quantity).Error
	if errAmount != nil {
		return fmt.Errorf("ledger: update holding account: %w", errAmount)
	}
	return nil
}

// GetMint loads a mint outside a unit of work.
func (Token) GetMint(ctx context.Context, conn *gorm.DB, mint solana.PublicKey) (*models.Mint, error) {
	return loadMint(conn.WithContext(ctx), mint)
}

// LoadMint loads a mint inside a unit of work.
func (Token) LoadMint(tx *Tx, mint solana.PublicKey) (*models.Mint, error) {
	return loadMint(tx.DB(), mint)
}

// Holdings lists the holding accounts owned by owner.
func (Token) Holdings(ctx context.Context, conn *gorm.DB, owner solana.PublicKey) ([]models.HoldingAccount, error) {
	var holdings []models.HoldingAccount
	errFind := conn.WithContext(ctx).
		Where("owner = ?", owner.String()).
		Order("mint ASC").
		Find(&holdings).Error
	if errFind != nil {
		return nil, fmt.Errorf("ledger: list holding accounts: %w", errFind)
	}
	return holdings, nil
}

func loadMint(conn *gorm.DB, mint solana.PublicKey) (*models.Mint, error) {
	var record models.Mint
	errFind := conn.Where("address = ?", mint.String()).First(&record).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: mint %s", programerr.ErrAccountNotFound, mint)
		}
		return nil, fmt.Errorf("ledger: load mint: %w", errFind)
	}
	return &record, nil
}
