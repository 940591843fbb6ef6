package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/vieilles-charrues/mintauction/internal/models"
	"github.com/vieilles-charrues/mintauction/internal/programerr"
	"gorm.io/gorm"
)

// MaxAmount is the largest balance or transfer the account store can hold.
const MaxAmount uint64 = math.MaxInt64

// System moves native currency between accounts.
type System struct{}

// Transfer moves lamports from one account to another. The sender is the
// transaction-level signer; an unfunded or unknown sender fails with
// ErrInsufficientFunds.
func (System) Transfer(tx *Tx, from, to solana.PublicKey, lamports uint64) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: transfer requires sender and recipient", programerr.ErrInvalidArgument)
	}
	if lamports > MaxAmount {
		return fmt.Errorf("%w: amount %d exceeds %d", programerr.ErrInvalidArgument, lamports, MaxAmount)
	}

	sender, err := lockNativeAccount(tx, from)
	if err != nil {
		if errors.Is(err, programerr.ErrAccountNotFound) {
			return fmt.Errorf("%w: %s holds 0, needs %d", programerr.ErrInsufficientFunds, from, lamports)
		}
		return err
	}
	if sender.Lamports < lamports {
		return fmt.Errorf("%w: %s holds %d, needs %d", programerr.ErrInsufficientFunds, from, sender.Lamports, lamports)
	}
	if lamports == 0 || from.Equals(to) {
		return nil
	}

	if errDebit := setLamports(tx, from, sender.Lamports-lamports); errDebit != nil {
		return errDebit
	}
	return credit(tx, to, lamports)
}

// Airdrop credits lamports out of thin air. Only the devnet faucet uses it.
func (System) Airdrop(tx *Tx, to solana.PublicKey, lamports uint64) error {
	if to.IsZero() {
		return fmt.Errorf("%w: airdrop requires a recipient", programerr.ErrInvalidArgument)
	}
	if lamports == 0 {
		return nil
	}
	return credit(tx, to, lamports)
}

// Balance returns the lamports held by address; unknown addresses hold 0.
func (System) Balance(ctx context.Context, conn *gorm.DB, address solana.PublicKey) (uint64, error) {
	var account models.NativeAccount
	errFind := conn.WithContext(ctx).Where("address = ?", address.String()).Limit(1).Find(&account).Error
	if errFind != nil {
		return 0, fmt.Errorf("ledger: load native account: %w", errFind)
	}
	return account.Lamports, nil
}

func lockNativeAccount(tx *Tx, address solana.PublicKey) (*models.NativeAccount, error) {
	var account models.NativeAccount
	errFind := tx.Locked().Where("address = ?", address.String()).First(&account).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: native account %s", programerr.ErrAccountNotFound, address)
		}
		return nil, fmt.Errorf("ledger: load native account: %w", errFind)
	}
	return &account, nil
}

func setLamports(tx *Tx, address solana.PublicKey, lamports uint64) error {
	errUpdate := tx.DB().Model(&models.NativeAccount{}).
		Where("address = ?", address.String()).
		Update("lamports", lamports).Error
	if errUpdate != nil {
		return fmt.Errorf("ledger: update native account: %w", errUpdate)
	}
	return nil
}

func credit(tx *Tx, address solana.PublicKey, lamports uint64) error {
	account, err := lockNativeAccount(tx, address)
	if err != nil {
		if !errors.Is(err, programerr.ErrAccountNotFound) {
			return err
		}
		if lamports > MaxAmount {
			return fmt.Errorf("%w: balance overflow", programerr.ErrInvalidArgument)
		}
		created := models.NativeAccount{Address: address.String(), Lamports: lamports}
		if errCreate := tx.DB().Create(&created).Error; errCreate != nil {
			return fmt.Errorf("ledger: create native account: %w", errCreate)
		}
		return nil
	}
	if lamports > MaxAmount-account.Lamports {
		return fmt.Errorf("%w: balance overflow", programerr.ErrInvalidArgument)
	}
	return setLamports(tx, address, account.Lamports+lamports)
}
