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

// Metadata attaches descriptive data to mints.
type Metadata struct{}

// MetadataParams describes the metadata account to create.
type MetadataParams struct {
	Mint            solana.PublicKey
	Name            string
	Symbol          string
	URI             string
	UpdateAuthority solana.PublicKey
	// MintAuthority must sign as the mint's authority.
	MintAuthority authority.Proof
}

// Create registers metadata for a mint at its derived metadata address.
func (Metadata) Create(tx *Tx, params MetadataParams) (*models.TokenMetadata, error) {
	if errValidate := ValidateMetadata(params.Name, params.Symbol, params.URI); errValidate != nil {
		return nil, errValidate
	}
	if params.UpdateAuthority.IsZero() {
		return nil, fmt.Errorf("%w: update authority required", programerr.ErrInvalidArgument)
	}

	mint, err := loadMint(tx.DB(), params.Mint)
	if err != nil {
		return nil, err
	}
	mintAuthority, errParse := solana.PublicKeyFromBase58(mint.MintAuthority)
	if errParse != nil {
		return nil, fmt.Errorf("ledger: parse mint authority: %w", errParse)
	}
	if errVerify := params.MintAuthority.Verify(mintAuthority); errVerify != nil {
		return nil, errVerify
	}

	address, err := authority.MetadataAddress(params.Mint)
	if err != nil {
		return nil, err
	}
	var count int64
	errCount := tx.DB().Model(&models.TokenMetadata{}).Where("address = ?", address.Address.String()).Count(&count).Error
	if errCount != nil {
		return nil, fmt.Errorf("ledger: check metadata: %w", errCount)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: metadata %s", programerr.ErrAccountAlreadyInUse, address.Address)
	}

	record := models.TokenMetadata{
		Address:         address.Address.String(),
		Mint:            params.Mint.String(),
		Name:            params.Name,
		Symbol:          params.Symbol,
		URI:             params.URI,
		UpdateAuthority: params.UpdateAuthority.String(),
		IsMutable:       true,
	}
	if errCreate := tx.DB().Create(&record).Error; errCreate != nil {
		return nil, fmt.Errorf("ledger: create metadata: %w", errCreate)
	}
	return &record, nil
}

// Get loads the metadata attached to mint.
func (Metadata) Get(ctx context.Context, conn *gorm.DB, mint solana.PublicKey) (*models.TokenMetadata, error) {
	var record models.TokenMetadata
	errFind := conn.WithContext(ctx).Where("mint = ?", mint.String()).First(&record).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: metadata for mint %s", programerr.ErrAccountNotFound, mint)
		}
		return nil, fmt.Errorf("ledger: load metadata: %w", errFind)
	}
	return &record, nil
}

// ValidateMetadata enforces the metadata field limits.
func ValidateMetadata(name, symbol, uri string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", programerr.ErrInvalidArgument)
	case len(name) > internalsettings.MaxNameLength:
		return fmt.Errorf("%w: name longer than %d bytes", programerr.ErrInvalidArgument, internalsettings.MaxNameLength)
	case len(symbol) > internalsettings.MaxSymbolLength:
		return fmt.Errorf("%w: symbol longer than %d bytes", programerr.ErrInvalidArgument, internalsettings.MaxSymbolLength)
	case len(uri) > internalsettings.MaxURILength:
		return fmt.Errorf("%w: uri longer than %d bytes", programerr.ErrInvalidArgument, internalsettings.MaxURILength)
	}
	return nil
}
