// Package issuance creates the program's token mint and issues units of it.
// The mint address is derived from the "mint" seed and acts as its own mint
// and metadata update authority, so no key is ever held for it.
package issuance

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
	"github.com/vieilles-charrues/mintauction/internal/authority"
	"github.com/vieilles-charrues/mintauction/internal/ledger"
	"github.com/vieilles-charrues/mintauction/internal/models"
	"gorm.io/gorm"
)

// TokenService is the token program as seen by issuance.
type TokenService interface {
	CreateMint(tx *ledger.Tx, params ledger.CreateMintParams) (*models.Mint, error)
	EnsureHoldingAccount(tx *ledger.Tx, mint, owner solana.PublicKey) (*models.HoldingAccount, error)
	MintTo(tx *ledger.Tx, mint, destination solana.PublicKey, quantity uint64, signer authority.Proof) error
	GetMint(ctx context.Context, conn *gorm.DB, mint solana.PublicKey) (*models.Mint, error)
}

// MetadataService is the metadata program as seen by issuance.
type MetadataService interface {
	Create(tx *ledger.Tx, params ledger.MetadataParams) (*models.TokenMetadata, error)
	Get(ctx context.Context, conn *gorm.DB, mint solana.PublicKey) (*models.TokenMetadata, error)
}

// InitParams describes the mint to create.
type InitParams struct {
	Name     string
	Symbol   string
	URI      string
	Decimals uint8
}

// MintInfo is the read model of the program mint.
type MintInfo struct {
	Mint     *models.Mint
	Metadata *models.TokenMetadata
}

// Service issues the program mint.
type Service struct {
	runtime  *ledger.Runtime
	tokens   TokenService
	metadata MetadataService
	mint     authority.Authority
}

// Option configures a Service.
type Option func(*Service)

// WithTokenService replaces the token program.
func WithTokenService(tokens TokenService) Option {
	return func(s *Service) { s.tokens = tokens }
}

// WithMetadataService replaces the metadata program.
func WithMetadataService(metadata MetadataService) Option {
	return func(s *Service) { s.metadata = metadata }
}

// NewService derives the mint authority for the runtime's program.
func NewService(runtime *ledger.Runtime, opts ...Option) (*Service, error) {
	if runtime == nil {
		return nil, fmt.Errorf("issuance: runtime is nil")
	}
	mint, err := authority.MintAuthority(runtime.ProgramID())
	if err != nil {
		return nil, fmt.Errorf("issuance: derive mint authority: %w", err)
	}
	s := &Service{
		runtime:  runtime,
		tokens:   ledger.Token{},
		metadata: ledger.Metadata{},
		mint:     mint,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// MintAddress returns the derived mint address.
func (s *Service) MintAddress() solana.PublicKey { return s.mint.Address }

// Authority returns the derived mint authority.
func (s *Service) Authority() authority.Authority { return s.mint }

// Initialize creates the mint with zero supply and registers its metadata.
// It fails with ErrAccountAlreadyInUse when the mint already exists.
func (s *Service) Initialize(ctx context.Context, payer solana.PublicKey, params InitParams) (*MintInfo, error) {
	metadataAddress, err := authority.MetadataAddress(s.mint.Address)
	if err != nil {
		return nil, fmt.Errorf("issuance: derive metadata address: %w", err)
	}
	if errValidate := ledger.ValidateMetadata(params.Name, params.Symbol, params.URI); errValidate != nil {
		return nil, errValidate
	}

	info := &MintInfo{}
	writable := []solana.PublicKey{s.mint.Address, metadataAddress.Address, payer}
	errExec := s.runtime.Execute(ctx, writable, func(tx *ledger.Tx) error {
		mint, errCreate := s.tokens.CreateMint(tx, ledger.CreateMintParams{
			Address:       s.mint.Address,
			Signer:        s.mint.Signer(),
			Decimals:      params.Decimals,
			MintAuthority: s.mint.Address,
			Payer:         payer,
		})
		if errCreate != nil {
			return errCreate
		}
		metadata, errMetadata := s.metadata.Create(tx, ledger.MetadataParams{
			Mint:            s.mint.Address,
			Name:            params.Name,
			Symbol:          params.Symbol,
			URI:             params.URI,
			UpdateAuthority: s.mint.Address,
			MintAuthority:   s.mint.Signer(),
		})
		if errMetadata != nil {
			return errMetadata
		}
		info.Mint = mint
		info.Metadata = metadata
		return nil
	})
	if errExec != nil {
		return nil, errExec
	}

	log.WithFields(log.Fields{
		"mint":     info.Mint.Address,
		"symbol":   params.Symbol,
		"decimals": params.Decimals,
	}).Info("Token mint created successfully.")
	return info, nil
}

// MintTokens issues quantity units to owner's holding account, provisioning
// it when absent. A zero quantity succeeds without changing supply.
func (s *Service) MintTokens(ctx context.Context, owner solana.PublicKey, quantity uint64) (*models.HoldingAccount, error) {
	var holding *models.HoldingAccount
	errExec := s.runtime.Execute(ctx, []solana.PublicKey{s.mint.Address, owner}, func(tx *ledger.Tx) error {
		account, errHolding := s.tokens.EnsureHoldingAccount(tx, s.mint.Address, owner)
		if errHolding != nil {
			return errHolding
		}
		destination, errParse := solana.PublicKeyFromBase58(account.Address)
		if errParse != nil {
			return fmt.Errorf("issuance: parse holding account: %w", errParse)
		}
		log.Infof("Minting tokens: %d", quantity)
		if errMint := s.tokens.MintTo(tx, s.mint.Address, destination, quantity, s.mint.Signer()); errMint != nil {
			return errMint
		}
		account.Amount += quantity
		holding = account
		return nil
	})
	if errExec != nil {
		return nil, errExec
	}
	return holding, nil
}

// Info returns the mint and its metadata.
func (s *Service) Info(ctx context.Context) (*MintInfo, error) {
	conn := s.runtime.View(ctx)
	mint, err := s.tokens.GetMint(ctx, conn, s.mint.Address)
	if err != nil {
		return nil, err
	}
	metadata, err := s.metadata.Get(ctx, conn, s.mint.Address)
	if err != nil {
		return nil, err
	}
	return &MintInfo{Mint: mint, Metadata: metadata}, nil
}
