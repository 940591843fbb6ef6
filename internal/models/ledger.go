package models

import "time"

// NativeAccount holds the native currency balance of one address.
type NativeAccount struct {
	Address string `gorm:"type:varchar(44);primaryKey"` // Base58 account address.

	Lamports uint64 `gorm:"not null;default:0"` // Balance in smallest currency units.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Mint is the identity and supply-control record of one token type.
type Mint struct {
	Address string `gorm:"type:varchar(44);primaryKey"` // Derived mint address.

	Decimals      uint8  `gorm:"not null;default:0"`          // Decimal precision.
	Supply        uint64 `gorm:"not null;default:0"`          // Total minted units.
	MintAuthority string `gorm:"type:varchar(44);not null"`   // Address allowed to mint.
	Bump          uint8  `gorm:"not null;default:0"`          // Derivation bump of the mint address.
	Payer         string `gorm:"type:varchar(44);default:''"` // Wallet that funded creation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// HoldingAccount is the per-owner token balance for a mint.
type HoldingAccount struct {
	Address string `gorm:"type:varchar(44);primaryKey"` // Associated holding account address.

	Mint   string `gorm:"type:varchar(44);not null;uniqueIndex:idx_holding_mint_owner"` // Mint address.
	Owner  string `gorm:"type:varchar(44);not null;uniqueIndex:idx_holding_mint_owner"` // Owner wallet.
	Amount uint64 `gorm:"not null;default:0"`                                          // Token units held.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TokenMetadata carries the descriptive data attached to a mint.
type TokenMetadata struct {
	Address string `gorm:"type:varchar(44);primaryKey"` // Derived metadata address.

	Mint                 string `gorm:"type:varchar(44);not null;uniqueIndex"` // Described mint.
	Name                 string `gorm:"type:varchar(32);not null"`             // Token name.
	Symbol               string `gorm:"type:varchar(10);not null"`             // Ticker symbol.
	URI                  string `gorm:"type:varchar(200);not null"`            // Off-chain JSON reference.
	UpdateAuthority      string `gorm:"type:varchar(44);not null"`             // Address allowed to update.
	SellerFeeBasisPoints uint16 `gorm:"not null;default:0"`                    // Royalty in basis points.
	IsMutable            bool   `gorm:"not null;default:true"`                 // Whether metadata may change.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
