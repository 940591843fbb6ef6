package security

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/vieilles-charrues/mintauction/internal/models"
	"gorm.io/gorm"
)

const (
	// DefaultChallengeTTL bounds how long a login challenge can be answered.
	DefaultChallengeTTL = 5 * time.Minute
	challengePrefix     = "Sign in to mintauction: "
)

var (
	ErrChallengeNotFound = errors.New("security: challenge not found")
	ErrChallengeExpired  = errors.New("security: challenge expired")
	ErrChallengeUsed     = errors.New("security: challenge already used")
	ErrInvalidSignature  = errors.New("security: signature does not match wallet")
)

// ChallengeStore issues and redeems one-time wallet login challenges.
type ChallengeStore struct {
	db    *gorm.DB
	nowFn func() time.Time
	ttl   time.Duration
}

// NewChallengeStore constructs a ChallengeStore. Zero values select defaults.
func NewChallengeStore(db *gorm.DB, nowFn func() time.Time, ttl time.Duration) *ChallengeStore {
	if nowFn == nil {
		nowFn = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeStore{db: db, nowFn: nowFn, ttl: ttl}
}

// Issue creates a challenge wallet must sign.
func (s *ChallengeStore) Issue(ctx context.Context, wallet solana.PublicKey) (*models.WalletChallenge, error) {
	if wallet.IsZero() {
		return nil, fmt.Errorf("security: wallet is required")
	}
	nonce, err := GenerateRandomString(24)
	if err != nil {
		return nil, err
	}
	challenge := models.WalletChallenge{
		ID:        uuid.NewString(),
		Wallet:    wallet.String(),
		Nonce:     challengePrefix + nonce,
		ExpiresAt: s.nowFn().UTC().Add(s.ttl),
	}
	if errCreate := s.db.WithContext(ctx).Create(&challenge).Error; errCreate != nil {
		return nil, fmt.Errorf("security: create challenge: %w", errCreate)
	}
	return &challenge, nil
}

// Redeem checks signature over the challenge message and consumes the
// challenge, returning the wallet that signed it.
func (s *ChallengeStore) Redeem(ctx context.Context, id string, signature solana.Signature) (solana.PublicKey, error) {
	var challenge models.WalletChallenge
	errFind := s.db.WithContext(ctx).Where("id = ?", id).First(&challenge).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return solana.PublicKey{}, ErrChallengeNotFound
		}
		return solana.PublicKey{}, fmt.Errorf("security: load challenge: %w", errFind)
	}
	if challenge.Used {
		return solana.PublicKey{}, ErrChallengeUsed
	}
	if !s.nowFn().Before(challenge.ExpiresAt) {
		return solana.PublicKey{}, ErrChallengeExpired
	}
	wallet, errParse := solana.PublicKeyFromBase58(challenge.Wallet)
	if errParse != nil {
		return solana.PublicKey{}, fmt.Errorf("security: parse wallet: %w", errParse)
	}
	if !signature.Verify(wallet, []byte(challenge.Nonce)) {
		return solana.PublicKey{}, ErrInvalidSignature
	}

	result := s.db.WithContext(ctx).Model(&models.WalletChallenge{}).
		Where("id = ? AND used = ?", challenge.ID, false).
		Update("used", true)
	if result.Error != nil {
		return solana.PublicKey{}, fmt.Errorf("security: consume challenge: %w", result.Error)
	}
	if result.RowsAffected != 1 {
		return solana.PublicKey{}, ErrChallengeUsed
	}
	return wallet, nil
}

// GenerateRandomString returns n random bytes, hex encoded.
func GenerateRandomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", fmt.Errorf("security: random bytes: %w", errRead)
	}
	return hex.EncodeToString(buf), nil
}
