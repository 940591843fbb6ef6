package auction

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vieilles-charrues/mintauction/internal/authority"
	"github.com/vieilles-charrues/mintauction/internal/db"
	"github.com/vieilles-charrues/mintauction/internal/issuance"
	"github.com/vieilles-charrues/mintauction/internal/ledger"
	"github.com/vieilles-charrues/mintauction/internal/programerr"
	internalsettings "github.com/vieilles-charrues/mintauction/internal/settings"
)

const startUnix = 1_700_000_000

type harness struct {
	t        *testing.T
	clock    atomic.Int64
	runtime  *ledger.Runtime
	issuance *issuance.Service
	mint     solana.PublicKey
	treasury solana.PublicKey
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "auction.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	h := &harness{t: t, treasury: solana.NewWallet().PublicKey()}
	h.clock.Store(startUnix)
	programID := solana.MustPublicKeyFromBase58(internalsettings.DefaultProgramID)
	h.runtime = ledger.NewRuntime(conn, programID, func() time.Time { return time.Unix(h.clock.Load(), 0) })

	h.issuance, err = issuance.NewService(h.runtime)
	require.NoError(t, err)
	_, err = h.issuance.Initialize(context.Background(), solana.NewWallet().PublicKey(), issuance.InitParams{
		Name:   "Auction Pass",
		Symbol: "PASS",
		URI:    "https://example.com/pass.json",
	})
	require.NoError(t, err)
	h.mint = h.issuance.MintAddress()
	return h
}

func (h *harness) service(opts ...Option) *Service {
	h.t.Helper()
	svc, err := NewService(h.runtime, opts...)
	require.NoError(h.t, err)
	return svc
}

func (h *harness) advance(seconds int64) { h.clock.Add(seconds) }

func (h *harness) fund(owner solana.PublicKey, lamports uint64) {
	h.t.Helper()
	require.NoError(h.t, h.runtime.Execute(context.Background(), []solana.PublicKey{owner}, func(tx *ledger.Tx) error {
		return ledger.System{}.Airdrop(tx, owner, lamports)
	}))
}

func (h *harness) balance(owner solana.PublicKey) uint64 {
	h.t.Helper()
	ctx := context.Background()
	lamports, err := ledger.System{}.Balance(ctx, h.runtime.View(ctx), owner)
	require.NoError(h.t, err)
	return lamports
}

func (h *harness) tokens(owner solana.PublicKey) uint64 {
	h.t.Helper()
	ctx := context.Background()
	holdings, err := ledger.Token{}.Holdings(ctx, h.runtime.View(ctx), owner)
	require.NoError(h.t, err)
	var total uint64
	for _, holding := range holdings {
		total += holding.Amount
	}
	return total
}

func (h *harness) supply() uint64 {
	h.t.Helper()
	info, err := h.issuance.Info(context.Background())
	require.NoError(h.t, err)
	return info.Mint.Supply
}

func TestEndToEndScenario(t *testing.T) {
	h := newHarness(t)
	svc := h.service(WithTreasury(h.treasury))
	ctx := context.Background()
	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()
	h.fund(alice, 1_000)
	h.fund(bob, 1_000)

	record, err := svc.Start(ctx, alice, h.mint, 100)
	require.NoError(t, err)
	require.Equal(t, int64(startUnix+100), record.EndTime)
	require.Equal(t, StateActive, StateOf(record, svc.Now()))

	record, err = svc.PlaceBid(ctx, h.mint, alice, 50)
	require.NoError(t, err)
	require.Equal(t, uint64(50), record.HighestBid)
	require.Equal(t, alice.String(), record.HighestBidder)

	_, err = svc.PlaceBid(ctx, h.mint, bob, 40)
	require.ErrorIs(t, err, ErrBidTooLow)
	record, err = svc.Get(ctx, h.mint)
	require.NoError(t, err)
	require.Equal(t, uint64(50), record.HighestBid)
	require.Equal(t, alice.String(), record.HighestBidder)

	record, err = svc.PlaceBid(ctx, h.mint, bob, 60)
	require.NoError(t, err)
	require.Equal(t, uint64(60), record.HighestBid)
	require.Equal(t, bob.String(), record.HighestBidder)

	h.advance(100)
	record, err = svc.Get(ctx, h.mint)
	require.NoError(t, err)
	require.Equal(t, StateExpired, StateOf(record, svc.Now()))

	_, err = svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: alice, Treasury: h.treasury})
	require.ErrorIs(t, err, ErrNotHighestBidder)

	settlement, err := svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: bob, Treasury: h.treasury})
	require.NoError(t, err)
	require.Equal(t, uint64(60), settlement.Amount)
	require.Len(t, settlement.Steps, 2)
	assert.Equal(t, LegPayment, settlement.Steps[0].Leg)
	assert.Equal(t, LegMint, settlement.Steps[1].Leg)

	assert.Equal(t, uint64(60), h.balance(h.treasury))
	assert.Equal(t, uint64(940), h.balance(bob))
	assert.Equal(t, uint64(1_000), h.balance(alice))
	assert.Equal(t, uint64(1), h.tokens(bob))
	assert.Equal(t, uint64(1), h.supply())

	record, err = svc.Get(ctx, h.mint)
	require.NoError(t, err)
	require.True(t, record.Claimed)
	require.Equal(t, StateClosed, StateOf(record, svc.Now()))

	_, err = svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: bob, Treasury: h.treasury})
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Equal(t, uint64(60), h.balance(h.treasury))
	assert.Equal(t, uint64(1), h.tokens(bob))

	bids, err := svc.Bids(ctx, h.mint)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, uint64(50), bids[0].Amount)
	assert.Equal(t, uint64(60), bids[1].Amount)

	stored, err := svc.Settlement(ctx, h.mint)
	require.NoError(t, err)
	assert.Equal(t, settlement.ID, stored.ID)
}

func TestStart_Rejections(t *testing.T) {
	h := newHarness(t)
	svc := h.service()
	ctx := context.Background()
	payer := solana.NewWallet().PublicKey()

	_, err := svc.Start(ctx, payer, h.mint, 0)
	require.ErrorIs(t, err, ErrInvalidDuration)
	_, err = svc.Start(ctx, payer, h.mint, -5)
	require.ErrorIs(t, err, ErrInvalidDuration)

	_, err = svc.Start(ctx, payer, solana.NewWallet().PublicKey(), 10)
	require.ErrorIs(t, err, ErrMintNotFound)

	first, err := svc.Start(ctx, payer, h.mint, 10)
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, h.mint, payer, 5)
	require.NoError(t, err)

	h.advance(3)
	_, err = svc.Start(ctx, payer, h.mint, 1_000)
	require.ErrorIs(t, err, ErrAuctionAlreadyStarted)

	record, err := svc.Get(ctx, h.mint)
	require.NoError(t, err)
	require.Equal(t, first.EndTime, record.EndTime)
	require.Equal(t, uint64(5), record.HighestBid)
}

func TestPlaceBid_EqualBidRejected(t *testing.T) {
	h := newHarness(t)
	svc := h.service()
	ctx := context.Background()
	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()

	_, err := svc.Start(ctx, alice, h.mint, 100)
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, h.mint, alice, 0)
	require.ErrorIs(t, err, ErrBidTooLow)
	_, err = svc.PlaceBid(ctx, h.mint, alice, 10)
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, h.mint, bob, 10)
	require.ErrorIs(t, err, ErrBidTooLow)

	record, err := svc.Get(ctx, h.mint)
	require.NoError(t, err)
	require.Equal(t, alice.String(), record.HighestBidder)
	bids, err := svc.Bids(ctx, h.mint)
	require.NoError(t, err)
	require.Len(t, bids, 1)
}

func TestPlaceBid_AtOrAfterEnd(t *testing.T) {
	h := newHarness(t)
	svc := h.service()
	ctx := context.Background()
	alice := solana.NewWallet().PublicKey()

	_, err := svc.Start(ctx, alice, h.mint, 100)
	require.NoError(t, err)

	h.advance(99)
	_, err = svc.PlaceBid(ctx, h.mint, alice, 1)
	require.NoError(t, err)

	h.advance(1)
	_, err = svc.PlaceBid(ctx, h.mint, alice, 1_000_000)
	require.ErrorIs(t, err, ErrAuctionEnded)

	h.advance(50)
	_, err = svc.PlaceBid(ctx, h.mint, alice, 2)
	require.ErrorIs(t, err, ErrAuctionEnded)

	record, err := svc.Get(ctx, h.mint)
	require.NoError(t, err)
	require.Equal(t, uint64(1), record.HighestBid)
}

func TestPlaceBid_NoAuction(t *testing.T) {
	h := newHarness(t)
	svc := h.service()
	_, err := svc.PlaceBid(context.Background(), h.mint, solana.NewWallet().PublicKey(), 1)
	require.ErrorIs(t, err, ErrAuctionNotFound)
}

func TestClaim_BeforeEnd(t *testing.T) {
	h := newHarness(t)
	svc := h.service(WithTreasury(h.treasury))
	ctx := context.Background()
	bob := solana.NewWallet().PublicKey()
	h.fund(bob, 100)

	_, err := svc.Start(ctx, bob, h.mint, 100)
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, h.mint, bob, 60)
	require.NoError(t, err)

	h.advance(99)
	_, err = svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: bob})
	require.ErrorIs(t, err, ErrAuctionNotEnded)

	record, err := svc.Get(ctx, h.mint)
	require.NoError(t, err)
	require.False(t, record.Claimed)
	require.Equal(t, uint64(100), h.balance(bob))
	require.Zero(t, h.balance(h.treasury))
	require.Zero(t, h.supply())
}

func TestClaim_NoBids(t *testing.T) {
	h := newHarness(t)
	svc := h.service(WithTreasury(h.treasury))
	ctx := context.Background()
	claimant := solana.NewWallet().PublicKey()

	_, err := svc.Start(ctx, claimant, h.mint, 10)
	require.NoError(t, err)
	h.advance(10)
	_, err = svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: claimant})
	require.ErrorIs(t, err, ErrNotHighestBidder)
}

func TestClaim_PaymentFailureKeepsAuctionClaimable(t *testing.T) {
	h := newHarness(t)
	svc := h.service(WithTreasury(h.treasury))
	ctx := context.Background()
	bob := solana.NewWallet().PublicKey()
	h.fund(bob, 30)

	_, err := svc.Start(ctx, bob, h.mint, 10)
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, h.mint, bob, 60)
	require.NoError(t, err)
	h.advance(10)

	_, err = svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: bob})
	require.ErrorIs(t, err, programerr.ErrPaymentTransferFailed)
	require.ErrorIs(t, err, programerr.ErrInsufficientFunds)

	record, err := svc.Get(ctx, h.mint)
	require.NoError(t, err)
	require.False(t, record.Claimed)
	require.Zero(t, h.tokens(bob))
	require.Zero(t, h.supply())
	require.Equal(t, uint64(30), h.balance(bob))

	h.fund(bob, 30)
	settlement, err := svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: bob})
	require.NoError(t, err)
	require.Equal(t, h.treasury.String(), settlement.Treasury)
	require.Equal(t, uint64(60), h.balance(h.treasury))
	require.Zero(t, h.balance(bob))
}

type failingTokens struct {
	ledger.Token
}

var errMintUnavailable = errors.New("mint unavailable")

func (failingTokens) MintTo(*ledger.Tx, solana.PublicKey, solana.PublicKey, uint64, authority.Proof) error {
	return errMintUnavailable
}

func TestClaim_MintFailureRollsBackPayment(t *testing.T) {
	h := newHarness(t)
	svc := h.service(WithTreasury(h.treasury), WithTokens(failingTokens{}))
	ctx := context.Background()
	bob := solana.NewWallet().PublicKey()
	h.fund(bob, 100)

	_, err := svc.Start(ctx, bob, h.mint, 10)
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, h.mint, bob, 60)
	require.NoError(t, err)
	h.advance(10)

	_, err = svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: bob})
	require.ErrorIs(t, err, errMintUnavailable)

	require.Equal(t, uint64(100), h.balance(bob))
	require.Zero(t, h.balance(h.treasury))
	record, err := svc.Get(ctx, h.mint)
	require.NoError(t, err)
	require.False(t, record.Claimed)
	_, err = svc.Settlement(ctx, h.mint)
	require.ErrorIs(t, err, programerr.ErrAccountNotFound)
}

func TestClaim_ForeignMintAuthorityRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	otherProgram := solana.NewWallet().PublicKey()
	foreign, err := authority.MintAuthority(otherProgram)
	require.NoError(t, err)
	require.NoError(t, h.runtime.Execute(ctx, []solana.PublicKey{foreign.Address}, func(tx *ledger.Tx) error {
		_, errCreate := ledger.Token{}.CreateMint(tx, ledger.CreateMintParams{
			Address:       foreign.Address,
			Signer:        foreign.Signer(),
			MintAuthority: foreign.Address,
		})
		return errCreate
	}))

	svc := h.service(WithTreasury(h.treasury))
	bob := solana.NewWallet().PublicKey()
	h.fund(bob, 100)
	_, err = svc.Start(ctx, bob, foreign.Address, 10)
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, foreign.Address, bob, 60)
	require.NoError(t, err)
	h.advance(10)

	_, err = svc.Claim(ctx, ClaimParams{Mint: foreign.Address, Claimant: bob})
	require.ErrorIs(t, err, programerr.ErrAuthorization)
	require.Equal(t, uint64(100), h.balance(bob))

	record, err := svc.Get(ctx, foreign.Address)
	require.NoError(t, err)
	require.False(t, record.Claimed)
}

func TestClaim_TreasuryAndTokenAccountChecks(t *testing.T) {
	h := newHarness(t)
	svc := h.service(WithTreasury(h.treasury))
	ctx := context.Background()
	bob := solana.NewWallet().PublicKey()
	h.fund(bob, 100)

	_, err := svc.Start(ctx, bob, h.mint, 10)
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, h.mint, bob, 60)
	require.NoError(t, err)
	h.advance(10)

	_, err = svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: bob, Treasury: solana.NewWallet().PublicKey()})
	require.ErrorIs(t, err, ErrTreasuryMismatch)

	_, err = svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: bob, WinnerTokenAccount: solana.NewWallet().PublicKey()})
	require.ErrorIs(t, err, ErrInvalidTokenAccount)

	holding, err := ledger.Token{}.HoldingAddress(h.mint, bob)
	require.NoError(t, err)
	settlement, err := svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: bob, WinnerTokenAccount: holding})
	require.NoError(t, err)
	require.Equal(t, holding.String(), settlement.WinnerTokenAccount)
}

func TestClaim_RequiresTreasury(t *testing.T) {
	h := newHarness(t)
	svc := h.service()
	ctx := context.Background()
	bob := solana.NewWallet().PublicKey()
	h.fund(bob, 100)

	_, err := svc.Start(ctx, bob, h.mint, 100)
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, h.mint, bob, 60)
	require.NoError(t, err)

	_, err = svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: bob})
	require.ErrorIs(t, err, ErrAuctionNotEnded, "deadline is checked before the treasury")

	h.advance(100)
	_, err = svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: bob})
	require.ErrorIs(t, err, programerr.ErrInvalidArgument)

	record, err := svc.Get(ctx, h.mint)
	require.NoError(t, err)
	require.False(t, record.Claimed)
	require.Equal(t, uint64(100), h.balance(bob))

	settlement, err := svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: bob, Treasury: h.treasury})
	require.NoError(t, err)
	require.Equal(t, h.treasury.String(), settlement.Treasury)
}

func TestListExpiredUnclaimed(t *testing.T) {
	h := newHarness(t)
	svc := h.service(WithTreasury(h.treasury))
	ctx := context.Background()
	bob := solana.NewWallet().PublicKey()
	h.fund(bob, 100)

	_, err := svc.Start(ctx, bob, h.mint, 10)
	require.NoError(t, err)

	expired, err := svc.ListExpiredUnclaimed(ctx, svc.Now())
	require.NoError(t, err)
	require.Empty(t, expired)

	_, err = svc.PlaceBid(ctx, h.mint, bob, 1)
	require.NoError(t, err)
	h.advance(10)
	expired, err = svc.ListExpiredUnclaimed(ctx, svc.Now())
	require.NoError(t, err)
	require.Len(t, expired, 1)

	_, err = svc.Claim(ctx, ClaimParams{Mint: h.mint, Claimant: bob})
	require.NoError(t, err)
	expired, err = svc.ListExpiredUnclaimed(ctx, svc.Now())
	require.NoError(t, err)
	require.Empty(t, expired)
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, StateUninitialized, StateOf(nil, 0))
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "expired", StateExpired.String())
	assert.Equal(t, "closed", StateClosed.String())
}
