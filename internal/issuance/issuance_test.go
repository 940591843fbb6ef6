package issuance

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"github.com/vieilles-charrues/mintauction/internal/authority"
	"github.com/vieilles-charrues/mintauction/internal/db"
	"github.com/vieilles-charrues/mintauction/internal/ledger"
	"github.com/vieilles-charrues/mintauction/internal/models"
	"github.com/vieilles-charrues/mintauction/internal/programerr"
	internalsettings "github.com/vieilles-charrues/mintauction/internal/settings"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "issuance.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	programID := solana.MustPublicKeyFromBase58(internalsettings.DefaultProgramID)
	rt := ledger.NewRuntime(conn, programID, func() time.Time { return time.Unix(1_700_000_000, 0) })
	svc, err := NewService(rt, opts...)
	require.NoError(t, err)
	return svc
}

var testParams = InitParams{Name: "Auction Pass", Symbol: "PASS", URI: "https://example.com/pass.json", Decimals: 0}

func TestInitialize_CreatesMintAndMetadata(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	payer := solana.NewWallet().PublicKey()

	info, err := svc.Initialize(ctx, payer, testParams)
	require.NoError(t, err)
	require.Equal(t, svc.MintAddress().String(), info.Mint.Address)
	require.Equal(t, svc.MintAddress().String(), info.Mint.MintAuthority)
	require.Equal(t, svc.MintAddress().String(), info.Metadata.UpdateAuthority)
	require.Equal(t, payer.String(), info.Mint.Payer)
	require.Zero(t, info.Mint.Supply)
	require.True(t, authority.IsOffCurve(svc.MintAddress()))

	read, err := svc.Info(ctx)
	require.NoError(t, err)
	require.Equal(t, "Auction Pass", read.Metadata.Name)
}

func TestInitialize_RejectsSecondCall(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	payer := solana.NewWallet().PublicKey()

	_, err := svc.Initialize(ctx, payer, testParams)
	require.NoError(t, err)
	_, err = svc.Initialize(ctx, payer, testParams)
	require.ErrorIs(t, err, programerr.ErrAccountAlreadyInUse)
}

func TestInitialize_ValidatesParams(t *testing.T) {
	svc := newTestService(t)
	params := testParams
	params.Decimals = 10
	_, err := svc.Initialize(context.Background(), solana.NewWallet().PublicKey(), params)
	require.ErrorIs(t, err, programerr.ErrInvalidArgument)

	_, err = svc.Info(context.Background())
	require.ErrorIs(t, err, programerr.ErrAccountNotFound)
}

func TestMintTokens_IssuesToOwner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Initialize(ctx, solana.NewWallet().PublicKey(), testParams)
	require.NoError(t, err)

	owner := solana.NewWallet().PublicKey()
	holding, err := svc.MintTokens(ctx, owner, 5)
	require.NoError(t, err)
	require.Equal(t, uint64(5), holding.Amount)
	require.Equal(t, owner.String(), holding.Owner)

	holding, err = svc.MintTokens(ctx, owner, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(8), holding.Amount)

	info, err := svc.Info(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(8), info.Mint.Supply)
}

func TestMintTokens_ZeroQuantityLeavesSupply(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Initialize(ctx, solana.NewWallet().PublicKey(), testParams)
	require.NoError(t, err)
	owner := solana.NewWallet().PublicKey()
	_, err = svc.MintTokens(ctx, owner, 2)
	require.NoError(t, err)

	_, err = svc.MintTokens(ctx, owner, 0)
	require.NoError(t, err)

	info, err := svc.Info(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), info.Mint.Supply)
}

func TestMintTokens_BeforeInitialize(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.MintTokens(context.Background(), solana.NewWallet().PublicKey(), 1)
	require.ErrorIs(t, err, programerr.ErrAccountNotFound)
}

type failingMetadata struct {
	ledger.Metadata
}

func (failingMetadata) Create(*ledger.Tx, ledger.MetadataParams) (*models.TokenMetadata, error) {
	return nil, errors.New("metadata unavailable")
}

func TestInitialize_MetadataFailureRollsBackMint(t *testing.T) {
	svc := newTestService(t, WithMetadataService(failingMetadata{}))
	ctx := context.Background()

	_, err := svc.Initialize(ctx, solana.NewWallet().PublicKey(), testParams)
	require.Error(t, err)

	_, err = ledger.Token{}.GetMint(ctx, svc.runtime.View(ctx), svc.MintAddress())
	require.ErrorIs(t, err, programerr.ErrAccountNotFound)
}
