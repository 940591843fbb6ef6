package settings

// Program identity, seeds, and defaults.
const (
	// DefaultProgramID is the program address the authority seeds derive under.
	DefaultProgramID = "5wrfmBvkFaayrm8XYgXTvway4Rxt6ZBedt7sB4Z36A9c"
	// MetadataProgramID owns the metadata accounts attached to mints.
	MetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	// MintSeed derives the mint address, which is also its own mint authority.
	MintSeed = "mint"
	// AuctionSeed prefixes the per-mint auction record address.
	AuctionSeed = "auction"
	// MetadataSeed prefixes the metadata account address.
	MetadataSeed = "metadata"
	// ClaimMintQuantity is the number of units minted to an auction winner.
	ClaimMintQuantity = 1
	// MaxNameLength bounds the metadata name in bytes.
	MaxNameLength = 32
	// MaxSymbolLength bounds the metadata symbol in bytes.
	MaxSymbolLength = 10
	// MaxURILength bounds the metadata URI in bytes.
	MaxURILength = 200
	// MaxDecimals bounds mint decimal precision.
	MaxDecimals = 9
	// DefaultBidsPerSecond is the bid rate limit per bidder when none is configured.
	DefaultBidsPerSecond = 5
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "mintauction:rl"
	// DefaultExpiryScanIntervalSeconds controls how often expired auctions are reported.
	DefaultExpiryScanIntervalSeconds = 60
	// DefaultFaucetMaxLamports caps a single airdrop.
	DefaultFaucetMaxLamports = 15 * LamportsPerSOL
	// LamportsPerSOL is the number of smallest currency units in one SOL.
	LamportsPerSOL = 1_000_000_000
	// NativeDecimals is the decimal precision of the native currency.
	NativeDecimals = 9
)
