// Package authority derives program-owned addresses that no private key controls.
//
// An Authority is found by hashing a fixed seed list under a program ID and
// searching bumps from 255 down until the result falls off the ed25519 curve.
// The program proves the right to sign as that address by presenting the seeds
// and bump (a Proof); the runtime re-derives the address and rejects any
// mismatch as an authorization failure.
package authority

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
	"github.com/vieilles-charrues/mintauction/internal/programerr"
	internalsettings "github.com/vieilles-charrues/mintauction/internal/settings"
)

// Authority is a derived address together with the seeds and bump that produce it.
type Authority struct {
	ProgramID solana.PublicKey
	Seeds     [][]byte
	Address   solana.PublicKey
	Bump      uint8
}

// Proof is what a program presents to act as a derived address.
type Proof struct {
	ProgramID solana.PublicKey
	Seeds     [][]byte
	Bump      uint8
}

// Find derives the canonical authority for seeds under programID.
func Find(programID solana.PublicKey, seeds ...[]byte) (Authority, error) {
	if programID.IsZero() {
		return Authority{}, fmt.Errorf("authority: empty program id")
	}
	address, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return Authority{}, fmt.Errorf("authority: find program address: %w", err)
	}
	return Authority{
		ProgramID: programID,
		Seeds:     cloneSeeds(seeds),
		Address:   address,
		Bump:      bump,
	}, nil
}

// MintAuthority derives the mint address. The mint is its own mint authority.
func MintAuthority(programID solana.PublicKey) (Authority, error) {
	return Find(programID, []byte(internalsettings.MintSeed))
}

// AuctionAddress derives the record address of the auction for mint.
func AuctionAddress(programID, mint solana.PublicKey) (Authority, error) {
	return Find(programID, []byte(internalsettings.AuctionSeed), mint.Bytes())
}

// MetadataAddress derives the metadata account address for mint.
func MetadataAddress(mint solana.PublicKey) (Authority, error) {
	metadataProgram, err := solana.PublicKeyFromBase58(internalsettings.MetadataProgramID)
	if err != nil {
		return Authority{}, fmt.Errorf("authority: metadata program id: %w", err)
	}
	return Find(metadataProgram, []byte(internalsettings.MetadataSeed), metadataProgram.Bytes(), mint.Bytes())
}

// Signer returns the proof that lets the holder sign as a.Address.
func (a Authority) Signer() Proof {
	return Proof{ProgramID: a.ProgramID, Seeds: cloneSeeds(a.Seeds), Bump: a.Bump}
}

// Address re-derives the address this proof signs for.
func (p Proof) Address() (solana.PublicKey, error) {
	seeds := append(cloneSeeds(p.Seeds), []byte{p.Bump})
	address, err := solana.CreateProgramAddress(seeds, p.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: invalid seeds: %v", programerr.ErrAuthorization, err)
	}
	return address, nil
}

// Verify checks that the proof signs as expected.
func (p Proof) Verify(expected solana.PublicKey) error {
	address, err := p.Address()
	if err != nil {
		return err
	}
	if !address.Equals(expected) {
		return fmt.Errorf("%w: proof signs for %s, required %s", programerr.ErrAuthorization, address, expected)
	}
	return nil
}

// IsOffCurve reports whether address is not a valid ed25519 point,
// meaning no private key can exist for it.
func IsOffCurve(address solana.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(address.Bytes())
	return err != nil
}

func cloneSeeds(seeds [][]byte) [][]byte {
	out := make([][]byte, len(seeds))
	for i, seed := range seeds {
		out[i] = append([]byte(nil), seed...)
	}
	return out
}
