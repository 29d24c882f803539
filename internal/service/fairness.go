package service

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// Provably fair draws. A random seed is generated when the raffle is
// created and only its SHA3-256 hash is published. At draw time the
// winning ticket index is SHA3-256(seed || raffleID) mod ticketsSold and
// the seed is revealed, so anyone can check both the commitment and the
// result.

// NewSeed returns 32 random bytes, hex encoded
func NewSeed() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CommitSeed returns the published commitment for seed
func CommitSeed(seed string) string {
	sum := sha3.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// WinningTicket returns the winning ticket number (1-based) for sold tickets
func WinningTicket(seed, raffleID string, sold int) int {
	if sold <= 0 {
		return 0
	}
	sum := sha3.Sum256([]byte(seed + raffleID))
	idx := new(big.Int).Mod(new(big.Int).SetBytes(sum[:]), big.NewInt(int64(sold)))
	return int(idx.Int64()) + 1
}

// VerifyDraw recomputes a revealed draw
func VerifyDraw(raffleID, seedHash, seed string, sold, winningTicket int) (int, bool) {
	recomputed := WinningTicket(seed, raffleID, sold)
	return recomputed, CommitSeed(seed) == seedHash && recomputed == winningTicket
}
