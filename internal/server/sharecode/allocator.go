// Package sharecode allocates the 6-character human-facing codes that map to
// share records.
package sharecode

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

// CodeLength is the fixed length of every share code.
const CodeLength = 6

// Candidate pool composition per allocation attempt. Numeric codes are
// easier to type on a phone keypad, so the pool skews heavily toward them
// and they win ties against alphanumeric candidates.
const (
	numericCandidates = 20
	alphaCandidates   = 10
	PoolSize          = numericCandidates + alphaCandidates
)

const (
	digits       = "0123456789"
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// CodeChecker is the one metadata-store operation the allocator needs: a
// batched existence check over candidate codes. Codes are never reused,
// even for expired records, until the row is physically deleted, so the
// check runs against every stored code, live or not.
type CodeChecker interface {
	ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error)
}

// Allocator produces unique, unpredictable share codes.
//
// The scheme is explicitly non-atomic best effort: nothing is locked across
// the check-then-insert gap, so the insert must still enforce uniqueness and
// the caller treats both ErrorExhausted and an insert-time ErrorCodeTaken as
// retryable with a fresh pool.
type Allocator struct {
	codes CodeChecker
}

func NewAllocator(codes CodeChecker) *Allocator {
	return &Allocator{codes: codes}
}

// Allocate draws one candidate pool, checks the whole pool against the
// store in a single batch, and returns the first free candidate, numeric
// ones first. Fails with ErrorExhausted when every candidate collides.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	pool, err := a.generatePool()
	if err != nil {
		return "", err
	}

	existing, err := a.codes.ExistingCodes(ctx, pool)
	if err != nil {
		return "", fmt.Errorf("code existence check: %w", err)
	}

	for _, candidate := range pool {
		if _, taken := existing[candidate]; !taken {
			return candidate, nil
		}
	}

	return "", common.ErrorExhausted
}

// generatePool returns numeric candidates followed by alphanumeric ones, so
// a plain in-order scan prefers numeric codes.
func (a *Allocator) generatePool() ([]string, error) {
	pool := make([]string, 0, PoolSize)

	for i := 0; i < numericCandidates; i++ {
		code, err := randomCode(digits)
		if err != nil {
			return nil, err
		}
		pool = append(pool, code)
	}
	for i := 0; i < alphaCandidates; i++ {
		code, err := randomCode(alphanumeric)
		if err != nil {
			return nil, err
		}
		pool = append(pool, code)
	}

	return pool, nil
}

func randomCode(charset string) (string, error) {
	max := big.NewInt(int64(len(charset)))

	b := make([]byte, CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}
