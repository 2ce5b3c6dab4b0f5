package sharecode

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

// fakeChecker marks candidates as taken by index within the received pool.
type fakeChecker struct {
	takenByIndex func(i int) bool
	err          error
	gotPools     [][]string
}

func (f *fakeChecker) ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error) {
	f.gotPools = append(f.gotPools, codes)
	if f.err != nil {
		return nil, f.err
	}
	existing := make(map[string]struct{})
	for i, code := range codes {
		if f.takenByIndex != nil && f.takenByIndex(i) {
			existing[code] = struct{}{}
		}
	}
	return existing, nil
}

func isNumeric(code string) bool {
	return strings.Trim(code, "0123456789") == ""
}

func TestAllocate_PrefersNumeric(t *testing.T) {
	checker := &fakeChecker{}
	alloc := NewAllocator(checker)

	code, err := alloc.Allocate(context.Background())
	require.NoError(t, err)

	assert.Len(t, code, CodeLength)
	assert.True(t, isNumeric(code), "free pool should yield a numeric code, got %q", code)
}

func TestAllocate_SingleBatchedCheck(t *testing.T) {
	checker := &fakeChecker{}
	alloc := NewAllocator(checker)

	_, err := alloc.Allocate(context.Background())
	require.NoError(t, err)

	require.Len(t, checker.gotPools, 1)
	assert.Len(t, checker.gotPools[0], PoolSize)
}

func TestAllocate_FallsBackToAlphanumeric(t *testing.T) {
	// every numeric candidate taken, first alphanumeric free
	checker := &fakeChecker{takenByIndex: func(i int) bool { return i < numericCandidates }}
	alloc := NewAllocator(checker)

	code, err := alloc.Allocate(context.Background())
	require.NoError(t, err)
	assert.Len(t, code, CodeLength)
}

func TestAllocate_LastCandidateWins(t *testing.T) {
	checker := &fakeChecker{takenByIndex: func(i int) bool { return i < PoolSize-1 }}
	alloc := NewAllocator(checker)

	code, err := alloc.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, checker.gotPools[0][PoolSize-1], code)
}

func TestAllocate_Exhausted(t *testing.T) {
	checker := &fakeChecker{takenByIndex: func(i int) bool { return true }}
	alloc := NewAllocator(checker)

	_, err := alloc.Allocate(context.Background())
	assert.ErrorIs(t, err, common.ErrorExhausted)
}

func TestAllocate_CheckerError(t *testing.T) {
	checker := &fakeChecker{err: errors.New("db down")}
	alloc := NewAllocator(checker)

	_, err := alloc.Allocate(context.Background())
	assert.ErrorContains(t, err, "db down")
}
