package hashx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	// well-known sha256 vectors
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Sum(nil))
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		Sum([]byte("abc")))
}

func TestSumReader(t *testing.T) {
	content := "hello, filedrop"

	digest, n, err := SumReader(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, Sum([]byte(content)), digest)
}
