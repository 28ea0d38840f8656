package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumRoundTrip(t *testing.T) {
	codec, err := NewChecksumCodec("test-shared-secret")
	require.NoError(t, err)

	fields := SignedFields("SVC001", "ORDER1", 43000)

	token, err := codec.Generate(fields)
	require.NoError(t, err)
	assert.Len(t, token, 40)
	assert.True(t, codec.Verify(token, fields))
}

func TestChecksumDetectsFieldTampering(t *testing.T) {
	codec, err := NewChecksumCodec("test-shared-secret")
	require.NoError(t, err)

	fields := SignedFields("SVC001", "ORDER1", 43000)
	token, err := codec.Generate(fields)
	require.NoError(t, err)

	// every single-position mutation of the signed fields must fail
	for i := 0; i < len(fields); i++ {
		mutated := []byte(fields)
		mutated[i] ^= 0x01
		assert.False(t, codec.Verify(token, string(mutated)),
			"mutation at position %d verified", i)
	}

	// different amount, same order
	assert.False(t, codec.Verify(token, SignedFields("SVC001", "ORDER1", 43001)))
}

func TestChecksumDetectsTokenTampering(t *testing.T) {
	codec, err := NewChecksumCodec("test-shared-secret")
	require.NoError(t, err)

	fields := SignedFields("SVC001", "ORDER1", 43000)
	token, err := codec.Generate(fields)
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		mutated := []byte(token)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}
		assert.False(t, codec.Verify(string(mutated), fields),
			"token mutation at position %d verified", i)
	}
}

func TestChecksumRejectsBadLength(t *testing.T) {
	codec, err := NewChecksumCodec("test-shared-secret")
	require.NoError(t, err)

	fields := SignedFields("SVC001", "ORDER1", 43000)

	assert.False(t, codec.Verify("", fields))
	assert.False(t, codec.Verify("short", fields))

	token, err := codec.Generate(fields)
	require.NoError(t, err)
	assert.False(t, codec.Verify(token+"0", fields))
	assert.False(t, codec.Verify(token[:39], fields))
}

func TestChecksumSecretRequired(t *testing.T) {
	_, err := NewChecksumCodec("")
	assert.Error(t, err)
}

func TestChecksumDistinctSecrets(t *testing.T) {
	a, err := NewChecksumCodec("secret-a")
	require.NoError(t, err)
	b, err := NewChecksumCodec("secret-b")
	require.NoError(t, err)

	fields := SignedFields("SVC001", "ORDER1", 1000)
	token, err := a.Generate(fields)
	require.NoError(t, err)

	assert.True(t, a.Verify(token, fields))
	assert.False(t, b.Verify(token, fields))
}
