package gateway

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const (
	checksumPrefixLen = 8
	checksumDigestLen = 32
	checksumTokenLen  = checksumPrefixLen + checksumDigestLen
)

// ChecksumCodec builds and verifies the 40-character tamper token the PG
// requires on every request. The token binds the signed identity fields
// (service id, order id, amount - concatenated with no delimiters, in
// that order) to a shared secret agreed out of band with the PG.
type ChecksumCodec struct {
	secret string
}

// NewChecksumCodec returns a codec bound to the shared secret.
func NewChecksumCodec(secret string) (*ChecksumCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("gateway: checksum secret must not be empty")
	}
	return &ChecksumCodec{secret: secret}, nil
}

// SignedFields concatenates the fields the token covers. Field order
// and the decimal rendering of amount are load-bearing.
func SignedFields(serviceID, orderID string, amount int64) string {
	return serviceID + orderID + fmt.Sprintf("%d", amount)
}

// Generate draws a 4-byte random prefix, hex-encodes it, and appends
// the MD5 hex digest of prefix || signedFields || secret.
func (c *ChecksumCodec) Generate(signedFields string) (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("gateway: checksum prefix: %w", err)
	}
	prefix := hex.EncodeToString(buf[:])
	return prefix + c.digest(prefix, signedFields), nil
}

// Verify recomputes the digest from the token's prefix and compares.
// A malformed or mismatching token is a false result, not an error.
func (c *ChecksumCodec) Verify(token, signedFields string) bool {
	if len(token) != checksumTokenLen {
		return false
	}
	prefix, digest := token[:checksumPrefixLen], token[checksumPrefixLen:]
	want := c.digest(prefix, signedFields)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(want)) == 1
}

func (c *ChecksumCodec) digest(prefix, signedFields string) string {
	sum := md5.Sum([]byte(prefix + signedFields + c.secret))
	return hex.EncodeToString(sum[:])
}
