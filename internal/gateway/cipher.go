package gateway

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
)

// BlockCipherCodec encrypts wire messages with AES-CBC under a fixed
// key and IV, both out-of-band constants shared with the PG. Ciphertext
// crosses the socket base64-encoded. Key/IV rotation is out of scope:
// this is a closed channel with a single partner.
type BlockCipherCodec struct {
	block cipher.Block
	iv    []byte
}

// NewBlockCipherCodec validates the key/IV lengths and returns a codec.
// The key must be 16, 24, or 32 bytes; the IV must match the AES block
// size.
func NewBlockCipherCodec(key, iv []byte) (*BlockCipherCodec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("gateway: cipher key: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("gateway: cipher iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	return &BlockCipherCodec{block: block, iv: append([]byte(nil), iv...)}, nil
}

// Encrypt pads the plaintext to the block size, encrypts in CBC mode,
// and base64-encodes the result for the byte-oriented socket.
func (c *BlockCipherCodec) Encrypt(plaintext string) string {
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out)
}

// Decrypt reverses Encrypt. Any failure - bad base64, a length that is
// not a block multiple, invalid padding - is reported as ErrCipherDecode
// so callers never mistake garbage for a PG reply.
func (c *BlockCipherCodec) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: base64: %v", ErrCipherDecode, err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d not a block multiple", ErrCipherDecode, len(raw))
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, raw)
	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(pad)}, pad)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: invalid padded length %d", ErrCipherDecode, len(data))
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize {
		return nil, fmt.Errorf("%w: invalid padding byte %d", ErrCipherDecode, pad)
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("%w: inconsistent padding", ErrCipherDecode)
		}
	}
	return data[:len(data)-pad], nil
}
