package decryption

import (
	"crypto/cipher"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blowfish"
)

const (
	// chunkSize is the stripe width used by the provider's CDN.
	chunkSize = 2048
	// blockSize is the Blowfish block size.
	blockSize = 8
)

// iv is the fixed CBC initialization vector used for every encrypted chunk.
var iv = []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}

// DecryptPartial decrypts provider audio data encrypted with the
// partial-block stripe scheme: the data is split into 2048-byte chunks
// and every third chunk (indices 0, 3, 6, ...) is Blowfish-CBC
// encrypted; the rest passes through untouched.
//
// keyHex must decode to exactly 16 bytes. A trailing encrypted chunk
// shorter than 8 bytes is passed through as-is; a longer partial chunk
// is decrypted over its 8-byte-aligned prefix only, with the remainder
// copied verbatim.
//
// A new cipher is created for each encrypted chunk so CBC state never
// carries across chunks.
func DecryptPartial(data []byte, keyHex string) ([]byte, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid decryption key: %w", err)
	}
	if len(key) != 16 {
		return nil, fmt.Errorf("invalid decryption key length: got %d bytes, want 16", len(key))
	}

	out := make([]byte, 0, len(data))

	for chunkIdx := 0; chunkIdx*chunkSize < len(data); chunkIdx++ {
		start := chunkIdx * chunkSize
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]

		if chunkIdx%3 != 0 || len(chunk) < blockSize {
			out = append(out, chunk...)
			continue
		}

		block, err := blowfish.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create cipher: %w", err)
		}

		alignedLen := (len(chunk) / blockSize) * blockSize
		decrypted := make([]byte, alignedLen)
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, chunk[:alignedLen])

		out = append(out, decrypted...)
		out = append(out, chunk[alignedLen:]...)
	}

	return out, nil
}
