// Package envelope implements the encrypted-file binary format produced by
// the client before upload. The envelope is self-contained: given only the
// password it holds everything needed to decrypt.
//
// Layout (all integers little-endian):
//
//	[u32 headerLen][u16 version][salt 16][iv 12][wrappedDataKey][sha256(ciphertext) 32][ciphertext]
//
// headerLen covers version, salt, iv and the wrapped data key. The server
// never parses this structure; it is opaque payload to the storage layer.
package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

// Version is the current envelope format version.
const Version = 1

const (
	headerMetaSize = 4 // u32 headerLen prefix
	versionSize    = 2
	saltSize       = 16
	ivSize         = 12
	hashSize       = sha256.Size
	dataKeySize    = 32
)

// Argon2id parameters. Deliberately expensive: the server never sees the
// password, so the KDF is the only brake on offline brute force.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 1
	argonKeyLen  = 32
)

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext under the given password.
//
// A fresh random 256-bit data key encrypts the content; the data key itself
// is wrapped with the Argon2id-derived password key. Wrapping means the
// heavy KDF runs once per password entry regardless of content size, and a
// password-derived key alone never touches the plaintext.
func Seal(password string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	dataKey := make([]byte, dataKeySize)
	if _, err := rand.Read(dataKey); err != nil {
		return nil, err
	}

	passwordGCM, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	wrappedKey := passwordGCM.Seal(nil, iv, dataKey, nil)

	dataGCM, err := newGCM(dataKey)
	if err != nil {
		return nil, err
	}
	ciphertext := dataGCM.Seal(nil, iv, plaintext, nil)
	contentHash := sha256.Sum256(ciphertext)

	headerLen := versionSize + saltSize + ivSize + len(wrappedKey)

	buf := make([]byte, 0, headerMetaSize+headerLen+hashSize+len(ciphertext))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(headerLen))
	buf = binary.LittleEndian.AppendUint16(buf, Version)
	buf = append(buf, salt...)
	buf = append(buf, iv...)
	buf = append(buf, wrappedKey...)
	buf = append(buf, contentHash[:]...)
	buf = append(buf, ciphertext...)

	return buf, nil
}

// Open decrypts an envelope produced by Seal (or by the browser client,
// which writes the identical byte layout).
//
// The stored ciphertext hash is re-verified before any plaintext is
// returned. A wrong password and a corrupted wrapped key both surface as
// ErrorDecryption: the caller must not be able to tell which one it was.
func Open(password string, blob []byte) ([]byte, error) {
	if len(blob) < headerMetaSize+versionSize+saltSize+ivSize {
		return nil, fmt.Errorf("%w: truncated header", common.ErrorDecryption)
	}

	headerLen := int(binary.LittleEndian.Uint32(blob))
	if headerLen < versionSize+saltSize+ivSize || len(blob) < headerMetaSize+headerLen+hashSize {
		return nil, fmt.Errorf("%w: truncated header", common.ErrorDecryption)
	}

	header := blob[headerMetaSize : headerMetaSize+headerLen]

	version := binary.LittleEndian.Uint16(header)
	if version != Version {
		return nil, fmt.Errorf("%w: got %d", common.ErrorVersionMismatch, version)
	}

	salt := header[versionSize : versionSize+saltSize]
	iv := header[versionSize+saltSize : versionSize+saltSize+ivSize]
	wrappedKey := header[versionSize+saltSize+ivSize:]

	contentHash := blob[headerMetaSize+headerLen : headerMetaSize+headerLen+hashSize]
	ciphertext := blob[headerMetaSize+headerLen+hashSize:]

	recomputed := sha256.Sum256(ciphertext)
	if !bytes.Equal(contentHash, recomputed[:]) {
		return nil, common.ErrorIntegrity
	}

	passwordGCM, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	dataKey, err := passwordGCM.Open(nil, iv, wrappedKey, nil)
	if err != nil {
		return nil, common.ErrorDecryption
	}

	dataGCM, err := newGCM(dataKey)
	if err != nil {
		return nil, common.ErrorDecryption
	}
	plaintext, err := dataGCM.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, common.ErrorDecryption
	}

	return plaintext, nil
}
