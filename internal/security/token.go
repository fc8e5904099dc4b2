package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize        = 32 // AES-256
	saltSize       = 32
	pbkdf2Iter     = 100000
	credentialName = "Hasod_BackendToken"

	// encPrefix marks a file-encrypted token in settings.json
	encPrefix = "enc:"
	// credentialMarker marks a token stored in the OS credential store
	credentialMarker = "CREDENTIAL_MANAGER"
)

// TokenEncryptor protects the backend bearer token at rest. On
// Windows it prefers the Credential Manager; elsewhere it falls back
// to AES-GCM with a key derived from a per-install salt file.
type TokenEncryptor struct {
	keyPath string
}

// NewTokenEncryptor creates an encryptor keyed under dataDir
func NewTokenEncryptor(dataDir string) *TokenEncryptor {
	return &TokenEncryptor{
		keyPath: filepath.Join(dataDir, ".key"),
	}
}

// IsEncrypted reports whether a stored token needs decryption
func IsEncrypted(token string) bool {
	return token == credentialMarker || strings.HasPrefix(token, encPrefix)
}

// EncryptToken encrypts a bearer token for storage
func (te *TokenEncryptor) EncryptToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token cannot be empty")
	}

	if runtime.GOOS == "windows" {
		if err := te.storeInCredentialManager(token); err == nil {
			return credentialMarker, nil
		}
		// Credential manager unavailable, fall back to file encryption.
	}

	key, err := te.getOrCreateKey()
	if err != nil {
		return "", fmt.Errorf("failed to get encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(token), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptToken recovers the plaintext bearer token. Tokens without an
// encryption marker are returned unchanged so plaintext configs keep
// working.
func (te *TokenEncryptor) DecryptToken(stored string) (string, error) {
	if stored == "" {
		return "", fmt.Errorf("stored token cannot be empty")
	}

	if stored == credentialMarker {
		if runtime.GOOS != "windows" {
			return "", fmt.Errorf("credential manager marker found but not on Windows")
		}
		token, err := te.retrieveFromCredentialManager()
		if err != nil {
			return "", fmt.Errorf("failed to retrieve token from credential manager: %w", err)
		}
		return token, nil
	}

	if !strings.HasPrefix(stored, encPrefix) {
		return stored, nil
	}

	key, err := te.loadKey()
	if err != nil {
		return "", fmt.Errorf("failed to load encryption key: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, encPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode token: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(ciphertext) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}

	return string(plaintext), nil
}

func (te *TokenEncryptor) getOrCreateKey() ([]byte, error) {
	key, err := te.loadKey()
	if err == nil {
		return key, nil
	}
	return te.generateAndSaveKey()
}

// loadKey derives the AES key from the stored salt and machine id
func (te *TokenEncryptor) loadKey() ([]byte, error) {
	data, err := os.ReadFile(te.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(salt) < saltSize {
		return nil, fmt.Errorf("invalid key file format")
	}

	return pbkdf2.Key([]byte(te.machineID()), salt[:saltSize], pbkdf2Iter, keySize, sha256.New), nil
}

func (te *TokenEncryptor) generateAndSaveKey() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(te.machineID()), salt, pbkdf2Iter, keySize, sha256.New)

	if err := os.MkdirAll(filepath.Dir(te.keyPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(salt)
	if err := os.WriteFile(te.keyPath, []byte(encoded), 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}

	return key, nil
}

// machineID ties the derived key to this host and user
func (te *TokenEncryptor) machineID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "default-machine"
	}

	username := os.Getenv("USERNAME")
	if username == "" {
		username = os.Getenv("USER")
	}
	if username == "" {
		username = "default-user"
	}

	return hostname + ":" + username
}

// DeleteKey removes the salt file, invalidating any file-encrypted token
func (te *TokenEncryptor) DeleteKey() error {
	if err := os.Remove(te.keyPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key file: %w", err)
	}
	return nil
}
