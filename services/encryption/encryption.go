// Package encryption protects connection credentials and processes password widget values.
//
// Two field ciphers exist. Master-password ciphertext ("mp1:") derives a key per value with
// scrypt from the caller's master password; server-key ciphertext ("sk1:") uses a key derived
// once from the configured private key. Both seal with AES-256-GCM, so a wrong key is
// reported as ErrAuthenticationFailed instead of producing garbage plaintext.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"dbadminapi/models"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/scrypt"
)

const (
	masterPrefix = "mp1:"
	serverPrefix = "sk1:"

	saltSize = 16
	keySize  = 32

	defaultScryptLogN = 15
	// maxScryptLogN bounds the cost a stored ciphertext may demand: 2^20 * 128 * r bytes is 1 GiB.
	maxScryptLogN = 20
	scryptR           = 8
	scryptP           = 1
)

var (
	// ErrAuthenticationFailed is returned when a ciphertext does not open under the given key.
	ErrAuthenticationFailed = errors.New("encryption: message authentication failed")
	// ErrMalformedCiphertext is returned for values that are not ciphertext of the expected kind.
	ErrMalformedCiphertext = errors.New("encryption: malformed ciphertext")
	// ErrEmptyMasterPassword is returned when a master-password operation gets no password.
	ErrEmptyMasterPassword = errors.New("encryption: empty master password")
)

// Encryptor holds the server-side key material. It is safe for concurrent use.
type Encryptor struct {
	serverKey  []byte
	hmacKey    []byte
	scryptLogN uint8
}

// Option customises an Encryptor.
type Option func(*Encryptor)

// WithScryptCost sets log2 of the scrypt N parameter used for new master-password ciphertext.
// Existing ciphertext records its own cost, so changing it never breaks decryption.
func WithScryptCost(logN uint8) Option {
	return func(e *Encryptor) {
		e.scryptLogN = logN
	}
}

// New derives the server cipher key and HMAC key from privateKey.
func New(privateKey string, opts ...Option) (*Encryptor, error) {
	if privateKey == "" {
		return nil, errors.New("encryption: private key is empty")
	}
	e := &Encryptor{scryptLogN: defaultScryptLogN}
	for _, opt := range opts {
		opt(e)
	}
	if e.scryptLogN == 0 || e.scryptLogN > maxScryptLogN {
		return nil, fmt.Errorf("encryption: scrypt cost %d outside 1..%d", e.scryptLogN, maxScryptLogN)
	}

	var err error
	if e.serverKey, err = deriveKey(privateKey, "dbadmin connection credentials"); err != nil {
		return nil, err
	}
	if e.hmacKey, err = deriveKey(privateKey, "dbadmin agent token hmac"); err != nil {
		return nil, err
	}
	return e, nil
}

func deriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("encryption: derive key: %w", err)
	}
	return key, nil
}

// IsMasterCiphertext reports whether value was produced by EncryptDataMasterPwd.
func IsMasterCiphertext(value string) bool {
	return strings.HasPrefix(value, masterPrefix)
}

// IsServerCiphertext reports whether value was produced by EncryptData.
func IsServerCiphertext(value string) bool {
	return strings.HasPrefix(value, serverPrefix)
}

// EncryptDataMasterPwd encrypts value under a key derived from masterPwd with a fresh salt.
// Layout before base64: logN | salt | nonce | sealed.
func (e *Encryptor) EncryptDataMasterPwd(value, masterPwd string) (string, error) {
	if masterPwd == "" {
		return "", ErrEmptyMasterPassword
	}
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("encryption: read salt: %w", err)
	}
	key, err := scrypt.Key([]byte(masterPwd), salt, 1<<e.scryptLogN, scryptR, scryptP, keySize)
	if err != nil {
		return "", fmt.Errorf("encryption: derive master key: %w", err)
	}
	sealed, err := seal(key, []byte(value))
	if err != nil {
		return "", err
	}

	buf := make([]byte, 0, 1+saltSize+len(sealed))
	buf = append(buf, e.scryptLogN)
	buf = append(buf, salt...)
	buf = append(buf, sealed...)
	return masterPrefix + base64.StdEncoding.EncodeToString(buf), nil
}

// DecryptDataMasterPwd reverses EncryptDataMasterPwd.
func (e *Encryptor) DecryptDataMasterPwd(ciphertext, masterPwd string) (string, error) {
	if masterPwd == "" {
		return "", ErrEmptyMasterPassword
	}
	if !IsMasterCiphertext(ciphertext) {
		return "", ErrMalformedCiphertext
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, masterPrefix))
	if err != nil || len(raw) < 1+saltSize {
		return "", ErrMalformedCiphertext
	}
	logN := raw[0]
	if logN == 0 || logN > maxScryptLogN {
		return "", ErrMalformedCiphertext
	}
	salt := raw[1 : 1+saltSize]
	key, err := scrypt.Key([]byte(masterPwd), salt, 1<<logN, scryptR, scryptP, keySize)
	if err != nil {
		return "", fmt.Errorf("encryption: derive master key: %w", err)
	}
	plain, err := open(key, raw[1+saltSize:])
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// EncryptData encrypts value under the server key.
func (e *Encryptor) EncryptData(value string) (string, error) {
	sealed, err := seal(e.serverKey, []byte(value))
	if err != nil {
		return "", err
	}
	return serverPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptData decrypts server-key ciphertext. Values without the server-key prefix are
// returned unchanged, since connections without master encryption may hold plaintext.
func (e *Encryptor) DecryptData(value string) (string, error) {
	if !IsServerCiphertext(value) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, serverPrefix))
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	plain, err := open(e.serverKey, raw)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// EncryptConnectionCredentials returns a copy of conn with every non-empty credential field
// encrypted. With MasterEncryption set the master password is used, otherwise the server key.
// Fields that are already ciphertext of the target kind are left alone.
func (e *Encryptor) EncryptConnectionCredentials(conn models.Connection, masterPwd string) (models.Connection, error) {
	out := conn
	for name, field := range out.CredentialFields() {
		if *field == "" {
			continue
		}
		var (
			enc string
			err error
		)
		if out.MasterEncryption {
			if IsMasterCiphertext(*field) {
				continue
			}
			enc, err = e.EncryptDataMasterPwd(*field, masterPwd)
		} else {
			if IsServerCiphertext(*field) {
				continue
			}
			enc, err = e.EncryptData(*field)
		}
		if err != nil {
			return models.Connection{}, fmt.Errorf("encrypt %s: %w", name, err)
		}
		*field = enc
	}
	return out, nil
}

// DecryptConnectionCredentials returns a copy of conn with every credential field in plaintext.
// Under MasterEncryption a non-empty field that is not master ciphertext is rejected with
// ErrMalformedCiphertext rather than passed through.
func (e *Encryptor) DecryptConnectionCredentials(conn models.Connection, masterPwd string) (models.Connection, error) {
	out := conn
	for name, field := range out.CredentialFields() {
		if *field == "" {
			continue
		}
		var (
			dec string
			err error
		)
		if out.MasterEncryption {
			dec, err = e.DecryptDataMasterPwd(*field, masterPwd)
		} else {
			dec, err = e.DecryptData(*field)
		}
		if err != nil {
			return models.Connection{}, fmt.Errorf("decrypt %s: %w", name, err)
		}
		*field = dec
	}
	return out, nil
}

// HashDataHMAC returns the hex HMAC-SHA256 of token under the server HMAC key.
func (e *Encryptor) HashDataHMAC(token string) string {
	mac := hmac.New(sha256.New, e.hmacKey)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateAgentToken returns a random URL-safe token. Only its HMAC should be stored.
func GenerateAgentToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("encryption: read token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func seal(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("encryption: read nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key, data []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrMalformedCiphertext
	}
	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plain, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encryption: new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
