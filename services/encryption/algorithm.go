package encryption

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/crypto/sha3"
)

// Algorithm names a one-way transformation a Password widget can request.
type Algorithm string

// Supported algorithms.
const (
	AlgorithmSHA1   Algorithm = "sha1"
	AlgorithmSHA224 Algorithm = "sha224"
	AlgorithmSHA256 Algorithm = "sha256"
	AlgorithmSHA384 Algorithm = "sha384"
	AlgorithmSHA512 Algorithm = "sha512"
	AlgorithmSHA3   Algorithm = "sha3"
	AlgorithmBcrypt Algorithm = "bcrypt"
	AlgorithmScrypt Algorithm = "scrypt"
	AlgorithmArgon2 Algorithm = "argon2"
	AlgorithmPBKDF2 Algorithm = "pbkdf2"
)

// ParseAlgorithm normalises a widget-supplied algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	alg := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	switch alg {
	case AlgorithmSHA1, AlgorithmSHA224, AlgorithmSHA256, AlgorithmSHA384, AlgorithmSHA512,
		AlgorithmSHA3, AlgorithmBcrypt, AlgorithmScrypt, AlgorithmArgon2, AlgorithmPBKDF2:
		return alg, nil
	}
	return "", fmt.Errorf("encryption: unsupported algorithm %q", name)
}

const (
	pbkdf2Iterations = 100000
	argonTime        = 1
	argonMemory      = 64 * 1024
	argonThreads     = 4
)

// ProcessDataWithAlgorithm hashes value with alg. Digest algorithms return lowercase hex;
// salted algorithms return a self-describing "$name$params$salt$hash" string.
func ProcessDataWithAlgorithm(value string, alg Algorithm) (string, error) {
	switch alg {
	case AlgorithmSHA1:
		return hexDigest(sha1.New(), value), nil
	case AlgorithmSHA224:
		return hexDigest(sha256.New224(), value), nil
	case AlgorithmSHA256:
		return hexDigest(sha256.New(), value), nil
	case AlgorithmSHA384:
		return hexDigest(sha512.New384(), value), nil
	case AlgorithmSHA512:
		return hexDigest(sha512.New(), value), nil
	case AlgorithmSHA3:
		return hexDigest(sha3.New512(), value), nil
	case AlgorithmBcrypt:
		out, err := bcrypt.GenerateFromPassword([]byte(value), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("encryption: bcrypt: %w", err)
		}
		return string(out), nil
	case AlgorithmScrypt:
		salt, err := randomSalt()
		if err != nil {
			return "", err
		}
		key, err := scrypt.Key([]byte(value), salt, 1<<defaultScryptLogN, scryptR, scryptP, keySize)
		if err != nil {
			return "", fmt.Errorf("encryption: scrypt: %w", err)
		}
		return fmt.Sprintf("$scrypt$ln=%d,r=%d,p=%d$%s$%s", defaultScryptLogN, scryptR, scryptP, b64(salt), b64(key)), nil
	case AlgorithmArgon2:
		salt, err := randomSalt()
		if err != nil {
			return "", err
		}
		key := argon2.IDKey([]byte(value), salt, argonTime, argonMemory, argonThreads, keySize)
		return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version, argonMemory, argonTime, argonThreads, b64(salt), b64(key)), nil
	case AlgorithmPBKDF2:
		salt, err := randomSalt()
		if err != nil {
			return "", err
		}
		key := pbkdf2.Key([]byte(value), salt, pbkdf2Iterations, keySize, sha256.New)
		return fmt.Sprintf("$pbkdf2-sha256$i=%d$%s$%s", pbkdf2Iterations, b64(salt), b64(key)), nil
	}
	return "", fmt.Errorf("encryption: unsupported algorithm %q", alg)
}

// HashMasterPassword returns a bcrypt hash stored alongside master-encrypted connections.
func HashMasterPassword(masterPwd string) (string, error) {
	if masterPwd == "" {
		return "", ErrEmptyMasterPassword
	}
	out, err := bcrypt.GenerateFromPassword([]byte(masterPwd), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("encryption: hash master password: %w", err)
	}
	return string(out), nil
}

// VerifyMasterPassword reports whether masterPwd matches hash.
func VerifyMasterPassword(hash, masterPwd string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(masterPwd)) == nil
}

func hexDigest(h hash.Hash, value string) string {
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}

func randomSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("encryption: read salt: %w", err)
	}
	return salt, nil
}

func b64(b []byte) string {
	return base64.RawStdEncoding.EncodeToString(b)
}
