package encryption

import (
	"encoding/base64"
	"strings"
	"testing"

	"dbadminapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	e, err := New("test-private-key", WithScryptCost(4))
	require.NoError(t, err)
	return e
}

func TestNewRejectsEmptyKey(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestNewRejectsScryptCostOutOfRange(t *testing.T) {
	for _, logN := range []uint8{0, maxScryptLogN + 1, 30} {
		_, err := New("test-private-key", WithScryptCost(logN))
		assert.Error(t, err, "logN=%d", logN)
	}
}

func TestDecryptMasterRejectsExcessiveCost(t *testing.T) {
	e := newTestEncryptor(t)

	ct, err := e.EncryptDataMasterPwd("s3cret", "master")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ct, masterPrefix))
	require.NoError(t, err)

	for _, logN := range []uint8{maxScryptLogN + 1, 30, 255} {
		raw[0] = logN
		forged := masterPrefix + base64.StdEncoding.EncodeToString(raw)
		_, err = e.DecryptDataMasterPwd(forged, "master")
		assert.ErrorIs(t, err, ErrMalformedCiphertext, "logN=%d", logN)
	}
}

func TestMasterPasswordRoundTrip(t *testing.T) {
	e := newTestEncryptor(t)

	ct, err := e.EncryptDataMasterPwd("s3cret", "master")
	require.NoError(t, err)
	assert.True(t, IsMasterCiphertext(ct))
	assert.NotContains(t, ct, "s3cret")

	pt, err := e.DecryptDataMasterPwd(ct, "master")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pt)
}

func TestMasterPasswordCiphertextIsSalted(t *testing.T) {
	e := newTestEncryptor(t)

	a, err := e.EncryptDataMasterPwd("same", "master")
	require.NoError(t, err)
	b, err := e.EncryptDataMasterPwd("same", "master")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestWrongMasterPasswordFailsAuthentication(t *testing.T) {
	e := newTestEncryptor(t)

	ct, err := e.EncryptDataMasterPwd("s3cret", "master")
	require.NoError(t, err)

	_, err = e.DecryptDataMasterPwd(ct, "not-the-master")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestDecryptMasterRejectsMalformedInput(t *testing.T) {
	e := newTestEncryptor(t)

	tests := []struct {
		name  string
		input string
	}{
		{"plaintext", "hello"},
		{"bad base64", "mp1:%%%"},
		{"too short", "mp1:AQ=="},
		{"server ciphertext", "sk1:AAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.DecryptDataMasterPwd(tt.input, "master")
			assert.ErrorIs(t, err, ErrMalformedCiphertext)
		})
	}
}

func TestEmptyMasterPassword(t *testing.T) {
	e := newTestEncryptor(t)

	_, err := e.EncryptDataMasterPwd("x", "")
	assert.ErrorIs(t, err, ErrEmptyMasterPassword)
	_, err = e.DecryptDataMasterPwd("mp1:AAAA", "")
	assert.ErrorIs(t, err, ErrEmptyMasterPassword)
}

func TestServerKeyRoundTripAndPlaintextPassThrough(t *testing.T) {
	e := newTestEncryptor(t)

	ct, err := e.EncryptData("db-password")
	require.NoError(t, err)
	assert.True(t, IsServerCiphertext(ct))

	pt, err := e.DecryptData(ct)
	require.NoError(t, err)
	assert.Equal(t, "db-password", pt)

	pt, err = e.DecryptData("legacy-plaintext")
	require.NoError(t, err)
	assert.Equal(t, "legacy-plaintext", pt)
}

func TestServerKeyFromDifferentPrivateKeyFails(t *testing.T) {
	a := newTestEncryptor(t)
	b, err := New("another-private-key")
	require.NoError(t, err)

	ct, err := a.EncryptData("db-password")
	require.NoError(t, err)

	_, err = b.DecryptData(ct)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestConnectionCredentialsMasterRoundTrip(t *testing.T) {
	e := newTestEncryptor(t)
	conn := models.Connection{
		ID:               "c1",
		Type:             models.ConnectionTypePostgres,
		Host:             "db.internal",
		Port:             5432,
		Username:         "admin",
		Password:         "pw",
		Database:         "app",
		MasterEncryption: true,
	}

	enc, err := e.EncryptConnectionCredentials(conn, "master")
	require.NoError(t, err)
	assert.True(t, IsMasterCiphertext(enc.Host))
	assert.True(t, IsMasterCiphertext(enc.Password))
	assert.Empty(t, enc.Schema)
	assert.Equal(t, 5432, enc.Port)
	assert.Equal(t, "pw", conn.Password, "input must not be mutated")

	dec, err := e.DecryptConnectionCredentials(enc, "master")
	require.NoError(t, err)
	assert.Equal(t, conn, dec)

	_, err = e.DecryptConnectionCredentials(enc, "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestConnectionCredentialsMasterRejectsPlaintextField(t *testing.T) {
	e := newTestEncryptor(t)
	conn := models.Connection{Host: "plain-host", MasterEncryption: true}

	_, err := e.DecryptConnectionCredentials(conn, "master")
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}

func TestConnectionCredentialsServerKey(t *testing.T) {
	e := newTestEncryptor(t)
	conn := models.Connection{Host: "h", Username: "u", Password: "p"}

	enc, err := e.EncryptConnectionCredentials(conn, "")
	require.NoError(t, err)
	assert.True(t, IsServerCiphertext(enc.Password))

	again, err := e.EncryptConnectionCredentials(enc, "")
	require.NoError(t, err)
	assert.Equal(t, enc.Password, again.Password, "already encrypted fields are left alone")

	dec, err := e.DecryptConnectionCredentials(enc, "")
	require.NoError(t, err)
	assert.Equal(t, conn, dec)
}

func TestHashDataHMAC(t *testing.T) {
	a := newTestEncryptor(t)
	b, err := New("another-private-key")
	require.NoError(t, err)

	h1 := a.HashDataHMAC("token")
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, a.HashDataHMAC("token"))
	assert.NotEqual(t, h1, a.HashDataHMAC("token2"))
	assert.NotEqual(t, h1, b.HashDataHMAC("token"))
}

func TestGenerateAgentToken(t *testing.T) {
	a, err := GenerateAgentToken()
	require.NoError(t, err)
	b, err := GenerateAgentToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}

func TestProcessDataWithAlgorithmDigests(t *testing.T) {
	tests := []struct {
		alg  Algorithm
		want string
	}{
		{AlgorithmSHA1, "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{AlgorithmSHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{AlgorithmSHA224, "23097d223405d8228642a477bda255b32aadbce4bda0b3f7e36c9da7"},
	}
	for _, tt := range tests {
		t.Run(string(tt.alg), func(t *testing.T) {
			got, err := ProcessDataWithAlgorithm("abc", tt.alg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcessDataWithAlgorithmNeverReturnsInput(t *testing.T) {
	for _, alg := range []Algorithm{
		AlgorithmSHA1, AlgorithmSHA224, AlgorithmSHA256, AlgorithmSHA384, AlgorithmSHA512,
		AlgorithmSHA3, AlgorithmBcrypt, AlgorithmScrypt, AlgorithmArgon2, AlgorithmPBKDF2,
	} {
		t.Run(string(alg), func(t *testing.T) {
			got, err := ProcessDataWithAlgorithm("hunter2", alg)
			require.NoError(t, err)
			assert.NotEmpty(t, got)
			assert.NotContains(t, got, "hunter2")
		})
	}
}

func TestProcessDataWithAlgorithmSaltedFormats(t *testing.T) {
	bc, err := ProcessDataWithAlgorithm("hunter2", AlgorithmBcrypt)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(bc), []byte("hunter2")))

	ar, err := ProcessDataWithAlgorithm("hunter2", AlgorithmArgon2)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ar, "$argon2id$v=19$"))

	pb, err := ProcessDataWithAlgorithm("hunter2", AlgorithmPBKDF2)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pb, "$pbkdf2-sha256$i=100000$"))
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm(" SHA256 ")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmSHA256, alg)

	_, err = ParseAlgorithm("md5")
	assert.Error(t, err)

	_, err = ProcessDataWithAlgorithm("x", Algorithm("md5"))
	assert.Error(t, err)
}

func TestMasterPasswordHash(t *testing.T) {
	h, err := HashMasterPassword("master")
	require.NoError(t, err)
	assert.True(t, VerifyMasterPassword(h, "master"))
	assert.False(t, VerifyMasterPassword(h, "other"))

	_, err = HashMasterPassword("")
	assert.ErrorIs(t, err, ErrEmptyMasterPassword)
}
