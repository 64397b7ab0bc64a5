package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef" // 32字节

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := `{"username":"alice","password":"s3cret"}`

	encoded, err := Encrypt(testKey, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, encoded)

	decoded, err := Decrypt(testKey, encoded)
	require.NoError(t, err)
	require.Equal(t, plaintext, decoded)
}

func TestEncryptProducesUniqueCiphertext(t *testing.T) {
	// 随机nonce, 相同明文两次加密结果不同
	a, err := Encrypt(testKey, "same")
	require.NoError(t, err)
	b, err := Encrypt(testKey, "same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestDecryptWithWrongKey(t *testing.T) {
	encoded, err := Encrypt(testKey, "secret")
	require.NoError(t, err)

	_, err = Decrypt("ffffffffffffffffffffffffffffffff", encoded)
	require.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	_, err := Decrypt(testKey, "not-base64!!!")
	require.Error(t, err)

	_, err = Decrypt(testKey, "c2hvcnQ=") // 合法base64但长度不足
	require.Error(t, err)
}

func TestEncryptRejectsBadKey(t *testing.T) {
	_, err := Encrypt("short-key", "data")
	require.Error(t, err)
}
