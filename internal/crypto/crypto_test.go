package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestAESGCM_RoundTrip(t *testing.T) {
	svc, err := NewAESGCMService(testKey)
	require.NoError(t, err)

	ciphertext, err := svc.Encrypt("secret credential payload")
	require.NoError(t, err)
	assert.NotEqual(t, "secret credential payload", ciphertext)

	plaintext, err := svc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "secret credential payload", plaintext)
}

func TestAESGCM_NoncesDiffer(t *testing.T) {
	svc, err := NewAESGCMService(testKey)
	require.NoError(t, err)

	first, err := svc.Encrypt("same input")
	require.NoError(t, err)
	second, err := svc.Encrypt("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestAESGCM_InvalidKey(t *testing.T) {
	_, err := NewAESGCMService("not-hex")
	assert.Error(t, err)

	_, err = NewAESGCMService("abcd")
	assert.Error(t, err)
}

func TestAESGCM_TamperedCiphertext(t *testing.T) {
	svc, err := NewAESGCMService(testKey)
	require.NoError(t, err)

	ciphertext, err := svc.Encrypt("payload")
	require.NoError(t, err)

	tampered := []byte(ciphertext)
	if tampered[0] == '0' {
		tampered[0] = '1'
	} else {
		tampered[0] = '0'
	}
	_, err = svc.Decrypt(string(tampered))
	assert.Error(t, err)
}

func TestAESGCM_TooShortCiphertext(t *testing.T) {
	svc, err := NewAESGCMService(testKey)
	require.NoError(t, err)

	_, err = svc.Decrypt("abcd")
	assert.Error(t, err)
}

func TestNoop_PassesThrough(t *testing.T) {
	svc := NoopService{}

	ciphertext, err := svc.Encrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", ciphertext)

	plaintext, err := svc.Decrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", plaintext)
}
