package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/udsonbraga/safelady/server/auth/key"
)

func testKeyPair(t *testing.T) *key.KeyPair {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.NoError(t, err)

	keyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	assert.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes})

	keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem(string(pemBytes))
	assert.NoError(t, err)

	return keyPair
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("super-secret")
	assert.NoError(t, err)
	assert.NotEqual(t, "super-secret", hash)

	assert.True(t, CheckPasswordHash("super-secret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestJWTRoundTrip(t *testing.T) {
	keyPair := testKeyPair(t)

	token, err := EncodeJWT(SafeLadyTokenClaims{
		Name:    "Maria",
		IsAdmin: true,
		StandardClaims: jwt.StandardClaims{
			Subject:   "1",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
			Issuer:    "safelady",
		},
	}, keyPair)
	assert.NoError(t, err)

	claims, err := DecodeJWT(token, keyPair)
	assert.NoError(t, err)
	assert.Equal(t, "Maria", claims.Name)
	assert.Equal(t, "1", claims.Subject)
	assert.True(t, claims.IsAdmin)
}

func TestDecodeJWTRejectsExpiredToken(t *testing.T) {
	keyPair := testKeyPair(t)

	token, err := EncodeJWT(SafeLadyTokenClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   "1",
			ExpiresAt: time.Now().Add(-time.Hour).Unix(),
		},
	}, keyPair)
	assert.NoError(t, err)

	_, err = DecodeJWT(token, keyPair)
	assert.Error(t, err)
}

func TestDecodeJWTRejectsTokenFromAnotherKey(t *testing.T) {
	token, err := EncodeJWT(SafeLadyTokenClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   "1",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
	}, testKeyPair(t))
	assert.NoError(t, err)

	_, err = DecodeJWT(token, testKeyPair(t))
	assert.Error(t, err)
}
