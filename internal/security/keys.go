package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidKey is returned when PEM or key type is invalid.
var ErrInvalidKey = errors.New("invalid key")

// minHMACSecret is the shortest accepted HS256 secret, in bytes.
const minHMACSecret = 32

// SigningKey is the immutable key material handed to the TokenCodec at start.
// The algorithm is fixed by the key type and never negotiated per token.
type SigningKey struct {
	method jwt.SigningMethod
	sign   any
	verify any
}

// Alg returns the JWS algorithm name, e.g. "HS256".
func (k SigningKey) Alg() string {
	if k.method == nil {
		return ""
	}
	return k.method.Alg()
}

// NewHMACKey returns an HS256 key. secret must be at least 32 bytes.
func NewHMACKey(secret []byte) (SigningKey, error) {
	if len(secret) < minHMACSecret {
		return SigningKey{}, fmt.Errorf("%w: hmac secret must be at least %d bytes", ErrInvalidKey, minHMACSecret)
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return SigningKey{method: jwt.SigningMethodHS256, sign: s, verify: s}, nil
}

// NewHMACKeyFromBase64 decodes a standard or URL-safe base64 secret.
func NewHMACKeyFromBase64(encoded string) (SigningKey, error) {
	encoded = strings.TrimSpace(encoded)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(encoded); err == nil {
			return NewHMACKey(b)
		}
	}
	return SigningKey{}, fmt.Errorf("%w: hmac secret is not base64", ErrInvalidKey)
}

// NewAsymmetricKey parses a private key and, optionally, its public half.
// RSA keys sign with RS256 and ECDSA keys with ES256.
func NewAsymmetricKey(privatePEM, publicPEM string) (SigningKey, error) {
	signer, err := ParsePrivateKey(privatePEM)
	if err != nil {
		return SigningKey{}, err
	}
	pub := signer.Public()
	if strings.TrimSpace(publicPEM) != "" {
		pub, err = ParsePublicKey(publicPEM)
		if err != nil {
			return SigningKey{}, err
		}
	}
	var method jwt.SigningMethod
	switch KeyAlg(pub) {
	case "RS256":
		method = jwt.SigningMethodRS256
	case "ES256":
		method = jwt.SigningMethodES256
	default:
		return SigningKey{}, ErrInvalidKey
	}
	if KeyAlg(signer.Public()) != method.Alg() {
		return SigningKey{}, fmt.Errorf("%w: public key does not match private key type", ErrInvalidKey)
	}
	return SigningKey{method: method, sign: signer, verify: pub}, nil
}

// LoadPEM reads content from path if s does not look like inline PEM; otherwise
// returns s as bytes. Literal "\n" sequences in inline PEM (as found in env
// files) are turned into newlines.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	}
	return os.ReadFile(s)
}

// ParsePrivateKey parses a PEM-encoded private key (RSA or ECDSA). s may be inline PEM or a file path.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	pemBytes, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, ErrInvalidKey
		}
		return signer, nil
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
}

// ParsePublicKey parses a PEM-encoded public key (RSA or ECDSA). s may be inline PEM or a file path.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	pemBytes, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
}

// KeyAlg returns "RS256" for RSA and "ES256" for ECDSA; empty otherwise.
func KeyAlg(pub crypto.PublicKey) string {
	switch pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		return "ES256"
	default:
		return ""
	}
}
