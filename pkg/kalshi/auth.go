package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signer signs Trade API requests with an RSA-PSS key pair. The signed
// message is timestamp + method + path with the query string stripped.
type Signer struct {
	apiKey string
	key    *rsa.PrivateKey
}

// NewSigner creates a signer from an API key ID and a PEM-encoded RSA
// private key (PKCS#1 or PKCS#8).
func NewSigner(apiKey, privateKeyPEM string) (*Signer, error) {
	if apiKey == "" {
		return nil, errors.New("api key is empty")
	}
	key, err := parsePrivateKey([]byte(privateKeyPEM))
	if err != nil {
		return nil, err
	}
	return &Signer{apiKey: apiKey, key: key}, nil
}

// APIKey returns the signer's API key ID.
func (s *Signer) APIKey() string {
	return s.apiKey
}

// Sign produces the base64 PSS signature for one request. The salt
// length equals the digest length, which is what the API verifies.
func (s *Signer) Sign(timestamp, method, path string) (string, error) {
	path, _, _ = strings.Cut(path, "?")
	digest := sha256.Sum256([]byte(timestamp + method + path))

	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Headers builds the three access headers for one request, timestamped
// in milliseconds.
func (s *Signer) Headers(method, path string, now time.Time) (map[string]string, error) {
	timestamp := strconv.FormatInt(now.UnixMilli(), 10)
	signature, err := s.Sign(timestamp, method, path)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"KALSHI-ACCESS-KEY":       s.apiKey,
		"KALSHI-ACCESS-SIGNATURE": signature,
		"KALSHI-ACCESS-TIMESTAMP": timestamp,
	}, nil
}

func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block in private key")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, want RSA", parsed)
	}
	return key, nil
}
