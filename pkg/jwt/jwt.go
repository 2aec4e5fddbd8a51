package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidKey       = errors.New("invalid key")
)

// Claims are the access token claims. UserID identifies the onboarding
// user; the registered claims carry issuer and validity window.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	gojwt.RegisteredClaims
}

// Service signs and validates RS256 access tokens
type Service struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	expiration time.Duration
}

// Config holds JWT service configuration
type Config struct {
	PrivateKeyPath string
	PublicKeyPath  string
	Issuer         string
	ExpirationMins int
}

// NewService loads keys from disk. A private key alone is enough for both
// signing and validation; a public key alone allows validation only.
func NewService(cfg Config) (*Service, error) {
	s := &Service{
		issuer:     cfg.Issuer,
		expiration: time.Duration(cfg.ExpirationMins) * time.Minute,
	}

	if cfg.PrivateKeyPath != "" {
		data, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load private key: %w", err)
		}
		if s.privateKey, err = gojwt.ParseRSAPrivateKeyFromPEM(data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		s.publicKey = &s.privateKey.PublicKey
	}

	if cfg.PublicKeyPath != "" && s.publicKey == nil {
		data, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load public key: %w", err)
		}
		if s.publicKey, err = gojwt.ParseRSAPublicKeyFromPEM(data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
	}

	return s, nil
}

// NewTestService creates a service around an in-memory key
func NewTestService(privateKey *rsa.PrivateKey, issuer string, expiration time.Duration) *Service {
	return &Service{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		issuer:     issuer,
		expiration: expiration,
	}
}

// GenerateKeyPair writes a fresh 2048-bit RSA key pair as PEM files
func GenerateKeyPair(privateKeyPath, publicKeyPath string) error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	priv := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(privateKeyPath, priv, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to marshal public key: %w", err)
	}
	pub := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	if err := os.WriteFile(publicKeyPath, pub, 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}

// Sign issues a token for the claims. Issuer and timestamps are set here;
// an expiry already present on the claims is kept.
func (s *Service) Sign(claims Claims) (string, error) {
	if s.privateKey == nil {
		return "", ErrInvalidKey
	}

	now := time.Now()
	claims.Issuer = s.issuer
	claims.IssuedAt = gojwt.NewNumericDate(now)
	claims.NotBefore = gojwt.NewNumericDate(now)
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = gojwt.NewNumericDate(now.Add(s.expiration))
	}

	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature, validity window and issuer
func (s *Service) Validate(token string) (*Claims, error) {
	if s.publicKey == nil {
		return nil, ErrInvalidKey
	}

	var claims Claims
	_, err := gojwt.ParseWithClaims(token, &claims, func(*gojwt.Token) (any, error) {
		return s.publicKey, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodRS256.Alg()}),
		gojwt.WithIssuer(s.issuer),
	)
	switch {
	case err == nil:
	case errors.Is(err, gojwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	return &claims, nil
}

// Expiration returns the default token lifetime
func (s *Service) Expiration() time.Duration {
	return s.expiration
}
