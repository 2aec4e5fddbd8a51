// Package jwt issues and validates the RS256 bearer tokens that
// authenticate onboarding requests.
//
//	svc, err := jwt.NewService(jwt.Config{
//	    PrivateKeyPath: "./keys/private.pem",
//	    Issuer:         "saga",
//	    ExpirationMins: 15,
//	})
//	token, err := svc.Sign(jwt.Claims{UserID: "user:abc"})
//	claims, err := svc.Validate(token)
//
// Validation failures map onto ErrTokenExpired, ErrInvalidSignature and
// ErrInvalidToken.
package jwt
