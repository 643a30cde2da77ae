package jwt

import (
	"fmt"
	"slices"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Algorithms are the accepted values of Config.Method.
var Algorithms = []string{"HS256", "HS384", "HS512"}

// Config holds an HMAC key and the claims checked on Verify.
type Config struct {
	Secret string
	// Method defaults to HS256.
	Method string
	// Issuer is set on Sign and required on Verify when non-empty.
	Issuer string
}

func (c *Config) method() (gojwt.SigningMethod, error) {
	if c.Secret == "" {
		return nil, fmt.Errorf("secret is required")
	}
	if c.Method == "" {
		c.Method = "HS256"
	}
	if !slices.Contains(Algorithms, c.Method) {
		return nil, fmt.Errorf("unsupported signing method %q", c.Method)
	}
	return gojwt.GetSigningMethod(c.Method), nil
}
