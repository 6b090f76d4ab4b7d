//go:build ignore

// This script generates a dev JWT token for the wallet API.
// Run with: go run scripts/generate-jwt.go

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	// Must match auth.jwt_secret in config.yaml
	secret := os.Getenv("WALLET_JWT_SECRET")
	if secret == "" {
		secret = "devSecret123456789012345678901234"
	}

	sub := os.Getenv("WALLET_USER_ID")
	if sub == "" {
		sub = uuid.NewString()
	}

	email := os.Getenv("WALLET_USER_EMAIL")
	if email == "" {
		email = "dev@example.com"
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":   "wallet-api-dev",
		"sub":   sub,
		"email": email,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(1 * time.Hour).Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Wallet API dev JWT Token ===")
	fmt.Println()
	fmt.Println("User ID: " + sub)
	fmt.Println("Email:   " + email)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(signed)
	fmt.Println()
	fmt.Println("To use this token:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/balance")
}
