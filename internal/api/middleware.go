/**
 * @description
 * This file contains custom middleware for the HTTP router, plus the session
 * token helpers. The service has no authorization model beyond "the caller
 * supplies a wallet address": a session token is an HS256 JWT carrying that
 * address, minted by POST /auth/session and validated here.
 *
 * @dependencies
 * - context, net/http, strings, time: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: JWT parsing and signing.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AddressContextKey is a custom type for the context key to avoid collisions.
type AddressContextKey string

const walletAddressKey AddressContextKey = "walletAddress"

// MintSessionToken issues a session JWT for a wallet address.
func MintSessionToken(secret, address string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"addr": address,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// SessionAuthMiddleware creates a middleware that validates session JWTs and
// injects the wallet address into the request context.
func SessionAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			address, _ := claims["addr"].(string)
			if address == "" {
				http.Error(w, "Token missing wallet address", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), walletAddressKey, address)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AddressFromContext extracts the session wallet address from the context.
func AddressFromContext(ctx context.Context) (string, bool) {
	address, ok := ctx.Value(walletAddressKey).(string)
	return address, ok && address != ""
}
