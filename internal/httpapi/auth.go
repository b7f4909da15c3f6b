package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tillbook/backend/internal/domain"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInvalidToken       = errors.New("invalid token")
	errTooManyAttempts    = errors.New("too many login attempts")
)

// UserStore is the slice of the repository the auth layer needs.
type UserStore interface {
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}

type tillClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthManager issues and validates HS256 bearer tokens against the user
// accounts loaded from the store at startup.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration

	mu    sync.RWMutex
	users map[string]domain.UserAccount

	attempts *attemptLimiter
}

func NewAuthManager(ctx context.Context, secret string, tokenTTL time.Duration, users UserStore) (*AuthManager, error) {
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate auth secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		log.Println("[auth] WARNING: AUTH_SECRET not set, generated an ephemeral one. Tokens will not survive restarts.")
	}

	m := &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    map[string]domain.UserAccount{},
		attempts: newAttemptLimiter(5, 15*time.Minute),
	}

	accounts, err := users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load user accounts: %w", err)
	}
	for _, account := range accounts {
		m.users[account.Username] = account
	}
	log.Printf("[auth] loaded %d user accounts", len(accounts))
	return m, nil
}

func (m *AuthManager) Login(username, password string) (*domain.LoginResponse, error) {
	if !m.attempts.allow(username) {
		return nil, errTooManyAttempts
	}

	m.mu.RLock()
	account, exists := m.users[username]
	m.mu.RUnlock()

	if !exists || !account.Active {
		m.attempts.record(username)
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		m.attempts.record(username)
		return nil, errInvalidCredentials
	}
	m.attempts.reset(username)

	expiresAt := time.Now().Add(m.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tillClaims{
		Username: account.Username,
		Role:     account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken: signed,
		Role:        account.Role,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

func (m *AuthManager) verify(tokenString string) (*domain.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tillClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	claims, ok := token.Claims.(*tillClaims)
	if !ok {
		return nil, errInvalidToken
	}
	return &domain.Actor{Username: claims.Username, Role: claims.Role}, nil
}

// attemptLimiter caps failed logins per username in a sliding window.
type attemptLimiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	attempts map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{
		max:      max,
		window:   window,
		attempts: map[string][]time.Time{},
	}
}

func (l *attemptLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recentLocked(key)) < l.max
}

func (l *attemptLimiter) record(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts[key] = append(l.recentLocked(key), time.Now())
}

func (l *attemptLimiter) reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}

func (l *attemptLimiter) recentLocked(key string) []time.Time {
	cutoff := time.Now().Add(-l.window)
	recent := l.attempts[key][:0]
	for _, t := range l.attempts[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	l.attempts[key] = recent
	return recent
}
