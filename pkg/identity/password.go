package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// PasswordLength is the length of generated temporary passwords
const PasswordLength = 16

const (
	lowerChars  = "abcdefghijkmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digitChars  = "23456789"
	symbolChars = "!@#$%^&*-_=+"
	allChars    = lowerChars + upperChars + digitChars + symbolChars
)

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// GeneratePassword returns a random password of PasswordLength characters
// containing at least one lowercase, uppercase, digit and symbol.
func GeneratePassword() (string, error) {
	out := make([]byte, 0, PasswordLength)
	for _, class := range []string{lowerChars, upperChars, digitChars, symbolChars} {
		i, err := randomIndex(len(class))
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		out = append(out, class[i])
	}
	for len(out) < PasswordLength {
		i, err := randomIndex(len(allChars))
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		out = append(out, allChars[i])
	}

	// Fisher-Yates so the guaranteed classes are not always first.
	for i := len(out) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

// HashPassword hashes password with bcrypt at cost
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
