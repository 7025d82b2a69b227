package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/skillsenselab/tubescribe/internal/apperr"
)

const (
	minPasswordLen  = 12
	tempPasswordLen = 16

	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*-_=+"
)

// Hasher hashes and verifies stored passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt hasher. Costs outside the valid bcrypt
// range fall back to the library default.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > 72 {
		return "", fmt.Errorf("auth: password exceeds bcrypt 72-byte limit")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return apperr.Unauthorized("Invalid email or password.")
	}
	return nil
}

// ValidatePasswordStrength enforces the account password policy: at least
// 12 characters with an uppercase letter, a lowercase letter, a digit, and
// a special character.
func ValidatePasswordStrength(password string) error {
	var problems []string
	if len(password) < minPasswordLen {
		problems = append(problems, fmt.Sprintf("at least %d characters", minPasswordLen))
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasUpper {
		problems = append(problems, "an uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "a lowercase letter")
	}
	if !hasDigit {
		problems = append(problems, "a digit")
	}
	if !hasSpecial {
		problems = append(problems, "a special character")
	}
	if len(problems) > 0 {
		return apperr.Validation("Password must contain " + strings.Join(problems, ", ") + ".")
	}
	return nil
}

// GenerateTempPassword creates a random 16-character password guaranteed
// to satisfy the password policy.
func GenerateTempPassword() (string, error) {
	all := lowerChars + upperChars + digitChars + specialChars

	chars := make([]byte, 0, tempPasswordLen)
	for _, set := range []string{lowerChars, upperChars, digitChars, specialChars} {
		c, err := randomChar(set)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for len(chars) < tempPasswordLen {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	// Fisher-Yates so the guaranteed class characters are not always first.
	for i := len(chars) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		chars[i], chars[j] = chars[j], chars[i]
	}
	return string(chars), nil
}

func randomChar(set string) (byte, error) {
	i, err := randomInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("auth: random: %w", err)
	}
	return int(v.Int64()), nil
}
