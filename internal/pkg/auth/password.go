// internal/pkg/auth/password.go
package auth

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"unicode"

	"github.com/your-org/commerce-api/internal/config"
	"golang.org/x/crypto/bcrypt"
)

var (
	sequentialLetters = regexp.MustCompile(`(abc|bcd|cde|def|efg|fgh|ghi|hij|ijk|jkl|klm|lmn|mno|nop|opq|pqr|qrs|rst|stu|tuv|uvw|vwx|wxy|xyz)`)
	sequentialDigits  = regexp.MustCompile(`(012|123|234|345|456|567|678|789)`)
	commonWords       = regexp.MustCompile(`(?i)(password|123456|admin|qwerty|letmein|welcome|monkey|dragon|football)`)
)

// hasRepeatedRun reports whether any character occurs 3 or more times in a
// row. Go's RE2 regexp engine has no backreferences, so the `(.)\1{2,}`
// pattern cannot be expressed as a regexp.
func hasRepeatedRun(s string) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run >= 3 {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

// PasswordManager hashes credentials and enforces the password policy.
type PasswordManager struct {
	cost int
}

// NewPasswordManager creates a new password manager
func NewPasswordManager(cfg *config.Config) *PasswordManager {
	return &PasswordManager{cost: cfg.Security.BcryptCost}
}

// HashPassword validates the password against the policy and hashes it with bcrypt.
func (p *PasswordManager) HashPassword(password string) (string, error) {
	if err := p.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("password validation failed: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword compares a plaintext password against a stored hash.
func (p *PasswordManager) VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ValidatePassword enforces length, character class, and weak-pattern rules.
func (p *PasswordManager) ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	if len(password) > 128 {
		return fmt.Errorf("password must be no more than 128 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsNumber(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	switch {
	case !hasUpper:
		return fmt.Errorf("password must contain at least one uppercase letter")
	case !hasLower:
		return fmt.Errorf("password must contain at least one lowercase letter")
	case !hasDigit:
		return fmt.Errorf("password must contain at least one number")
	case !hasSpecial:
		return fmt.Errorf("password must contain at least one special character")
	}

	switch {
	case sequentialLetters.MatchString(password):
		return fmt.Errorf("password cannot contain sequential letters")
	case sequentialDigits.MatchString(password):
		return fmt.Errorf("password cannot contain sequential numbers")
	case hasRepeatedRun(password):
		return fmt.Errorf("password cannot contain more than 2 repeating characters")
	case commonWords.MatchString(password):
		return fmt.Errorf("password is too common and easily guessable")
	}
	return nil
}

// GenerateTemporaryPassword produces a random 16-character password. Ambiguous
// characters (I, O, l, 0, 1) are excluded from the alphabet.
func (p *PasswordManager) GenerateTemporaryPassword() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789!@#$%"
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate temporary password: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}
