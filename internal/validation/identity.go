package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// Usernames that collide with top-level routes.
var reservedUsernames = map[string]struct{}{
	"admin":    {},
	"api":      {},
	"auth":     {},
	"authors":  {},
	"feed":     {},
	"health":   {},
	"login":    {},
	"metrics":  {},
	"posts":    {},
	"settings": {},
	"signup":   {},
	"ws":       {},
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}
	if len(username) > 30 {
		return fmt.Errorf("username must not exceed 30 characters")
	}
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}
	first, last := username[0], username[len(username)-1]
	if first == '_' || first == '-' || last == '_' || last == '-' {
		return fmt.Errorf("username cannot start or end with underscore or hyphen")
	}
	if _, reserved := reservedUsernames[strings.ToLower(username)]; reserved {
		return fmt.Errorf("username is reserved")
	}
	return nil
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if !emailRe.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateWalletAddress accepts a 0x-prefixed 20-byte hex address in any case.
func ValidateWalletAddress(address string) error {
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return fmt.Errorf("wallet address must start with 0x")
	}
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid wallet address")
	}
	return nil
}
