package domain

import (
	"strings"
	"unicode"
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps digits and a leading plus sign.
func NormalizePhone(phone string) string {
	cleaned := strings.TrimSpace(phone)
	if cleaned == "" {
		return ""
	}

	var result strings.Builder
	for i, r := range cleaned {
		if i == 0 && r == '+' {
			result.WriteRune(r)
		} else if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

func IsValidEmail(email string) bool {
	normalized := NormalizeEmail(email)
	parts := strings.Split(normalized, "@")
	if len(parts) != 2 {
		return false
	}
	local, host := parts[0], parts[1]
	return len(local) > 0 && len(host) > 2 && strings.Contains(host, ".")
}

func IsValidPhone(phone string) bool {
	return len(NormalizePhone(phone)) >= 7
}

// Customer is the contact captured with a reservation.
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message,omitempty"`
}

func (c *Customer) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = NormalizeEmail(c.Email)
	c.Phone = NormalizePhone(c.Phone)
	c.Message = strings.TrimSpace(c.Message)
}

func (c *Customer) Validate() error {
	if c.Name == "" {
		return invalid("name", "is required")
	}
	if !IsValidEmail(c.Email) {
		return invalid("email", "is not a valid address")
	}
	if c.Phone != "" && !IsValidPhone(c.Phone) {
		return invalid("phone", "is too short")
	}
	if len(c.Message) > 2000 {
		return invalid("message", "must be at most 2000 characters")
	}
	return nil
}
