package quiz

import (
	"sort"
	"strings"
)

// MinPhoneDigits is the shortest accepted phone number, counted in digits.
const MinPhoneDigits = 10

type UserInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Consent bool   `json:"consent"`
}

// ValidationError carries one message per rejected form field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid user info: " + strings.Join(parts, "; ")
}

// PhoneDigits strips every non-digit character from phone.
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func phoneCharsAllowed(phone string) bool {
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
		case r == '+', r == '-', r == ' ', r == '(', r == ')':
		default:
			return false
		}
	}
	return true
}

// ValidateUserInfo checks the user-info form. It returns a *ValidationError
// or nil.
func ValidateUserInfo(info UserInfo) error {
	fields := map[string]string{}
	if strings.TrimSpace(info.Name) == "" {
		fields["name"] = "Name is required"
	}
	phone := strings.TrimSpace(info.Phone)
	switch {
	case phone == "":
		fields["phone"] = "Phone number is required"
	case !phoneCharsAllowed(phone):
		fields["phone"] = "Please enter a valid phone number"
	case len(PhoneDigits(phone)) < MinPhoneDigits:
		fields["phone"] = "Please enter a valid Phone number, must be at least 10 digits long."
	}
	if !info.Consent {
		fields["consent"] = "You must accept the terms and conditions"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
