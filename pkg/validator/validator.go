package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

// Error joins the field messages in a stable order.
func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v[field])
	}
	return strings.Join(parts, "; ")
}

const MaxMessageLength = 4000

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
var phoneRegex = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

func ValidateRegister(fullName, username, phone, password string) ValidationErrors {
	errs := make(ValidationErrors)

	// Full name
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		errs.Add("fullName", "Full name is required")
	} else if len(fullName) < 2 {
		errs.Add("fullName", "Full name must be at least 2 characters")
	} else if len(fullName) > 100 {
		errs.Add("fullName", "Full name is too long")
	}

	// Username
	username = strings.TrimSpace(username)
	if username == "" {
		errs.Add("userName", "Username is required")
	} else if len(username) < 3 {
		errs.Add("userName", "Username must be at least 3 characters")
	} else if len(username) > 50 {
		errs.Add("userName", "Username is too long")
	} else if !usernameRegex.MatchString(username) {
		errs.Add("userName", "Username can only contain letters, numbers, _, . and -")
	}

	// Phone
	phone = strings.TrimSpace(phone)
	if phone == "" {
		errs.Add("phone", "Phone is required")
	} else if !phoneRegex.MatchString(phone) {
		errs.Add("phone", "Invalid phone number")
	}

	// Password
	validatePassword(password, errs)

	return errs
}

func ValidateLogin(username, password string) ValidationErrors {
	errs := make(ValidationErrors)

	if strings.TrimSpace(username) == "" {
		errs.Add("username", "Username is required")
	}

	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

// ValidateMessage checks a message draft before it is sent.
func ValidateMessage(senderID, receiverID uuid.UUID, content string) ValidationErrors {
	errs := make(ValidationErrors)

	if senderID == uuid.Nil {
		errs.Add("senderId", "Sender is required")
	}
	if receiverID == uuid.Nil {
		errs.Add("receiverId", "Receiver is required")
	}
	if senderID != uuid.Nil && senderID == receiverID {
		errs.Add("receiverId", "Cannot send a message to yourself")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		errs.Add("content", "Message content is required")
	} else if utf8.RuneCountInString(content) > MaxMessageLength {
		errs.Add("content", fmt.Sprintf("Message must be at most %d characters", MaxMessageLength))
	}

	return errs
}

func validatePassword(password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
		return
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("password", fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
