package core

import (
	"encoding/json"
	"net/mail"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	MinPasswordLength = 8
	// bcrypt only accepts up to 72 bytes
	MaxPasswordBytes  = 72
	MaxUsernameLength = 50
	MaxCategoryName   = 100
)

type (
	TransactionType string

	Role string

	// Identity is the authenticated caller resolved from a bearer token.
	Identity struct {
		UserID   int64  `json:"userId"`
		Username string `json:"username"`
	}

	User struct {
		ID           int64     `json:"id"`
		Username     string    `json:"username"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		Role         Role      `json:"role"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	Category struct {
		ID        int64           `json:"id"`
		Name      string          `json:"name"`
		Type      TransactionType `json:"type,omitempty"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	// UserRef is the owner view embedded in expanded transactions.
	UserRef struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}

	Transaction struct {
		ID         int64           `json:"id"`
		Type       TransactionType `json:"type"`
		Amount     Money           `json:"amount"`
		CreatedAt  time.Time       `json:"createdAt"`
		UserID     int64           `json:"userId"`
		CategoryID *int64          `json:"categoryId"`
		Category   *Category       `json:"category,omitempty"`
		User       *UserRef        `json:"user,omitempty"`
	}

	NewTransaction struct {
		Type       TransactionType
		Amount     Money
		UserID     int64
		CategoryID *int64
		// CreatedAt defaults to the current time when zero.
		CreatedAt time.Time
	}

	// TransactionPatch carries a partial update. Nil fields are left unchanged.
	TransactionPatch struct {
		Type       *TransactionType `json:"type"`
		Amount     *Money           `json:"amount"`
		CategoryID OptionalID       `json:"categoryId"`
	}

	// OptionalID distinguishes an absent JSON field from an explicit null.
	OptionalID struct {
		Set   bool
		Valid bool
		Value int64
	}
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Valid = false
		o.Value = 0
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// Ptr returns the id as a pointer, nil when the value is null.
func (o OptionalID) Ptr() *int64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// IsEmpty reports whether the patch would change nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Type == nil && p.Amount == nil && !p.CategoryID.Set
}

func (p TransactionPatch) Validate() error {
	if p.Type != nil && !p.Type.Valid() {
		return NewValidationError("type", `Type must be either "income" or "expense"`)
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (n NewTransaction) Validate() error {
	if !n.Type.Valid() {
		return NewValidationError("type", `Type must be either "income" or "expense"`)
	}
	if err := n.Amount.Validate(); err != nil {
		return err
	}
	if n.UserID <= 0 {
		return NewValidationError("userId", "userId is required")
	}
	return nil
}

// ValidateUsername trims and checks a username.
func ValidateUsername(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewValidationError("username", "username is required")
	}
	if len(s) > MaxUsernameLength {
		return "", NewValidationError("username", "username too long (max 50 characters)")
	}
	return s, nil
}

// ValidateEmail normalizes an email address to lower case and checks its shape.
func ValidateEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || !strings.Contains(s[strings.LastIndex(s, "@")+1:], ".") {
		return "", NewValidationError("email", "Invalid email address")
	}
	return s, nil
}

func ValidatePassword(s string) error {
	if len(s) < MinPasswordLength {
		return NewValidationError("password", "Password must be at least 8 characters long")
	}
	if len(s) > MaxPasswordBytes {
		return NewValidationError("password", "Password must be at most 72 bytes long")
	}
	return nil
}

// ValidateRole defaults an empty role to RoleUser.
func ValidateRole(r Role) (Role, error) {
	if r == "" {
		return RoleUser, nil
	}
	if !r.Valid() {
		return "", NewValidationError("role", `Role must be either "user" or "admin"`)
	}
	return r, nil
}

// ValidateCategory trims the name and checks the optional type.
func ValidateCategory(name string, t TransactionType) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewValidationError("name", "Category name is required")
	}
	if len(name) > MaxCategoryName {
		return "", NewValidationError("name", "Category name too long (max 100 characters)")
	}
	if t != "" && !t.Valid() {
		return "", NewValidationError("type", `Category type must be either "income" or "expense"`)
	}
	return name, nil
}
