package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"alice@example.com", "alice@example.com", true},
		{"  Bob@Example.COM ", "bob@example.com", true},
		{"no-at-sign", "", false},
		{"alice@localhost", "", false},
		{"Alice <alice@example.com>", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ValidateEmail(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: got %q err=%v", tc.in, got, err)
		}
		if !tc.ok && !IsValidation(err) {
			t.Fatalf("%q: expected validation error, got %v", tc.in, err)
		}
	}
}

func TestValidateRoleAndPassword(t *testing.T) {
	if r, err := ValidateRole(""); err != nil || r != RoleUser {
		t.Fatalf("empty role should default to user, got %q %v", r, err)
	}
	if _, err := ValidateRole("root"); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if err := ValidatePassword("short"); err == nil {
		t.Fatal("expected error for short password")
	}
	if err := ValidatePassword("longenough"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := ValidatePassword(strings.Repeat("a", MaxPasswordBytes)); err != nil {
		t.Fatalf("72 bytes must be accepted, got %v", err)
	}
	err := ValidatePassword(strings.Repeat("a", MaxPasswordBytes+1))
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "password" {
		t.Fatalf("expected password validation error, got %v", err)
	}
}

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{Type: Income, Amount: Money{Cents: 100}, UserID: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []NewTransaction{
		{Type: "transfer", Amount: Money{Cents: 100}, UserID: 1},
		{Type: Expense, Amount: Money{Cents: 0}, UserID: 1},
		{Type: Expense, Amount: Money{Cents: -5}, UserID: 1},
		{Type: Expense, Amount: Money{Cents: 5}},
	}
	for i, n := range bads {
		if err := n.Validate(); !IsValidation(err) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestTransactionPatchDecode(t *testing.T) {
	var p TransactionPatch
	if err := json.Unmarshal([]byte(`{"amount": 5}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.Amount == nil || p.Amount.Cents != 500 || p.Type != nil || p.CategoryID.Set {
		t.Fatalf("unexpected patch %+v", p)
	}

	p = TransactionPatch{}
	if err := json.Unmarshal([]byte(`{"categoryId": null}`), &p); err != nil {
		t.Fatal(err)
	}
	if !p.CategoryID.Set || p.CategoryID.Valid || p.CategoryID.Ptr() != nil {
		t.Fatalf("explicit null should detach: %+v", p.CategoryID)
	}

	p = TransactionPatch{}
	if err := json.Unmarshal([]byte(`{"categoryId": 7, "type": "expense"}`), &p); err != nil {
		t.Fatal(err)
	}
	if id := p.CategoryID.Ptr(); id == nil || *id != 7 {
		t.Fatalf("expected category 7, got %+v", p.CategoryID)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	bad := TransactionType("gift")
	p = TransactionPatch{Type: &bad}
	if !IsValidation(p.Validate()) {
		t.Fatal("expected validation error for bad type")
	}
	if !(TransactionPatch{}).IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
}
