package types

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// EncodingVersion is a version of the persisted text encoding of enums below.
// Stored in ledger_meta and verified on storage setup
const EncodingVersion = 1

// AccountID is a store assigned id of an account
type AccountID int64

func (id AccountID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// IdentityID is a store assigned id of an identity
type IdentityID int64

func (id IdentityID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// TransactionType is a kind of a money movement
type TransactionType int

// Transaction types
const (
	Deposit TransactionType = iota + 1
	Withdraw
	TransferOut
	TransferIn
)

var transactionTypeNames = map[TransactionType]string{
	Deposit:     "DEPOSIT",
	Withdraw:    "WITHDRAW",
	TransferOut: "TRANSFER_OUT",
	TransferIn:  "TRANSFER_IN",
}

var transactionTypesByName = func() map[string]TransactionType {
	result := make(map[string]TransactionType, len(transactionTypeNames))
	for t, name := range transactionTypeNames {
		result[name] = t
	}
	return result
}()

// ParseTransactionType decodes the text representation.
// Unknown values are rejected
func ParseTransactionType(value string) (TransactionType, error) {
	t, ok := transactionTypesByName[value]
	if !ok {
		return 0, fmt.Errorf("Unknown transaction type: %q", value)
	}
	return t, nil
}

// IsTransfer returns true for both legs of a transfer
func (t TransactionType) IsTransfer() bool {
	return t == TransferOut || t == TransferIn
}

// Valid returns true for known types
func (t TransactionType) Valid() bool {
	_, ok := transactionTypeNames[t]
	return ok
}

func (t TransactionType) String() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TransactionType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler
func (t TransactionType) MarshalText() ([]byte, error) {
	name, ok := transactionTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("Unknown transaction type: %d", int(t))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *TransactionType) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer
func (t TransactionType) Value() (driver.Value, error) {
	text, err := t.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(text), nil
}

// Scan implements sql.Scanner
func (t *TransactionType) Scan(src interface{}) error {
	text, err := scanText(src)
	if err != nil {
		return err
	}
	return t.UnmarshalText(text)
}

// Role of an identity
type Role int

// Roles
const (
	User Role = iota + 1
	Admin
)

var roleNames = map[Role]string{
	User:  "USER",
	Admin: "ADMIN",
}

// ParseRole decodes the text representation.
// Unknown values are rejected
func ParseRole(value string) (Role, error) {
	for role, name := range roleNames {
		if name == value {
			return role, nil
		}
	}
	return 0, fmt.Errorf("Unknown role: %q", value)
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler
func (r Role) MarshalText() ([]byte, error) {
	name, ok := roleNames[r]
	if !ok {
		return nil, fmt.Errorf("Unknown role: %d", int(r))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer
func (r Role) Value() (driver.Value, error) {
	text, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(text), nil
}

// Scan implements sql.Scanner
func (r *Role) Scan(src interface{}) error {
	text, err := scanText(src)
	if err != nil {
		return err
	}
	return r.UnmarshalText(text)
}

func scanText(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}
	return nil, fmt.Errorf("Unexpected db value: %v(%[1]T)", src)
}
