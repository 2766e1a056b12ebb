package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// ExpressionID identifies a user-defined calculated vector expression.
type ExpressionID ID

func (id ExpressionID) String() string { return ID(id).String() }

// NewExpressionID returns a fresh expression identifier.
func NewExpressionID() ExpressionID { return ExpressionID(NewID()) }

// ParseExpressionID parses a string into ExpressionID
func ParseExpressionID(s string) (ExpressionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("expression ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid expression ID %q: %w", s, err)
	}
	return ExpressionID(s), nil
}
