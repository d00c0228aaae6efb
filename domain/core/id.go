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
		// Fallback to v4 if v7 fails
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

// Domain-specific ID types
type (
	AnalysisID ID
	PriorID    ID
	StudyID    ID
)

// String conversions for domain IDs
func (id AnalysisID) String() string { return ID(id).String() }
func (id PriorID) String() string    { return ID(id).String() }
func (id StudyID) String() string    { return ID(id).String() }

// Parse helpers reject blank identifiers at the boundary

func ParseAnalysisID(s string) (AnalysisID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("analysis id cannot be empty")
	}
	return AnalysisID(s), nil
}

func ParsePriorID(s string) (PriorID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("prior id cannot be empty")
	}
	return PriorID(s), nil
}
