package enums

import (
	"fmt"
	"strings"
)

// VoteType is a petition vote direction.
type VoteType string

const (
	VoteYes VoteType = "yes"
	VoteNo  VoteType = "no"
)

var validVoteTypes = []VoteType{VoteYes, VoteNo}

// String implements fmt.Stringer.
func (v VoteType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VoteType.
func (v VoteType) IsValid() bool {
	for _, candidate := range validVoteTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVoteType converts raw form input into a VoteType. Matching is exact
// after trimming; "YES" is rejected.
func ParseVoteType(value string) (VoteType, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validVoteTypes {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vote type %q", value)
}
