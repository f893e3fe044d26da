package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var identityPattern = regexp.MustCompile(`^[XYZ0-9][0-9]{7}[A-Z]$`)

// controlLetters indexes the checksum letter by the numeric part modulo 23.
const controlLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

// Identity is a validated, normalized DNI/NIE identity document number.
type Identity string

// NewIdentity normalizes the given document number and validates its
// format and control letter.
func NewIdentity(value string) (Identity, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))

	if normalized == "" {
		return "", fmt.Errorf("%w: identity document is mandatory", ErrInvalidData)
	}

	if !identityPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: identity document %q is not a valid DNI/NIE", ErrInvalidData, value)
	}

	numericPart := strings.NewReplacer("X", "0", "Y", "1", "Z", "2").Replace(normalized[:8])

	number, err := strconv.Atoi(numericPart)
	if err != nil {
		return "", fmt.Errorf("%w: identity document %q is not a valid DNI/NIE", ErrInvalidData, value)
	}

	if controlLetters[number%23] != normalized[8] {
		return "", fmt.Errorf("%w: identity document %q has a wrong control letter", ErrInvalidData, value)
	}

	return Identity(normalized), nil
}

func (i Identity) String() string {
	return string(i)
}
