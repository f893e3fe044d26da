package domain

import (
	"errors"
	"testing"
)

func TestNewIdentity(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		want    Identity
		wantErr bool
	}{
		{name: "ValidDNI", input: "12345678Z", want: "12345678Z"},
		{name: "ValidDNILowercase", input: "12345678z", want: "12345678Z"},
		{name: "ValidDNIWithSpaces", input: "  12345678Z  ", want: "12345678Z"},
		{name: "ValidNIEWithX", input: "X1234567L", want: "X1234567L"},
		{name: "ValidNIEWithY", input: "Y0000000Z", want: "Y0000000Z"},
		{name: "Empty", input: "", wantErr: true},
		{name: "Blank", input: "   ", wantErr: true},
		{name: "WrongControlLetter", input: "12345678A", wantErr: true},
		{name: "TooShort", input: "1234567Z", wantErr: true},
		{name: "TooLong", input: "123456789Z", wantErr: true},
		{name: "MissingLetter", input: "123456789", wantErr: true},
		{name: "InvalidLeadingLetter", input: "A1234567L", wantErr: true},
		{name: "LetterInNumericPart", input: "1234X678Z", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewIdentity(tc.input)

			if tc.wantErr {
				if !errors.Is(err, ErrInvalidData) {
					t.Errorf("NewIdentity(%q) error = %v, want ErrInvalidData", tc.input, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("NewIdentity(%q) returned error: %v", tc.input, err)
			}

			if got != tc.want {
				t.Errorf("NewIdentity(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
