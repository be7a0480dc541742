package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ValidatePhoneNumber(t *testing.T) {
	testCases := []struct {
		phoneNumber string
		wantErr     error
	}{
		{"", ErrEmptyPhoneNumber},
		{"notvalidphone", ErrInvalidE164PhoneNumber},
		{"14155555555", ErrInvalidE164PhoneNumber},
		{"+380445555555", nil},
		{"+14155555555x4444", ErrInvalidE164PhoneNumber},
		{"+1 415 555 5555", ErrInvalidE164PhoneNumber},
		{"+1 415-555-5555", ErrInvalidE164PhoneNumber},
		{"+05555555555", ErrInvalidE164PhoneNumber},
		{"++5555555555", ErrInvalidE164PhoneNumber},
		{"+15555555555", ErrInvalidE164PhoneNumber},
		{"+14155555555", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.phoneNumber, func(t *testing.T) {
			gotError := ValidatePhoneNumber(tc.phoneNumber)
			assert.Equalf(t, tc.wantErr, gotError, "ValidatePhoneNumber(%q) should be %v, but got %v", tc.phoneNumber, tc.wantErr, gotError)
		})
	}
}

func Test_ValidateAmount(t *testing.T) {
	testCases := []struct {
		amount  string
		wantErr string
	}{
		{"", "amount cannot be empty"},
		{"notvalidamount", "the provided amount is not a valid number"},
		{"0", "the provided amount must be greater than zero"},
		{"-12.35", "the provided amount must be greater than zero"},
		{"12.35", ""},
		{"1000", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.amount, func(t *testing.T) {
			gotError := ValidateAmount(tc.amount)
			if tc.wantErr == "" {
				assert.NoError(t, gotError)
			} else {
				assert.EqualError(t, gotError, tc.wantErr)
			}
		})
	}
}

func Test_ValidateEmail(t *testing.T) {
	testCases := []struct {
		email   string
		wantErr string
	}{
		{"", "email cannot be empty"},
		{"notvalidemail", "the provided email is not valid"},
		{"valid@test", "the provided email is not valid"},
		{"valid@test.com", ""},
		{"valid+plus@test.com", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.email, func(t *testing.T) {
			gotError := ValidateEmail(tc.email)
			if tc.wantErr == "" {
				assert.NoError(t, gotError)
			} else {
				assert.EqualError(t, gotError, tc.wantErr)
			}
		})
	}
}

func Test_ValidatePathIsNotTraversal(t *testing.T) {
	testCases := []struct {
		path        string
		isTraversal bool
	}{
		{"", false},
		{"statement.mt940", false},
		{"./statements/statement.mt940", false},
		{"http://example.com", false},
		{"../config.yaml", true},
		{"statements/../config.yaml", true},
		{"statements/files/..", true},
		{"..\\config.yaml", true},
		{"statements\\..\\config.yaml", true},
		{"statements\\files\\..", true},
	}

	for _, tc := range testCases {
		t.Run("-"+tc.path, func(t *testing.T) {
			err := ValidatePathIsNotTraversal(tc.path)
			if tc.isTraversal {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_ValidateDNS(t *testing.T) {
	testCases := []struct {
		domain  string
		wantErr string
	}{
		{"localhost", ""},
		{"bank.example.org", ""},
		{"https://bank.example.org", `"https://bank.example.org" is not a valid DNS name`},
		{"live server", `"live server" is not a valid DNS name`},
	}

	for _, tc := range testCases {
		t.Run(tc.domain, func(t *testing.T) {
			gotError := ValidateDNS(tc.domain)
			if tc.wantErr == "" {
				assert.NoError(t, gotError)
			} else {
				assert.EqualError(t, gotError, tc.wantErr)
			}
		})
	}
}
