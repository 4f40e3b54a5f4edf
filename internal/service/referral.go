package service

import (
	"math/rand/v2"
	"regexp"
	"unicode/utf8"
)

const (
	referralLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	referralDigits  = "0123456789"

	minPasswordLen = 4
	maxPasswordLen = 8
)

var (
	phonePattern        = regexp.MustCompile(`^0\d{9}$`)
	referralCodePattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)
)

// CodeGenerator produces candidate referral codes.
type CodeGenerator func() string

// RandomReferralCode returns three uniformly random uppercase letters followed
// by three uniformly random digits. The code is a display handle, not a secret.
func RandomReferralCode() string {
	var b [6]byte
	for i := 0; i < 3; i++ {
		b[i] = referralLetters[rand.IntN(len(referralLetters))]
	}
	for i := 3; i < 6; i++ {
		b[i] = referralDigits[rand.IntN(len(referralDigits))]
	}
	return string(b[:])
}

// IsValidPhoneNumber reports whether phone is a leading zero followed by nine digits.
func IsValidPhoneNumber(phone string) bool {
	return phonePattern.MatchString(phone)
}

// IsValidPassword reports whether password has between 4 and 8 characters.
func IsValidPassword(password string) bool {
	n := utf8.RuneCountInString(password)
	return n >= minPasswordLen && n <= maxPasswordLen
}

// IsReferralCode reports whether code has the shape of an allocated referral code.
func IsReferralCode(code string) bool {
	return referralCodePattern.MatchString(code)
}

// maskPhone keeps the first two and last two digits for log output.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	masked := []byte(phone)
	for i := 2; i < len(masked)-2; i++ {
		masked[i] = '*'
	}
	return string(masked)
}
