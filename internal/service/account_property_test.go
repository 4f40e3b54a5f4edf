// Property-based tests for registration input rules and referral codes.
package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"pgregory.net/rapid"
)

// TestReferralCodeShapeProperty checks that every generated code is three
// uppercase letters followed by three digits.
func TestReferralCodeShapeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		_ = rapid.IntRange(0, 1000).Draw(t, "iteration")
		code := RandomReferralCode()

		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		for i := 0; i < 3; i++ {
			if code[i] < 'A' || code[i] > 'Z' {
				t.Fatalf("code %q has non-letter %q at position %d", code, code[i], i)
			}
		}
		for i := 3; i < 6; i++ {
			if code[i] < '0' || code[i] > '9' {
				t.Fatalf("code %q has non-digit %q at position %d", code, code[i], i)
			}
		}
		if !IsReferralCode(code) {
			t.Fatalf("IsReferralCode rejected generated code %q", code)
		}
	})
}

// TestPhoneNumberValidationProperty checks that a phone number is accepted
// exactly when it is "0" followed by nine digits.
func TestPhoneNumberValidationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rest := rapid.StringMatching(`[0-9]{9}`).Draw(t, "rest")
		if !IsValidPhoneNumber("0" + rest) {
			t.Fatalf("expected 0%s to be valid", rest)
		}

		first := rapid.SampledFrom([]string{"1", "2", "5", "7", "9", "+", "a"}).Draw(t, "first")
		if IsValidPhoneNumber(first + rest) {
			t.Fatalf("expected %s%s to be invalid", first, rest)
		}

		n := rapid.IntRange(0, 20).Filter(func(n int) bool { return n != 9 }).Draw(t, "length")
		digits := rapid.StringMatching(fmt.Sprintf(`[0-9]{%d}`, n)).Draw(t, "digits")
		if IsValidPhoneNumber("0" + digits) {
			t.Fatalf("expected 0%s (%d trailing digits) to be invalid", digits, n)
		}
	})
}

// TestPasswordLengthProperty checks the inclusive 4..8 character bound.
func TestPasswordLengthProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 16).Draw(t, "length")
		password := strings.Repeat("x", n)

		want := n >= 4 && n <= 8
		if got := IsValidPassword(password); got != want {
			t.Fatalf("IsValidPassword(len=%d) = %v, want %v", n, got, want)
		}
	})
}

// TestRegistrationStateProperty checks that any successful registration
// leaves the new account at the initial balance with zero referrals and
// credits exactly one referral to the referrer.
func TestRegistrationStateProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := newMemoryStore()
		referrer := store.seed("0700000001", "XYZ999", 100)
		svc := NewAccountService(store, nil, nil, bcrypt.MinCost)

		count := rapid.IntRange(1, 5).Draw(t, "registrations")
		codes := map[string]bool{"XYZ999": true}
		for i := 0; i < count; i++ {
			phone := fmt.Sprintf("07%08d", i)
			res, err := svc.Register(context.Background(), RegisterInput{
				PhoneNumber:  phone,
				UserName:     rapid.StringMatching(`[a-z]{1,10}`).Draw(t, "name"),
				Password:     rapid.StringMatching(`[a-z0-9]{4,8}`).Draw(t, "password"),
				ReferralCode: "XYZ999",
			})
			if err != nil {
				t.Fatalf("register %s: %v", phone, err)
			}
			if codes[res.ReferralCode] {
				t.Fatalf("referral code %s allocated twice", res.ReferralCode)
			}
			codes[res.ReferralCode] = true

			stored := store.get(phone)
			if stored.Balance != 100 || stored.Referrals != 0 {
				t.Fatalf("new account %s has balance=%d referrals=%d", phone, stored.Balance, stored.Referrals)
			}
		}

		if got := store.get(referrer.PhoneNumber).Referrals; got != int64(count) {
			t.Fatalf("referrer has %d referrals, want %d", got, count)
		}
	})
}
