// Package validation holds input rules for profile data.
package validation

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf16"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 15
)

// User-facing messages, one per rule.
const (
	MsgMinLength  = "Minimum length: 3 characters"
	MsgMaxLength  = "Maximum length: 15 characters"
	MsgCharacters = "No spaces or special characters"
	MsgNotAllowed = "Username not allowed"
	MsgTaken      = "Username taken"
)

var usernameCharsRegex = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// SlugChecker answers whether a user record with the given slug exists.
type SlugChecker interface {
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}

// Result is the outcome of a username check. Message is set only when Valid is false.
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

func invalid(msg string) Result {
	return Result{Valid: false, Message: msg}
}

// Slug returns the normalized identifier used for uniqueness comparison.
func Slug(username string) string {
	return strings.ToLower(username)
}

// UsernameValidator checks candidate usernames. It holds no mutable state and
// is safe for concurrent use.
type UsernameValidator struct {
	denylist *Denylist
	users    SlugChecker
}

// NewUsernameValidator returns a validator using the given denylist and slug lookup.
func NewUsernameValidator(denylist *Denylist, users SlugChecker) *UsernameValidator {
	return &UsernameValidator{denylist: denylist, users: users}
}

// Validate applies the username rules in order and reports the first failure.
// A failed lookup is returned as err and the Result is zero.
func (v *UsernameValidator) Validate(ctx context.Context, username string) (Result, error) {
	if res := v.CheckFormat(username); !res.Valid {
		return res, nil
	}

	taken, err := v.users.ExistsBySlug(ctx, Slug(username))
	if err != nil {
		return Result{}, err
	}
	if taken {
		return invalid(MsgTaken), nil
	}

	return Result{Valid: true}, nil
}

// CheckFormat applies every rule except the uniqueness lookup.
func (v *UsernameValidator) CheckFormat(username string) Result {
	if username == "" {
		return invalid(MsgMinLength)
	}

	n := displayLength(username)
	if n < minUsernameLength {
		return invalid(MsgMinLength)
	}
	if n > maxUsernameLength {
		return invalid(MsgMaxLength)
	}

	if !usernameCharsRegex.MatchString(username) {
		return invalid(MsgCharacters)
	}

	if v.denylist.Contains(username) {
		return invalid(MsgNotAllowed)
	}

	return Result{Valid: true}
}

// displayLength counts UTF-16 code units, so a character outside the BMP
// counts twice, as browser clients measure it.
func displayLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
