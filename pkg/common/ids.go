package common

import "github.com/thanhpk/randstr"

// idAlphabet is the character set the portal accepts for session and
// correlation ids.
const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RequestIDLength is the length of X-Session-ID and X-Correlation-ID values.
const RequestIDLength = 8

// RequestID returns a random 8 character upper-case alphanumeric id.
func RequestID() string {
	return randstr.String(RequestIDLength, idAlphabet)
}
