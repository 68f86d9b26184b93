package bond

import (
	"regexp"
	"strings"
)

// externalIDPrefix is the fixed record-type prefix the remote source puts on
// every record id. Tokens are the id with this prefix stripped.
const externalIDPrefix = "rec"

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	tokenRe = regexp.MustCompile(`^[A-Za-z0-9]{8,32}$`)
)

// ValidEmail reports whether the address is plausibly deliverable. The check
// is syntactic only; entity matching decides whether the address is known.
func ValidEmail(email string) bool {
	return emailRe.MatchString(strings.TrimSpace(email))
}

// ValidToken reports whether a caller-supplied token has the canonical shape.
// Anything else is rejected before touching storage.
func ValidToken(token string) bool {
	return tokenRe.MatchString(token)
}

// TokenFromExternalID derives the canonical token from a remote record id by
// stripping the fixed prefix. An id without the prefix, or with nothing after
// it, yields "".
func TokenFromExternalID(externalID string) string {
	if !strings.HasPrefix(externalID, externalIDPrefix) {
		return ""
	}
	return externalID[len(externalIDPrefix):]
}
