package errors

import (
	"net/http"
	"strings"
)

// Message fragments that identify a credential-expiry failure from the
// backing identity provider, matched case-insensitively.
var expiryFragments = []string{
	"jwt expired",
	"invalid token",
	"session expired",
	"not authenticated",
}

// IsSessionExpiry reports whether an error (optionally accompanied by an HTTP
// status) indicates that the caller's credential expired or became invalid.
// A 401 status is always treated as expiry; otherwise the error message is
// inspected for known provider phrasings.
func IsSessionExpiry(status int, err error) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	if err == nil {
		return false
	}
	if IsUnauthorized(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range expiryFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
