package broadcast

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/unosend/unosend/internal/domain"
)

// tokenPattern matches the supported personalization tokens, case-insensitively
// and with optional whitespace inside the braces. Unrecognized tokens are left
// in the content untouched.
var tokenPattern = regexp.MustCompile(`(?i)\{\{\s*(first_name|last_name|email|unsubscribe_url)\s*\}\}`)

// Render substitutes personalization tokens in content for the given contact.
func Render(content string, c *domain.Contact, unsubscribeURL string) string {
	return tokenPattern.ReplaceAllStringFunc(content, func(match string) string {
		token := tokenPattern.FindStringSubmatch(match)[1]
		switch strings.ToLower(token) {
		case "first_name":
			return c.FirstName
		case "last_name":
			return c.LastName
		case "email":
			return c.Email
		case "unsubscribe_url":
			return unsubscribeURL
		}
		return match
	})
}

// UnsubscribeToken encodes the contact id and issue time into an opaque token
// carried in unsubscribe links.
func UnsubscribeToken(contactID string, issuedAtMillis int64) string {
	return base64.StdEncoding.EncodeToString(
		[]byte(fmt.Sprintf("%s:%d", contactID, issuedAtMillis)))
}

// UnsubscribeURL builds the one-click unsubscribe link for a contact.
func UnsubscribeURL(baseURL, contactID string, issuedAtMillis int64) string {
	return fmt.Sprintf("%s/unsubscribe/%s",
		strings.TrimRight(baseURL, "/"), UnsubscribeToken(contactID, issuedAtMillis))
}
