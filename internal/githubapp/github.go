package githubapp

import (
	"net/url"
)

// InstallationTokenUser is the username git hosts expect alongside an installation token.
const InstallationTokenUser = "x-access-token"

// MaskTokenInURL masks the password part of a URL for logging
func MaskTokenInURL(repoURL string) string {
	u, err := url.Parse(repoURL)
	if err != nil || u.User == nil {
		return repoURL
	}
	username := u.User.Username()
	if _, hasToken := u.User.Password(); hasToken {
		u.User = url.UserPassword(username, "****")
		return u.String()
	}
	return repoURL
}
