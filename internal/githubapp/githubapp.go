package githubapp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"
)

const (
	jwtExpirationMinutes = 10
	defaultAPIBaseURL    = "https://api.github.com"
)

type GithubAuthenticator interface {
	GetInstallationToken(ctx context.Context, config AuthConfig) (string, error)
}

type DefaultAuthenticator struct{}

func (e *AuthError) Error() string {
	return fmt.Sprintf("github authentication error during %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// SignAppJWT signs the short-lived JWT a GitHub App uses to authenticate as itself.
func SignAppJWT(appID int, privateKeyPEM []byte, now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return "", &AuthError{Op: "parse private key", Err: err}
	}

	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(jwtExpirationMinutes * time.Minute).Unix(),
		"iss": appID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", &AuthError{Op: "sign JWT", Err: err}
	}
	return signed, nil
}

// GetInstallationToken exchanges the app JWT for an installation access token
func (a *DefaultAuthenticator) GetInstallationToken(ctx context.Context, config AuthConfig) (string, error) {
	jwtToken, err := SignAppJWT(config.AppID, []byte(config.PrivateKey), time.Now())
	if err != nil {
		return "", err
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: jwtToken,
		TokenType:   "Bearer",
	}))
	client := github.NewClient(httpClient)

	if config.APIBaseURL != "" && config.APIBaseURL != defaultAPIBaseURL {
		baseURL, err := url.Parse(strings.TrimSuffix(config.APIBaseURL, "/") + "/")
		if err != nil {
			return "", &AuthError{Op: "parse API base URL", Err: err}
		}
		client.BaseURL = baseURL
	}

	token, _, err := client.Apps.CreateInstallationToken(ctx, int64(config.InstallationID), nil)
	if err != nil {
		return "", &AuthError{Op: "request installation token", Err: err}
	}
	if token.GetToken() == "" {
		return "", &AuthError{Op: "request installation token", Err: fmt.Errorf("empty token in response")}
	}

	return token.GetToken(), nil
}
