// Package provider knows the OAuth2 and API endpoints of the supported
// git hosting providers and performs the provider-facing HTTP calls:
// authorization-code exchange, token refresh, and user profile fetches.
package provider

import (
	"fmt"
	"strings"

	"github.com/go-gitbridge/gitbridge/internal/errdefs"
)

// Provider identifies a git hosting provider.
type Provider string

const (
	GitHub Provider = "github"
	GitLab Provider = "gitlab"
	Gitea  Provider = "gitea"
)

// Parse validates a provider name.
func Parse(s string) (Provider, error) {
	switch Provider(strings.ToLower(s)) {
	case GitHub:
		return GitHub, nil
	case GitLab:
		return GitLab, nil
	case Gitea:
		return Gitea, nil
	default:
		return "", errdefs.BadRequestf("unsupported provider: %s", s)
	}
}

// SelfHosted reports whether the provider requires an instance URL.
func (p Provider) SelfHosted() bool {
	return p == GitLab || p == Gitea
}

// Endpoints holds the resolved URLs and scope set for one provider
// (with the instance URL applied for self-hosted providers).
type Endpoints struct {
	AuthURL    string
	TokenURL   string
	APIBaseURL string
	UserPath   string
	Scopes     []string
}

// EndpointsFor resolves provider endpoints. instanceURL is ignored for
// GitHub and required (validated upstream) for GitLab and Gitea.
func EndpointsFor(p Provider, instanceURL string) Endpoints {
	switch p {
	case GitLab:
		return Endpoints{
			AuthURL:    fmt.Sprintf("%s/oauth/authorize", instanceURL),
			TokenURL:   fmt.Sprintf("%s/oauth/token", instanceURL),
			APIBaseURL: fmt.Sprintf("%s/api/v4", instanceURL),
			UserPath:   "/user",
			Scopes:     []string{"api", "read_user", "read_repository", "write_repository"},
		}
	case Gitea:
		return Endpoints{
			AuthURL:    fmt.Sprintf("%s/login/oauth/authorize", instanceURL),
			TokenURL:   fmt.Sprintf("%s/login/oauth/access_token", instanceURL),
			APIBaseURL: fmt.Sprintf("%s/api/v1", instanceURL),
			UserPath:   "/user",
			Scopes:     []string{"read:user", "read:repository", "write:repository"},
		}
	default: // GitHub
		return Endpoints{
			AuthURL:    "https://github.com/login/oauth/authorize",
			TokenURL:   "https://github.com/login/oauth/access_token",
			APIBaseURL: "https://api.github.com",
			UserPath:   "/user",
			Scopes:     []string{"repo", "user:email"},
		}
	}
}
