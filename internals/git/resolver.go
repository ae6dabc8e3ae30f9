package git

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

type RepoInfo struct {
	Platform Platform
	Host     string // e.g. "github.com" or "gitlab.mycompany.com"
	Owner    string
	Repo     string
	RawURL   string
}

func (i RepoInfo) FullName() string { return i.Owner + "/" + i.Repo }

// NewRepoInfo splits a repository full name as reported in a webhook payload.
// GitLab namespaces may be nested, so everything before the last segment is
// the owner there.
func NewRepoInfo(platform Platform, fullName, rawURL string) (RepoInfo, error) {
	parts := strings.Split(strings.Trim(fullName, "/"), "/")

	info := RepoInfo{Platform: platform, RawURL: rawURL}
	if u, err := url.Parse(rawURL); err == nil {
		info.Host = strings.ToLower(u.Hostname())
	}

	switch platform {
	case PlatformGitHub:
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return RepoInfo{}, fmt.Errorf("github repository must be owner/repo: %q", fullName)
		}
		info.Owner, info.Repo = parts[0], parts[1]
		return info, nil

	case PlatformGitLab:
		if len(parts) < 2 || parts[len(parts)-1] == "" {
			return RepoInfo{}, fmt.Errorf("gitlab project must have at least namespace and repo: %q", fullName)
		}
		info.Owner = strings.Join(parts[:len(parts)-1], "/")
		info.Repo = parts[len(parts)-1]
		return info, nil
	}

	return RepoInfo{}, fmt.Errorf("unsupported platform: %s", platform)
}

type Factory struct {
	githubToken   string
	githubAPIURL  string
	gitlabToken   string
	gitlabBaseURL string
}

type FactoryOption func(*Factory)

func WithGitHubAPIURL(apiURL string) FactoryOption {
	return func(f *Factory) { f.githubAPIURL = apiURL }
}

func WithGitLabBaseURL(baseURL string) FactoryOption {
	return func(f *Factory) { f.gitlabBaseURL = strings.TrimSuffix(baseURL, "/") }
}

func NewFactory(githubToken, gitlabToken string, opts ...FactoryOption) *Factory {
	f := &Factory{
		githubToken: githubToken,
		gitlabToken: gitlabToken,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Factory) TrackerFor(ctx context.Context, info RepoInfo) (Tracker, error) {
	switch info.Platform {
	case PlatformGitHub:
		if f.githubToken == "" {
			return nil, fmt.Errorf("no GitHub token configured")
		}
		return NewGitHubTracker(ctx, f.githubToken, info, WithAPIURL(f.githubAPIURL))

	case PlatformGitLab:
		if f.gitlabToken == "" {
			return nil, fmt.Errorf("no GitLab token configured")
		}
		baseURL := f.gitlabBaseURL
		// For self-hosted: use the project URL's scheme+host instead of the default.
		if baseURL == "" {
			baseURL = "https://gitlab.com"
			if info.Host != "" && info.Host != "gitlab.com" {
				parsed, err := url.Parse(info.RawURL)
				if err != nil {
					return nil, fmt.Errorf("invalid project URL %q: %w", info.RawURL, err)
				}
				baseURL = parsed.Scheme + "://" + parsed.Host
			}
		}
		return NewGitLabTracker(f.gitlabToken, baseURL, info)
	}

	return nil, fmt.Errorf("unsupported platform: %s", info.Platform)
}
