// Package release checks GitHub for a newer published release of the CLI.
package release

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// Info is the result of one update check.
type Info struct {
	Current         string `json:"current"`
	Latest          string `json:"latest,omitempty"`
	URL             string `json:"url,omitempty"`
	UpdateAvailable bool   `json:"update_available"`
}

// Checker queries the GitHub releases API for one repository.
type Checker struct {
	Owner string
	Repo  string
	// For testing: inject a client pointed at a test server.
	Client *github.Client
}

// New creates a Checker. Token is optional; set it to raise the API rate
// limit or to read private repositories.
func New(owner, repo, token string) (*Checker, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("release: owner and repo are required")
	}
	c := &Checker{Owner: owner, Repo: repo}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		c.Client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	} else {
		c.Client = github.NewClient(nil)
	}
	return c, nil
}

// Check compares current against the latest published release. Dev builds
// are never flagged; drafts and prereleases are ignored by the API call.
func (c *Checker) Check(ctx context.Context, current string) (*Info, error) {
	info := &Info{Current: current}
	if current == "" || current == "dev" {
		return info, nil
	}

	rel, _, err := c.Client.Repositories.GetLatestRelease(ctx, c.Owner, c.Repo)
	if err != nil {
		return nil, fmt.Errorf("release: fetch latest: %w", err)
	}

	info.Latest = rel.GetTagName()
	info.URL = rel.GetHTMLURL()
	info.UpdateAvailable = normalize(info.Latest) != "" && normalize(info.Latest) != normalize(current)
	return info, nil
}

func normalize(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}
