package github

import (
	"context"
	"fmt"
	"path"
	"strings"

	"repofleet/internal/config"
	"repofleet/internal/manifest"

	"github.com/google/go-github/v81/github"
)

const defaultDiscoveryRepoLimit = 1000

// Discover resolves a descriptor list from the GitHub API for the account
// configured in cfg.Source (org or user). Repositories are returned in API
// order with the configured archived/forks policies and include/exclude
// name filters applied, capped at MaxRepos.
//
// Discovery only produces descriptors; fetching still goes through the git
// transport using each repository's clone URL.
func Discover(ctx context.Context, client *Client, cfg *config.Config) ([]manifest.Descriptor, error) {
	var (
		repos []*github.Repository
		err   error
	)
	limit := computeRepoLimit(cfg)

	switch {
	case cfg.Source.Org != "":
		repos, err = listOrgRepos(ctx, client, cfg.Source.Org, limit)
	case cfg.Source.User != "":
		repos, err = listUserRepos(ctx, client, cfg.Source.User, limit)
	default:
		return nil, fmt.Errorf("discovery requires --org or --user")
	}
	if err != nil {
		return nil, err
	}

	repos = filterRepos(repos, cfg)
	if cfg.Source.MaxRepos > 0 && len(repos) > cfg.Source.MaxRepos {
		repos = repos[:cfg.Source.MaxRepos]
	}

	descriptors := make([]manifest.Descriptor, 0, len(repos))
	seen := make(map[string]struct{}, len(repos))
	for _, repo := range repos {
		url := repo.GetCloneURL()
		name := repo.GetName()
		if url == "" || name == "" {
			continue
		}
		// Dedupe on full name; pagination can hand back a repo twice when
		// the listing shifts underneath us.
		if _, ok := seen[repo.GetFullName()]; ok {
			continue
		}
		seen[repo.GetFullName()] = struct{}{}
		descriptors = append(descriptors, manifest.Descriptor{URL: url, Name: name})
	}
	return descriptors, nil
}

func computeRepoLimit(cfg *config.Config) int {
	limit := defaultDiscoveryRepoLimit
	if cfg.Source.MaxRepos > 0 {
		limit = cfg.Source.MaxRepos
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

func listOrgRepos(ctx context.Context, client *Client, org string, limit int) ([]*github.Repository, error) {
	repos := make([]*github.Repository, 0, min(limit, 100))

	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		page, resp, err := client.Client.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list org repos: %w", err)
		}
		for _, repo := range page {
			if len(repos) >= limit {
				break
			}
			repos = append(repos, repo)
		}
		if len(repos) >= limit {
			break
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return repos, nil
}

func listUserRepos(ctx context.Context, client *Client, user string, limit int) ([]*github.Repository, error) {
	// If the requested user matches the authenticated token owner, use the
	// authenticated endpoint so private repos can be included.
	if me, _, err := client.Client.Users.Get(ctx, ""); err == nil {
		if strings.EqualFold(me.GetLogin(), user) {
			return listAuthenticatedUserRepos(ctx, client, limit)
		}
	}
	return listPublicUserRepos(ctx, client, user, limit)
}

func listAuthenticatedUserRepos(ctx context.Context, client *Client, limit int) ([]*github.Repository, error) {
	repos := make([]*github.Repository, 0, min(limit, 100))

	opts := &github.RepositoryListByAuthenticatedUserOptions{
		ListOptions: github.ListOptions{PerPage: 100},
		Visibility:  "all",
		Affiliation: "owner",
	}
	for {
		page, resp, err := client.Client.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list authenticated user repos: %w", err)
		}
		for _, repo := range page {
			if len(repos) >= limit {
				break
			}
			repos = append(repos, repo)
		}
		if len(repos) >= limit {
			break
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return repos, nil
}

func listPublicUserRepos(ctx context.Context, client *Client, user string, limit int) ([]*github.Repository, error) {
	repos := make([]*github.Repository, 0, min(limit, 100))

	opts := &github.RepositoryListByUserOptions{
		ListOptions: github.ListOptions{PerPage: 100},
		Type:        "all",
	}
	for {
		page, resp, err := client.Client.Repositories.ListByUser(ctx, user, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list user repos: %w", err)
		}
		for _, repo := range page {
			if len(repos) >= limit {
				break
			}
			repos = append(repos, repo)
		}
		if len(repos) >= limit {
			break
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return repos, nil
}

func filterRepos(repos []*github.Repository, cfg *config.Config) []*github.Repository {
	archivedPolicy := strings.TrimSpace(cfg.Source.Archived)
	if archivedPolicy == "" {
		archivedPolicy = "exclude"
	}
	forksPolicy := strings.TrimSpace(cfg.Source.Forks)
	if forksPolicy == "" {
		forksPolicy = "exclude"
	}

	var filtered []*github.Repository
	for _, r := range repos {
		// Archived
		if archivedPolicy == "exclude" && r.GetArchived() {
			continue
		}
		if archivedPolicy == "only" && !r.GetArchived() {
			continue
		}

		// Forks
		if forksPolicy == "exclude" && r.GetFork() {
			continue
		}
		if forksPolicy == "only" && !r.GetFork() {
			continue
		}

		// Include/exclude patterns (name matching)
		fullName := r.GetFullName()
		repoName := r.GetName()

		// If Include is set, must match at least one
		if len(cfg.Source.Include) > 0 && !matchesAnyPattern(cfg.Source.Include, fullName, repoName) {
			continue
		}

		// If Exclude is set, must not match any
		if len(cfg.Source.Exclude) > 0 && matchesAnyPattern(cfg.Source.Exclude, fullName, repoName) {
			continue
		}

		filtered = append(filtered, r)
	}
	return filtered
}

func matchesAnyPattern(patterns []string, fullName, repoName string) bool {
	for _, p := range patterns {
		if matchPattern(p, fullName, repoName) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, fullName, repoName string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	// If the pattern includes an owner component (contains '/'), match against
	// the full name. Otherwise match against repo name only so patterns like
	// "*-service" work with org scope.
	if strings.Contains(pattern, "/") {
		matched, _ := path.Match(pattern, fullName)
		return matched
	}
	matched, _ := path.Match(pattern, repoName)
	return matched
}
