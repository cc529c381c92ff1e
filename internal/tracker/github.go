package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/triagekit/triage/internal/config"
	"github.com/triagekit/triage/internal/types"
)

// snapshotLimit caps how many items of each kind one snapshot reads
const snapshotLimit = 100

// GitHub reads open issues and discussions through the gh CLI, which
// handles authentication and token refresh. Issues come from the issue
// list endpoint; discussions only exist behind GraphQL.
type GitHub struct {
	repo    config.Repo
	logger  *slog.Logger
	limiter *rate.Limiter
}

// NewGitHub creates an adapter for one repository. Calls are paced to
// stay well inside the API's secondary rate limits.
func NewGitHub(repo config.Repo, logger *slog.Logger) *GitHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHub{
		repo:    repo,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// issueRow mirrors the gh issue list --json output
type issueRow struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Author struct {
		Login string `json:"login"`
	} `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Labels    []struct {
		Name string `json:"name"`
	} `json:"labels"`
	URL string `json:"url"`
}

// discussionsResponse mirrors the GraphQL discussion query result
type discussionsResponse struct {
	Data struct {
		Repository struct {
			Discussions struct {
				Nodes []struct {
					Number int    `json:"number"`
					Title  string `json:"title"`
					Author struct {
						Login string `json:"login"`
					} `json:"author"`
					CreatedAt time.Time `json:"createdAt"`
					Labels    struct {
						Nodes []struct {
							Name string `json:"name"`
						} `json:"nodes"`
					} `json:"labels"`
					URL    string `json:"url"`
					Closed bool   `json:"closed"`
				} `json:"nodes"`
			} `json:"discussions"`
		} `json:"repository"`
	} `json:"data"`
}

// FetchSnapshot reads open issues and discussions concurrently and
// returns them as one immutable snapshot.
func (g *GitHub) FetchSnapshot(ctx context.Context, filters config.Filters) (*types.Snapshot, error) {
	var snapshot types.Snapshot

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		issues, err := g.fetchIssues(egCtx, filters)
		if err != nil {
			return fmt.Errorf("fetch issues: %w", err)
		}
		snapshot.Issues = issues
		return nil
	})
	eg.Go(func() error {
		discussions, err := g.fetchDiscussions(egCtx, filters)
		if err != nil {
			return fmt.Errorf("fetch discussions: %w", err)
		}
		snapshot.Discussions = discussions
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (g *GitHub) fetchIssues(ctx context.Context, filters config.Filters) ([]types.Item, error) {
	args := []string{
		"issue", "list",
		"-R", g.repo.Slug(),
		"--state", "open",
		"--json", "number,title,author,createdAt,labels,url",
		"--limit", fmt.Sprintf("%d", snapshotLimit),
	}
	for _, label := range filters.Labels {
		args = append(args, "--label", label)
	}

	out, err := g.gh(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseIssues(out, filters)
}

// parseIssues converts gh issue list output into snapshot items
func parseIssues(data []byte, filters config.Filters) ([]types.Item, error) {
	var rows []issueRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse issues: %w", err)
	}

	items := make([]types.Item, 0, len(rows))
	for _, row := range rows {
		if excludedAuthor(row.Author.Login, filters) {
			continue
		}
		labels := make([]string, 0, len(row.Labels))
		for _, l := range row.Labels {
			labels = append(labels, l.Name)
		}
		items = append(items, types.Item{
			Kind:      types.KindIssue,
			Number:    row.Number,
			Title:     row.Title,
			Author:    row.Author.Login,
			CreatedAt: row.CreatedAt,
			Labels:    labels,
			URL:       row.URL,
		})
	}
	return items, nil
}

const discussionsQuery = `query($owner: String!, $name: String!, $limit: Int!) {
  repository(owner: $owner, name: $name) {
    discussions(first: $limit, orderBy: {field: CREATED_AT, direction: DESC}) {
      nodes {
        number
        title
        author { login }
        createdAt
        labels(first: 20) { nodes { name } }
        url
        closed
      }
    }
  }
}`

func (g *GitHub) fetchDiscussions(ctx context.Context, filters config.Filters) ([]types.Item, error) {
	args := []string{
		"api", "graphql",
		"-f", "owner=" + g.repo.Owner,
		"-f", "name=" + g.repo.Name,
		"-F", fmt.Sprintf("limit=%d", snapshotLimit),
		"-f", "query=" + discussionsQuery,
	}

	out, err := g.gh(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseDiscussions(out, filters)
}

// parseDiscussions converts the GraphQL response into snapshot items,
// dropping closed discussions and applying the same filters as issues.
func parseDiscussions(data []byte, filters config.Filters) ([]types.Item, error) {
	var resp discussionsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse discussions: %w", err)
	}

	var items []types.Item
	for _, node := range resp.Data.Repository.Discussions.Nodes {
		if node.Closed {
			continue
		}
		if excludedAuthor(node.Author.Login, filters) {
			continue
		}
		labels := make([]string, 0, len(node.Labels.Nodes))
		for _, l := range node.Labels.Nodes {
			labels = append(labels, l.Name)
		}
		if len(filters.Labels) > 0 && !hasAnyLabel(labels, filters.Labels) {
			continue
		}
		items = append(items, types.Item{
			Kind:      types.KindDiscussion,
			Number:    node.Number,
			Title:     node.Title,
			Author:    node.Author.Login,
			CreatedAt: node.CreatedAt,
			Labels:    labels,
			URL:       node.URL,
		})
	}
	return items, nil
}

// ListLabels returns the repository's label definitions
func (g *GitHub) ListLabels(ctx context.Context) ([]Label, error) {
	out, err := g.gh(ctx, "label", "list",
		"-R", g.repo.Slug(),
		"--json", "name,color,description",
		"--limit", "200",
	)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}

	var labels []Label
	if err := json.Unmarshal(out, &labels); err != nil {
		return nil, fmt.Errorf("parse labels: %w", err)
	}
	return labels, nil
}

// AddLabel applies a label to an issue
func (g *GitHub) AddLabel(ctx context.Context, number int, label string) error {
	_, err := g.gh(ctx, "issue", "edit", fmt.Sprintf("%d", number),
		"-R", g.repo.Slug(),
		"--add-label", label,
	)
	if err != nil {
		return fmt.Errorf("add label %q to #%d: %w", label, number, err)
	}
	return nil
}

// RemoveLabel removes a label from an issue
func (g *GitHub) RemoveLabel(ctx context.Context, number int, label string) error {
	_, err := g.gh(ctx, "issue", "edit", fmt.Sprintf("%d", number),
		"-R", g.repo.Slug(),
		"--remove-label", label,
	)
	if err != nil {
		return fmt.Errorf("remove label %q from #%d: %w", label, number, err)
	}
	return nil
}

// gh runs one gh CLI invocation, paced by the rate limiter
func (g *GitHub) gh(ctx context.Context, args ...string) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	g.logger.Debug("gh", "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, "gh", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("gh %s: %w: %s", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("gh %s: %w", args[0], err)
	}
	return out, nil
}

func excludedAuthor(login string, filters config.Filters) bool {
	for _, excluded := range filters.ExcludeAuthors {
		if strings.EqualFold(login, excluded) {
			return true
		}
	}
	return false
}

func hasAnyLabel(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
