package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagekit/triage/internal/config"
	"github.com/triagekit/triage/internal/types"
)

const issuesFixture = `[
  {
    "number": 101,
    "title": "Crash on startup",
    "author": {"login": "alice"},
    "createdAt": "2026-02-01T10:00:00Z",
    "labels": [{"name": "bug"}, {"name": "p1"}],
    "url": "https://github.com/acme/widgets/issues/101"
  },
  {
    "number": 102,
    "title": "Dependency bump",
    "author": {"login": "renovate-bot"},
    "createdAt": "2026-02-02T10:00:00Z",
    "labels": [],
    "url": "https://github.com/acme/widgets/issues/102"
  }
]`

const discussionsFixture = `{
  "data": {
    "repository": {
      "discussions": {
        "nodes": [
          {
            "number": 7,
            "title": "Roadmap feedback",
            "author": {"login": "bob"},
            "createdAt": "2026-01-15T08:30:00Z",
            "labels": {"nodes": [{"name": "feedback"}]},
            "url": "https://github.com/acme/widgets/discussions/7",
            "closed": false
          },
          {
            "number": 8,
            "title": "Old thread",
            "author": {"login": "carol"},
            "createdAt": "2025-11-01T08:30:00Z",
            "labels": {"nodes": []},
            "url": "https://github.com/acme/widgets/discussions/8",
            "closed": true
          }
        ]
      }
    }
  }
}`

func TestParseIssues(t *testing.T) {
	items, err := parseIssues([]byte(issuesFixture), config.Filters{})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, types.KindIssue, items[0].Kind)
	assert.Equal(t, 101, items[0].Number)
	assert.Equal(t, "Crash on startup", items[0].Title)
	assert.Equal(t, "alice", items[0].Author)
	assert.Equal(t, []string{"bug", "p1"}, items[0].Labels)
	assert.Equal(t, "https://github.com/acme/widgets/issues/101", items[0].URL)
}

func TestParseIssuesExcludesAuthors(t *testing.T) {
	items, err := parseIssues([]byte(issuesFixture), config.Filters{
		ExcludeAuthors: []string{"Renovate-Bot"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 101, items[0].Number)
}

func TestParseIssuesMalformed(t *testing.T) {
	_, err := parseIssues([]byte(`{"oops"`), config.Filters{})
	assert.Error(t, err)
}

func TestParseDiscussions(t *testing.T) {
	items, err := parseDiscussions([]byte(discussionsFixture), config.Filters{})
	require.NoError(t, err)
	require.Len(t, items, 1, "closed discussions are dropped")

	assert.Equal(t, types.KindDiscussion, items[0].Kind)
	assert.Equal(t, 7, items[0].Number)
	assert.Equal(t, "bob", items[0].Author)
	assert.Equal(t, []string{"feedback"}, items[0].Labels)
}

func TestParseDiscussionsLabelFilter(t *testing.T) {
	items, err := parseDiscussions([]byte(discussionsFixture), config.Filters{
		Labels: []string{"something-else"},
	})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = parseDiscussions([]byte(discussionsFixture), config.Filters{
		Labels: []string{"feedback"},
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestParseDiscussionsEmptyResponse(t *testing.T) {
	items, err := parseDiscussions([]byte(`{"data":{"repository":{"discussions":{"nodes":[]}}}}`), config.Filters{})
	require.NoError(t, err)
	assert.Empty(t, items)
}
