package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/barabum0/ai-issue-action/internals/git"
)

const samplePatch = `diff --git a/auth/login.go b/auth/login.go
--- a/auth/login.go
+++ b/auth/login.go
@@ -10,2 +10,3 @@
-	if password == "" {
+	if strings.TrimSpace(password) == "" {
+		return ErrEmptyPassword
 	}
`

func loginPR() git.PullRequest {
	return git.PullRequest{
		Number:       7,
		Title:        "Fix login bug",
		Description:  "Login fails on empty password",
		Author:       "carol",
		CreatedAt:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Diff:         samplePatch,
		Files:        []git.FileStat{{Path: "auth/login.go", Added: 2, Deleted: 1}},
		ChangedFiles: 1,
		Additions:    2,
		Deletions:    1,
	}
}

func TestBuild_ContainsPullRequestVerbatim(t *testing.T) {
	labels := []git.Label{{Name: "bug", Description: "Something is broken"}, {Name: "enhancement"}}

	p := Build(loginPR(), labels, nil, Options{})

	assert.Contains(t, p.User, "Fix login bug")
	assert.Contains(t, p.User, "Login fails on empty password")
	assert.Contains(t, p.User, samplePatch)
	assert.Contains(t, p.User, "- bug: Something is broken\n")
	assert.Contains(t, p.User, "- enhancement\n")
	assert.Contains(t, p.User, "- auth/login.go (+2/-1)")
	assert.Contains(t, p.User, "Author: carol")
	assert.Contains(t, p.User, "Created: 2024-05-01T10:00:00Z")
	assert.NotContains(t, p.User, "Available issue types")
	assert.Contains(t, p.System, "create_issue")
}

func TestBuild_Deterministic(t *testing.T) {
	labels := []git.Label{{Name: "bug"}}
	types := []git.IssueType{{Name: "Bug", Description: "An unexpected problem"}}

	a := Build(loginPR(), labels, types, Options{})
	b := Build(loginPR(), labels, types, Options{})
	assert.Equal(t, a, b)
	assert.Contains(t, a.User, "- Bug: An unexpected problem")
	assert.Contains(t, a.User, "Choose the single most fitting issue type")
}

func TestBuild_TruncatesDiff(t *testing.T) {
	pr := loginPR()
	pr.Diff = strings.Repeat("x", 500)

	p := Build(pr, nil, nil, Options{MaxDiffChars: 100})
	assert.Contains(t, p.User, strings.Repeat("x", 100)+"\n... (truncated, 500 chars total)")
	assert.NotContains(t, p.User, strings.Repeat("x", 101))

	p = Build(pr, nil, nil, Options{MaxDiffChars: -1})
	assert.Contains(t, p.User, pr.Diff)
	assert.NotContains(t, p.User, "truncated")
}

func TestBuild_EmptyDescriptionAndLabels(t *testing.T) {
	pr := loginPR()
	pr.Description = "  "

	p := Build(pr, nil, nil, Options{})
	assert.Contains(t, p.User, "(no description)")
	assert.Contains(t, p.User, "The repository has no labels")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "fits", in: "abc", max: 3, want: "abc"},
		{name: "cut", in: "abcdef", max: 3, want: "abc\n... (truncated, 6 chars total)"},
		{name: "counts characters", in: "aéb", max: 3, want: "aéb"},
		{name: "keeps runes whole", in: "aébc", max: 2, want: "aé\n... (truncated, 4 chars total)"},
		{name: "zero budget", in: "héllo", max: 0, want: "\n... (truncated, 5 chars total)"},
		{name: "unlimited", in: "abcdef", max: -1, want: "abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.max))
		})
	}
}
