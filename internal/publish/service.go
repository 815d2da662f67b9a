// Package publish turns an approved submission into a branch and commit
// against a local clone of the site source repository, and optionally opens
// a pull request on the hosted remote. Publishing is best-effort: the
// approval that triggers it never depends on its outcome.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"designflow/api/internal/store"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Config points the publisher at the site source clone and, optionally, the
// hosted remote for pull-request creation.
type Config struct {
	RepoDir    string
	DataFile   string // path of the taxonomy source file inside the repo
	BaseBranch string

	// Remote pull-request settings; all empty means local-only publishing.
	RemoteName  string
	GitHubOwner string
	GitHubRepo  string
	GitHubToken string
}

// Result describes what publishing produced. PRURL and PRNumber are zero
// when no remote is configured.
type Result struct {
	Branch   string
	Commit   string
	PRURL    string
	PRNumber int
}

type Service struct {
	cfg Config
	mu  sync.Mutex

	openPR prOpener // swapped out in tests
}

func New(cfg Config) *Service {
	if cfg.BaseBranch == "" {
		cfg.BaseBranch = "main"
	}
	if cfg.RemoteName == "" {
		cfg.RemoteName = "origin"
	}
	s := &Service{cfg: cfg}
	s.openPR = s.openGitHubPR
	return s
}

// IsConfigured reports whether a site repo clone is available at all.
func (s *Service) IsConfigured() bool {
	if s.cfg.RepoDir == "" || s.cfg.DataFile == "" {
		return false
	}
	_, err := os.Stat(s.cfg.RepoDir)
	return err == nil
}

// Publish creates an add-tool branch off the base branch, inserts the tool
// entry into the taxonomy source file, and commits. When a GitHub remote is
// configured the branch is pushed and a pull request opened.
func (s *Service) Publish(ctx context.Context, submission store.Submission) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.cfg.RepoDir)
	if err != nil {
		return Result{}, fmt.Errorf("open site repo: %w", err)
	}

	branchName := fmt.Sprintf("add-tool-%d-%d", submission.ID, time.Now().Unix())
	if err := s.createBranch(repo, branchName); err != nil {
		return Result{}, err
	}

	dataPath := filepath.Join(s.cfg.RepoDir, s.cfg.DataFile)
	contents, err := os.ReadFile(dataPath)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", s.cfg.DataFile, err)
	}

	updated, err := addToolToSection(string(contents), submission)
	if err != nil {
		return Result{}, err
	}
	if err := os.WriteFile(dataPath, []byte(updated), 0o644); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", s.cfg.DataFile, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return Result{}, fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Add(s.cfg.DataFile); err != nil {
		return Result{}, fmt.Errorf("git add %s: %w", s.cfg.DataFile, err)
	}

	hash, err := worktree.Commit(fmt.Sprintf("Add tool: %s", submission.Name), &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Design Workflow Bot",
			Email: "bot@local.designflow.dev",
			When:  time.Now(),
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("commit tool entry: %w", err)
	}

	result := Result{Branch: branchName, Commit: hash.String()[:7]}

	if s.cfg.GitHubToken != "" && s.cfg.GitHubOwner != "" && s.cfg.GitHubRepo != "" {
		if err := s.pushBranch(ctx, repo, branchName); err != nil {
			return result, fmt.Errorf("push branch: %w", err)
		}
		prURL, prNumber, err := s.openPR(ctx, branchName, submission)
		if err != nil {
			return result, fmt.Errorf("open pull request: %w", err)
		}
		result.PRURL = prURL
		result.PRNumber = prNumber
	}

	return result, nil
}

func (s *Service) createBranch(repo *git.Repository, branchName string) error {
	baseRef, err := repo.Reference(plumbing.NewBranchReferenceName(s.cfg.BaseBranch), true)
	if err != nil {
		return fmt.Errorf("resolve base branch %s: %w", s.cfg.BaseBranch, err)
	}

	branchRef := plumbing.NewBranchReferenceName(branchName)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(branchRef, baseRef.Hash())); err != nil {
		return fmt.Errorf("create branch ref: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: branchRef, Force: true}); err != nil {
		return fmt.Errorf("checkout branch %s: %w", branchName, err)
	}
	return nil
}

func (s *Service) pushBranch(ctx context.Context, repo *git.Repository, branchName string) error {
	refSpec := fmt.Sprintf("refs/heads/%s:refs/heads/%s", branchName, branchName)
	opts := &git.PushOptions{
		RemoteName: s.cfg.RemoteName,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(refSpec)},
	}
	if remote, err := repo.Remote(s.cfg.RemoteName); err == nil {
		urls := remote.Config().URLs
		if len(urls) > 0 && strings.HasPrefix(urls[0], "http") {
			opts.Auth = &githttp.BasicAuth{
				Username: "x-access-token",
				Password: s.cfg.GitHubToken,
			}
		}
	}
	err := repo.PushContext(ctx, opts)
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

type prOpener func(ctx context.Context, branch string, submission store.Submission) (string, int, error)

// openGitHubPR opens a pull request for the pushed branch via the GitHub
// REST API.
func (s *Service) openGitHubPR(ctx context.Context, branch string, submission store.Submission) (string, int, error) {
	body := map[string]any{
		"title": fmt.Sprintf("Add tool: %s", submission.Name),
		"head":  branch,
		"base":  s.cfg.BaseBranch,
		"body": fmt.Sprintf(
			"Adds **%s** to phase %d (%s), section %q.\n\nURL: %s\n\nSubmitted by %s.",
			submission.Name, submission.PhaseNumber, submission.PhaseTitle,
			submission.SectionTitle, submission.URL, submission.SubmittedByName,
		),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", 0, err
	}

	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/pulls", s.cfg.GitHubOwner, s.cfg.GitHubRepo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.GitHubToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", 0, fmt.Errorf("github pulls API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var pr struct {
		HTMLURL string `json:"html_url"`
		Number  int    `json:"number"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", 0, fmt.Errorf("decode pulls response: %w", err)
	}
	return pr.HTMLURL, pr.Number, nil
}

var errNoInsertionPoint = errors.New("no insertion point for tool entry")

// addToolToSection inserts a tool entry at the end of the tools array of the
// matching phase/section in the taxonomy source file. The scan walks lines
// looking for the phase number, then the section title, then the closing
// bracket of its tools array.
func addToolToSection(content string, submission store.Submission) (string, error) {
	entry := fmt.Sprintf(
		"          {\n"+
			"            name: %q,\n"+
			"            icon: %q,\n"+
			"            url: %q,\n"+
			"            description: %q,\n"+
			"          },",
		submission.Name,
		submission.Icon,
		submission.URL,
		submission.Description,
	)

	lines := strings.Split(content, "\n")
	inPhase := false
	inSection := false
	insertAt := -1

	for i, line := range lines {
		if strings.Contains(line, fmt.Sprintf("number: %d,", submission.PhaseNumber)) {
			inPhase = true
		}
		if inPhase && strings.Contains(line, fmt.Sprintf("title: %q", submission.SectionTitle)) {
			inSection = true
		}
		if inSection && strings.Contains(line, "tools: [") {
			for j := i + 1; j < len(lines); j++ {
				if strings.TrimSpace(lines[j]) == "]," {
					insertAt = j
					break
				}
			}
			break
		}
	}

	if insertAt < 0 {
		return "", fmt.Errorf("%w: phase %d section %q", errNoInsertionPoint, submission.PhaseNumber, submission.SectionTitle)
	}

	updated := make([]string, 0, len(lines)+1)
	updated = append(updated, lines[:insertAt]...)
	updated = append(updated, entry)
	updated = append(updated, lines[insertAt:]...)
	return strings.Join(updated, "\n"), nil
}
