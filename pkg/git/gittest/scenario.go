// Package gittest builds in-memory Git repositories for tests. Repositories
// use memory storage and a billy memfs worktree, so no test touches disk.
package gittest

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

// Scenario is an in-memory repository under construction. Commit times are
// strictly increasing so history ordering is deterministic.
type Scenario struct {
	Repo     *gogit.Repository
	worktree *gogit.Worktree
	clock    time.Time
	counter  int
}

// New initializes an empty repository on the default branch (master).
func New(t *testing.T) *Scenario {
	t.Helper()

	repo, err := gogit.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	return &Scenario{
		Repo:     repo,
		worktree: worktree,
		clock:    time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Commit writes a new file and commits it with the given message, returning
// the commit SHA.
func (s *Scenario) Commit(t *testing.T, message string) string {
	t.Helper()

	s.counter++
	s.clock = s.clock.Add(time.Minute)

	name := fmt.Sprintf("file-%d.txt", s.counter)

	file, err := s.worktree.Filesystem.Create(name)
	require.NoError(t, err)

	_, err = file.Write([]byte(message))
	require.NoError(t, err)
	require.NoError(t, file.Close())

	_, err = s.worktree.Add(name)
	require.NoError(t, err)

	hash, err := s.worktree.Commit(message, &gogit.CommitOptions{
		Author:    s.signature(),
		Committer: s.signature(),
	})
	require.NoError(t, err)

	return hash.String()
}

// SetUser configures the committer identity, so commits created through the
// repository port without an explicit author succeed.
func (s *Scenario) SetUser(t *testing.T, name, email string) {
	t.Helper()

	cfg, err := s.Repo.Config()
	require.NoError(t, err)

	cfg.User.Name = name
	cfg.User.Email = email

	require.NoError(t, s.Repo.SetConfig(cfg))
}

// WriteFile writes a file into the worktree without staging it.
func (s *Scenario) WriteFile(t *testing.T, name, content string) {
	t.Helper()

	file, err := s.worktree.Filesystem.Create(name)
	require.NoError(t, err)

	_, err = file.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

// Tag creates a lightweight tag on HEAD.
func (s *Scenario) Tag(t *testing.T, name string) {
	t.Helper()

	head, err := s.Repo.Head()
	require.NoError(t, err)

	_, err = s.Repo.CreateTag(name, head.Hash(), nil)
	require.NoError(t, err)
}

// AnnotatedTag creates an annotated tag on HEAD.
func (s *Scenario) AnnotatedTag(t *testing.T, name, message string) {
	t.Helper()

	head, err := s.Repo.Head()
	require.NoError(t, err)

	_, err = s.Repo.CreateTag(name, head.Hash(), &gogit.CreateTagOptions{
		Tagger:  s.signature(),
		Message: message,
	})
	require.NoError(t, err)
}

// Checkout creates the branch at HEAD when missing and switches to it.
func (s *Scenario) Checkout(t *testing.T, branch string) {
	t.Helper()

	reference := plumbing.NewBranchReferenceName(branch)

	err := s.worktree.Checkout(&gogit.CheckoutOptions{Branch: reference})
	if err != nil {
		err = s.worktree.Checkout(&gogit.CheckoutOptions{Branch: reference, Create: true})
	}

	require.NoError(t, err)
}

// Head returns the SHA HEAD points to.
func (s *Scenario) Head(t *testing.T) string {
	t.Helper()

	head, err := s.Repo.Head()
	require.NoError(t, err)

	return head.Hash().String()
}

// HasTag reports whether a tag with the given name exists.
func (s *Scenario) HasTag(t *testing.T, name string) bool {
	t.Helper()

	_, err := s.Repo.Tag(name)

	return err == nil
}

func (s *Scenario) signature() *object.Signature {
	return &object.Signature{
		Name:  "Jane Doe",
		Email: "jdoe@example.com",
		When:  s.clock,
	}
}
