package git

import (
	"errors"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	transporthttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/jkroepke/nyx/pkg/errs"
	"github.com/rs/zerolog"
)

// GoGitRepository implements Repository on top of go-git.
type GoGitRepository struct {
	logger zerolog.Logger
	repo   *gogit.Repository
}

// Open opens the Git repository in the given directory.
func Open(logger zerolog.Logger, dir string) (*GoGitRepository, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return nil, errs.NewGitError(errs.GitIO, err, "cannot open repository in %s", dir)
	}

	return &GoGitRepository{logger: logger, repo: repo}, nil
}

// Clone clones the repository at uri into dir. User and password are
// optional basic-auth credentials.
func Clone(logger zerolog.Logger, dir, uri, user, password string) (*GoGitRepository, error) {
	options := &gogit.CloneOptions{URL: uri}
	if user != "" || password != "" {
		options.Auth = &transporthttp.BasicAuth{Username: user, Password: password}
	}

	repo, err := gogit.PlainClone(dir, false, options)
	if err != nil {
		return nil, mapTransportError(err, "cannot clone %s into %s", uri, dir)
	}

	return &GoGitRepository{logger: logger, repo: repo}, nil
}

// From wraps an already opened go-git repository. It is used by embedders
// that construct their own storage, such as in-memory repositories.
func From(logger zerolog.Logger, repo *gogit.Repository) *GoGitRepository {
	return &GoGitRepository{logger: logger, repo: repo}
}

func (g *GoGitRepository) CurrentBranch() (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", errs.NewGitError(errs.GitNotFound, err, "repository has no HEAD")
		}

		return "", errs.NewGitError(errs.GitIO, err, "cannot resolve HEAD")
	}

	if !head.Name().IsBranch() {
		// Detached HEAD is surfaced as an empty branch name.
		return "", nil
	}

	return head.Name().Short(), nil
}

func (g *GoGitRepository) LatestCommit() (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return "", errs.NewGitError(errs.GitNotFound, err, "repository has no commits")
	}

	return head.Hash().String(), nil
}

func (g *GoGitRepository) RootCommit() (string, error) {
	latest, err := g.LatestCommit()
	if err != nil {
		return "", err
	}

	hash := plumbing.NewHash(latest)

	for {
		commit, err := g.repo.CommitObject(hash)
		if err != nil {
			return "", errs.NewGitError(errs.GitIO, err, "cannot read commit %s", hash)
		}

		if len(commit.ParentHashes) == 0 {
			return commit.Hash.String(), nil
		}

		hash = commit.ParentHashes[0]
	}
}

func (g *GoGitRepository) IsClean() (bool, error) {
	worktree, err := g.repo.Worktree()
	if err != nil {
		return false, errs.NewGitError(errs.GitIO, err, "cannot get worktree")
	}

	status, err := worktree.Status()
	if err != nil {
		return false, errs.NewGitError(errs.GitIO, err, "cannot read worktree status")
	}

	return status.IsClean(), nil
}

func (g *GoGitRepository) Remotes() ([]string, error) {
	remotes, err := g.repo.Remotes()
	if err != nil {
		return nil, errs.NewGitError(errs.GitIO, err, "cannot list remotes")
	}

	names := make([]string, 0, len(remotes))
	for _, remote := range remotes {
		names = append(names, remote.Config().Name)
	}

	return names, nil
}

func (g *GoGitRepository) RemoteURL(name string) (string, error) {
	remote, err := g.repo.Remote(name)
	if err != nil {
		return "", errs.NewGitError(errs.GitNotFound, err, "remote %s is not configured", name)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errs.NewGitError(errs.GitNotFound, nil, "remote %s has no URL", name)
	}

	return urls[0], nil
}

func (g *GoGitRepository) CommitTags(sha string) ([]Tag, error) {
	tagMap, err := g.tagsByCommit()
	if err != nil {
		return nil, err
	}

	return tagMap[sha], nil
}

// tagsByCommit resolves every tag reference to the commit it points to,
// following annotated tag objects to their target.
func (g *GoGitRepository) tagsByCommit() (map[string][]Tag, error) {
	refs, err := g.repo.Tags()
	if err != nil {
		return nil, errs.NewGitError(errs.GitIO, err, "cannot list tags")
	}

	tagMap := make(map[string][]Tag)

	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()

		if tagObject, err := g.repo.TagObject(ref.Hash()); err == nil {
			target := tagObject.Target.String()
			tagMap[target] = append(tagMap[target], Tag{Name: name, Target: target, Annotated: true})

			return nil
		}

		target := ref.Hash().String()
		tagMap[target] = append(tagMap[target], Tag{Name: name, Target: target, Annotated: false})

		return nil
	})
	if err != nil {
		return nil, errs.NewGitError(errs.GitIO, err, "cannot resolve tags")
	}

	return tagMap, nil
}

func (g *GoGitRepository) WalkHistory(start, end string, visit func(Commit) bool) error {
	if start == "" {
		latest, err := g.LatestCommit()
		if err != nil {
			return err
		}

		start = latest
	}

	tagMap, err := g.tagsByCommit()
	if err != nil {
		return err
	}

	hash := plumbing.NewHash(start)

	for {
		commit, err := g.repo.CommitObject(hash)
		if err != nil {
			return errs.NewGitError(errs.GitIO, err, "history walk failed at %s", hash)
		}

		if !visit(toCommit(commit, tagMap[commit.Hash.String()])) {
			return nil
		}

		if len(commit.ParentHashes) == 0 {
			return nil
		}

		hash = commit.ParentHashes[0]
		if end != "" && hash.String() == end {
			return nil
		}
	}
}

func (g *GoGitRepository) Add(paths []string) error {
	worktree, err := g.repo.Worktree()
	if err != nil {
		return errs.NewGitError(errs.GitIO, err, "cannot get worktree")
	}

	if len(paths) == 0 {
		if err := worktree.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
			return errs.NewGitError(errs.GitIO, err, "cannot stage worktree changes")
		}

		return nil
	}

	for _, path := range paths {
		if _, err := worktree.Add(path); err != nil {
			return errs.NewGitError(errs.GitIO, err, "cannot stage %s", path)
		}
	}

	return nil
}

func (g *GoGitRepository) Commit(message string, author, committer *Identity) (Commit, error) {
	worktree, err := g.repo.Worktree()
	if err != nil {
		return Commit{}, errs.NewGitError(errs.GitIO, err, "cannot get worktree")
	}

	options := &gogit.CommitOptions{}
	if author != nil {
		options.Author = signature(*author)
	}

	if committer != nil {
		options.Committer = signature(*committer)
	}

	hash, err := worktree.Commit(message, options)
	if err != nil {
		return Commit{}, errs.NewGitError(errs.GitIO, err, "cannot commit")
	}

	commit, err := g.repo.CommitObject(hash)
	if err != nil {
		return Commit{}, errs.NewGitError(errs.GitIO, err, "cannot read new commit %s", hash)
	}

	return toCommit(commit, nil), nil
}

func (g *GoGitRepository) CreateTag(name, message, target string, tagger *Identity) (Tag, error) {
	if target == "" {
		latest, err := g.LatestCommit()
		if err != nil {
			return Tag{}, err
		}

		target = latest
	}

	var options *gogit.CreateTagOptions
	if message != "" {
		options = &gogit.CreateTagOptions{Message: message}
		if tagger != nil {
			options.Tagger = signature(*tagger)
		}
	}

	if _, err := g.repo.CreateTag(name, plumbing.NewHash(target), options); err != nil {
		return Tag{}, errs.NewGitError(errs.GitIO, err, "cannot create tag %s", name)
	}

	return Tag{Name: name, Target: target, Annotated: message != ""}, nil
}

func (g *GoGitRepository) Push(remote, user, password string) (string, error) {
	if remote == "" {
		remote = gogit.DefaultRemoteName
	}

	branch, err := g.CurrentBranch()
	if err != nil {
		return "", err
	}

	if branch == "" {
		return "", errs.NewGitError(errs.GitDetached, nil, "cannot push from a detached HEAD")
	}

	options := &gogit.PushOptions{
		RemoteName: remote,
		RefSpecs: []gitconfig.RefSpec{
			gitconfig.RefSpec("refs/heads/" + branch + ":refs/heads/" + branch),
			gitconfig.RefSpec("refs/tags/*:refs/tags/*"),
		},
	}
	if user != "" || password != "" {
		options.Auth = &transporthttp.BasicAuth{Username: user, Password: password}
	}

	if err := g.repo.Push(options); err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return "", mapTransportError(err, "cannot push to %s", remote)
	}

	g.logger.Debug().Str("remote", remote).Str("branch", branch).Msg("pushed branch and tags")

	return remote, nil
}

func signature(identity Identity) *object.Signature {
	return &object.Signature{Name: identity.Name, Email: identity.Email, When: time.Now()}
}

func toCommit(commit *object.Commit, tags []Tag) Commit {
	parents := make([]string, 0, len(commit.ParentHashes))
	for _, parent := range commit.ParentHashes {
		parents = append(parents, parent.String())
	}

	full := commit.Message
	short, _, _ := strings.Cut(full, "\n")

	return Commit{
		SHA:          commit.Hash.String(),
		Date:         commit.Committer.When.UnixMilli(),
		Parents:      parents,
		AuthorAction: toAction(commit.Author),
		CommitAction: toAction(commit.Committer),
		Message:      Message{Full: full, Short: short},
		Tags:         tags,
	}
}

func toAction(sig object.Signature) Action {
	_, offsetSeconds := sig.When.Zone()

	return Action{
		Identity:  Identity{Name: sig.Name, Email: sig.Email},
		TimeStamp: TimeStamp{TimeStamp: sig.When.UnixMilli(), Offset: offsetSeconds / 60},
	}
}

func mapTransportError(err error, msg string, args ...any) error {
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return errs.NewGitError(errs.GitAuth, err, msg, args...)
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return errs.NewGitError(errs.GitNotFound, err, msg, args...)
	default:
		return errs.NewGitError(errs.GitProtocol, err, msg, args...)
	}
}
