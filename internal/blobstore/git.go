package blobstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Revision is one commit touching a blob.
type Revision struct {
	Hash    string
	Message string
	When    time.Time
}

// Git is a Dir whose root is also a git work tree. Every Save and Delete is
// committed, so previous versions of a blob stay readable with OpenAt.
type Git struct {
	dir   *Dir
	repo  *gogit.Repository
	name  string
	email string
	mu    sync.Mutex
}

// OpenGit opens the repository at root, initializing it when needed. name
// and email sign the commits.
func OpenGit(root, name, email string) (*Git, error) {
	d, err := NewDir(root)
	if err != nil {
		return nil, err
	}
	repo, err := gogit.PlainOpen(root)
	if err != nil {
		if repo, err = gogit.PlainInit(root, false); err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = name
		cfg.User.Email = email
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	}
	return &Git{dir: d, repo: repo, name: name, email: email}, nil
}

// Dir returns the underlying directory store.
func (g *Git) Dir() *Dir {
	return g.dir
}

// Save writes content at p and commits it.
func (g *Git) Save(p string, content []byte) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	saved, err := g.dir.Save(p, content)
	if err != nil {
		return "", err
	}
	w, err := g.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(saved); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", saved, err)
	}
	return saved, g.commit(w, "save "+saved, saved)
}

// Delete removes the file at p and commits the removal. A missing file is
// not an error.
func (g *Git) Delete(p string) error {
	if err := ValidatePath(p); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := os.Stat(g.dir.abs(p)); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	w, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Remove(p); err != nil {
		if errors.Is(err, index.ErrEntryNotFound) {
			// Never committed.
			return g.dir.Delete(p)
		}
		return fmt.Errorf("failed to remove %s: %w", p, err)
	}
	return g.commit(w, "delete "+p, p)
}

// Open opens the current version of p.
func (g *Git) Open(p string) (io.ReadCloser, error) {
	return g.dir.Open(p)
}

// List implements Lister.
func (g *Git) List() ([]string, error) {
	return g.dir.List()
}

// History returns up to n commits touching p, newest first.
func (g *Git) History(p string, n int) ([]Revision, error) {
	if err := ValidatePath(p); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	iter, err := g.repo.Log(&gogit.LogOptions{FileName: &p})
	if err != nil {
		// No commits yet.
		return nil, nil
	}
	defer iter.Close()
	var out []Revision
	for range n {
		c, err := iter.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read history of %s: %w", p, err)
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		out = append(out, Revision{Hash: c.Hash.String(), Message: subject, When: c.Author.When})
	}
	return out, nil
}

// OpenAt opens p as it was at commit hash.
func (g *Git) OpenAt(hash, p string) (io.ReadCloser, error) {
	if err := ValidatePath(p); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := g.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}
	f, err := c.File(p)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", ErrNotFound, p, hash)
		}
		return nil, fmt.Errorf("failed to get %s at %s: %w", p, hash, err)
	}
	return f.Reader()
}

// commit records the staged change of p, if any.
func (g *Git) commit(w *gogit.Worktree, msg, p string) error {
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if st, ok := status[p]; !ok || st.Staging == gogit.Unmodified || st.Staging == gogit.Untracked {
		return nil
	}
	sig := &object.Signature{Name: g.name, Email: g.email, When: time.Now()}
	if _, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
