package identitysvc

import (
	"context"
	"sync"

	"github.com/examsurveil/backend/core/user"
)

// LocalDirectory keeps accounts in memory. It serves development setups without a user pool,
// where sign-in relies on locally signed tokens.
type LocalDirectory struct {
	mu       sync.Mutex
	accounts map[string]struct{}
}

var _ user.Directory = (*LocalDirectory)(nil)

func NewLocalDirectory() *LocalDirectory {
	return &LocalDirectory{accounts: make(map[string]struct{})}
}

func (d *LocalDirectory) CreateUser(_ context.Context, email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.accounts[email]; ok {
		return user.ErrDirectoryUserExists
	}
	d.accounts[email] = struct{}{}
	return nil
}

func (d *LocalDirectory) DeleteUser(_ context.Context, email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.accounts[email]; !ok {
		return user.ErrDirectoryUserNotFound
	}
	delete(d.accounts, email)
	return nil
}

// Has reports whether an account exists for email.
func (d *LocalDirectory) Has(email string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.accounts[email]
	return ok
}
