// Package vault gates the unblock controls behind a password check.
//
// No password is ever stored. Signup derives a key from the password and
// encrypts a fixed verifier token; login succeeds only when the stored
// blob decrypts back to that token. Losing the password makes the verifier
// permanently undecryptable; there is no recovery path. This is a
// self-imposed lock, not a multi-user credential system.
package vault

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"github.com/haukened/sitegate/internal/gate/common/log"
	"github.com/haukened/sitegate/internal/gate/repos/creds"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 4

// verifierToken is the fixed plaintext proving a derived key is correct.
const verifierToken = "verify"

var (
	// ErrWeakPassword rejects passwords shorter than MinPasswordLength.
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	// ErrIncorrectPassword covers both a wrong password and a corrupted
	// verifier. The two cases are deliberately indistinguishable.
	ErrIncorrectPassword = errors.New("incorrect password or corrupted data")
	// ErrNoPassword is returned when login is attempted before signup.
	ErrNoPassword = errors.New("no password has been set")
)

// Vault holds the session login state and mediates credential access.
// The loggedIn flag lives only in memory; process restart is the session
// boundary.
type Vault struct {
	mu       sync.Mutex
	store    creds.Store
	logger   log.Logger
	loggedIn bool
}

// New returns a Vault over the given credential store.
func New(store creds.Store, logger log.Logger) *Vault {
	return &Vault{store: store, logger: logger}
}

// Signup sets (or replaces) the password. The per-install salt is created
// on the first signup and reused afterwards; regenerating it would orphan
// nothing here since the verifier is rewritten, but a stable salt keeps
// the credential state single-sourced. Always leaves the vault logged out.
func (v *Vault) Signup(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	existing, ok, err := v.store.Load()
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	salt := existing.Salt
	if !ok || len(salt) != saltSize {
		salt, err = newSalt()
		if err != nil {
			return err
		}
	}

	key := deriveKey(password, salt)
	blob, err := seal(key, []byte(verifierToken))
	if err != nil {
		return fmt.Errorf("sealing verifier: %w", err)
	}

	if err := v.store.Save(creds.Credentials{Salt: salt, Verifier: blob}); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	v.loggedIn = false
	v.logger.Info(nil, "Vault password set")
	return nil
}

// Login verifies the password against the stored verifier and opens a
// session on success. Decryption failure and a wrong verifier plaintext
// both collapse into ErrIncorrectPassword to avoid oracle leakage.
func (v *Vault) Login(password string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	stored, ok, err := v.store.Load()
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	if !ok {
		return ErrNoPassword
	}

	key := deriveKey(password, stored.Salt)
	plaintext, err := open(key, stored.Verifier)
	if err != nil {
		v.logger.Debug(map[string]any{"error": err.Error()}, "Verifier decryption failed")
		return ErrIncorrectPassword
	}
	if subtle.ConstantTimeCompare(plaintext, []byte(verifierToken)) != 1 {
		return ErrIncorrectPassword
	}

	v.loggedIn = true
	return nil
}

// Logout ends the current session.
func (v *Vault) Logout() {
	v.mu.Lock()
	v.loggedIn = false
	v.mu.Unlock()
}

// LoggedIn reports whether a session is open.
func (v *Vault) LoggedIn() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loggedIn
}

// HasPassword reports whether signup has ever completed.
func (v *Vault) HasPassword() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok, err := v.store.Load()
	return ok, err
}
