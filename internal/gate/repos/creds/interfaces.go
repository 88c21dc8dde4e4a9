// Package creds defines persistence for the password vault's credential
// blob. The password itself is never stored; only the salt and the
// encrypted verifier are.
package creds

// Credentials is the persisted credential state: the per-install KDF salt
// and the verifier blob (nonce-prefixed ciphertext of a known token).
type Credentials struct {
	Salt     []byte
	Verifier []byte
}

// Store abstracts durable credential storage.
type Store interface {
	// Load returns the stored credentials. The boolean is false when no
	// password has ever been set.
	Load() (Credentials, bool, error)
	Save(Credentials) error
	Close() error
}
