// Package identity manages the long-lived endpoint keypair and the
// per-node author identity used to write document entries (spec.md §6.3).
//
// Keypair creation follows the same atomic tmp-file-then-rename idiom the
// teacher repo uses for its plugin settings files (internal/server/state.go
// saveKV/saveSettingsKV): write to a sibling ".tmp" file, fsync, then
// rename into place, so a crash mid-write never leaves a half-written key.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// EndpointID is the stable opaque identifier of a participant, derived
// from the hex-encoded public half of its keypair.
type EndpointID string

func (id EndpointID) String() string { return string(id) }

// Identity holds a node's long-lived keypair and derived endpoint id.
type Identity struct {
	EndpointID EndpointID
	public     ed25519.PublicKey
	private    ed25519.PrivateKey
}

// Sign signs msg with the node's private key, for authenticating writes
// at the substrate layer (beyond the scope of this package's callers).
func (id *Identity) Sign(msg []byte) []byte {
	return ed25519.Sign(id.private, msg)
}

// Load reads (or creates) the keypair at <root>/keypair. An existing
// keypair file is reused verbatim; a missing one is generated and written
// atomically.
func Load(root string) (*Identity, error) {
	keyPath := filepath.Join(root, "keypair")
	if b, err := os.ReadFile(keyPath); err == nil {
		return fromSeed(b)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("identity: read keypair: %w", err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate keypair: %w", err)
	}
	seed := priv.Seed()
	if err := writeFileAtomic(keyPath, seed); err != nil {
		return nil, fmt.Errorf("identity: persist keypair: %w", err)
	}
	return &Identity{EndpointID: endpointIDFromPublic(pub), public: pub, private: priv}, nil
}

// Ephemeral returns a freshly generated, unpersisted identity for
// in-memory mode (spec.md §6.3).
func Ephemeral() (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate ephemeral keypair: %w", err)
	}
	return &Identity{EndpointID: endpointIDFromPublic(pub), public: pub, private: priv}, nil
}

func fromSeed(seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity: invalid keypair file (want %d bytes, got %d)", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Identity{EndpointID: endpointIDFromPublic(pub), public: pub, private: priv}, nil
}

func endpointIDFromPublic(pub ed25519.PublicKey) EndpointID {
	return EndpointID(hex.EncodeToString(pub))
}

// writeFileAtomic writes data to a temp file beside path, fsyncs it, then
// renames it into place. Mirrors the teacher's saveSettingsKV idiom.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// AuthorID identifies the local author used for document writes. It is
// persisted separately from the endpoint keypair (spec.md §6.3
// "<root>/default.author") so that document-level authorship remains
// stable even if identity material is later rotated.
type AuthorID string

// LoadAuthor reads (or creates) the per-node author identity used for
// document writes. Reusing the same author across restarts preserves LWW
// determinism (spec.md §4.2).
func LoadAuthor(root string, id EndpointID) (AuthorID, error) {
	authorPath := filepath.Join(root, "default.author")
	if b, err := os.ReadFile(authorPath); err == nil {
		return AuthorID(b), nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("identity: read author: %w", err)
	}
	author := AuthorID(id) // default: author mirrors endpoint id until rotated
	if err := writeFileAtomic(authorPath, []byte(author)); err != nil {
		return "", fmt.Errorf("identity: persist author: %w", err)
	}
	return author, nil
}

// EphemeralAuthor derives an in-memory-only author id from id, used when
// no store path is provided.
func EphemeralAuthor(id EndpointID) AuthorID {
	return AuthorID(id)
}
