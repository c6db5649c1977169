// Package checksum verifies archive bytes against an expected digest.
package checksum

import (
	"bufio"
	"crypto/md5"  //nolint:gosec // legacy distributions still publish md5 files
	"crypto/sha1" //nolint:gosec // legacy distributions still publish sha1 files
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sort"
	"strings"

	"github.com/glorpus-work/distboot/pkg/errors"
	"lukechampine.com/blake3"
)

// DefaultAlgorithm is used when the configuration does not name one.
const DefaultAlgorithm = "sha256"

// Algorithm checks a byte stream against an expected hex digest.
type Algorithm interface {
	Name() string
	Verify(r io.Reader, expected string) (bool, error)
}

type hashAlgorithm struct {
	name    string
	newHash func() hash.Hash
}

func (a hashAlgorithm) Name() string { return a.name }

// Verify hashes r and compares the hex digest with expected, ignoring case
// and surrounding whitespace.
func (a hashAlgorithm) Verify(r io.Reader, expected string) (bool, error) {
	h := a.newHash()
	if _, err := io.Copy(h, r); err != nil {
		return false, errors.Wrapf(err, "hashing with %s", a.name)
	}
	return hex.EncodeToString(h.Sum(nil)) == normalizeHex(expected), nil
}

func normalizeHex(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Registry maps algorithm names to implementations.
type Registry struct {
	algorithms map[string]Algorithm
}

// NewRegistry returns a registry holding sha256, sha512, sha1, md5 and blake3.
func NewRegistry() *Registry {
	r := &Registry{algorithms: make(map[string]Algorithm)}
	r.Register(hashAlgorithm{name: "sha256", newHash: sha256.New})
	r.Register(hashAlgorithm{name: "sha512", newHash: sha512.New})
	r.Register(hashAlgorithm{name: "sha1", newHash: sha1.New})
	r.Register(hashAlgorithm{name: "md5", newHash: md5.New})
	r.Register(hashAlgorithm{name: "blake3", newHash: func() hash.Hash { return blake3.New(32, nil) }})
	return r
}

// Register adds or replaces an algorithm.
func (r *Registry) Register(a Algorithm) {
	r.algorithms[strings.ToLower(a.Name())] = a
}

// Lookup returns the algorithm called name. Names are case-insensitive and
// the empty name selects DefaultAlgorithm.
func (r *Registry) Lookup(name string) (Algorithm, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultAlgorithm
	}
	a, ok := r.algorithms[key]
	if !ok {
		return nil, fmt.Errorf("%q (supported: %s): %w", name, strings.Join(r.Names(), ", "), errors.ErrUnknownAlgorithm)
	}
	return a, nil
}

// Names lists the registered algorithms in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.algorithms))
	for name := range r.algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadValue extracts the expected digest from a checksum file: the first
// whitespace separated token of the first non-empty line. This accepts both a
// bare digest and "digest  filename" lines written by sha256sum.
func ReadValue(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 {
			return fields[0], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", errors.Wrap(err, "failed to read checksum")
	}
	return "", fmt.Errorf("checksum file is empty: %w", errors.ErrChecksumMismatch)
}
