package engine

import (
	"errors"
	"net/mail"
	"strings"
	"sync"
)

// ErrInvalidRecipient indicates an address that does not parse as an email.
var ErrInvalidRecipient = errors.New("invalid recipient address")

// RecipientRegistry is the mutable set of notification target addresses
// consulted at dispatch time. Address validation happens here, not in the
// dispatcher. Insertion order is preserved for stable snapshots.
type RecipientRegistry struct {
	mu        sync.RWMutex
	addresses []string
	index     map[string]struct{}
}

// NewRecipientRegistry returns an empty registry.
func NewRecipientRegistry(seed ...string) *RecipientRegistry {
	r := &RecipientRegistry{index: make(map[string]struct{})}
	for _, address := range seed {
		// Seed entries from config are best-effort; bad ones are skipped.
		_ = r.Add(address)
	}
	return r
}

// Add inserts an address if not already present. Adding an existing address
// is a no-op.
func (r *RecipientRegistry) Add(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrInvalidRecipient
	}
	if _, err := mail.ParseAddress(address); err != nil {
		return ErrInvalidRecipient
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[address]; ok {
		return nil
	}
	r.index[address] = struct{}{}
	r.addresses = append(r.addresses, address)
	return nil
}

// Remove deletes an address if present; removing a non-member is a no-op.
func (r *RecipientRegistry) Remove(address string) {
	address = strings.TrimSpace(address)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[address]; !ok {
		return
	}
	delete(r.index, address)
	for i, existing := range r.addresses {
		if existing == address {
			r.addresses = append(r.addresses[:i], r.addresses[i+1:]...)
			break
		}
	}
}

// Snapshot returns a stable copy of the current addresses. Mutations after a
// snapshot is taken do not affect an in-flight dispatch using it.
func (r *RecipientRegistry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.addresses))
	copy(out, r.addresses)
	return out
}

// Len reports the number of registered addresses.
func (r *RecipientRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.addresses)
}
