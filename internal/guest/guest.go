// Package guest derives the fixed universe of guest identities and maps each
// identity to its storage volume name and back.
package guest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// IdentityPrefix is prepended to the slot index to form an identity.
	IdentityPrefix = "guest"
	// VolumePrefix is prepended to an identity to form its volume name.
	VolumePrefix = "jupyterhub-"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrNotGuest             = errors.New("not a guest identity")
)

// Enumerate returns guest0 … guest(n-1). n must be positive.
func Enumerate(n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("guest pool size %d: %w", n, ErrInvalidConfiguration)
	}
	ids := make([]string, n)
	for i := range ids {
		ids[i] = IdentityPrefix + strconv.Itoa(i)
	}
	return ids, nil
}

// Universe is Enumerate as a set.
func Universe(n int) (map[string]struct{}, error) {
	ids, err := Enumerate(n)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Index returns the slot index encoded in id, or false if id is not of the
// form guest<i> with a canonical decimal i.
func Index(id string) (int, bool) {
	digits, ok := strings.CutPrefix(id, IdentityPrefix)
	if !ok || digits == "" {
		return 0, false
	}
	i, err := strconv.Atoi(digits)
	if err != nil || i < 0 || strconv.Itoa(i) != digits {
		return 0, false
	}
	return i, true
}

// InUniverse reports whether id is one of the n guest identities.
func InUniverse(id string, n int) bool {
	i, ok := Index(id)
	return ok && i < n
}

// CheckMember returns ErrInvalidConfiguration when n is not a usable pool
// size and ErrNotGuest when id is not one of the n guest identities.
func CheckMember(id string, n int) error {
	if n <= 0 {
		return fmt.Errorf("guest pool size %d: %w", n, ErrInvalidConfiguration)
	}
	if !InUniverse(id, n) {
		return fmt.Errorf("%q: %w", id, ErrNotGuest)
	}
	return nil
}

func VolumeName(id string) string {
	return VolumePrefix + id
}

// IdentityFromVolume strips the volume prefix. Names without the guest
// volume prefix are not decoded.
func IdentityFromVolume(name string) (string, bool) {
	if !strings.HasPrefix(name, VolumePrefix+IdentityPrefix) {
		return "", false
	}
	return strings.TrimPrefix(name, VolumePrefix), true
}
