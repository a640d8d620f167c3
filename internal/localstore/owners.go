package localstore

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// OwnerKeyPrefix prefixes every owner override key.
const OwnerKeyPrefix = "couponOwners:"

// Session keys.
const (
	TokenKey      = "token"
	IssuerNameKey = "issuerName"
)

// ErrNotListable is returned by OwnerOverrides.All on stores without key listing.
var ErrNotListable = errors.New("store cannot list keys")

// OwnerOverrides maps coupon ids to locally entered owner labels.
type OwnerOverrides struct {
	store Store
}

// NewOwnerOverrides wraps store.
func NewOwnerOverrides(store Store) *OwnerOverrides {
	return &OwnerOverrides{store: store}
}

// Get returns the override of a coupon.
func (o *OwnerOverrides) Get(ctx context.Context, couponID int64) (string, bool, error) {
	return o.store.Get(ctx, ownerKey(couponID))
}

// Set records an override.
func (o *OwnerOverrides) Set(ctx context.Context, couponID int64, owner string) error {
	return o.store.Set(ctx, ownerKey(couponID), owner)
}

// Delete removes an override.
func (o *OwnerOverrides) Delete(ctx context.Context, couponID int64) error {
	return o.store.Delete(ctx, ownerKey(couponID))
}

// All returns every override.
func (o *OwnerOverrides) All(ctx context.Context) (map[int64]string, error) {
	lister, ok := o.store.(Lister)
	if !ok {
		return nil, ErrNotListable
	}
	keys, err := lister.Keys(ctx, OwnerKeyPrefix)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(keys))
	for _, key := range keys {
		id, err := strconv.ParseInt(strings.TrimPrefix(key, OwnerKeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		v, ok, err := o.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[id] = v
		}
	}
	return out, nil
}

func ownerKey(couponID int64) string {
	return OwnerKeyPrefix + strconv.FormatInt(couponID, 10)
}

// Session persists the issuer token and display name.
type Session struct {
	store Store
}

// NewSession wraps store.
func NewSession(store Store) *Session {
	return &Session{store: store}
}

// Token returns the stored token, or "" when logged out. It implements client.TokenSource.
func (s *Session) Token(ctx context.Context) (string, error) {
	v, _, err := s.store.Get(ctx, TokenKey)
	return v, err
}

// IssuerName returns the stored display name.
func (s *Session) IssuerName(ctx context.Context) (string, error) {
	v, _, err := s.store.Get(ctx, IssuerNameKey)
	return v, err
}

// Save stores a fresh login.
func (s *Session) Save(ctx context.Context, token, issuerName string) error {
	if err := s.store.Set(ctx, TokenKey, token); err != nil {
		return err
	}
	return s.store.Set(ctx, IssuerNameKey, issuerName)
}

// Clear logs out.
func (s *Session) Clear(ctx context.Context) error {
	return errors.Join(s.store.Delete(ctx, TokenKey), s.store.Delete(ctx, IssuerNameKey))
}
