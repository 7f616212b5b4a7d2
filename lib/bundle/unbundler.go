// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/mosaic/lib/htype"
	"github.com/bureau-foundation/mosaic/lib/mosaic"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// Hook intercepts association refs during unbundling. HandleAssociation
// returns true when it has consumed the association; later hooks and
// the default registration are then skipped.
type Hook interface {
	HandleAssociation(r ref.Ref, record *mosaic.Record) (bool, error)
}

// HookFunc adapts a function to Hook.
type HookFunc func(r ref.Ref, record *mosaic.Record) (bool, error)

func (f HookFunc) HandleAssociation(r ref.Ref, record *mosaic.Record) (bool, error) {
	return f(r, record)
}

// CapsuleStore is the content store as the unbundler sees it.
type CapsuleStore interface {
	RegisterCapsule(c mosaic.Capsule) (ref.Ref, error)
	ResolveRef(r ref.Ref) (*mosaic.Record, error)
}

// AssociationRegistrar receives associations no hook claimed.
type AssociationRegistrar interface {
	RegisterAssociation(piece *htype.RecordValue) error
}

// Unbundler registers received bundles.
type Unbundler struct {
	Store        CapsuleStore
	Associations AssociationRegistrar
	Hooks        []Hook
	Logger       *slog.Logger
}

// RegisterBundle registers every capsule of b into the store, then
// offers each association ref to the hooks in order and registers the
// unclaimed ones. Association refs the store cannot resolve are logged
// and skipped. Errors from hooks and registration do not stop the
// remaining associations; they are joined into the returned error.
func (u *Unbundler) RegisterBundle(b *Bundle) error {
	logger := u.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	for i, capsule := range b.Capsules {
		if _, err := u.Store.RegisterCapsule(capsule); err != nil {
			return fmt.Errorf("registering capsule %d: %w", i, err)
		}
	}

	var errs []error
	for _, r := range b.Associations {
		record, err := u.Store.ResolveRef(r)
		if err != nil {
			logger.Warn("skipping unresolvable association", "ref", r.Short(), "error", err)
			continue
		}
		if err := u.dispatch(r, record); err != nil {
			errs = append(errs, fmt.Errorf("association %s: %w", r.Short(), err))
		}
	}
	logger.Debug("registered bundle",
		"roots", len(b.Roots),
		"capsules", len(b.Capsules),
		"associations", len(b.Associations),
	)
	return errors.Join(errs...)
}

func (u *Unbundler) dispatch(r ref.Ref, record *mosaic.Record) error {
	for _, hook := range u.Hooks {
		handled, err := hook.HandleAssociation(r, record)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}
	if u.Associations == nil {
		return nil
	}
	piece, ok := record.Value.(*htype.RecordValue)
	if !ok {
		return fmt.Errorf("%w: association decoded as %T", htype.ErrValueShape, record.Value)
	}
	return u.Associations.RegisterAssociation(piece)
}
