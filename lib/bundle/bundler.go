// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/mosaic/lib/association"
	"github.com/bureau-foundation/mosaic/lib/htype"
	"github.com/bureau-foundation/mosaic/lib/mosaic"
	"github.com/bureau-foundation/mosaic/lib/picker"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// DefaultMaxIterations caps the refs a single Bundle call pops.
const DefaultMaxIterations = 100000

// ErrIterationLimit is returned when a walk pops more refs than the
// bundler's iteration cap, which indicates a cyclic or malformed
// graph.
var ErrIterationLimit = errors.New("bundle: iteration limit exceeded")

// Store is the content store as the bundler sees it. PutTyped is used
// to obtain the refs of associations.
type Store interface {
	ResolveRef(r ref.Ref) (*mosaic.Record, error)
	PutTyped(t htype.Type, value any) (ref.Ref, error)
}

// AssociationSource supplies the associations attached to a base ref.
type AssociationSource interface {
	AssociationsFor(bases ...ref.Ref) []association.Association
}

// RefPicker extracts the refs embedded in a value.
type RefPicker interface {
	PickRefs(value any, t htype.Type) (ref.Set, error)
}

// Bundler builds bundles from a store. Associations may be nil. A nil
// Picker uses a private picker.Cache; MaxIterations <= 0 means
// DefaultMaxIterations.
type Bundler struct {
	Store         Store
	Associations  AssociationSource
	Picker        RefPicker
	MaxIterations int
	Logger        *slog.Logger
}

// NewBundler returns a bundler over store and associations with a
// fresh picker cache.
func NewBundler(store Store, associations AssociationSource, logger *slog.Logger) *Bundler {
	return &Bundler{
		Store:        store,
		Associations: associations,
		Picker:       picker.New(0),
		Logger:       logger,
	}
}

// walk is the state of one Bundle call.
type walk struct {
	store        Store
	associations AssociationSource
	picker       RefPicker
	logger       *slog.Logger
	sizeLimit    int

	visited       ref.Set
	primary       []ref.Ref
	primaryHead   int
	prerequisites []ref.Ref

	group     []mosaic.Capsule
	groupRefs []ref.Ref
	groupDeps [][]ref.Ref
	groupSize int

	capsules    []mosaic.Capsule
	included    ref.Set
	flushedSize int
	discovered  ref.Set

	// oversizedRoot is set when the first capsule alone exceeded the
	// size limit; its group is admitted and the walk ends after it.
	oversizedRoot bool
	misses        int
}

func (w *walk) pending() bool {
	return len(w.prerequisites) > 0 || w.primaryHead < len(w.primary)
}

// pop takes the next ref, prerequisites first, and reports whether it
// came from the prerequisite stack.
func (w *walk) pop() (ref.Ref, bool) {
	if n := len(w.prerequisites); n > 0 {
		r := w.prerequisites[n-1]
		w.prerequisites = w.prerequisites[:n-1]
		return r, true
	}
	r := w.primary[w.primaryHead]
	w.primaryHead++
	return r, false
}

func (w *walk) push(r ref.Ref, prerequisite bool) {
	if prerequisite {
		w.prerequisites = append(w.prerequisites, r)
	} else {
		w.primary = append(w.primary, r)
	}
}

// flush emits the in-progress group so that every capsule follows
// the in-group capsules it depends on. Independent entries keep
// reverse discovery order.
func (w *walk) flush() {
	index := make(map[ref.Ref]int, len(w.groupRefs))
	for i, r := range w.groupRefs {
		index[r] = i
	}
	emitted := make([]bool, len(w.group))
	var emit func(i int)
	emit = func(i int) {
		if emitted[i] {
			return
		}
		emitted[i] = true
		for _, dependency := range w.groupDeps[i] {
			if j, ok := index[dependency]; ok {
				emit(j)
			}
		}
		w.capsules = append(w.capsules, w.group[i])
		w.included.Add(w.groupRefs[i])
	}
	for i := len(w.group) - 1; i >= 0; i-- {
		emit(i)
	}
	w.flushedSize += w.groupSize
	w.group = w.group[:0]
	w.groupRefs = w.groupRefs[:0]
	w.groupDeps = w.groupDeps[:0]
	w.groupSize = 0
}

// Bundle collects roots and their closure, skipping refs in seen, into
// a bundle whose capsules total at most sizeLimit encoded bytes
// (sizeLimit <= 0 means unlimited). It returns the refs of every
// emitted capsule together with the bundle.
//
// When the very first capsule alone exceeds the limit, its whole
// group is emitted anyway and the walk stops after it, so a large root
// is never starved. Otherwise the walk stops at the first capsule that
// would overflow, dropping that capsule's unfinished group.
//
// Refs the store cannot resolve are logged and skipped.
func (b *Bundler) Bundle(roots []ref.Ref, seen ref.Set, sizeLimit int) (ref.Set, *Bundle, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	refPicker := b.Picker
	if refPicker == nil {
		refPicker = picker.New(0)
	}
	maxIterations := b.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	w := &walk{
		store:        b.Store,
		associations: b.Associations,
		picker:       refPicker,
		logger:       logger,
		sizeLimit:    sizeLimit,
		visited:      seen.Clone(),
		primary:      append([]ref.Ref(nil), roots...),
		included:     ref.NewSet(),
		discovered:   ref.NewSet(),
	}

	for iterations := 0; w.pending(); iterations++ {
		if iterations >= maxIterations {
			return nil, nil, fmt.Errorf("%w: %d refs popped", ErrIterationLimit, iterations)
		}

		current, fromPrerequisites := w.pop()
		if err := w.visit(current, fromPrerequisites); err != nil {
			if errors.Is(err, errSizeLimit) {
				logger.Debug("size limit reached",
					"size_limit", sizeLimit,
					"flushed_size", w.flushedSize,
					"dropped_capsules", len(w.group),
				)
				break
			}
			return nil, nil, err
		}

		if len(w.prerequisites) == 0 && len(w.group) > 0 {
			w.flush()
			if w.oversizedRoot {
				break
			}
		}
	}

	result := &Bundle{Capsules: w.capsules}
	for _, root := range roots {
		if !root.IsPhony() {
			result.Roots = append(result.Roots, root)
		}
	}
	for _, r := range w.discovered.Sorted() {
		if w.included.Has(r) {
			result.Associations = append(result.Associations, r)
		}
	}
	if w.misses > 0 {
		logger.Warn("bundle built with unresolvable refs", "misses", w.misses, "capsules", len(result.Capsules))
	}
	return w.included, result, nil
}

// errSizeLimit stops the walk without failing it.
var errSizeLimit = errors.New("size limit reached")

// visit processes one popped ref.
func (w *walk) visit(current ref.Ref, fromPrerequisites bool) error {
	if current.IsPhony() || w.visited.Has(current) {
		return nil
	}

	record, err := w.store.ResolveRef(current)
	if err != nil {
		w.misses++
		w.logger.Warn("skipping unresolvable ref", "ref", current.Short(), "error", err)
		return nil
	}

	size := record.Capsule.Size()
	if w.sizeLimit > 0 && w.flushedSize+w.groupSize+size > w.sizeLimit && !w.oversizedRoot {
		if len(w.capsules) > 0 || len(w.group) > 0 {
			return errSizeLimit
		}
		w.oversizedRoot = true
		w.logger.Debug("admitting oversized root", "ref", current.Short(), "size", size, "size_limit", w.sizeLimit)
	}
	w.group = append(w.group, record.Capsule)
	w.groupRefs = append(w.groupRefs, current)
	w.groupSize += size
	w.visited.Add(current)

	var dependencies []ref.Ref
	if !record.TypeRef.IsPhony() {
		dependencies = append(dependencies, record.TypeRef)
		if !w.visited.Has(record.TypeRef) {
			w.push(record.TypeRef, true)
		}
	}

	if w.associations != nil {
		for _, a := range w.associations.AssociationsFor(record.TypeRef, current) {
			associationRef, err := a.Ref(w.store)
			if err != nil {
				w.logger.Warn("skipping association", "ref", current.Short(), "key", a.Key, "error", err)
				continue
			}
			dependencies = append(dependencies, associationRef)
			if !w.visited.Has(associationRef) {
				w.push(associationRef, true)
				w.discovered.Add(associationRef)
			}
		}
	}

	embedded, err := w.picker.PickRefs(record.Value, record.T)
	if err != nil {
		w.groupDeps = append(w.groupDeps, dependencies)
		return fmt.Errorf("picking refs of %s: %w", current.Short(), err)
	}
	for _, r := range embedded.Sorted() {
		if r.IsPhony() || w.visited.Has(r) {
			continue
		}
		if fromPrerequisites {
			dependencies = append(dependencies, r)
		}
		w.push(r, fromPrerequisites)
	}
	w.groupDeps = append(w.groupDeps, dependencies)
	return nil
}
