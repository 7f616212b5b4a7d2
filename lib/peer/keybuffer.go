// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// keyBuffer holds private key material in anonymous mmap memory,
// locked against swap and excluded from core dumps. The garbage
// collector never sees it, so it cannot leave copies behind. Close
// zeroes and unmaps it; reading a closed buffer panics.
type keyBuffer struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

// newKeyBuffer copies source into protected memory and zeroes source.
func newKeyBuffer(source []byte) (*keyBuffer, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("key buffer: empty key material")
	}
	data, err := unix.Mmap(-1, 0, len(source), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("key buffer: mmap failed: %w", err)
	}
	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("key buffer: mlock failed: %w", err)
	}
	// MADV_DONTDUMP is missing on some kernels; the key is still kept
	// out of swap.
	_ = unix.Madvise(data, unix.MADV_DONTDUMP)

	copy(data, source)
	clear(source)
	return &keyBuffer{data: data}, nil
}

// bytes returns the key material. The slice aliases the mmap region
// and must not outlive the buffer.
func (b *keyBuffer) bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("peer: use of closed identity")
	}
	return b.data
}

func (b *keyBuffer) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	clear(b.data)

	var firstError error
	if err := unix.Munlock(b.data); err != nil {
		firstError = fmt.Errorf("key buffer: munlock failed: %w", err)
	}
	if err := unix.Munmap(b.data); err != nil && firstError == nil {
		firstError = fmt.Errorf("key buffer: munmap failed: %w", err)
	}
	b.data = nil
	return firstError
}
