// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// SealIdentity returns the identity's seed encrypted to the given age
// recipients (age1... public keys), ASCII-armored for storage in a key
// file.
func SealIdentity(identity *Identity, recipientKeys ...string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}
	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var sealed bytes.Buffer
	armored := armor.NewWriter(&sealed)
	writer, err := age.Encrypt(armored, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	seed := identity.seed()
	defer clear(seed)
	if _, err := writer.Write(seed); err != nil {
		return nil, fmt.Errorf("writing seed to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	if err := armored.Close(); err != nil {
		return nil, fmt.Errorf("finalizing armor: %w", err)
	}
	return sealed.Bytes(), nil
}

// OpenIdentity decrypts a sealed identity with the given age
// identities.
func OpenIdentity(sealed []byte, identities ...age.Identity) (*Identity, error) {
	reader, err := age.Decrypt(armor.NewReader(bytes.NewReader(sealed)), identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting identity: %w", err)
	}
	seed, err := io.ReadAll(io.LimitReader(reader, 1024))
	if err != nil {
		clear(seed)
		return nil, fmt.Errorf("reading decrypted identity: %w", err)
	}
	return NewIdentity(seed)
}

// WriteIdentityFile seals identity to recipients and writes it to path
// with owner-only permissions.
func WriteIdentityFile(path string, identity *Identity, recipientKeys ...string) error {
	sealed, err := SealIdentity(identity, recipientKeys...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	return nil
}

// ReadIdentityFile opens the sealed identity at path using the age
// identities in ageKeyPath.
func ReadIdentityFile(path, ageKeyPath string) (*Identity, error) {
	identities, err := ReadAgeIdentities(ageKeyPath)
	if err != nil {
		return nil, err
	}
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}
	identity, err := OpenIdentity(sealed, identities...)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return identity, nil
}

// ReadAgeIdentities parses an age identity file (AGE-SECRET-KEY-1...
// lines, # comments allowed).
func ReadAgeIdentities(path string) ([]age.Identity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening age key file: %w", err)
	}
	defer file.Close()
	identities, err := age.ParseIdentities(file)
	if err != nil {
		return nil, fmt.Errorf("parsing age key file %s: %w", path, err)
	}
	return identities, nil
}

// GenerateAgeKey returns a new age X25519 secret key and its public
// recipient string.
func GenerateAgeKey() (secretKey, recipient string, err error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("generating age key: %w", err)
	}
	return identity.String(), identity.Recipient().String(), nil
}

// AgeRecipient returns the recipient string of an age secret key.
func AgeRecipient(secretKey string) (string, error) {
	identity, err := age.ParseX25519Identity(strings.TrimSpace(secretKey))
	if err != nil {
		return "", fmt.Errorf("parsing age secret key: %w", err)
	}
	return identity.Recipient().String(), nil
}
