// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Mosaic is the command-line client for mosaic nodes.
//
//	mosaic identity new --out FILE [--recipient AGE_PUBLIC_KEY | --age-key-out FILE]
//	mosaic identity show --key FILE --age-key FILE [--json]
//	mosaic send --key FILE --age-key FILE --to PEER (--address HOST:PORT | --out FILE) NOTE.jsonc
//	mosaic packet inspect [--diag] [--json] FILE
//
// Identities are Ed25519 seeds sealed with age. Notes are JSONC files
// with a title, body, tags and inline attachments; each attachment is
// stored as its own value and referenced from the note, so repeated
// sends to the same peer only carry what changed.
package main
