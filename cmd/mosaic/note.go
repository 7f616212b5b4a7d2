// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/mosaic/lib/htype"
	"github.com/bureau-foundation/mosaic/lib/mosaic"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// NoteT is the record type the CLI sends. Attachments are stored as
// separate string values so an unchanged attachment is never resent
// to a peer that already has it.
var NoteT = &htype.Record{
	Module: "mosaic.cli",
	Name:   "note",
	Fields: []htype.Field{
		{Name: "title", Type: htype.String},
		{Name: "body", Type: htype.String},
		{Name: "tags", Type: htype.NewList(htype.String)},
		{Name: "attachments", Type: htype.NewList(htype.Ref)},
	},
}

// noteFile is the JSONC input format.
type noteFile struct {
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Tags        []string `json:"tags"`
	Attachments []string `json:"attachments"`
}

// loadNote reads a JSONC note file.
func loadNote(path string) (noteFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return noteFile{}, fmt.Errorf("reading note: %w", err)
	}
	var note noteFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &note); err != nil {
		return noteFile{}, fmt.Errorf("parsing note %s: %w", path, err)
	}
	if note.Title == "" {
		return noteFile{}, errors.New("note has no title")
	}
	return note, nil
}

// putNote stores note and its attachments in store and returns the
// note's ref.
func putNote(store *mosaic.Mosaic, note noteFile) (ref.Ref, error) {
	attachments := make([]any, 0, len(note.Attachments))
	for i, attachment := range note.Attachments {
		r, err := store.Put(attachment)
		if err != nil {
			return ref.Ref{}, fmt.Errorf("storing attachment %d: %w", i, err)
		}
		attachments = append(attachments, r)
	}
	tags := make([]any, 0, len(note.Tags))
	for _, tag := range note.Tags {
		tags = append(tags, tag)
	}
	return store.PutTyped(NoteT, htype.NewRecordValue(NoteT, map[string]any{
		"title":       note.Title,
		"body":        note.Body,
		"tags":        tags,
		"attachments": attachments,
	}))
}
