package domain

import "errors"

var (
	// ErrNotFound is returned by stores when no document matches.
	ErrNotFound = errors.New("not found")

	ErrSlugTaken        = errors.New("slug already in use")
	ErrBlockNotFound    = errors.New("block not found")
	ErrEmptyBlockID     = errors.New("block id must not be empty")
	ErrUnknownBlockType = errors.New("unknown block type")
	ErrUnknownTemplate  = errors.New("unknown template")
	ErrInvalidLayout    = errors.New("invalid layout")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrMarkupContent    = errors.New("note holds markup content, not grid blocks")
	ErrSaveInProgress   = errors.New("save already in progress")
	ErrSessionNotFound  = errors.New("editor session not found")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrNothingToRedo    = errors.New("nothing to redo")
)
