package parser

import (
	"errors"

	perrors "github.com/logflow/eventlog/pkg/errors"
)

var (
	// ErrUnsupportedFormat is returned by NewReader for an unknown format.
	ErrUnsupportedFormat = errors.New("parser: unsupported format")

	// Aliases of the failure classes, for errors.Is without a second import.
	ErrIOFailure          = perrors.ErrIOFailure
	ErrMalformedRow       = perrors.ErrMalformedRow
	ErrUnrecognizedFormat = perrors.ErrUnrecognizedFormat
	ErrDecodeFailure      = perrors.ErrDecodeFailure
	ErrEmptyLog           = perrors.ErrEmptyLog
)
