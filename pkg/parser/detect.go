package parser

import (
	"go.uber.org/zap"

	"github.com/logflow/eventlog/internal/model"
	perrors "github.com/logflow/eventlog/pkg/errors"
	"github.com/logflow/eventlog/pkg/xes"
)

// DetectFormat sniffs the content of path. XML content, gzipped or not, is
// structured; anything else is treated as delimited text.
func DetectFormat(path string) (Format, error) {
	ok, err := xes.NewXMLParser().Recognize(path)
	if err != nil {
		return FormatUnknown, perrors.IOFailure(path, err)
	}
	if ok {
		return FormatStructured, nil
	}
	return FormatDelimited, nil
}

// AutoReader dispatches each file to the reader matching its content.
type AutoReader struct {
	delimited  *DelimitedReader
	structured *StructuredReader
	logger     *zap.Logger
}

// NewAutoReader creates a reader that detects the format of every file.
func NewAutoReader(cfg Config, opts ...Option) *AutoReader {
	return &AutoReader{
		delimited:  NewDelimitedReader(cfg, opts...),
		structured: NewStructuredReader(cfg, opts...),
		logger:     buildOptions(opts).logger,
	}
}

// Parse implements the Reader interface.
func (r *AutoReader) Parse(path string) (*model.EventLog, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("detected format", zap.String("path", path), zap.Stringer("format", format))

	if format == FormatStructured {
		return r.structured.Parse(path)
	}
	return r.delimited.Parse(path)
}
