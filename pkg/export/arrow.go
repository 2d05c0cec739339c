// Package export flattens an EventLog into an Arrow record, one row per
// event, and writes it as Parquet for downstream process-mining tools.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/logflow/eventlog/internal/model"
)

// Column names of the flattened event table.
const (
	ColCaseID     = "case_id"
	ColActivity   = "activity"
	ColTimestamp  = "timestamp"
	ColAttributes = "attributes"
	ColSeq        = "seq"
)

// Schema returns the Arrow schema of the event table.
func Schema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: ColCaseID, Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: ColActivity, Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: ColTimestamp, Type: &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, Nullable: false},
		{Name: ColAttributes, Type: arrow.MapOf(arrow.BinaryTypes.String, arrow.BinaryTypes.String), Nullable: false},
		{Name: ColSeq, Type: arrow.PrimitiveTypes.Int64, Nullable: false},
	}, nil)
}

// Record builds the event table. Rows follow case order, then event order,
// and seq numbers them from zero; attribute keys are sorted. The caller must
// Release the record.
func Record(log *model.EventLog, mem memory.Allocator) arrow.Record {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	b := array.NewRecordBuilder(mem, Schema())
	defer b.Release()

	caseIDs := b.Field(0).(*array.StringBuilder)
	activities := b.Field(1).(*array.StringBuilder)
	timestamps := b.Field(2).(*array.TimestampBuilder)
	attrs := b.Field(3).(*array.MapBuilder)
	keys := attrs.KeyBuilder().(*array.StringBuilder)
	values := attrs.ItemBuilder().(*array.StringBuilder)
	seqs := b.Field(4).(*array.Int64Builder)

	var seq int64
	for _, c := range log.Cases() {
		for _, ev := range c.Events() {
			caseIDs.Append(c.ID())
			activities.Append(ev.Name())
			timestamps.Append(arrow.Timestamp(ev.Timestamp().UnixMicro()))

			attrs.Append(true)
			for _, k := range ev.AttributeKeys() {
				v, _ := ev.Attribute(k)
				keys.Append(k)
				values.Append(v)
			}

			seqs.Append(seq)
			seq++
		}
	}

	return b.NewRecord()
}

// Compression names a Parquet codec.
type Compression string

const (
	CompressionSnappy Compression = "snappy"
	CompressionGzip   Compression = "gzip"
	CompressionZstd   Compression = "zstd"
	CompressionNone   Compression = "none"
)

// ParseCompression parses a codec name. Empty means snappy.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(s)); c {
	case "":
		return CompressionSnappy, nil
	case CompressionSnappy, CompressionGzip, CompressionZstd, CompressionNone:
		return c, nil
	default:
		return "", fmt.Errorf("export: unknown compression %q", s)
	}
}

func (c Compression) codec() compress.Compression {
	switch c {
	case CompressionGzip:
		return compress.Codecs.Gzip
	case CompressionZstd:
		return compress.Codecs.Zstd
	case CompressionNone:
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}

// Options controls Parquet output.
type Options struct {
	Compression Compression
	Allocator   memory.Allocator
}

// WriteParquet writes the event table of log to w as a single Parquet file.
func WriteParquet(w io.Writer, log *model.EventLog, opts Options) error {
	rec := Record(log, opts.Allocator)
	defer rec.Release()

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(opts.Compression.codec()),
		parquet.WithDictionaryDefault(true),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(rec.Schema(), w, writerProps, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	if rec.NumRows() > 0 {
		if err := fw.Write(rec); err != nil {
			fw.Close()
			return fmt.Errorf("failed to write events: %w", err)
		}
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
