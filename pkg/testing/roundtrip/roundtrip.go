// Package roundtrip provides round-trip testing utilities: a generated log
// is written as delimited text and as XES, read back through both readers,
// compared, and pushed through the Parquet export.
package roundtrip

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/logflow/eventlog/internal/model"
	"github.com/logflow/eventlog/pkg/export"
	"github.com/logflow/eventlog/pkg/parser"
	"github.com/logflow/eventlog/pkg/testing/generators"
)

// TestCase represents a round-trip test case.
type TestCase struct {
	Name      string
	Seed      int64
	Rows      int
	Generator *generators.EventLogGenerator // nil means NewEventLogGenerator(Seed)
	Options   TestOptions
}

// TestOptions configures test behavior.
type TestOptions struct {
	Compression    export.Compression
	SkipStructured bool
	SkipExport     bool
}

// Result contains test results.
type Result struct {
	Success     bool
	Error       error
	RowsWritten int64
	RowsRead    int64
	CasesMatch  bool
	Messages    []string
}

func (r *Result) fail(err error) *Result {
	r.Success = false
	r.Error = err
	return r
}

func (r *Result) mismatch(format string, args ...interface{}) {
	r.Success = false
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// Run executes a round-trip test.
func Run(ctx context.Context, tc TestCase) *Result {
	result := &Result{Success: true}

	tmpDir, err := os.MkdirTemp("", "roundtrip-*")
	if err != nil {
		return result.fail(fmt.Errorf("failed to create temp dir: %w", err))
	}
	defer os.RemoveAll(tmpDir)

	gen := tc.Generator
	if gen == nil {
		gen = generators.NewEventLogGenerator(tc.Seed)
	}
	n := tc.Rows
	if n <= 0 {
		n = 1000
	}
	rows := gen.Rows(n)
	result.RowsWritten = int64(len(rows))

	paths := []string{filepath.Join(tmpDir, "input.csv")}
	if err := writeFile(paths[0], func(f *os.File) error { return gen.WriteDelimited(f, rows) }); err != nil {
		return result.fail(fmt.Errorf("failed to write delimited input: %w", err))
	}
	if !tc.Options.SkipStructured {
		paths = append(paths, filepath.Join(tmpDir, "input.xes"))
		if err := writeFile(paths[1], func(f *os.File) error { return gen.WriteXES(f, rows) }); err != nil {
			return result.fail(fmt.Errorf("failed to write XES input: %w", err))
		}
	}

	cfg := parser.DefaultConfig()
	cfg.Delimiters = gen.Delimiters
	logs, err := parser.ParseFiles(ctx, parser.FormatAuto, cfg, paths)
	if err != nil {
		return result.fail(fmt.Errorf("parse failed: %w", err))
	}

	log := logs[0]
	result.RowsRead = int64(log.NumEvents())
	if result.RowsRead != result.RowsWritten {
		result.mismatch("Event count mismatch: wrote %d, read %d", result.RowsWritten, result.RowsRead)
	}
	if want := distinctCases(rows); log.Len() != want {
		result.mismatch("Case count mismatch: wrote %d, read %d", want, log.Len())
	}

	result.CasesMatch = true
	if len(logs) > 1 && !log.Equal(logs[1]) {
		result.CasesMatch = false
		result.mismatch("Delimited and XES logs differ")
	}

	if !tc.Options.SkipExport {
		if err := checkExport(ctx, filepath.Join(tmpDir, "output.parquet"), log, tc.Options.Compression, result); err != nil {
			return result.fail(err)
		}
	}

	return result
}

func checkExport(ctx context.Context, path string, log *model.EventLog, comp export.Compression, result *Result) error {
	if err := writeFile(path, func(f *os.File) error {
		return export.WriteParquet(f, log, export.Options{Compression: comp})
	}); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read back failed: %w", err)
	}
	defer f.Close()

	mem := memory.DefaultAllocator
	table, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return fmt.Errorf("read back failed: %w", err)
	}
	defer table.Release()

	if table.NumRows() != int64(log.NumEvents()) {
		result.mismatch("Row count mismatch: exported %d events, read %d rows", log.NumEvents(), table.NumRows())
	}
	if !schemasMatch(export.Schema(), table.Schema()) {
		result.mismatch("Schema mismatch detected")
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func distinctCases(rows []generators.Row) int {
	seen := make(map[string]struct{})
	for _, r := range rows {
		seen[r.CaseID] = struct{}{}
	}
	return len(seen)
}

// schemasMatch compares field names and type ids. Parquet does not keep
// every Arrow type parameter, so nested types are not compared in full.
func schemasMatch(a, b *arrow.Schema) bool {
	if a.NumFields() != b.NumFields() {
		return false
	}
	for i := 0; i < a.NumFields(); i++ {
		fa, fb := a.Field(i), b.Field(i)
		if fa.Name != fb.Name || fa.Type.ID() != fb.Type.ID() {
			return false
		}
	}
	return true
}
