package export

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/logflow/eventlog/internal/model"
)

// DefaultResourceKey is the attribute read into Dim_Resources.
const DefaultResourceKey = "Resource"

// StarSchemaOptions controls star schema generation.
type StarSchemaOptions struct {
	Compression Compression
	ResourceKey string // attribute holding the resource; default "Resource"
	Logger      *zap.Logger
}

// StarSchemaExporter generates a star schema from the event table.
// Output: Fact_Events, Dim_Cases, Dim_Activities, Dim_Resources, Dim_Time
type StarSchemaExporter struct {
	db        *sql.DB
	outputDir string
	opts      StarSchemaOptions
}

// NewStarSchemaExporter creates a new star schema exporter backed by an
// in-memory DuckDB database.
func NewStarSchemaExporter(outputDir string, opts StarSchemaOptions) (*StarSchemaExporter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if opts.ResourceKey == "" {
		opts.ResourceKey = DefaultResourceKey
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	// A single connection keeps the session setting and tables visible to
	// every statement.
	db.SetMaxOpenConns(1)

	// Only exists when ICU is loaded; without it TIMESTAMPTZ casts are UTC.
	if _, err := db.Exec(`SET TimeZone = 'UTC'`); err != nil {
		opts.Logger.Debug("duckdb time zone not set, casts use UTC", zap.Error(err))
	}

	return &StarSchemaExporter{
		db:        db,
		outputDir: outputDir,
		opts:      opts,
	}, nil
}

// ExportLog writes log as events.parquet in the output directory and
// derives the star schema from it.
func (e *StarSchemaExporter) ExportLog(log *model.EventLog) (*StarSchemaResult, error) {
	path := filepath.Join(e.outputDir, "events.parquet")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event table: %w", err)
	}
	if err := WriteParquet(f, log, Options{Compression: e.opts.Compression}); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close event table: %w", err)
	}

	result, err := e.Export(path)
	if err != nil {
		return nil, err
	}
	result.Events = path
	return result, nil
}

// Export generates the star schema from a Parquet file written by WriteParquet.
func (e *StarSchemaExporter) Export(inputPath string) (*StarSchemaResult, error) {
	_, err := e.db.Exec(fmt.Sprintf(`
		CREATE OR REPLACE TABLE source AS
		SELECT
			seq,
			case_id,
			activity,
			CAST("timestamp" AS TIMESTAMP) AS ts,
			element_at(attributes, %s)[1] AS resource
		FROM read_parquet(%s)
	`, quote(e.opts.ResourceKey), quote(inputPath)))
	if err != nil {
		return nil, fmt.Errorf("failed to load source: %w", err)
	}

	result := &StarSchemaResult{OutputDir: e.outputDir}

	steps := []struct {
		name string
		gen  func(string) error
		dst  *string
	}{
		{"Dim_Cases", e.generateDimCases, &result.DimCases},
		{"Dim_Activities", e.generateDimActivities, &result.DimActivities},
		{"Dim_Resources", e.generateDimResources, &result.DimResources},
		{"Dim_Time", e.generateDimTime, &result.DimTime},
		{"Fact_Events", e.generateFactEvents, &result.FactEvents},
	}
	for _, s := range steps {
		path := filepath.Join(e.outputDir, s.name+".parquet")
		if err := s.gen(path); err != nil {
			return nil, fmt.Errorf("failed to generate %s: %w", s.name, err)
		}
		*s.dst = path
	}

	return result, nil
}

// copyTo wraps a query in a COPY to a Parquet file.
func (e *StarSchemaExporter) copyTo(path, query string) error {
	_, err := e.db.Exec(fmt.Sprintf(`COPY (%s) TO %s (FORMAT PARQUET, COMPRESSION '%s')`,
		query, quote(path), e.compression()))
	return err
}

func (e *StarSchemaExporter) compression() string {
	switch e.opts.Compression {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionNone:
		return "uncompressed"
	default:
		return "snappy"
	}
}

func (e *StarSchemaExporter) generateDimCases(path string) error {
	return e.copyTo(path, `
		SELECT
			ROW_NUMBER() OVER (ORDER BY case_id) AS case_key,
			case_id,
			MIN(ts) AS case_start_time,
			MAX(ts) AS case_end_time,
			COUNT(*) AS event_count,
			date_diff('second', MIN(ts), MAX(ts)) AS duration_seconds
		FROM source
		GROUP BY case_id
		ORDER BY case_id
	`)
}

func (e *StarSchemaExporter) generateDimActivities(path string) error {
	return e.copyTo(path, `
		SELECT
			ROW_NUMBER() OVER (ORDER BY activity) AS activity_key,
			activity AS activity_name,
			COUNT(*) AS total_occurrences
		FROM source
		GROUP BY activity
		ORDER BY activity
	`)
}

func (e *StarSchemaExporter) generateDimResources(path string) error {
	return e.copyTo(path, `
		SELECT
			ROW_NUMBER() OVER (ORDER BY resource_name) AS resource_key,
			resource_name,
			COUNT(*) AS total_events
		FROM (SELECT COALESCE(resource, 'Unknown') AS resource_name FROM source)
		GROUP BY resource_name
		ORDER BY resource_name
	`)
}

func (e *StarSchemaExporter) generateDimTime(path string) error {
	return e.copyTo(path, `
		SELECT
			ROW_NUMBER() OVER (ORDER BY date) AS time_key,
			date AS full_date,
			EXTRACT(YEAR FROM date) AS year,
			EXTRACT(QUARTER FROM date) AS quarter,
			EXTRACT(MONTH FROM date) AS month,
			EXTRACT(DAY FROM date) AS day,
			EXTRACT(DAYOFWEEK FROM date) AS day_of_week,
			EXTRACT(WEEK FROM date) AS week_of_year,
			CASE WHEN EXTRACT(DAYOFWEEK FROM date) IN (0, 6) THEN 1 ELSE 0 END AS is_weekend,
			'Q' || CAST(EXTRACT(QUARTER FROM date) AS VARCHAR) AS quarter_name,
			monthname(date) AS month_name
		FROM (SELECT DISTINCT CAST(ts AS DATE) AS date FROM source)
		ORDER BY date
	`)
}

// generateFactEvents joins the dimension keys back onto every event. Rows
// follow the seq column of the event table.
func (e *StarSchemaExporter) generateFactEvents(path string) error {
	lookups := []string{
		`CREATE OR REPLACE TABLE dim_cases_lookup AS
		SELECT case_id, ROW_NUMBER() OVER (ORDER BY case_id) AS case_key
		FROM (SELECT DISTINCT case_id FROM source)`,
		`CREATE OR REPLACE TABLE dim_activities_lookup AS
		SELECT activity, ROW_NUMBER() OVER (ORDER BY activity) AS activity_key
		FROM (SELECT DISTINCT activity FROM source)`,
		`CREATE OR REPLACE TABLE dim_resources_lookup AS
		SELECT resource_name, ROW_NUMBER() OVER (ORDER BY resource_name) AS resource_key
		FROM (SELECT DISTINCT COALESCE(resource, 'Unknown') AS resource_name FROM source)`,
		`CREATE OR REPLACE TABLE dim_time_lookup AS
		SELECT date, ROW_NUMBER() OVER (ORDER BY date) AS time_key
		FROM (SELECT DISTINCT CAST(ts AS DATE) AS date FROM source)`,
	}
	for _, q := range lookups {
		if _, err := e.db.Exec(q); err != nil {
			return fmt.Errorf("failed to create lookups: %w", err)
		}
	}

	return e.copyTo(path, `
		SELECT
			ROW_NUMBER() OVER (ORDER BY s.seq) AS event_key,
			c.case_key,
			a.activity_key,
			r.resource_key,
			t.time_key,
			s.ts AS event_datetime,
			COALESCE(date_diff('second', LAG(s.ts) OVER (PARTITION BY s.case_id ORDER BY s.seq), s.ts), 0) AS seconds_since_prev
		FROM source s
		LEFT JOIN dim_cases_lookup c ON s.case_id = c.case_id
		LEFT JOIN dim_activities_lookup a ON s.activity = a.activity
		LEFT JOIN dim_resources_lookup r ON COALESCE(s.resource, 'Unknown') = r.resource_name
		LEFT JOIN dim_time_lookup t ON CAST(s.ts AS DATE) = t.date
		ORDER BY s.seq
	`)
}

// Close releases resources.
func (e *StarSchemaExporter) Close() error {
	return e.db.Close()
}

// StarSchemaResult contains the paths to generated files.
type StarSchemaResult struct {
	OutputDir     string `json:"output_dir"`
	Events        string `json:"events,omitempty"`
	FactEvents    string `json:"fact_events"`
	DimCases      string `json:"dim_cases"`
	DimActivities string `json:"dim_activities"`
	DimResources  string `json:"dim_resources"`
	DimTime       string `json:"dim_time"`
}

// Files returns all generated file paths.
func (r *StarSchemaResult) Files() []string {
	return []string{
		r.FactEvents,
		r.DimCases,
		r.DimActivities,
		r.DimResources,
		r.DimTime,
	}
}

// quote renders s as a SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
