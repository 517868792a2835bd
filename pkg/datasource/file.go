package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/opscart/job-sizer/pkg/models"
)

const defaultCategory = "default"

// FileSource reads resource summaries from CSV or XLSX files. The pattern
// may be a plain path or a doublestar glob such as "reports/**/*.csv.gz".
//
// Files have a header row with wall_time and one column per tracked
// resource. category, namespace and job columns are optional; rows without
// a category land in "default". gzip, bzip2 and xz compressed files are
// recognized by their content.
type FileSource struct {
	pattern   string
	resources []models.Resource
	log       logrus.FieldLogger
}

// NewFileSource reads the files matching pattern, keeping the columns of
// resources.
func NewFileSource(pattern string, resources []models.Resource, log logrus.FieldLogger) *FileSource {
	return &FileSource{
		pattern:   pattern,
		resources: resources,
		log:       log,
	}
}

// Name identifies the source in logs.
func (s *FileSource) Name() string {
	return "file"
}

// Files returns the regular files matching the pattern, sorted.
func (s *FileSource) Files() ([]string, error) {
	matches, err := doublestar.FilepathGlob(s.pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern matching failed: %w", err)
	}

	var files []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, match)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files match %s", s.pattern)
	}

	sort.Strings(files)
	return files, nil
}

func (s *FileSource) Observations(ctx context.Context) ([]models.Observation, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	var observations []models.Observation
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		obs, err := s.readFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		s.log.WithFields(logrus.Fields{
			"file":         path,
			"observations": len(obs),
		}).Debug("Read input file")

		observations = append(observations, obs...)
	}
	return observations, nil
}

func (s *FileSource) readFile(path string) ([]models.Observation, error) {
	rc, compression, err := openDecompressed(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if compression != CompressionNone {
		s.log.Debugf("Decompressing %s as %s", path, compression)
	}

	if isXLSX(path) {
		return ReadXLSX(rc, s.resources)
	}
	return ReadCSV(rc, s.resources)
}

func isXLSX(path string) bool {
	name := strings.ToLower(path)
	for _, ext := range []string{".gz", ".bz2", ".xz"} {
		name = strings.TrimSuffix(name, ext)
	}
	return strings.HasSuffix(name, ".xlsx")
}

// ReadCSV parses comma separated resource summaries.
func ReadCSV(r io.Reader, resources []models.Resource) ([]models.Observation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return parseRows(rows, resources)
}

// ReadXLSX parses resource summaries from the first sheet of a workbook.
func ReadXLSX(r io.Reader, resources []models.Resource) ([]models.Observation, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return parseRows(rows, resources)
}

func parseRows(rows [][]string, resources []models.Resource) ([]models.Observation, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	required := append([]string{"wall_time"}, resourceNames(resources)...)
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	observations := make([]models.Observation, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}

		obs := models.Observation{
			Category:  optionalCell(row, columns, "category"),
			Namespace: optionalCell(row, columns, "namespace"),
			Job:       optionalCell(row, columns, "job"),
			Usage:     make(map[models.Resource]float64, len(resources)),
		}
		if obs.Category == "" {
			obs.Category = defaultCategory
		}

		wallTime, err := numberCell(row, columns, "wall_time", line)
		if err != nil {
			return nil, err
		}
		obs.WallTime = wallTime

		for _, r := range resources {
			value, err := numberCell(row, columns, string(r), line)
			if err != nil {
				return nil, err
			}
			obs.Usage[r] = value
		}

		observations = append(observations, obs)
	}
	return observations, nil
}

func resourceNames(resources []models.Resource) []string {
	names := make([]string, len(resources))
	for i, r := range resources {
		names[i] = string(r)
	}
	return names
}

func optionalCell(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func numberCell(row []string, columns map[string]int, name string, line int) (float64, error) {
	i := columns[name]
	if i >= len(row) || strings.TrimSpace(row[i]) == "" {
		return 0, fmt.Errorf("line %d, column %q: missing value", line, name)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	if err != nil {
		return 0, fmt.Errorf("line %d, column %q: invalid number %q", line, name, row[i])
	}
	return value, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
