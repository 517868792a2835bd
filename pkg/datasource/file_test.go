package datasource

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"

	"github.com/opscart/job-sizer/pkg/logging"
	"github.com/opscart/job-sizer/pkg/models"
)

const summaries = `category,wall_time,cores,memory,disk
render,60,1,200,10
render,183,2,400,20
etl,30,4,1000,500
`

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestReadCSV(t *testing.T) {
	obs, err := ReadCSV(strings.NewReader(summaries), models.DefaultResources())
	require.NoError(t, err)
	require.Len(t, obs, 3)

	assert.Equal(t, "render", obs[1].Category)
	assert.Equal(t, 183.0, obs[1].WallTime)
	assert.Equal(t, map[models.Resource]float64{
		models.ResourceCores:  2,
		models.ResourceMemory: 400,
		models.ResourceDisk:   20,
	}, obs[1].Usage)
}

func TestReadCSVWithoutCategory(t *testing.T) {
	input := "Wall_Time, memory, job\n10, 128, a\n\n20, 256, b\n"

	obs, err := ReadCSV(strings.NewReader(input), []models.Resource{models.ResourceMemory})
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "default", obs[0].Category)
	assert.Equal(t, "b", obs[1].Job)
	assert.Equal(t, 256.0, obs[1].Usage[models.ResourceMemory])
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
	}{
		{"empty", "", "missing header"},
		{"missing resource column", "category,wall_time,cores\nx,1,1\n", `missing column "memory"`},
		{"missing wall time", "category,cores,memory,disk\nx,1,1,1\n", `missing column "wall_time"`},
		{"bad number", "category,wall_time,cores,memory,disk\nx,1,1,lots,1\n", `line 2, column "memory": invalid number "lots"`},
		{"empty value", "category,wall_time,cores,memory,disk\nx,1,1,1,1\ny,,1,1,1\n", `line 3, column "wall_time": missing value`},
		{"ragged row", "category,wall_time,cores,memory,disk\nx,1,1\n", "failed to read CSV"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), models.DefaultResources())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"category", "wall_time", "cores", "memory", "disk"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"render", 60, 1, 200, 10}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"etl", 30, 4, 1000, 500}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	obs, err := ReadXLSX(&buf, models.DefaultResources())
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "etl", obs[1].Category)
	assert.Equal(t, 1000.0, obs[1].Usage[models.ResourceMemory])
}

func TestDetectCompression(t *testing.T) {
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, _ = w.Write([]byte("x"))
	require.NoError(t, w.Close())

	assert.Equal(t, CompressionGzip, DetectCompression(bufio.NewReader(&gz)))
	assert.Equal(t, CompressionBzip2, DetectCompression(bufio.NewReader(strings.NewReader("BZh91AY"))))
	assert.Equal(t, CompressionXZ, DetectCompression(bufio.NewReader(bytes.NewReader(xzMagic))))
	assert.Equal(t, CompressionNone, DetectCompression(bufio.NewReader(strings.NewReader("category,wall_time"))))
	assert.Equal(t, CompressionNone, DetectCompression(bufio.NewReader(strings.NewReader(""))))
	assert.Equal(t, "xz", CompressionXZ.String())
}

func TestFileSourceGlobAndCompression(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "2024", "01", "plain.csv"), []byte(summaries))

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte("category,wall_time,cores,memory,disk\nbackup,100,1,50,5000\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	writeFile(t, filepath.Join(dir, "2024", "02", "archived.csv.gz"), gz.Bytes())

	var xzBuf bytes.Buffer
	xw, err := xz.NewWriter(&xzBuf)
	require.NoError(t, err)
	_, err = xw.Write([]byte("category,wall_time,cores,memory,disk\nbackup,200,1,75,6000\n"))
	require.NoError(t, err)
	require.NoError(t, xw.Close())
	writeFile(t, filepath.Join(dir, "2024", "03", "old.csv.xz"), xzBuf.Bytes())

	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("not an input"))

	source := NewFileSource(filepath.Join(dir, "**", "*.csv*"), models.DefaultResources(), logging.Discard())
	assert.Equal(t, "file", source.Name())

	files, err := source.Files()
	require.NoError(t, err)
	assert.Len(t, files, 3)

	obs, err := source.Observations(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 5)

	// Files are read in path order: 01, 02, 03.
	assert.Equal(t, "render", obs[0].Category)
	assert.Equal(t, 5000.0, obs[3].Usage[models.ResourceDisk])
	assert.Equal(t, 200.0, obs[4].WallTime)
}

func TestFileSourceErrors(t *testing.T) {
	dir := t.TempDir()

	source := NewFileSource(filepath.Join(dir, "*.csv"), models.DefaultResources(), logging.Discard())
	_, err := source.Observations(context.Background())
	assert.ErrorContains(t, err, "no input files match")

	path := filepath.Join(dir, "bad.csv")
	writeFile(t, path, []byte("category,wall_time\nx,1\n"))
	_, err = NewFileSource(path, models.DefaultResources(), logging.Discard()).Observations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	writeFile(t, filepath.Join(dir, "good.csv"), []byte(summaries))
	_, err = NewFileSource(filepath.Join(dir, "good.csv"), models.DefaultResources(), logging.Discard()).Observations(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsXLSX(t *testing.T) {
	assert.True(t, isXLSX("jobs.xlsx"))
	assert.True(t, isXLSX("JOBS.XLSX.gz"))
	assert.False(t, isXLSX("jobs.csv.xz"))
}
