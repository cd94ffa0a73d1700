package neo

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mr1hm/go-neo-watch/internal/models"
)

//go:embed fallback.yaml
var bundledDataset []byte

// Dataset is the fixed local catalogue served when the upstream fails.
type Dataset struct {
	records []models.NEO
	byID    map[string]int
}

func NewDataset(records []models.NEO) *Dataset {
	d := &Dataset{
		records: make([]models.NEO, len(records)),
		byID:    make(map[string]int, len(records)),
	}
	for i, r := range records {
		d.records[i] = withDisplay(r)
		d.byID[r.ID] = i
	}
	return d
}

// DefaultDataset returns the dataset compiled into the binary.
func DefaultDataset() *Dataset {
	d, err := parseDataset(bundledDataset)
	if err != nil {
		panic(fmt.Sprintf("neo: bundled fallback dataset is invalid: %v", err))
	}
	return d
}

// LoadDataset reads a YAML list of NEO records.
func LoadDataset(r io.Reader) (*Dataset, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}
	return parseDataset(b)
}

// LoadDatasetFile loads path, or the bundled dataset when path is empty.
func LoadDatasetFile(path string) (*Dataset, error) {
	if path == "" {
		return DefaultDataset(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening dataset: %w", err)
	}
	defer f.Close()
	return LoadDataset(f)
}

func parseDataset(b []byte) (*Dataset, error) {
	var records []models.NEO
	if err := yaml.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("error decoding dataset: %w", err)
	}
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("record %d has no id", i)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate record id %q", r.ID)
		}
		seen[r.ID] = true
	}
	return NewDataset(records), nil
}

func (d *Dataset) Len() int {
	return len(d.records)
}

// Page slices [pageIndex*pageSize, (pageIndex+1)*pageSize) out of the
// dataset; pages past the end are empty.
func (d *Dataset) Page(pageIndex, pageSize int) models.Page {
	page := models.Page{
		Items:      []models.NEO{},
		TotalCount: len(d.records),
		PageIndex:  pageIndex,
		PageSize:   pageSize,
		Source:     models.SourceFallback,
	}
	if pageIndex < 0 || pageSize < 1 || len(d.records) == 0 {
		return page
	}
	// compare before multiplying so huge indexes cannot overflow
	if pageIndex > (len(d.records)-1)/pageSize {
		return page
	}

	start := pageIndex * pageSize
	end := min(start+pageSize, len(d.records))

	page.Items = append(page.Items, d.records[start:end]...)
	return page
}

func (d *Dataset) Find(id string) (models.NEO, bool) {
	i, ok := d.byID[id]
	if !ok {
		return models.NEO{}, false
	}
	return d.records[i], true
}
