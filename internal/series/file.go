package series

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/efreitasn/replaytrader/internal/domain"
)

// File is the on-disk YAML layout of a series.
type File struct {
	Symbol  string      `yaml:"symbol"`
	Date    string      `yaml:"date"`
	Session string      `yaml:"session"`
	Points  []FilePoint `yaml:"points"`
}

// FilePoint is one price point. Prices are kept as strings so they reach
// decimal.Decimal without a float round trip.
type FilePoint struct {
	Timestamp int64   `yaml:"timestamp"`
	Price     string  `yaml:"price"`
	Open      *string `yaml:"open,omitempty"`
}

// FileProvider reads series from <Dir>/<SYMBOL>/<date>-<session>.yaml.
type FileProvider struct {
	Dir string
}

// NewFileProvider creates a FileProvider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{Dir: dir}
}

// Path returns the file that holds key.
func (p *FileProvider) Path(key Key) string {
	return filepath.Join(p.Dir, key.Symbol, key.Date+"-"+key.Session+".yaml")
}

// Load implements Provider.
func (p *FileProvider) Load(ctx context.Context, key Key) ([]domain.PricePoint, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := ReadFile(p.Path(key))
	if err != nil {
		return nil, err
	}
	if err := f.checkKey(key); err != nil {
		return nil, err
	}
	return f.PricePoints()
}

// checkKey rejects a file whose header declares a different series than
// the one it is stored under. Omitted header fields are taken from key.
func (f *File) checkKey(key Key) error {
	declared := f.Key()
	if (declared.Symbol != "" && declared.Symbol != key.Symbol) ||
		(declared.Date != "" && declared.Date != key.Date) ||
		(declared.Session != "" && declared.Session != key.Session) {
		return fmt.Errorf("series file %s declares %s: %w", key, declared, errKeyMismatch)
	}
	return nil
}

var errKeyMismatch = errors.New("series key mismatch")

// ReadFile decodes a series file. A missing file returns
// domain.ErrSeriesNotFound.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrSeriesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read series file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode series file %s: %w", path, err)
	}
	return &f, nil
}

// Key returns the key declared in the file header.
func (f *File) Key() Key {
	return Key{Symbol: domain.NormalizeSymbol(f.Symbol), Date: f.Date, Session: f.Session}
}

// PricePoints converts the file points in file order.
func (f *File) PricePoints() ([]domain.PricePoint, error) {
	out := make([]domain.PricePoint, 0, len(f.Points))
	for i, fp := range f.Points {
		price, err := parsePrice(fp.Price)
		if err != nil {
			return nil, fmt.Errorf("point %d: price: %w", i, err)
		}
		pt := domain.PricePoint{Timestamp: fp.Timestamp, Price: price}
		if fp.Open != nil {
			open, err := parsePrice(*fp.Open)
			if err != nil {
				return nil, fmt.Errorf("point %d: open: %w", i, err)
			}
			pt.Open = &open
		}
		out = append(out, pt)
	}
	return out, nil
}
