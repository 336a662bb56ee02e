// Command catalog-ingest loads gzipped product feed exports into the catalog
// tables. Feeds are JSON-lines files, one product per line, and the same
// product may appear in several files (one export per sales channel); a bloom
// filter keeps each product from being written more than once per run.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/appmate-io/wishlist-engine/internal/domain/product"
	"github.com/appmate-io/wishlist-engine/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.0001
	progressEvery = 100_000
	maxLineBytes  = 1 << 20
)

func main() {
	var (
		feedDir     string
		databaseURL string
	)

	flag.StringVar(&feedDir, "feed-dir", "data", "directory containing *.jsonl.gz feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, feedDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, feedDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(feedDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", feedDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	writer := repository.NewCatalogWriter(pool)
	seen := newSeenFilter()
	products := make(chan *product.Product, 256)

	g, gctx := errgroup.WithContext(ctx)

	// Readers: one goroutine per feed file.
	readers, readersCtx := errgroup.WithContext(gctx)
	for _, f := range files {
		readers.Go(readFeedFile(readersCtx, f, seen, products))
	}
	g.Go(func() error {
		defer close(products)
		return readers.Wait()
	})

	// Single writer keeps the upsert transactions serialized.
	var written int
	g.Go(func() error {
		for p := range products {
			if err := writer.UpsertProduct(gctx, p); err != nil {
				return err
			}
			written++
			if written%progressEvery == 0 {
				slog.Info("ingest progress", slog.Int("products", written))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest complete", slog.Int("products", written))
	return nil
}

// seenFilter is a mutex-guarded bloom filter of product ids written this run.
type seenFilter struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

func newSeenFilter() *seenFilter {
	return &seenFilter{filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR)}
}

// testAndAdd reports whether id was (probably) seen before, adding it as a
// side effect.
func (s *seenFilter) testAndAdd(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.TestAndAddString(id)
}

func readFeedFile(ctx context.Context, path string, seen *seenFilter, out chan<- *product.Product) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var line int
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 64<<10), maxLineBytes)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}
			line++

			p, err := decodeProduct(scanner.Bytes())
			if err != nil {
				return errors.Wrapf(err, "%s line %d", path, line)
			}
			if p.ID == "" {
				slog.Warn("skipping product without id", slog.String("file", path), slog.Int("line", line))
				continue
			}
			if seen.testAndAdd(p.ID) {
				continue
			}

			select {
			case out <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("feed file done", slog.String("file", filepath.Base(path)), slog.Int("lines", line))
		return nil
	}
}

// decodeProduct parses one feed line into a product record.
func decodeProduct(line []byte) (*product.Product, error) {
	var p product.Product
	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "handle":
			p.Handle, err = d.Str()
		case "title":
			p.Title, err = d.Str()
		case "vendor":
			p.Vendor, err = d.Str()
		case "hasOnlyDefaultVariant":
			p.HasOnlyDefaultVariant, err = d.Bool()
		case "hidden":
			p.Hidden, err = d.Bool()
		case "priceMin":
			p.PriceMin, err = decodeDecimal(d)
		case "priceMax":
			p.PriceMax, err = decodeDecimal(d)
		case "options":
			err = d.Arr(func(d *jx.Decoder) error {
				o, err := decodeOption(d)
				if err != nil {
					return err
				}
				p.Options = append(p.Options, o)
				return nil
			})
		case "variants":
			err = d.Arr(func(d *jx.Decoder) error {
				v, err := decodeVariant(d)
				if err != nil {
					return err
				}
				p.Variants = append(p.Variants, v)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "decode product")
	}
	return &p, nil
}

func decodeOption(d *jx.Decoder) (product.Option, error) {
	var o product.Option
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			o.Name, err = d.Str()
		case "values":
			err = d.Arr(func(d *jx.Decoder) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				o.Values = append(o.Values, v)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	return o, err
}

func decodeVariant(d *jx.Decoder) (product.Variant, error) {
	var v product.Variant
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			v.ID, err = d.Str()
		case "optionValues":
			err = d.Arr(func(d *jx.Decoder) error {
				val, err := d.Str()
				if err != nil {
					return err
				}
				v.OptionValues = append(v.OptionValues, val)
				return nil
			})
		case "price":
			v.Price, err = decodeDecimal(d)
		case "compareAtPrice":
			v.CompareAtPrice, err = decodeDecimal(d)
		case "available":
			v.Available, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	return v, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	num, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(num.String())
}
