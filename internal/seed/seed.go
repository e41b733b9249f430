// Package seed loads the floor plan and menu from a YAML fixture.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/restify-pos/api/internal/database"
	"github.com/restify-pos/api/internal/enum"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultFixture []byte

var (
	ErrInvalidFixture  = errors.New("invalid fixture")
	ErrUnknownCategory = errors.New("unknown category")
)

// Fixture is the YAML document accepted by the seed command.
type Fixture struct {
	Tables     []TableFixture    `yaml:"tables"`
	Categories []CategoryFixture `yaml:"categories"`
	Products   []ProductFixture  `yaml:"products"`
}

type TableFixture struct {
	Number int32  `yaml:"number"`
	Status string `yaml:"status"`
}

type CategoryFixture struct {
	Name      string `yaml:"name"`
	SortOrder int32  `yaml:"sort_order"`
}

type ProductFixture struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Price    string `yaml:"price"`
	Image    string `yaml:"image"`
	Active   *bool  `yaml:"active"`
}

// Store is the write side needed to apply a fixture. Satisfied by
// *database.Queries and *backend.Memory.
type Store interface {
	UpsertTable(ctx context.Context, arg database.UpsertTableParams) (database.Table, error)
	UpsertCategory(ctx context.Context, arg database.UpsertCategoryParams) (database.Category, error)
	UpsertProduct(ctx context.Context, arg database.UpsertProductParams) (database.Product, error)
}

// Result counts the rows a fixture touched.
type Result struct {
	Tables     int
	Categories int
	Products   int
}

// Default returns the fixture bundled with the binary.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

// LoadFile reads and validates a fixture file.
func LoadFile(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes and validates a fixture.
func Parse(b []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(b, &fx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate checks the fixture before anything is written.
func (fx *Fixture) Validate() error {
	numbers := make(map[int32]bool)
	for i, t := range fx.Tables {
		if t.Number <= 0 {
			return fmt.Errorf("%w: tables[%d]: number must be > 0", ErrInvalidFixture, i)
		}
		if numbers[t.Number] {
			return fmt.Errorf("%w: tables[%d]: duplicate number %d", ErrInvalidFixture, i, t.Number)
		}
		numbers[t.Number] = true
		switch t.Status {
		case "", enum.TableStatusFree, enum.TableStatusOccupied:
		default:
			return fmt.Errorf("%w: tables[%d]: invalid status %q", ErrInvalidFixture, i, t.Status)
		}
	}

	categories := make(map[string]bool)
	for i, c := range fx.Categories {
		if c.Name == "" {
			return fmt.Errorf("%w: categories[%d]: name is required", ErrInvalidFixture, i)
		}
		categories[c.Name] = true
	}

	for i, p := range fx.Products {
		if p.Name == "" {
			return fmt.Errorf("%w: products[%d]: name is required", ErrInvalidFixture, i)
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil || price.IsNegative() {
			return fmt.Errorf("%w: products[%d]: invalid price %q", ErrInvalidFixture, i, p.Price)
		}
		if p.Category != "" && !categories[p.Category] {
			return fmt.Errorf("%w: products[%d]: %w %q", ErrInvalidFixture, i, ErrUnknownCategory, p.Category)
		}
	}
	return nil
}

// Apply upserts every row of fx by its natural key (table number, category
// name, product name), so applying the same fixture twice is a no-op.
func Apply(ctx context.Context, store Store, fx *Fixture) (Result, error) {
	var res Result

	for _, t := range fx.Tables {
		status := t.Status
		if status == "" {
			status = enum.TableStatusFree
		}
		if _, err := store.UpsertTable(ctx, database.UpsertTableParams{Number: t.Number, Status: status}); err != nil {
			return res, fmt.Errorf("upsert table %d: %w", t.Number, err)
		}
		res.Tables++
	}

	categoryIDs := make(map[string]database.Category, len(fx.Categories))
	for _, c := range fx.Categories {
		cat, err := store.UpsertCategory(ctx, database.UpsertCategoryParams{Name: c.Name, SortOrder: c.SortOrder})
		if err != nil {
			return res, fmt.Errorf("upsert category %q: %w", c.Name, err)
		}
		categoryIDs[c.Name] = cat
		res.Categories++
	}

	for _, p := range fx.Products {
		arg := database.UpsertProductParams{
			Name:   p.Name,
			Price:  decimal.RequireFromString(p.Price),
			Active: p.Active == nil || *p.Active,
		}
		if p.Category != "" {
			cat, ok := categoryIDs[p.Category]
			if !ok {
				return res, fmt.Errorf("product %q: %w %q", p.Name, ErrUnknownCategory, p.Category)
			}
			arg.CategoryID = &cat.ID
		}
		if p.Image != "" {
			img := p.Image
			arg.Image = &img
		}
		if _, err := store.UpsertProduct(ctx, arg); err != nil {
			return res, fmt.Errorf("upsert product %q: %w", p.Name, err)
		}
		res.Products++
	}

	return res, nil
}

// ApplyPostgres applies fx in a single transaction: all rows or none.
func ApplyPostgres(ctx context.Context, pool *pgxpool.Pool, fx *Fixture) (Result, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := Apply(ctx, database.New(pool).WithTx(tx), fx)
	if err != nil {
		return Result{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}
