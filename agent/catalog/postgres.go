package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

var _ Index = (*PostgresIndex)(nil)

type productRow struct {
	bun.BaseModel `bun:"table:catalog_products,alias:cp"`

	ID          string  `bun:"id,pk"`
	Name        string  `bun:"name,notnull"`
	Description string  `bun:"description,notnull"`
	Price       string  `bun:"price,notnull"`
	SpecsURL    string  `bun:"specs_url"`
	Embedding   string  `bun:"embedding,type:vector"`
	Score       float64 `bun:"score,scanonly"`
}

// PostgresIndex keeps product vectors in a pgvector column and ranks with the
// cosine distance operator.
type PostgresIndex struct {
	db *bun.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresIndex, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", contractx.ErrValidation)
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	idx := &PostgresIndex{db: bun.NewDB(sqldb, pgdialect.New())}
	if err := idx.migrate(ctx); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

func (p *PostgresIndex) migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	if _, err := p.db.NewCreateTable().Model((*productRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create catalog table: %w", err)
	}
	return nil
}

func (p *PostgresIndex) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]productRow, 0, len(docs))
	for _, d := range docs {
		id := d.ID
		if id == "" {
			id = DocumentID(d.Product.Name)
		}
		rows = append(rows, productRow{
			ID:          id,
			Name:        d.Product.Name,
			Description: d.Product.Description,
			Price:       d.Product.Price,
			SpecsURL:    d.Product.SpecsURL,
			Embedding:   vectorLiteral(d.Vector),
		})
	}

	_, err := p.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("price = EXCLUDED.price").
		Set("specs_url = EXCLUDED.specs_url").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert catalog rows: %w", err)
	}
	return nil
}

func (p *PostgresIndex) Nearest(ctx context.Context, vector []float64) (*Match, error) {
	lit := vectorLiteral(vector)

	var row productRow
	err := p.db.NewSelect().
		Model(&row).
		Column("id", "name", "description", "price", "specs_url").
		ColumnExpr("1 - (embedding <=> ?::vector) AS score", lit).
		OrderExpr("embedding <=> ?::vector", lit).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contractx.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query nearest product: %w", err)
	}

	return &Match{
		Product: contractx.ProductRecord{
			Name:        row.Name,
			Description: row.Description,
			Price:       row.Price,
			SpecsURL:    row.SpecsURL,
		},
		Score: row.Score,
	}, nil
}

func (p *PostgresIndex) Close() error {
	return p.db.Close()
}

// vectorLiteral renders v in pgvector text form, e.g. [0.1,0.2].
func vectorLiteral(v []float64) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
