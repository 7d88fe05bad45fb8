// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/cblocks/pkg/types"
)

// ErrBlockNotFound is returned by Block for an unknown ID.
var ErrBlockNotFound = errors.New("block not found")

// QueryOptions holds parameters for catalog queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string over block text.
	Query string

	// Kind filters by keyword. KeywordNone matches every kind.
	Kind types.KeywordKind

	// Path filters by host document.
	Path string

	// Symbol filters csub blocks by normalized name.
	Symbol types.SymbolName

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Kind == types.KeywordNone && q.Path == "" && q.Symbol == ""
}

// QueryResult is a catalogued block with its ID and host document.
type QueryResult struct {
	types.Block `yaml:",inline"`
	ID          string `json:"id" yaml:"id"`
	Path        string `json:"path" yaml:"path"`
}

const selectColumns = `b.id, b.path, b.kind, b.declaration, b.symbol, b.text,
	b.start_offset, b.line, b.body_line, b.end_offset, b.functions`

// Retrieve queries the catalog with optional full-text search and
// structured filters. Full-text results are ranked by relevance; others
// are ordered by path and position.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(`SELECT ` + selectColumns + `
			FROM blocks_fts
			JOIN blocks b ON b.rowid = blocks_fts.rowid
			WHERE blocks_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT ` + selectColumns + `
			FROM blocks b
			WHERE 1=1`)
	}

	if opts.Kind != types.KeywordNone {
		qb.WriteString(` AND b.kind = ?`)
		args = append(args, opts.Kind.String())
	}
	if opts.Path != "" {
		qb.WriteString(` AND b.path = ?`)
		args = append(args, opts.Path)
	}
	if opts.Symbol != "" {
		qb.WriteString(` AND b.symbol = ?`)
		args = append(args, string(opts.Symbol))
	}

	if useFTS {
		qb.WriteString(` ORDER BY blocks_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY b.path, b.start_offset`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		qr, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, qr)
	}

	return results, rows.Err()
}

// Block returns one catalogued block by ID.
func (s *Store) Block(ctx context.Context, id string) (QueryResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM blocks b WHERE b.id = ?`, id)
	qr, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return QueryResult{}, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	return qr, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBlock(row scanner) (QueryResult, error) {
	var (
		qr        QueryResult
		kind      string
		decl      sql.NullString
		symbol    sql.NullString
		bodyLine  sql.NullInt64
		funcsJSON sql.NullString
	)
	if err := row.Scan(
		&qr.ID, &qr.Path, &kind, &decl, &symbol, &qr.Text,
		&qr.Offset, &qr.Line, &bodyLine, &qr.End, &funcsJSON,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QueryResult{}, err
		}
		return QueryResult{}, fmt.Errorf("scanning row: %w", err)
	}

	k, err := types.ParseKeywordKind(kind)
	if err != nil {
		return QueryResult{}, fmt.Errorf("block %s: %w", qr.ID, err)
	}
	qr.Kind = k
	qr.Declaration = decl.String
	qr.Symbol = types.SymbolName(symbol.String)
	qr.BodyLine = int(bodyLine.Int64)
	if funcsJSON.Valid {
		if err := json.Unmarshal([]byte(funcsJSON.String), &qr.Functions); err != nil {
			return QueryResult{}, fmt.Errorf("block %s: decoding functions: %w", qr.ID, err)
		}
	}
	return qr, nil
}

// SymbolUse is one csub that produced a given symbol.
type SymbolUse struct {
	Path        string `json:"path" yaml:"path"`
	Declaration string `json:"declaration" yaml:"declaration"`
	Line        int    `json:"line" yaml:"line"`
}

// Conflict is a linkage symbol defined by more than one csub, either by
// repeating a name or because distinct scoped names flatten to the same
// symbol (e.g. "A::B_c" and "A__B_c").
type Conflict struct {
	Symbol types.SymbolName `json:"symbol" yaml:"symbol"`
	Uses   []SymbolUse      `json:"uses" yaml:"uses"`
}

// SymbolConflicts lists every csub symbol with more than one definition,
// ordered by symbol.
func (s *Store) SymbolConflicts(ctx context.Context) ([]Conflict, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, path, declaration, line FROM blocks
		 WHERE kind = ? AND symbol IN (
			SELECT symbol FROM blocks
			WHERE kind = ? AND symbol != ''
			GROUP BY symbol HAVING count(*) > 1
		 )
		 ORDER BY symbol, path, start_offset`,
		types.KeywordCSub.String(), types.KeywordCSub.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying symbol conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []Conflict
	for rows.Next() {
		var (
			symbol string
			use    SymbolUse
			decl   sql.NullString
		)
		if err := rows.Scan(&symbol, &use.Path, &decl, &use.Line); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		use.Declaration = decl.String

		if n := len(conflicts); n == 0 || conflicts[n-1].Symbol != types.SymbolName(symbol) {
			conflicts = append(conflicts, Conflict{Symbol: types.SymbolName(symbol)})
		}
		last := &conflicts[len(conflicts)-1]
		last.Uses = append(last.Uses, use)
	}

	return conflicts, rows.Err()
}
