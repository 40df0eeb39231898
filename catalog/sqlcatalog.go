package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// timeFormat is fixed width so that push times sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

type sqlCatalog struct {
	db *sql.DB
}

// NewSQLCatalog returns a catalog stored in db, creating its table if
// needed.
func NewSQLCatalog(ctx context.Context, db *sql.DB) (Catalog, error) {
	c := &sqlCatalog{db: db}
	if err := c.initialize(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *sqlCatalog) initialize(ctx context.Context) error {
	var maxApplied int64
	err := c.db.QueryRowContext(ctx, "select max(version) from schema_migrations").Scan(&maxApplied)
	if err == nil && maxApplied == 1 {
		return nil
	}
	if _, err := c.db.ExecContext(ctx, `
	create table if not exists pushes (
		name text not null,
		id text not null,
		prefix text not null,
		store text not null,
		checkpoints bigint not null,
		nb_events bigint not null,
		pushed_at text not null,
		primary key (name, id)
	);

	create table if not exists schema_migrations(
		version bigint not null,
		timestamp text not null default current_timestamp
	);

	insert into schema_migrations(version) values (1);
	`); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (c *sqlCatalog) Put(ctx context.Context, e Entry) error {
	_, err := c.db.ExecContext(ctx, `
	insert into pushes (name, id, prefix, store, checkpoints, nb_events, pushed_at)
	values ($1, $2, $3, $4, $5, $6, $7)`,
		e.Name, e.ID, e.Prefix, e.Store, e.Checkpoints, e.NbEvents, e.PushedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return ErrEntryExists
		}
		return fmt.Errorf("failed to store catalog entry: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var pushedAt string
	if err := row.Scan(&e.Name, &e.ID, &e.Prefix, &e.Store, &e.Checkpoints, &e.NbEvents, &pushedAt); err != nil {
		return Entry{}, err
	}
	t, err := time.Parse(timeFormat, pushedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to parse push time: %w", err)
	}
	e.PushedAt = t
	return e, nil
}

const selectEntry = `select name, id, prefix, store, checkpoints, nb_events, pushed_at from pushes`

func (c *sqlCatalog) Get(ctx context.Context, name string, id string) (Entry, error) {
	e, err := scanEntry(c.db.QueryRowContext(ctx, selectEntry+` where name = $1 and id = $2`, name, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, EntryNotFoundError{Name: name, ID: id}
		}
		return Entry{}, fmt.Errorf("failed to read catalog: %w", err)
	}
	return e, nil
}

func (c *sqlCatalog) Latest(ctx context.Context, name string) (Entry, error) {
	e, err := scanEntry(c.db.QueryRowContext(ctx,
		selectEntry+` where name = $1 order by pushed_at desc limit 1`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, EntryNotFoundError{Name: name}
		}
		return Entry{}, fmt.Errorf("failed to read catalog: %w", err)
	}
	return e, nil
}

func (c *sqlCatalog) List(ctx context.Context, pattern string) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, selectEntry+` order by name, pushed_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	defer rows.Close()
	result := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
		ok, err := match(pattern, e.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return result, nil
}

func (c *sqlCatalog) Delete(ctx context.Context, name string, id string) error {
	if _, err := c.db.ExecContext(ctx, `delete from pushes where name = $1 and id = $2`, name, id); err != nil {
		return fmt.Errorf("failed to delete catalog entry: %w", err)
	}
	return nil
}
