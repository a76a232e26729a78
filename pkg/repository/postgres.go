package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/model"
)

const createChecklistsTable = `CREATE TABLE IF NOT EXISTS checklists (
	id BIGSERIAL PRIMARY KEY,
	content TEXT NOT NULL
)`

// Postgres stores checklists as JSON text in a single table. Every operation
// opens its own connection and closes it when done.
type Postgres struct {
	dsn string
}

// NewPostgres checks connectivity and creates the checklists table if needed.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	p := &Postgres{dsn: dsn}

	conn, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, createChecklistsTable); err != nil {
		return nil, goerr.Wrap(err, "failed to create checklists table")
	}

	return p, nil
}

func (p *Postgres) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to postgres")
	}
	return conn, nil
}

func (p *Postgres) SaveChecklist(ctx context.Context, checklist []string) (model.ChecklistID, error) {
	if checklist == nil {
		checklist = []string{}
	}
	content, err := json.Marshal(checklist)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to marshal checklist")
	}

	conn, err := p.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close(ctx)

	var id int64
	if err := conn.QueryRow(ctx, "INSERT INTO checklists (content) VALUES ($1) RETURNING id", string(content)).Scan(&id); err != nil {
		return 0, goerr.Wrap(err, "failed to insert checklist")
	}

	return model.ChecklistID(id), nil
}

func (p *Postgres) GetChecklist(ctx context.Context, id model.ChecklistID) ([]string, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	var content string
	err = conn.QueryRow(ctx, "SELECT content FROM checklists WHERE id = $1", int64(id)).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrChecklistNotFound, "no such checklist", goerr.V("checklist_id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to select checklist", goerr.V("checklist_id", id))
	}

	var checklist []string
	if err := json.Unmarshal([]byte(content), &checklist); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal checklist", goerr.V("checklist_id", id))
	}
	if checklist == nil {
		checklist = []string{}
	}
	return checklist, nil
}
