package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/learn-overlay/internal/types"
)

// -----------------------------------------------------------------------------
// Project Methods
// -----------------------------------------------------------------------------

const projectColumns = `id, name, access_key, scrape_url, repo_url, function_map, created_at, updated_at`

// DefaultListLimit is used when ListProjects is given a non-positive limit.
const DefaultListLimit = 50

// CreateProject inserts p and returns its id. CreatedAt and UpdatedAt are
// filled in from the database.
func (db *DB) CreateProject(ctx context.Context, p *types.Project) (int64, error) {
	if err := validateProject(p); err != nil {
		return 0, err
	}
	fmJSON, err := marshalFunctionMap(p.FunctionMap)
	if err != nil {
		return 0, err
	}

	err = db.pool.QueryRow(ctx,
		`INSERT INTO projects (name, access_key, scrape_url, repo_url, function_map)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.AccessKey, p.ScrapeURL, p.RepoURL, fmJSON,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create project: %w", err)
	}
	return p.ID, nil
}

// GetProjectByKey returns the project owning key, or nil if none does.
func (db *DB) GetProjectByKey(ctx context.Context, key string) (*types.Project, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE access_key = $1`, key)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project by key: %w", err)
	}
	return p, nil
}

// GetProjectByID returns the project with id, or nil if it does not exist.
func (db *DB) GetProjectByID(ctx context.Context, id int64) (*types.Project, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListProjects returns projects newest first.
func (db *DB) ListProjects(ctx context.Context, limit, offset int) ([]types.Project, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []types.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// UpdateFunctionMap replaces a project's map wholesale. It reports false
// when the project does not exist.
func (db *DB) UpdateFunctionMap(ctx context.Context, id int64, fm types.FunctionMap) (bool, error) {
	fmJSON, err := marshalFunctionMap(fm)
	if err != nil {
		return false, err
	}
	tag, err := db.pool.Exec(ctx,
		`UPDATE projects SET function_map = $1, updated_at = NOW() WHERE id = $2`,
		fmJSON, id)
	if err != nil {
		return false, fmt.Errorf("failed to update function map: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteProject removes a project and its activity (via cascade). It
// reports false when the project did not exist.
func (db *DB) DeleteProject(ctx context.Context, id int64) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanProject(row pgx.Row) (*types.Project, error) {
	var p types.Project
	var fmJSON []byte
	if err := row.Scan(&p.ID, &p.Name, &p.AccessKey, &p.ScrapeURL, &p.RepoURL, &fmJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.FunctionMap = types.FunctionMap{}
	if len(fmJSON) > 0 {
		if err := json.Unmarshal(fmJSON, &p.FunctionMap); err != nil {
			return nil, fmt.Errorf("failed to decode function map: %w", err)
		}
	}
	return &p, nil
}

func marshalFunctionMap(fm types.FunctionMap) ([]byte, error) {
	if fm == nil {
		fm = types.FunctionMap{}
	}
	b, err := json.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal function map: %w", err)
	}
	return b, nil
}

func validateProject(p *types.Project) error {
	if p == nil {
		return fmt.Errorf("project is nil")
	}
	if p.Name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if p.AccessKey == "" {
		return fmt.Errorf("project access key cannot be empty")
	}
	hasPage := p.ScrapeURL != nil && *p.ScrapeURL != ""
	hasRepo := p.RepoURL != nil && *p.RepoURL != ""
	if hasPage == hasRepo {
		return fmt.Errorf("project must have exactly one of scrape_url and repo_url")
	}
	return nil
}
