package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/promptlib/internal/domain"
)

// PostgresStore — хранилище prompts, версий и workflows в PostgreSQL.
//
// Конфликтующие записи одного prompt сериализуются через SELECT ... FOR UPDATE
// внутри транзакции.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore создаёт новый PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// scanner — общий интерфейс pgx.Row и pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// execer — общий интерфейс пула и транзакции.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const promptColumns = `id, name, description, content, variables, variable_definitions, tags,
	category, author, version, checksum, usage_count, last_used_at, metadata, created_at, updated_at`

const versionColumns = `id, prompt_id, version, content, checksum, author, change_note, created_at`

const workflowColumns = `id, name, description, start_step, steps, metadata, created_at, updated_at`

// --- Prompts ---

// CreatePrompt сохраняет prompt и начальную версию в одной транзакции.
func (s *PostgresStore) CreatePrompt(ctx context.Context, p *domain.Prompt, v *domain.PromptVersion) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := insertPrompt(ctx, tx, p); err != nil {
			return err
		}
		if v != nil {
			return insertVersion(ctx, tx, v)
		}
		return nil
	})
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

// UpdatePrompt блокирует строку prompt, применяет mutate и сохраняет
// результат вместе с новой версией (если она есть).
func (s *PostgresStore) UpdatePrompt(ctx context.Context, id uuid.UUID, mutate func(p *domain.Prompt) (*domain.PromptVersion, error)) (*domain.Prompt, error) {
	var updated *domain.Prompt

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + promptColumns + ` FROM prompts WHERE id = $1 FOR UPDATE`
		current, err := scanPrompt(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}

		v, err := mutate(current)
		if err != nil {
			return err
		}
		current.ID = id

		if err := updatePrompt(ctx, tx, current); err != nil {
			return err
		}
		if v != nil {
			if err := insertVersion(ctx, tx, v); err != nil {
				return err
			}
		}

		updated = current
		return nil
	})
	if isUniqueViolation(err) {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetPrompt возвращает prompt по ID.
func (s *PostgresStore) GetPrompt(ctx context.Context, id uuid.UUID) (*domain.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE id = $1`
	return scanPrompt(s.pool.QueryRow(ctx, query, id))
}

// GetPromptByName возвращает prompt по имени.
func (s *PostgresStore) GetPromptByName(ctx context.Context, name string) (*domain.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE name = $1`
	return scanPrompt(s.pool.QueryRow(ctx, query, name))
}

// DeletePrompt удаляет prompt. Записи prompt_versions не трогаются.
func (s *PostgresStore) DeletePrompt(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM prompts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPrompts возвращает prompts по фильтру: категория и все теги.
func (s *PostgresStore) ListPrompts(ctx context.Context, filter domain.PromptFilter) ([]*domain.Prompt, error) {
	tags, err := marshalJSON(filter.Tags, "[]")
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + promptColumns + `
		FROM prompts
		WHERE ($1 = '' OR category = $1)
		  AND tags @> $2::jsonb
		ORDER BY name
	`
	return s.queryPrompts(ctx, query, filter.Category, tags)
}

// SearchPrompts ищет по полнотекстовому индексу и по подстроке в
// name / description / content. Сортировка — по usage_count убыванию.
func (s *PostgresStore) SearchPrompts(ctx context.Context, query string) ([]*domain.Prompt, error) {
	sql := `
		SELECT ` + promptColumns + `
		FROM prompts
		WHERE $1 = ''
		   OR to_tsvector('simple', name || ' ' || description || ' ' || content) @@ plainto_tsquery('simple', $1)
		   OR name ILIKE $2
		   OR description ILIKE $2
		   OR content ILIKE $2
		ORDER BY usage_count DESC, name
	`
	return s.queryPrompts(ctx, sql, query, "%"+escapeLike(query)+"%")
}

// ListVersions возвращает историю prompt в порядке создания.
func (s *PostgresStore) ListVersions(ctx context.Context, promptID uuid.UUID) ([]*domain.PromptVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM prompt_versions WHERE prompt_id = $1 ORDER BY seq`

	rows, err := s.pool.Query(ctx, query, promptID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.PromptVersion
	for rows.Next() {
		var v domain.PromptVersion
		if err := rows.Scan(
			&v.ID,
			&v.PromptID,
			&v.Version,
			&v.Content,
			&v.Checksum,
			&v.Author,
			&v.ChangeNote,
			&v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return versions, nil
}

// IncrementUsage атомарно увеличивает usage_count.
func (s *PostgresStore) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE prompts
		SET usage_count = usage_count + 1, last_used_at = $2
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryPrompts(ctx context.Context, query string, args ...any) ([]*domain.Prompt, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prompts: %w", err)
	}
	defer rows.Close()

	prompts := make([]*domain.Prompt, 0)
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompts: %w", err)
	}
	return prompts, nil
}

func insertPrompt(ctx context.Context, db execer, p *domain.Prompt) error {
	args, err := promptArgs(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO prompts (` + promptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	if _, err := db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert prompt: %w", err)
	}
	return nil
}

func updatePrompt(ctx context.Context, db execer, p *domain.Prompt) error {
	args, err := promptArgs(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE prompts SET
			name = $2, description = $3, content = $4, variables = $5,
			variable_definitions = $6, tags = $7, category = $8, author = $9,
			version = $10, checksum = $11, usage_count = $12, last_used_at = $13,
			metadata = $14, created_at = $15, updated_at = $16
		WHERE id = $1
	`
	if _, err := db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update prompt: %w", err)
	}
	return nil
}

func insertVersion(ctx context.Context, db execer, v *domain.PromptVersion) error {
	query := `
		INSERT INTO prompt_versions (` + versionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := db.Exec(ctx, query,
		v.ID,
		v.PromptID,
		v.Version,
		v.Content,
		v.Checksum,
		v.Author,
		v.ChangeNote,
		v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

// promptArgs возвращает аргументы в порядке promptColumns.
func promptArgs(p *domain.Prompt) ([]any, error) {
	variables, err := marshalJSON(p.Variables, "[]")
	if err != nil {
		return nil, err
	}
	defs, err := marshalJSON(p.VariableDefinitions, "[]")
	if err != nil {
		return nil, err
	}
	tags, err := marshalJSON(p.Tags, "[]")
	if err != nil {
		return nil, err
	}
	metadata, err := marshalJSON(p.Metadata, "{}")
	if err != nil {
		return nil, err
	}

	return []any{
		p.ID,
		p.Name,
		p.Description,
		p.Content,
		variables,
		defs,
		tags,
		p.Category,
		p.Author,
		p.Version,
		p.Checksum,
		p.UsageCount,
		p.LastUsedAt,
		metadata,
		p.CreatedAt,
		p.UpdatedAt,
	}, nil
}

func scanPrompt(row scanner) (*domain.Prompt, error) {
	var (
		p                                    domain.Prompt
		variables, defs, tags, metadataBytes []byte
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Content,
		&variables,
		&defs,
		&tags,
		&p.Category,
		&p.Author,
		&p.Version,
		&p.Checksum,
		&p.UsageCount,
		&p.LastUsedAt,
		&metadataBytes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan prompt: %w", err)
	}

	if err := json.Unmarshal(variables, &p.Variables); err != nil {
		return nil, fmt.Errorf("unmarshal variables: %w", err)
	}
	if err := json.Unmarshal(defs, &p.VariableDefinitions); err != nil {
		return nil, fmt.Errorf("unmarshal variable definitions: %w", err)
	}
	if err := json.Unmarshal(tags, &p.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(metadataBytes, &p.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	return &p, nil
}

// --- Workflows ---

// SaveWorkflow создаёт или заменяет workflow по ID.
func (s *PostgresStore) SaveWorkflow(ctx context.Context, wf *domain.Workflow) error {
	steps, err := json.Marshal(wf.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	metadata, err := marshalJSON(wf.Metadata, "{}")
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			start_step = EXCLUDED.start_step,
			steps = EXCLUDED.steps,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		wf.Description,
		wf.StartStep,
		steps,
		metadata,
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

// GetWorkflow возвращает workflow по ID.
func (s *PostgresStore) GetWorkflow(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`
	return scanWorkflow(s.pool.QueryRow(ctx, query, id))
}

// GetWorkflowByName возвращает workflow по имени.
func (s *PostgresStore) GetWorkflowByName(ctx context.Context, name string) (*domain.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE name = $1`
	return scanWorkflow(s.pool.QueryRow(ctx, query, name))
}

// ListWorkflows возвращает все workflows, отсортированные по имени.
func (s *PostgresStore) ListWorkflows(ctx context.Context) ([]*domain.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	workflows := make([]*domain.Workflow, 0)
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflows: %w", err)
	}
	return workflows, nil
}

// DeleteWorkflow удаляет workflow.
func (s *PostgresStore) DeleteWorkflow(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWorkflow(row scanner) (*domain.Workflow, error) {
	var (
		wf                 domain.Workflow
		steps, metadataRaw []byte
	)

	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&wf.Description,
		&wf.StartStep,
		&steps,
		&metadataRaw,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if err := json.Unmarshal(steps, &wf.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	if err := json.Unmarshal(metadataRaw, &wf.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &wf, nil
}

// marshalJSON сериализует значение; nil заменяется на empty.
func marshalJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
