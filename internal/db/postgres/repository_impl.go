package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"companionforge/internal/domain/companion"
	applog "companionforge/internal/platform/log"
)

type Companion = companion.Companion
type ListParams = companion.ListParams
type ListResult = companion.ListResult

// Repository 伴侣 PostgreSQL 存储。
// 人设字段整体存放在 persona JSONB 列，Telegram token 单独一列且不进入 JSON。
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository 创建 PostgreSQL 存储
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Open 打开连接池并校验连通性
func Open(ctx context.Context, url string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureTables 确保 companions 表存在
func (r *Repository) EnsureTables(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS companions (
		id             UUID PRIMARY KEY,
		owner_id       VARCHAR(255) NOT NULL,
		name           VARCHAR(255) NOT NULL DEFAULT '',
		status         VARCHAR(32) NOT NULL DEFAULT 'draft',
		persona        JSONB NOT NULL DEFAULT '{}',
		telegram_token TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_companions_owner_updated ON companions(owner_id, updated_at DESC);
	`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure companions table: %w", err)
	}
	applog.Info("[Storage] companions table ready")
	return nil
}

func (r *Repository) CreateCompanion(ctx context.Context, c *Companion) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := r.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.Normalize()

	persona, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal companion: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO companions (id, owner_id, name, status, persona, telegram_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.OwnerID, c.Name, c.Status, persona, c.TelegramToken, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *Repository) GetCompanion(ctx context.Context, id string) (*Companion, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT persona, telegram_token FROM companions WHERE id = $1`, id)
	c, err := scanCompanion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *Repository) UpdateCompanion(ctx context.Context, c *Companion) error {
	c.UpdatedAt = r.now()
	c.Normalize()
	persona, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal companion: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE companions SET name=$1, status=$2, persona=$3, telegram_token=$4, updated_at=$5 WHERE id=$6`,
		c.Name, c.Status, persona, c.TelegramToken, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *Repository) DeleteCompanion(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM companions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *Repository) ListCompanions(ctx context.Context, params ListParams) (*ListResult, error) {
	params.Normalize()
	whereClause, args := buildListFilter(params)

	var total int
	countQuery := "SELECT COUNT(*) FROM companions " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(
		`SELECT persona, telegram_token FROM companions %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`,
		whereClause, len(args)+1, len(args)+2,
	)
	args = append(args, params.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companions := []*Companion{}
	for rows.Next() {
		c, err := scanCompanion(rows)
		if err != nil {
			return nil, err
		}
		companions = append(companions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &ListResult{
		Companions: companions,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
	}, nil
}

// buildListFilter 生成 WHERE 子句与参数，占位符从 $1 开始
func buildListFilter(params ListParams) (string, []interface{}) {
	var where []string
	var args []interface{}
	argIdx := 1

	if params.OwnerID != "" {
		where = append(where, fmt.Sprintf("owner_id = $%d", argIdx))
		args = append(args, params.OwnerID)
		argIdx++
	}
	if params.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(params.Status))
		argIdx++
	}
	if params.Search != "" {
		where = append(where, fmt.Sprintf("name ILIKE $%d", argIdx))
		args = append(args, "%"+params.Search+"%")
	}

	if len(where) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCompanion(row rowScanner) (*Companion, error) {
	var persona []byte
	var token string
	if err := row.Scan(&persona, &token); err != nil {
		return nil, err
	}
	c := &Companion{}
	if err := json.Unmarshal(persona, c); err != nil {
		return nil, fmt.Errorf("decode companion persona: %w", err)
	}
	c.TelegramToken = token
	c.Normalize()
	return c, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return companion.ErrNotFound
	}
	return nil
}

var _ companion.Repository = (*Repository)(nil)
