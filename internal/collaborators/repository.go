package collaborators

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pecsa/pecsa-admin/internal/platform/db"
	"github.com/pecsa/pecsa-admin/internal/shared"
)

const documentUniqueConstraint = "collaborators_document_number_key"

// Repository defines collaborator persistence.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Collaborator, error)
	Get(ctx context.Context, id int64) (Collaborator, error)
	GetByDocument(ctx context.Context, document string) (Collaborator, error)
	Create(ctx context.Context, in CreateInput) (int64, error)
	Update(ctx context.Context, id int64, in UpdateInput) error
	SetStatus(ctx context.Context, id int64, status Status) error
	Stats(ctx context.Context) (Stats, error)
	ListAvailable(ctx context.Context) ([]Collaborator, error)
}

type pgRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{db: pool}
}

const selectColumns = `
SELECT c.id, c.document_number, c.first_name, c.last_name, c.position, c.phone, c.email,
       COALESCE(c.status, 'active') AS status,
       COALESCE(c.created_at, now()) AS created_at,
       COALESCE(c.updated_at, now()) AS updated_at
FROM collaborators c`

func (r *pgRepository) List(ctx context.Context, filter ListFilter) ([]Collaborator, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, containsPattern(search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(`(c.first_name ILIKE $%d ESCAPE '\' OR c.last_name ILIKE $%d ESCAPE '\' OR c.document_number ILIKE $%d ESCAPE '\')`, n, n, n))
	}
	query := selectColumns
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY c.last_name, c.first_name"

	items, err := db.All[Collaborator](ctx, r.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("collaborators: list: %w", err)
	}
	return items, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Collaborator, error) {
	c, err := db.One[Collaborator](ctx, r.db, selectColumns+" WHERE c.id = $1", id)
	if err != nil {
		return Collaborator{}, fmt.Errorf("collaborators: get %d: %w", id, err)
	}
	return c, nil
}

func (r *pgRepository) GetByDocument(ctx context.Context, document string) (Collaborator, error) {
	c, err := db.One[Collaborator](ctx, r.db, selectColumns+" WHERE c.document_number = $1", document)
	if err != nil {
		return Collaborator{}, fmt.Errorf("collaborators: get by document: %w", err)
	}
	return c, nil
}

func (r *pgRepository) Create(ctx context.Context, in CreateInput) (int64, error) {
	status := in.Status
	if status == "" {
		status = StatusActive
	}
	res, err := db.Execute(ctx, r.db, db.ModeOne, `
		INSERT INTO collaborators (document_number, first_name, last_name, position, phone, email, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		in.DocumentNumber, in.FirstName, in.LastName, in.Position, nullable(in.Phone), nullable(in.Email), string(status))
	if err != nil {
		if db.IsUniqueViolation(err, documentUniqueConstraint) {
			return 0, fmt.Errorf("collaborators: create: %w: %w", shared.ErrDuplicateDocument, err)
		}
		return 0, fmt.Errorf("collaborators: create: %w", err)
	}
	id, ok := res.One()["id"].(int32)
	if !ok {
		return 0, fmt.Errorf("collaborators: create: unexpected id %T", res.One()["id"])
	}
	return int64(id), nil
}

func (r *pgRepository) Update(ctx context.Context, id int64, in UpdateInput) error {
	status := in.Status
	if status == "" {
		status = StatusActive
	}
	n, err := db.Exec(ctx, r.db, `
		UPDATE collaborators
		SET first_name = $2, last_name = $3, position = $4, phone = $5, email = $6, status = $7,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`,
		id, in.FirstName, in.LastName, in.Position, nullable(in.Phone), nullable(in.Email), string(status))
	if err != nil {
		return fmt.Errorf("collaborators: update %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("collaborators: update %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *pgRepository) SetStatus(ctx context.Context, id int64, status Status) error {
	n, err := db.Exec(ctx, r.db,
		`UPDATE collaborators SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("collaborators: set status %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("collaborators: set status %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *pgRepository) Stats(ctx context.Context) (Stats, error) {
	res, err := db.Execute(ctx, r.db, db.ModeOne, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE status = 'active') AS active,
		       COUNT(*) FILTER (WHERE status = 'inactive') AS inactive,
		       COUNT(DISTINCT position) AS positions
		FROM collaborators`)
	if err != nil {
		return Stats{}, fmt.Errorf("collaborators: stats: %w", err)
	}
	row := res.One()
	stats := Stats{
		Total:     asInt64(row["total"]),
		Active:    asInt64(row["active"]),
		Inactive:  asInt64(row["inactive"]),
		Positions: asInt64(row["positions"]),
	}
	stats.TopPositions, err = db.All[PositionCount](ctx, r.db, `
		SELECT position, COUNT(*) AS count
		FROM collaborators
		GROUP BY position
		ORDER BY count DESC, position
		LIMIT 5`)
	if err != nil {
		return Stats{}, fmt.Errorf("collaborators: stats positions: %w", err)
	}
	return stats, nil
}

func (r *pgRepository) ListAvailable(ctx context.Context) ([]Collaborator, error) {
	items, err := db.All[Collaborator](ctx, r.db, selectColumns+`
		WHERE c.status = 'active'
		  AND NOT EXISTS (SELECT 1 FROM users u WHERE u.collaborator_id = c.id)
		ORDER BY c.last_name, c.first_name`)
	if err != nil {
		return nil, fmt.Errorf("collaborators: list available: %w", err)
	}
	return items, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

var _ Repository = (*pgRepository)(nil)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns a search term into a substring LIKE pattern. The
// term's own wildcards match literally.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
