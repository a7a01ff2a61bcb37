package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/liyun-dev/campus-sis-api/internal/models"
)

// MajorRepository handles persistence of majors.
type MajorRepository struct {
	db *sqlx.DB
}

// NewMajorRepository constructs the repository.
func NewMajorRepository(db *sqlx.DB) *MajorRepository {
	return &MajorRepository{db: db}
}

const majorDetailColumns = `m.id, m.department_id, m.name, m.code, m.duration_years, m.description, m.created_at, m.updated_at, d.name AS department_name`

// List returns majors joined with their department name.
func (r *MajorRepository) List(ctx context.Context, filter models.MajorFilter) ([]models.MajorDetail, int, error) {
	base := `FROM majors m JOIN departments d ON d.id = m.department_id WHERE 1=1`
	var args []interface{}
	if filter.DepartmentID != "" {
		base += fmt.Sprintf(" AND m.department_id = $%d", len(args)+1)
		args = append(args, filter.DepartmentID)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(m.name) LIKE $%d OR LOWER(m.code) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{"name": "m.name", "code": "m.code", "created_at": "m.created_at"}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "m.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", majorDetailColumns, base, column, order, size, offset)
	var majors []models.MajorDetail
	if err := r.db.SelectContext(ctx, &majors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list majors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count majors: %w", err)
	}
	return majors, total, nil
}

// FindByID returns a major by its ID.
func (r *MajorRepository) FindByID(ctx context.Context, id string) (*models.Major, error) {
	const query = `SELECT id, department_id, name, code, duration_years, description, created_at, updated_at FROM majors WHERE id = $1`
	var major models.Major
	if err := r.db.GetContext(ctx, &major, query, id); err != nil {
		return nil, err
	}
	return &major, nil
}

// FindDetailByID returns a major with its department name resolved.
func (r *MajorRepository) FindDetailByID(ctx context.Context, id string) (*models.MajorDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM majors m JOIN departments d ON d.id = m.department_id WHERE m.id = $1`, majorDetailColumns)
	var major models.MajorDetail
	if err := r.db.GetContext(ctx, &major, query, id); err != nil {
		return nil, err
	}
	return &major, nil
}

// ExistsByCode checks code uniqueness, optionally excluding a record.
func (r *MajorRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM majors WHERE code = $1"
	args := []interface{}{code}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check major code: %w", err)
	}
	return true, nil
}

// Create persists a new major.
func (r *MajorRepository) Create(ctx context.Context, major *models.Major) error {
	if major.ID == "" {
		major.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if major.CreatedAt.IsZero() {
		major.CreatedAt = now
	}
	major.UpdatedAt = now
	const query = `INSERT INTO majors (id, department_id, name, code, duration_years, description, created_at, updated_at)
        VALUES (:id, :department_id, :name, :code, :duration_years, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, major); err != nil {
		return fmt.Errorf("create major: %w", err)
	}
	return nil
}

// Update updates mutable fields of a major.
func (r *MajorRepository) Update(ctx context.Context, major *models.Major) error {
	major.UpdatedAt = time.Now().UTC()
	const query = `UPDATE majors SET department_id = :department_id, name = :name, code = :code, duration_years = :duration_years, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, major); err != nil {
		return fmt.Errorf("update major: %w", err)
	}
	return nil
}

// Delete removes a major together with its enrollments and detaches student
// profiles that referenced it.
func (r *MajorRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin major delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE major_id = $1`, id); err != nil {
		return fmt.Errorf("cascade enrollments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE student_profiles SET major_id = NULL WHERE major_id = $1`, id); err != nil {
		return fmt.Errorf("clear profile majors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM majors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete major: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit major delete: %w", err)
	}
	return nil
}

// Count returns the total number of majors.
func (r *MajorRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM majors`); err != nil {
		return 0, fmt.Errorf("count majors: %w", err)
	}
	return total, nil
}
