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

// DepartmentRepository handles persistence of departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

const departmentColumns = `id, name, code, description, head_name, phone, created_at, updated_at`

// List returns departments filtered by the provided criteria.
func (r *DepartmentRepository) List(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, int, error) {
	base := `FROM departments WHERE 1=1`
	var args []interface{}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR LOWER(code) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "code": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "name"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", departmentColumns, base, sortBy, order, size, offset)
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list departments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count departments: %w", err)
	}
	return departments, total, nil
}

// FindByID returns a department by its ID.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*models.Department, error) {
	query := fmt.Sprintf(`SELECT %s FROM departments WHERE id = $1`, departmentColumns)
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, id); err != nil {
		return nil, err
	}
	return &department, nil
}

// ExistsByCodeOrName checks uniqueness of code and name, optionally excluding a record.
func (r *DepartmentRepository) ExistsByCodeOrName(ctx context.Context, code, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM departments WHERE (code = $1 OR name = $2)"
	args := []interface{}{code, name}
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
		return false, fmt.Errorf("check department uniqueness: %w", err)
	}
	return true, nil
}

// Create persists a new department.
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if department.CreatedAt.IsZero() {
		department.CreatedAt = now
	}
	department.UpdatedAt = now
	const query = `INSERT INTO departments (id, name, code, description, head_name, phone, created_at, updated_at)
        VALUES (:id, :name, :code, :description, :head_name, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// Update updates mutable fields of a department.
func (r *DepartmentRepository) Update(ctx context.Context, department *models.Department) error {
	department.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET name = :name, code = :code, description = :description, head_name = :head_name, phone = :phone, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return nil
}

// Delete removes a department and applies the destructive cascade in one
// transaction: enrollments referencing the department's majors are deleted,
// the majors themselves are deleted, and student profiles only lose their
// department/major references.
func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin department delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE major_id IN (SELECT id FROM majors WHERE department_id = $1)`, id); err != nil {
		return fmt.Errorf("cascade enrollments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE student_profiles SET major_id = NULL WHERE major_id IN (SELECT id FROM majors WHERE department_id = $1)`, id); err != nil {
		return fmt.Errorf("clear profile majors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE student_profiles SET department_id = NULL WHERE department_id = $1`, id); err != nil {
		return fmt.Errorf("clear profile departments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM majors WHERE department_id = $1`, id); err != nil {
		return fmt.Errorf("cascade majors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete department: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit department delete: %w", err)
	}
	return nil
}

// Count returns the total number of departments.
func (r *DepartmentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM departments`); err != nil {
		return 0, fmt.Errorf("count departments: %w", err)
	}
	return total, nil
}
