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

// StudentRepository handles persistence of student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, user_id, student_no, real_name, gender, birth_date, phone, email, address,
    enrollment_date, enrollment_status, political_status,
    emergency_contact, emergency_phone, emergency_relation,
    emergency_contact2, emergency_phone2, emergency_relation2,
    department_id, major_id, created_at, updated_at`

func studentDetailColumns() string {
	return prefixColumns("s", studentColumns) + `, u.username, d.name AS department_name, m.name AS major_name`
}

const studentDetailJoins = ` FROM student_profiles s
    JOIN users u ON u.id = s.user_id
    LEFT JOIN departments d ON d.id = s.department_id
    LEFT JOIN majors m ON m.id = s.major_id`

// List returns student profiles with account and catalog context.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentProfileDetail, int, error) {
	base := studentDetailJoins + ` WHERE 1=1`
	var args []interface{}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(s.real_name) LIKE $%d OR LOWER(s.student_no) LIKE $%d OR LOWER(u.username) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.DepartmentID != "" {
		base += fmt.Sprintf(" AND s.department_id = $%d", len(args)+1)
		args = append(args, filter.DepartmentID)
	}
	if filter.Status != "" {
		base += fmt.Sprintf(" AND s.enrollment_status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	if filter.Gender != "" {
		base += fmt.Sprintf(" AND s.gender = $%d", len(args)+1)
		args = append(args, filter.Gender)
	}

	allowedSorts := map[string]string{
		"student_no": "s.student_no",
		"real_name":  "s.real_name",
		"created_at": "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.student_no"
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

	query := fmt.Sprintf("SELECT %s%s ORDER BY %s %s LIMIT %d OFFSET %d", studentDetailColumns(), base, column, order, size, offset)
	var students []models.StudentProfileDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*)" + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a profile by its own ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles WHERE id = $1`, studentColumns)
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindDetailByID returns a profile with account and catalog context.
func (r *StudentRepository) FindDetailByID(ctx context.Context, id string) (*models.StudentProfileDetail, error) {
	query := fmt.Sprintf("SELECT %s%s WHERE s.id = $1", studentDetailColumns(), studentDetailJoins)
	var profile models.StudentProfileDetail
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUserID returns the profile owned by the given account, if any.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles WHERE user_id = $1`, studentColumns)
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateIfAbsent inserts the profile unless the user already has one, then
// returns whichever row owns (user_id). The unique constraint makes concurrent
// provisioning converge on a single profile.
func (r *StudentRepository) CreateIfAbsent(ctx context.Context, profile *models.StudentProfile) (*models.StudentProfile, bool, error) {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	const query = `INSERT INTO student_profiles (
        id, user_id, student_no, real_name, gender, birth_date, phone, email, address,
        enrollment_date, enrollment_status, political_status,
        emergency_contact, emergency_phone, emergency_relation,
        emergency_contact2, emergency_phone2, emergency_relation2,
        department_id, major_id, created_at, updated_at
    ) VALUES (
        :id, :user_id, :student_no, :real_name, :gender, :birth_date, :phone, :email, :address,
        :enrollment_date, :enrollment_status, :political_status,
        :emergency_contact, :emergency_phone, :emergency_relation,
        :emergency_contact2, :emergency_phone2, :emergency_relation2,
        :department_id, :major_id, :created_at, :updated_at
    ) ON CONFLICT (user_id) DO NOTHING`

	result, err := r.db.NamedExecContext(ctx, query, profile)
	if err != nil {
		return nil, false, fmt.Errorf("create student profile: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("create student profile: %w", err)
	}
	if rows > 0 {
		return profile, true, nil
	}

	existing, err := r.FindByUserID(ctx, profile.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("load existing profile: %w", err)
	}
	return existing, false, nil
}

// Update persists all mutable profile fields.
func (r *StudentRepository) Update(ctx context.Context, profile *models.StudentProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_profiles SET
        real_name = :real_name,
        gender = :gender,
        birth_date = :birth_date,
        phone = :phone,
        email = :email,
        address = :address,
        enrollment_date = :enrollment_date,
        enrollment_status = :enrollment_status,
        political_status = :political_status,
        emergency_contact = :emergency_contact,
        emergency_phone = :emergency_phone,
        emergency_relation = :emergency_relation,
        emergency_contact2 = :emergency_contact2,
        emergency_phone2 = :emergency_phone2,
        emergency_relation2 = :emergency_relation2,
        department_id = :department_id,
        major_id = :major_id,
        updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	return nil
}

// UpdateContact syncs account-sourced contact fields into the profile.
func (r *StudentRepository) UpdateContact(ctx context.Context, userID, realName, phone, email string) error {
	const query = `UPDATE student_profiles SET real_name = $1, phone = $2, email = $3, updated_at = $4 WHERE user_id = $5`
	if _, err := r.db.ExecContext(ctx, query, realName, phone, email, time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("sync student contact: %w", err)
	}
	return nil
}

// ExistsByStudentNo checks whether a student number is already assigned.
func (r *StudentRepository) ExistsByStudentNo(ctx context.Context, studentNo string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM student_profiles WHERE student_no = $1 LIMIT 1`, studentNo); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student number: %w", err)
	}
	return true, nil
}

// Delete removes a profile and its enrollments.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin profile delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE student_id = $1`, id); err != nil {
		return fmt.Errorf("cascade enrollments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_profiles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit profile delete: %w", err)
	}
	return nil
}

// Count returns the total number of student profiles.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM student_profiles`); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// CountByStatus groups profiles by enrollment status.
func (r *StudentRepository) CountByStatus(ctx context.Context) (map[models.EnrollmentStatus]int, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT enrollment_status, COUNT(*) FROM student_profiles GROUP BY enrollment_status`)
	if err != nil {
		return nil, fmt.Errorf("count students by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.EnrollmentStatus]int)
	for rows.Next() {
		var status models.EnrollmentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
