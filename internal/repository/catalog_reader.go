package repository

import (
	"context"

	"github.com/liyun-dev/campus-sis-api/internal/models"
)

// CatalogReader bundles read access to the catalog entities a student
// profile can reference.
type CatalogReader struct {
	departments *DepartmentRepository
	majors      *MajorRepository
}

// NewCatalogReader constructs a CatalogReader.
func NewCatalogReader(departments *DepartmentRepository, majors *MajorRepository) *CatalogReader {
	return &CatalogReader{departments: departments, majors: majors}
}

func (r *CatalogReader) FindDepartment(ctx context.Context, id string) (*models.Department, error) {
	return r.departments.FindByID(ctx, id)
}

func (r *CatalogReader) FindMajor(ctx context.Context, id string) (*models.Major, error) {
	return r.majors.FindByID(ctx, id)
}
