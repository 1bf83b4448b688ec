package request

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	LockOwner(ctx context.Context, userID string) error
	Create(ctx context.Context, r *Request) error
	FindByID(ctx context.Context, id string) (*Request, error)
	FindByIDForUpdate(ctx context.Context, id string) (*Request, error)
	FindAllByUser(ctx context.Context, userID string) ([]Request, error)
	FindAll(ctx context.Context, filter ListFilter) ([]Request, error)
	Update(ctx context.Context, r *Request) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx runs every query of the returned repository on tx.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	db := r.db.WithContext(context.Background())
	db.Statement.ConnPool = tx
	return &repository{db: db}
}

// LockOwner serializes submissions of one user so two concurrent requests
// cannot both pass the overlap check. A soft-deleted owner is not found.
func (r *repository) LockOwner(ctx context.Context, userID string) error {
	var owner RequestOwner
	return r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("deleted_at IS NULL").
		First(&owner, "id = ?", userID).Error
}

func (r *repository) Create(ctx context.Context, req *Request) error {
	return r.db.WithContext(ctx).Omit("Owner").Create(req).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Request, error) {
	var req Request
	err := r.db.WithContext(ctx).
		Preload("Owner").
		First(&req, "id = ?", id).Error
	return &req, err
}

// FindByIDForUpdate locks the row until the surrounding transaction ends so
// concurrent reviews of one request are applied one after the other.
func (r *repository) FindByIDForUpdate(ctx context.Context, id string) (*Request, error) {
	var req Request
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error
	return &req, err
}

func (r *repository) FindAllByUser(ctx context.Context, userID string) ([]Request, error) {
	var reqs []Request
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *repository) FindAll(ctx context.Context, filter ListFilter) ([]Request, error) {
	db := r.db.WithContext(ctx).Preload("Owner")

	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	var reqs []Request
	err := db.Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}

func (r *repository) Update(ctx context.Context, req *Request) error {
	return r.db.WithContext(ctx).
		Model(&Request{}).
		Where("id = ?", req.ID).
		Updates(map[string]any{
			"status":            req.Status,
			"rh_approved_by":    req.RHApprovedBy,
			"admin_approved_by": req.AdminApprovedBy,
			"rejected_by":       req.RejectedBy,
			"decided_at":        req.DecidedAt,
			"updated_at":        req.UpdatedAt,
		}).Error
}
