package inventory

import (
	"context"

	"github.com/angelmondragon/catering-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository wires together the catering inventory persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return r.db
	}
	return r.db.WithContext(ctx)
}

// Products

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.conn(ctx).Omit(clause.Associations).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.conn(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.conn(ctx).Order("created_at ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *Repository) SaveProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.conn(ctx).Omit(clause.Associations).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.conn(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// ListProductsInLot returns the distinct products packed in a lot.
func (r *Repository) ListProductsInLot(ctx context.Context, lotID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.conn(ctx).
		Joins("JOIN lot_items ON lot_items.product_id = products.id").
		Where("lot_items.lot_id = ?", lotID).
		Order("products.created_at ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Lots

func (r *Repository) CreateLot(ctx context.Context, lot *models.Lot) (*models.Lot, error) {
	if err := r.conn(ctx).Omit(clause.Associations).Create(lot).Error; err != nil {
		return nil, err
	}
	return lot, nil
}

func (r *Repository) FindLotByID(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	var lot models.Lot
	if err := r.conn(ctx).First(&lot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

// LockLot loads the lot with a row lock (SELECT ... FOR UPDATE) so callers in
// the same transaction are serialized per lot. Dialects without row locks
// ignore the clause.
func (r *Repository) LockLot(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	var lot models.Lot
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&lot, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// FindLotDetailed loads the lot with its items (each with its product) and
// its assignments.
func (r *Repository) FindLotDetailed(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	var lot models.Lot
	err := r.conn(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("lot_items.created_at ASC") }).
		Preload("Items.Product").
		Preload("Assignments", func(db *gorm.DB) *gorm.DB { return db.Order("assignments.created_at ASC") }).
		First(&lot, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *Repository) ListLots(ctx context.Context) ([]models.Lot, error) {
	var lots []models.Lot
	if err := r.conn(ctx).Order("created_at ASC").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// ListLotsByProduct returns the lots holding the product.
func (r *Repository) ListLotsByProduct(ctx context.Context, productID uuid.UUID) ([]models.Lot, error) {
	var lots []models.Lot
	err := r.conn(ctx).
		Joins("JOIN lot_items ON lot_items.lot_id = lots.id").
		Where("lot_items.product_id = ?", productID).
		Order("lots.created_at ASC").
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *Repository) SaveLot(ctx context.Context, lot *models.Lot) (*models.Lot, error) {
	if err := r.conn(ctx).Omit(clause.Associations).Save(lot).Error; err != nil {
		return nil, err
	}
	return lot, nil
}

func (r *Repository) DeleteLot(ctx context.Context, id uuid.UUID) error {
	return r.conn(ctx).Delete(&models.Lot{}, "id = ?", id).Error
}

// Lot items

func (r *Repository) CreateLotItem(ctx context.Context, item *models.LotItem) (*models.LotItem, error) {
	if err := r.conn(ctx).Omit(clause.Associations).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *Repository) FindLotItemByID(ctx context.Context, id uuid.UUID) (*models.LotItem, error) {
	var item models.LotItem
	if err := r.conn(ctx).Preload("Product").First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindLotItem returns the row for the (lot, product) pair.
func (r *Repository) FindLotItem(ctx context.Context, lotID, productID uuid.UUID) (*models.LotItem, error) {
	var item models.LotItem
	err := r.conn(ctx).
		Where("lot_id = ? AND product_id = ?", lotID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListLotItems returns the lot items with their products. A nil lotID lists
// every item.
func (r *Repository) ListLotItems(ctx context.Context, lotID *uuid.UUID) ([]models.LotItem, error) {
	var items []models.LotItem
	q := r.conn(ctx).Preload("Product").Order("created_at ASC")
	if lotID != nil {
		q = q.Where("lot_id = ?", *lotID)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repository) SaveLotItem(ctx context.Context, item *models.LotItem) (*models.LotItem, error) {
	if err := r.conn(ctx).Omit(clause.Associations).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *Repository) DeleteLotItem(ctx context.Context, id uuid.UUID) error {
	return r.conn(ctx).Delete(&models.LotItem{}, "id = ?", id).Error
}

func (r *Repository) DeleteLotItemsByLot(ctx context.Context, lotID uuid.UUID) error {
	return r.conn(ctx).Where("lot_id = ?", lotID).Delete(&models.LotItem{}).Error
}

func (r *Repository) DeleteLotItemsByProduct(ctx context.Context, productID uuid.UUID) error {
	return r.conn(ctx).Where("product_id = ?", productID).Delete(&models.LotItem{}).Error
}

// Assignments

func (r *Repository) CreateAssignment(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error) {
	if err := r.conn(ctx).Create(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

func (r *Repository) FindAssignmentByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.conn(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FirstAssignmentForLot returns the oldest assignment of the lot.
func (r *Repository) FirstAssignmentForLot(ctx context.Context, lotID uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.conn(ctx).
		Where("lot_id = ?", lotID).
		Order("created_at ASC").
		Order("id ASC").
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListAssignments returns assignments, optionally filtered by lot.
func (r *Repository) ListAssignments(ctx context.Context, lotID *uuid.UUID) ([]models.Assignment, error) {
	var assignments []models.Assignment
	q := r.conn(ctx).Order("created_at ASC")
	if lotID != nil {
		q = q.Where("lot_id = ?", *lotID)
	}
	if err := q.Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *Repository) SaveAssignment(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error) {
	if err := r.conn(ctx).Save(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

func (r *Repository) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	return r.conn(ctx).Delete(&models.Assignment{}, "id = ?", id).Error
}

func (r *Repository) DeleteAssignmentsByLot(ctx context.Context, lotID uuid.UUID) error {
	return r.conn(ctx).Where("lot_id = ?", lotID).Delete(&models.Assignment{}).Error
}
