package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/catering-backend/pkg/db"
	"github.com/angelmondragon/catering-backend/pkg/db/models"
	"github.com/angelmondragon/catering-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes catering inventory management operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context) ([]ProductDTO, error)
	ListLotsByProduct(ctx context.Context, productID uuid.UUID) ([]LotDTO, error)

	CreateLot(ctx context.Context, input CreateLotInput) (*LotDTO, error)
	GetLot(ctx context.Context, id uuid.UUID) (*LotDTO, error)
	UpdateLot(ctx context.Context, id uuid.UUID, input UpdateLotInput) (*LotDTO, error)
	DeleteLot(ctx context.Context, id uuid.UUID) error
	ListLots(ctx context.Context) ([]LotDTO, error)
	GetLotDetailed(ctx context.Context, id uuid.UUID) (*LotDetailDTO, error)
	ListLotItems(ctx context.Context, lotID uuid.UUID) ([]LotItemDTO, error)
	ListProductsInLot(ctx context.Context, lotID uuid.UUID) ([]ProductDTO, error)

	AddOrIncrement(ctx context.Context, input AddLotItemInput) (*LotItemDTO, error)
	GetLotItem(ctx context.Context, id uuid.UUID) (*LotItemDTO, error)
	UpdateLotItem(ctx context.Context, id uuid.UUID, input UpdateLotItemInput) (*LotItemDTO, error)
	DeleteLotItem(ctx context.Context, id uuid.UUID) error
	ListAllLotItems(ctx context.Context) ([]LotItemDTO, error)

	CreateAssignment(ctx context.Context, input CreateAssignmentInput) (*AssignmentDTO, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*AssignmentDTO, error)
	UpdateAssignment(ctx context.Context, id uuid.UUID, input UpdateAssignmentInput) (*AssignmentDTO, error)
	DeleteAssignment(ctx context.Context, id uuid.UUID) error
	ListAssignments(ctx context.Context) ([]AssignmentDTO, error)
	UpsertForLot(ctx context.Context, input UpsertAssignmentInput) (*AssignmentDTO, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs an inventory service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

// Products

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	product := &models.Product{
		ProductCode: strings.TrimSpace(input.ProductCode),
		ProductName: strings.TrimSpace(input.ProductName),
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, duplicateProduct(product.ProductCode)
		}
		return nil, persistence(err, "db: insert product")
	}
	return NewProductDTO(created), nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.findProduct(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.findProduct(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if input.ProductCode != nil {
		product.ProductCode = strings.TrimSpace(*input.ProductCode)
	}
	if input.ProductName != nil {
		product.ProductName = strings.TrimSpace(*input.ProductName)
	}

	updated, err := s.repo.SaveProduct(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, duplicateProduct(product.ProductCode)
		}
		return nil, persistence(err, "db: update product")
	}
	return NewProductDTO(updated), nil
}

// DeleteProduct removes the product and every lot item referencing it.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.inTx(ctx, "delete product", func(txRepo *Repository) error {
		if _, err := s.findProduct(ctx, txRepo, id); err != nil {
			return err
		}
		if err := txRepo.DeleteLotItemsByProduct(ctx, id); err != nil {
			return persistence(err, "db: delete product lot items")
		}
		if err := txRepo.DeleteProduct(ctx, id); err != nil {
			return persistence(err, "db: delete product")
		}
		return nil
	})
}

func (s *service) ListProducts(ctx context.Context) ([]ProductDTO, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, persistence(err, "db: list products")
	}
	return newProductDTOs(products), nil
}

func (s *service) ListLotsByProduct(ctx context.Context, productID uuid.UUID) ([]LotDTO, error) {
	if _, err := s.findProduct(ctx, s.repo, productID); err != nil {
		return nil, err
	}
	lots, err := s.repo.ListLotsByProduct(ctx, productID)
	if err != nil {
		return nil, persistence(err, "db: list lots by product")
	}
	return newLotDTOs(lots), nil
}

// Lots

func (s *service) CreateLot(ctx context.Context, input CreateLotInput) (*LotDTO, error) {
	lot := &models.Lot{LotCode: strings.TrimSpace(input.LotCode)}
	created, err := s.repo.CreateLot(ctx, lot)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, duplicateLot(lot.LotCode)
		}
		return nil, persistence(err, "db: insert lot")
	}
	return NewLotDTO(created), nil
}

func (s *service) GetLot(ctx context.Context, id uuid.UUID) (*LotDTO, error) {
	lot, err := s.findLot(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return NewLotDTO(lot), nil
}

func (s *service) UpdateLot(ctx context.Context, id uuid.UUID, input UpdateLotInput) (*LotDTO, error) {
	lot, err := s.findLot(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if input.LotCode != nil {
		lot.LotCode = strings.TrimSpace(*input.LotCode)
	}

	updated, err := s.repo.SaveLot(ctx, lot)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, duplicateLot(lot.LotCode)
		}
		return nil, persistence(err, "db: update lot")
	}
	return NewLotDTO(updated), nil
}

// DeleteLot removes the lot together with its items and assignments.
func (s *service) DeleteLot(ctx context.Context, id uuid.UUID) error {
	return s.inTx(ctx, "delete lot", func(txRepo *Repository) error {
		if _, err := s.findLot(ctx, txRepo, id); err != nil {
			return err
		}
		if err := txRepo.DeleteLotItemsByLot(ctx, id); err != nil {
			return persistence(err, "db: delete lot items")
		}
		if err := txRepo.DeleteAssignmentsByLot(ctx, id); err != nil {
			return persistence(err, "db: delete lot assignments")
		}
		if err := txRepo.DeleteLot(ctx, id); err != nil {
			return persistence(err, "db: delete lot")
		}
		return nil
	})
}

func (s *service) ListLots(ctx context.Context) ([]LotDTO, error) {
	lots, err := s.repo.ListLots(ctx)
	if err != nil {
		return nil, persistence(err, "db: list lots")
	}
	return newLotDTOs(lots), nil
}

func (s *service) GetLotDetailed(ctx context.Context, id uuid.UUID) (*LotDetailDTO, error) {
	lot, err := s.repo.FindLotDetailed(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, lotNotFound(id)
		}
		return nil, persistence(err, "db: load lot detail")
	}
	return NewLotDetailDTO(lot), nil
}

func (s *service) ListLotItems(ctx context.Context, lotID uuid.UUID) ([]LotItemDTO, error) {
	if _, err := s.findLot(ctx, s.repo, lotID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListLotItems(ctx, &lotID)
	if err != nil {
		return nil, persistence(err, "db: list lot items")
	}
	return newLotItemDTOs(items), nil
}

func (s *service) ListProductsInLot(ctx context.Context, lotID uuid.UUID) ([]ProductDTO, error) {
	if _, err := s.findLot(ctx, s.repo, lotID); err != nil {
		return nil, err
	}
	products, err := s.repo.ListProductsInLot(ctx, lotID)
	if err != nil {
		return nil, persistence(err, "db: list products in lot")
	}
	return newProductDTOs(products), nil
}

// Lot items

// AddOrIncrement adds quantity to the (lot, product) row, creating it when
// absent. Dates are only overwritten by non-nil input values.
func (s *service) AddOrIncrement(ctx context.Context, input AddLotItemInput) (*LotItemDTO, error) {
	if input.Quantity < 0 {
		return nil, invalidQuantity()
	}

	var itemID uuid.UUID
	err := s.inTx(ctx, "add lot item", func(txRepo *Repository) error {
		// Serializes concurrent adds for one lot until commit.
		if err := s.lockLot(ctx, txRepo, input.LotID); err != nil {
			return err
		}
		if _, err := s.findProduct(ctx, txRepo, input.ProductID); err != nil {
			return err
		}

		existing, err := txRepo.FindLotItem(ctx, input.LotID, input.ProductID)
		switch {
		case err == nil:
			existing.Quantity += input.Quantity
			if input.ExpirationDate != nil {
				existing.ExpirationDate = input.ExpirationDate
			}
			if input.CertificationDate != nil {
				existing.CertificationDate = input.CertificationDate
			}
			if _, err := txRepo.SaveLotItem(ctx, existing); err != nil {
				return persistence(err, "db: increment lot item")
			}
			itemID = existing.ID
		case db.IsNotFound(err):
			item := &models.LotItem{
				LotID:             input.LotID,
				ProductID:         input.ProductID,
				Quantity:          input.Quantity,
				ExpirationDate:    input.ExpirationDate,
				CertificationDate: input.CertificationDate,
			}
			if _, err := txRepo.CreateLotItem(ctx, item); err != nil {
				return persistence(err, "db: insert lot item")
			}
			itemID = item.ID
		default:
			return persistence(err, "db: load lot item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetLotItem(ctx, itemID)
}

func (s *service) GetLotItem(ctx context.Context, id uuid.UUID) (*LotItemDTO, error) {
	item, err := s.findLotItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewLotItemDTO(item), nil
}

func (s *service) UpdateLotItem(ctx context.Context, id uuid.UUID, input UpdateLotItemInput) (*LotItemDTO, error) {
	if input.Quantity != nil && *input.Quantity < 0 {
		return nil, invalidQuantity()
	}
	item, err := s.findLotItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Quantity != nil {
		item.Quantity = *input.Quantity
	}
	if input.ExpirationDate != nil {
		item.ExpirationDate = input.ExpirationDate
	}
	if input.CertificationDate != nil {
		item.CertificationDate = input.CertificationDate
	}

	if _, err := s.repo.SaveLotItem(ctx, item); err != nil {
		return nil, persistence(err, "db: update lot item")
	}
	return NewLotItemDTO(item), nil
}

func (s *service) DeleteLotItem(ctx context.Context, id uuid.UUID) error {
	if _, err := s.findLotItem(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteLotItem(ctx, id); err != nil {
		return persistence(err, "db: delete lot item")
	}
	return nil
}

func (s *service) ListAllLotItems(ctx context.Context) ([]LotItemDTO, error) {
	items, err := s.repo.ListLotItems(ctx, nil)
	if err != nil {
		return nil, persistence(err, "db: list lot items")
	}
	return newLotItemDTOs(items), nil
}

// Assignments

func (s *service) CreateAssignment(ctx context.Context, input CreateAssignmentInput) (*AssignmentDTO, error) {
	status, err := normalizeStatus(input.Status)
	if err != nil {
		return nil, err
	}
	if _, err := s.findLot(ctx, s.repo, input.LotID); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		LotID:          input.LotID,
		FlightAssigned: input.FlightAssigned,
		Status:         status,
	}
	created, err := s.repo.CreateAssignment(ctx, assignment)
	if err != nil {
		return nil, persistence(err, "db: insert assignment")
	}
	return NewAssignmentDTO(created), nil
}

func (s *service) GetAssignment(ctx context.Context, id uuid.UUID) (*AssignmentDTO, error) {
	assignment, err := s.findAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewAssignmentDTO(assignment), nil
}

func (s *service) UpdateAssignment(ctx context.Context, id uuid.UUID, input UpdateAssignmentInput) (*AssignmentDTO, error) {
	assignment, err := s.findAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.FlightAssigned != nil {
		assignment.FlightAssigned = input.FlightAssigned
	}
	if input.Status != nil {
		status, err := normalizeStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		assignment.Status = status
	}

	updated, err := s.repo.SaveAssignment(ctx, assignment)
	if err != nil {
		return nil, persistence(err, "db: update assignment")
	}
	return NewAssignmentDTO(updated), nil
}

func (s *service) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.findAssignment(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteAssignment(ctx, id); err != nil {
		return persistence(err, "db: delete assignment")
	}
	return nil
}

func (s *service) ListAssignments(ctx context.Context) ([]AssignmentDTO, error) {
	assignments, err := s.repo.ListAssignments(ctx, nil)
	if err != nil {
		return nil, persistence(err, "db: list assignments")
	}
	return newAssignmentDTOs(assignments), nil
}

// UpsertForLot updates the oldest assignment of the lot or creates one. The
// lot row is locked for the duration of the transaction so concurrent upserts
// for the same lot cannot both insert.
func (s *service) UpsertForLot(ctx context.Context, input UpsertAssignmentInput) (*AssignmentDTO, error) {
	status, err := normalizeStatus(input.Status)
	if err != nil {
		return nil, err
	}

	var result *models.Assignment
	err = s.inTx(ctx, "upsert assignment", func(txRepo *Repository) error {
		if err := s.lockLot(ctx, txRepo, input.LotID); err != nil {
			return err
		}

		existing, err := txRepo.FirstAssignmentForLot(ctx, input.LotID)
		switch {
		case err == nil:
			if input.Flight != nil {
				existing.FlightAssigned = input.Flight
			}
			existing.Status = status
			if _, err := txRepo.SaveAssignment(ctx, existing); err != nil {
				return persistence(err, "db: update assignment")
			}
			result = existing
		case db.IsNotFound(err):
			assignment := &models.Assignment{
				LotID:          input.LotID,
				FlightAssigned: input.Flight,
				Status:         status,
			}
			if _, err := txRepo.CreateAssignment(ctx, assignment); err != nil {
				return persistence(err, "db: insert assignment")
			}
			result = assignment
		default:
			return persistence(err, "db: load assignment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewAssignmentDTO(result), nil
}

// helpers

func (s *service) inTx(ctx context.Context, op string, fn func(txRepo *Repository) error) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(s.repo.WithTx(tx))
	})
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return persistence(err, op)
}

func (s *service) findProduct(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Product, error) {
	product, err := repo.FindProductByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Product %s not found.", id)).
				WithReason(pkgerrors.ReasonProductNotFound)
		}
		return nil, persistence(err, "db: load product")
	}
	return product, nil
}

func (s *service) findLot(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Lot, error) {
	lot, err := repo.FindLotByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, lotNotFound(id)
		}
		return nil, persistence(err, "db: load lot")
	}
	return lot, nil
}

func (s *service) lockLot(ctx context.Context, repo *Repository, id uuid.UUID) error {
	if _, err := repo.LockLot(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return lotNotFound(id)
		}
		return persistence(err, "db: lock lot")
	}
	return nil
}

func (s *service) findLotItem(ctx context.Context, id uuid.UUID) (*models.LotItem, error) {
	item, err := s.repo.FindLotItemByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Lot item %s not found.", id)).
				WithReason(pkgerrors.ReasonLotItemNotFound)
		}
		return nil, persistence(err, "db: load lot item")
	}
	return item, nil
}

func (s *service) findAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	assignment, err := s.repo.FindAssignmentByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Assignment %s not found.", id)).
				WithReason(pkgerrors.ReasonAssignmentNotFound)
		}
		return nil, persistence(err, "db: load assignment")
	}
	return assignment, nil
}

func normalizeStatus(status enums.AssignmentStatus) (enums.AssignmentStatus, error) {
	parsed, err := enums.ParseAssignmentStatus(string(status))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status must be one of draft, ready, loaded, rejected")
	}
	return parsed, nil
}

func lotNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Lot %s not found.", id)).
		WithReason(pkgerrors.ReasonLotNotFound)
}

func duplicateProduct(code string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("Product with code %q already exists.", code)).
		WithReason(pkgerrors.ReasonProductDuplicate)
}

func duplicateLot(code string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("Lot with code %q already exists.", code)).
		WithReason(pkgerrors.ReasonLotDuplicate)
}

func invalidQuantity() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "Quantity must be a non-negative integer.").
		WithReason(pkgerrors.ReasonInvalidQuantity)
}

func persistence(err error, op string) error {
	if db.IsValueTooLong(err) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "value exceeds column width")
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, op)
}
