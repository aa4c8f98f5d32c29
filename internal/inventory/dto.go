package inventory

import (
	"time"

	"github.com/angelmondragon/catering-backend/pkg/db/models"
	"github.com/angelmondragon/catering-backend/pkg/enums"
	"github.com/google/uuid"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

type CreateProductInput struct {
	ProductCode string
	ProductName string
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	ProductCode *string
	ProductName *string
}

type CreateLotInput struct {
	LotCode string
}

type UpdateLotInput struct {
	LotCode *string
}

// AddLotItemInput adds Quantity units of a product to a lot.
type AddLotItemInput struct {
	LotID             uuid.UUID
	ProductID         uuid.UUID
	Quantity          int
	ExpirationDate    *time.Time
	CertificationDate *time.Time
}

type UpdateLotItemInput struct {
	Quantity          *int
	ExpirationDate    *time.Time
	CertificationDate *time.Time
}

type CreateAssignmentInput struct {
	LotID          uuid.UUID
	FlightAssigned *string
	Status         enums.AssignmentStatus
}

type UpdateAssignmentInput struct {
	FlightAssigned *string
	Status         *enums.AssignmentStatus
}

// UpsertAssignmentInput targets the assignment of one lot.
type UpsertAssignmentInput struct {
	LotID  uuid.UUID
	Flight *string
	Status enums.AssignmentStatus
}

type ProductDTO struct {
	ID          uuid.UUID `json:"id"`
	ProductCode string    `json:"product_code"`
	ProductName string    `json:"product_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type LotDTO struct {
	ID        uuid.UUID `json:"id"`
	LotCode   string    `json:"lot_code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LotItemDTO struct {
	ID                uuid.UUID   `json:"id"`
	LotID             uuid.UUID   `json:"lot_id"`
	ProductID         uuid.UUID   `json:"product_id"`
	Quantity          int         `json:"quantity"`
	ExpirationDate    *string     `json:"expiration_date"`
	CertificationDate *string     `json:"certification_date"`
	Product           *ProductDTO `json:"product,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

type AssignmentDTO struct {
	ID             uuid.UUID `json:"id"`
	LotID          uuid.UUID `json:"lot_id"`
	FlightAssigned *string   `json:"flight_assigned"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LotDetailDTO is a lot with its items and assignments.
type LotDetailDTO struct {
	LotDTO
	Items       []LotItemDTO    `json:"items"`
	Assignments []AssignmentDTO `json:"assignments"`
}

func NewProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	return &ProductDTO{
		ID:          product.ID,
		ProductCode: product.ProductCode,
		ProductName: product.ProductName,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}

func NewLotDTO(lot *models.Lot) *LotDTO {
	if lot == nil {
		return nil
	}
	return &LotDTO{
		ID:        lot.ID,
		LotCode:   lot.LotCode,
		CreatedAt: lot.CreatedAt,
		UpdatedAt: lot.UpdatedAt,
	}
}

func NewLotItemDTO(item *models.LotItem) *LotItemDTO {
	if item == nil {
		return nil
	}
	return &LotItemDTO{
		ID:                item.ID,
		LotID:             item.LotID,
		ProductID:         item.ProductID,
		Quantity:          item.Quantity,
		ExpirationDate:    formatDate(item.ExpirationDate),
		CertificationDate: formatDate(item.CertificationDate),
		Product:           NewProductDTO(item.Product),
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}

func NewAssignmentDTO(assignment *models.Assignment) *AssignmentDTO {
	if assignment == nil {
		return nil
	}
	return &AssignmentDTO{
		ID:             assignment.ID,
		LotID:          assignment.LotID,
		FlightAssigned: assignment.FlightAssigned,
		Status:         assignment.Status.String(),
		CreatedAt:      assignment.CreatedAt,
		UpdatedAt:      assignment.UpdatedAt,
	}
}

func NewLotDetailDTO(lot *models.Lot) *LotDetailDTO {
	if lot == nil {
		return nil
	}
	detail := &LotDetailDTO{
		LotDTO:      *NewLotDTO(lot),
		Items:       make([]LotItemDTO, 0, len(lot.Items)),
		Assignments: make([]AssignmentDTO, 0, len(lot.Assignments)),
	}
	for i := range lot.Items {
		detail.Items = append(detail.Items, *NewLotItemDTO(&lot.Items[i]))
	}
	for i := range lot.Assignments {
		detail.Assignments = append(detail.Assignments, *NewAssignmentDTO(&lot.Assignments[i]))
	}
	return detail
}

func newProductDTOs(products []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, *NewProductDTO(&products[i]))
	}
	return out
}

func newLotDTOs(lots []models.Lot) []LotDTO {
	out := make([]LotDTO, 0, len(lots))
	for i := range lots {
		out = append(out, *NewLotDTO(&lots[i]))
	}
	return out
}

func newLotItemDTOs(items []models.LotItem) []LotItemDTO {
	out := make([]LotItemDTO, 0, len(items))
	for i := range items {
		out = append(out, *NewLotItemDTO(&items[i]))
	}
	return out
}

func newAssignmentDTOs(assignments []models.Assignment) []AssignmentDTO {
	out := make([]AssignmentDTO, 0, len(assignments))
	for i := range assignments {
		out = append(out, *NewAssignmentDTO(&assignments[i]))
	}
	return out
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}
