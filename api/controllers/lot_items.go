package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/catering-backend/api/responses"
	"github.com/angelmondragon/catering-backend/api/validators"
	"github.com/angelmondragon/catering-backend/internal/inventory"
	"github.com/angelmondragon/catering-backend/pkg/logger"
)

type addLotItemRequest struct {
	LotID             uuid.UUID `json:"lot_id" validate:"required"`
	ProductID         uuid.UUID `json:"product_id" validate:"required"`
	Quantity          int       `json:"quantity"`
	ExpirationDate    *string   `json:"expiration_date,omitempty"`
	CertificationDate *string   `json:"certification_date,omitempty"`
}

func (p addLotItemRequest) toInput() (inventory.AddLotItemInput, error) {
	expiration, err := validators.ParseOptionalDate("expiration_date", p.ExpirationDate)
	if err != nil {
		return inventory.AddLotItemInput{}, err
	}
	certification, err := validators.ParseOptionalDate("certification_date", p.CertificationDate)
	if err != nil {
		return inventory.AddLotItemInput{}, err
	}
	return inventory.AddLotItemInput{
		LotID:             p.LotID,
		ProductID:         p.ProductID,
		Quantity:          p.Quantity,
		ExpirationDate:    expiration,
		CertificationDate: certification,
	}, nil
}

type updateLotItemRequest struct {
	Quantity          *int    `json:"quantity,omitempty"`
	ExpirationDate    *string `json:"expiration_date,omitempty"`
	CertificationDate *string `json:"certification_date,omitempty"`
}

func (p updateLotItemRequest) toInput() (inventory.UpdateLotItemInput, error) {
	expiration, err := validators.ParseOptionalDate("expiration_date", p.ExpirationDate)
	if err != nil {
		return inventory.UpdateLotItemInput{}, err
	}
	certification, err := validators.ParseOptionalDate("certification_date", p.CertificationDate)
	if err != nil {
		return inventory.UpdateLotItemInput{}, err
	}
	return inventory.UpdateLotItemInput{
		Quantity:          p.Quantity,
		ExpirationDate:    expiration,
		CertificationDate: certification,
	}, nil
}

// AddLotItem adds a product to a lot, incrementing the quantity when the
// product is already present.
func AddLotItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		var payload addLotItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.AddOrIncrement(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, item)
	}
}

func ListAllLotItems(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		items, err := svc.ListAllLotItems(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func GetLotItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.GetLotItem(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func UpdateLotItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateLotItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.UpdateLotItem(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func DeleteLotItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteLotItem(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
