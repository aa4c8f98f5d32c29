package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/catering-backend/api/responses"
	"github.com/angelmondragon/catering-backend/api/validators"
	pkgerrors "github.com/angelmondragon/catering-backend/pkg/errors"
	"github.com/angelmondragon/catering-backend/pkg/logger"
	"github.com/angelmondragon/catering-backend/pkg/toolgateway"
)

// FlightLookup fetches scheduled flights through the tool gateway.
type FlightLookup interface {
	GatherFlightData(ctx context.Context, req toolgateway.FlightLookupRequest) (any, error)
}

type futureFlightsQuery struct {
	IATACode    string `json:"iataCode" validate:"required,len=3,alpha"`
	Type        string `json:"type" validate:"oneof=departure arrival"`
	AirlineIATA string `json:"airline_iata"`
	AirlineICAO string `json:"airline_icao"`
	FlightNum   string `json:"flight_num"`
}

// FutureFlights proxies the flight schedule lookup for a date strictly after
// today (UTC). now may be nil.
func FutureFlights(lookup FlightLookup, now func() time.Time, logg *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if lookup == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "tool gateway unavailable"))
			return
		}

		q := r.URL.Query()
		date, err := validators.ParseDate("date", q.Get("date"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		today := now().UTC().Truncate(24 * time.Hour)
		if !date.After(today) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "date must be in the future (tomorrow or later).").
				WithReason(pkgerrors.ReasonInvalidDate))
			return
		}

		query := futureFlightsQuery{
			IATACode:    strings.TrimSpace(q.Get("iataCode")),
			Type:        strings.TrimSpace(q.Get("type")),
			AirlineIATA: strings.TrimSpace(q.Get("airline_iata")),
			AirlineICAO: strings.TrimSpace(q.Get("airline_icao")),
			FlightNum:   strings.TrimSpace(q.Get("flight_num")),
		}
		if query.Type == "" {
			query.Type = toolgateway.DirectionDeparture
		}
		if err := validators.ValidateStruct(&query); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		data, err := lookup.GatherFlightData(r.Context(), toolgateway.FlightLookupRequest{
			Date:        date.Format(validators.DateLayout),
			IATACode:    strings.ToUpper(query.IATACode),
			Type:        query.Type,
			AirlineIATA: query.AirlineIATA,
			AirlineICAO: query.AirlineICAO,
			FlightNum:   query.FlightNum,
			Timeout:     15,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		flights, ok := data.([]any)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUpstream, "flight lookup returned an unexpected payload"))
			return
		}
		responses.WriteSuccess(w, flights)
	}
}
