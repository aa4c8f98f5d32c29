package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/catering-backend/pkg/toolgateway"
)

// Stage names, in execution order.
const (
	StageLoadProducts       = "load_products"
	StageFetchFlight        = "fetch_flight"
	StageEstimatePassengers = "estimate_passengers"
	StageEstimateAircraft   = "estimate_aircraft"
	StageSetServiceType     = "set_service_type"
	StageComputeKPIs        = "compute_kpis"
	StageBuildPayload       = "build_payload"
	StageCallModel          = "call_model"
	StageGeneratePDF        = "generate_pdf"
	StageSendEmail          = "send_email"
)

const (
	passengersPrompt = "You are an operations analyst. Estimate the passenger count from historical data and the route.\n" +
		"Origin=%s Dest=%s Date=%s Airline=%s\n" +
		"Return only an integer."
	aircraftPrompt = "Classify the most likely aircraft type (A320, B738, A321...).\n" +
		"Origin=%s Dest=%s Date=%s Airline=%s\n" +
		"Return only the code (e.g. A320)."
)

// BuildRegistry lays out the ten stages for one run. Optional stages are
// registered disabled when their toggle or options are absent.
func BuildRegistry(tools *toolgateway.Tools, in RunInput) *Registry {
	return NewRegistry(
		NewStage(StageLoadProducts, true, loadProducts(in.CSVPath)),
		NewStage(StageFetchFlight, true, fetchFlight(tools, in)),
		NewStage(StageEstimatePassengers, in.UseLLMPassengers, estimatePassengers(tools, in)),
		NewStage(StageEstimateAircraft, in.UseLLMAircraft, estimateAircraft(tools, in)),
		NewStage(StageSetServiceType, true, setServiceType(in.ServiceType)),
		NewStage(StageComputeKPIs, in.KPI != nil, computeKPIs(tools, in.KPI)),
		NewStage(StageBuildPayload, true, buildPayload),
		NewStage(StageCallModel, true, callModel(tools, in.Purpose)),
		NewStage(StageGeneratePDF, in.MakePDF, generatePDF(tools, in.ReportTitle, in.ReportFilename)),
		NewStage(StageSendEmail, in.Email != nil, sendEmail(tools, in.Email)),
	)
}

func loadProducts(path string) StageFunc {
	return func(_ context.Context, state State) (State, error) {
		products, err := LoadCatalog(path)
		if err != nil {
			return state, err
		}
		state.ProductList = products
		return state, nil
	}
}

func fetchFlight(tools *toolgateway.Tools, in RunInput) StageFunc {
	return func(ctx context.Context, state State) (State, error) {
		raw, err := tools.GatherFlightData(ctx, toolgateway.FlightLookupRequest{
			Date:        in.FlightDate.Format(DateLayout),
			IATACode:    in.Origin,
			Type:        in.Direction,
			AirlineIATA: in.Airline,
			Timeout:     in.FlightTimeout,
		})
		if err != nil {
			return state, err
		}
		state.Buffer = &Buffer{FlightRaw: raw}
		state.Origin = in.Origin
		return state, nil
	}
}

func estimatePassengers(tools *toolgateway.Tools, in RunInput) StageFunc {
	return func(ctx context.Context, state State) (State, error) {
		resp, err := tools.Model(ctx, toolgateway.ModelRequest{Prompt: routePrompt(passengersPrompt, in)})
		if err != nil {
			return state, err
		}
		passengers := ParsePassengers(resp)
		state.Passengers = &passengers
		return state, nil
	}
}

func estimateAircraft(tools *toolgateway.Tools, in RunInput) StageFunc {
	return func(ctx context.Context, state State) (State, error) {
		resp, err := tools.Model(ctx, toolgateway.ModelRequest{Prompt: routePrompt(aircraftPrompt, in)})
		if err != nil {
			return state, err
		}
		state.AircraftType = ParseAircraftType(resp)
		return state, nil
	}
}

func setServiceType(serviceType string) StageFunc {
	return func(_ context.Context, state State) (State, error) {
		state.ServiceType = serviceType
		return state, nil
	}
}

func computeKPIs(tools *toolgateway.Tools, opts *KPIOptions) StageFunc {
	return func(ctx context.Context, state State) (State, error) {
		if opts == nil {
			return state, nil
		}
		passengers := 0
		switch {
		case opts.PassengerCount != nil:
			passengers = *opts.PassengerCount
		case state.Passengers != nil:
			passengers = *state.Passengers
		}
		loaded := DefaultQuantityLoaded
		if opts.QuantityLoaded != nil {
			loaded = *opts.QuantityLoaded
		}
		waste := make([][2]float64, 0, len(opts.WasteProducts))
		for _, p := range opts.WasteProducts {
			waste = append(waste, [2]float64{p.UnitCost.InexactFloat64(), float64(p.QuantityWasted)})
		}

		ratio, err := tools.KPI1(ctx, toolgateway.KPI1Request{
			QuantityConsumed: float64(opts.QuantityConsumed),
			PassengerCount:   passengers,
		})
		if err != nil {
			return state, err
		}
		wasteCost, err := tools.KPI2(ctx, toolgateway.KPI2Request{Products: waste})
		if err != nil {
			return state, err
		}
		perPassenger, err := tools.KPI3(ctx, toolgateway.KPI3Request{
			TotalCost:      opts.TotalCost.InexactFloat64(),
			PassengerCount: passengers,
		})
		if err != nil {
			return state, err
		}
		utilization, err := tools.KPI4(ctx, toolgateway.KPI4Request{
			QuantityConsumed: float64(opts.QuantityConsumed),
			QuantityLoaded:   float64(loaded),
		})
		if err != nil {
			return state, err
		}

		state.KPIs = map[string]any{
			KPIRatioConsumedByPassenger: ratio,
			KPITotalWasteCost:           wasteCost,
			KPICostPerPassenger:         perPassenger,
			KPIUtilizationPercent:       utilization,
		}
		return state, nil
	}
}

func buildPayload(_ context.Context, state State) (State, error) {
	state.Payload = payloadFor(state)
	return state, nil
}

func payloadFor(state State) map[string]any {
	var passengers any
	if state.Passengers != nil {
		passengers = *state.Passengers
	}
	products := state.ProductList
	if products == nil {
		products = []map[string]string{}
	}
	return map[string]any{
		"origin":        state.Origin,
		"passengers":    passengers,
		"aircraft_type": state.AircraftType,
		"service_type":  state.ServiceType,
		"products":      products,
		"context":       map[string]any{"flight_raw": state.flightRaw()},
	}
}

func callModel(tools *toolgateway.Tools, purpose string) StageFunc {
	return func(ctx context.Context, state State) (State, error) {
		payload := state.Payload
		if payload == nil {
			payload = payloadFor(state)
		}
		resp, err := tools.Model(ctx, toolgateway.ModelRequest{
			Prompt: purpose,
			Extra:  map[string]any{"payload": payload},
		})
		if err != nil {
			return state, err
		}
		state.ModelResponse = resp
		return state, nil
	}
}

func generatePDF(tools *toolgateway.Tools, title, filename string) StageFunc {
	return func(ctx context.Context, state State) (State, error) {
		kpis := state.KPIs
		if kpis == nil {
			kpis = map[string]any{}
		}
		path, err := tools.GeneratePDF(ctx, toolgateway.PDFRequest{Title: title, KPIs: kpis, Filename: filename})
		if err != nil {
			return state, err
		}
		state.ReportPath = &path
		return state, nil
	}
}

func sendEmail(tools *toolgateway.Tools, opts *EmailOptions) StageFunc {
	return func(ctx context.Context, state State) (State, error) {
		if opts == nil {
			return state, nil
		}
		attachments := opts.Attachments
		if len(attachments) == 0 && state.ReportPath != nil && *state.ReportPath != "" {
			attachments = []string{*state.ReportPath}
		}
		status, err := tools.SendMail(ctx, toolgateway.MailRequest{
			Subject:        opts.Subject,
			Body:           opts.Body,
			Recipients:     opts.Recipients,
			SenderEmail:    opts.SenderEmail,
			SenderPassword: opts.SenderPassword,
			SMTPServer:     opts.SMTPServer,
			SMTPPort:       opts.SMTPPort,
			Attachments:    attachments,
		})
		if err != nil {
			return state, err
		}
		state.EmailStatus = status
		return state, nil
	}
}

// ParsePassengers reads the model "content" as an integer, falling back to
// DefaultPassengers.
func ParsePassengers(resp map[string]any) int {
	raw, ok := resp["content"]
	if !ok || raw == nil {
		return DefaultPassengers
	}
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case float64:
		if v != float64(int(v)) {
			return DefaultPassengers
		}
		return int(v)
	default:
		text = fmt.Sprint(v)
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return DefaultPassengers
	}
	return n
}

// ParseAircraftType reads the model "content" as a trimmed code, falling back
// to DefaultAircraftType.
func ParseAircraftType(resp map[string]any) string {
	raw, ok := resp["content"]
	if !ok || raw == nil {
		return DefaultAircraftType
	}
	code := strings.TrimSpace(fmt.Sprint(raw))
	if code == "" {
		return DefaultAircraftType
	}
	return code
}

func routePrompt(template string, in RunInput) string {
	airline := in.Airline
	if airline == "" {
		airline = "NA"
	}
	return fmt.Sprintf(template, in.Origin, in.Destination, in.FlightDate.Format(DateLayout), airline)
}
