package toolgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/catering-backend/pkg/errors"
)

// Names of the remote tools used by the catering workflow.
const (
	ToolGatherFlightData = "gather_flight_data"
	ToolModel            = "model_endpoint"
	ToolKPI1             = "kpi1"
	ToolKPI2             = "kpi2"
	ToolKPI3             = "kpi3"
	ToolKPI4             = "kpi4"
	ToolGeneratePDF      = "generate_pdf_report"
	ToolSendMail         = "send_mail"
)

// Flight directions accepted by the flight lookup tool.
const (
	DirectionDeparture = "departure"
	DirectionArrival   = "arrival"
)

type FlightLookupRequest struct {
	Date        string `json:"date"`
	IATACode    string `json:"iataCode"`
	Type        string `json:"type"`
	AirlineIATA string `json:"airline_iata,omitempty"`
	AirlineICAO string `json:"airline_icao,omitempty"`
	FlightNum   string `json:"flight_num,omitempty"`
	Timeout     int    `json:"timeout"`
}

type ModelRequest struct {
	Prompt string         `json:"prompt"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// KPI1Request asks for the consumption ratio per passenger.
type KPI1Request struct {
	QuantityConsumed float64 `json:"quantity_consumed"`
	PassengerCount   int     `json:"passenger_count"`
}

// KPI2Request asks for the total waste cost of (unit cost, wasted quantity)
// pairs.
type KPI2Request struct {
	Products [][2]float64 `json:"products"`
}

// KPI3Request asks for the cost per passenger.
type KPI3Request struct {
	TotalCost      float64 `json:"total_cost"`
	PassengerCount int     `json:"passenger_count"`
}

// KPI4Request asks for the utilization percentage.
type KPI4Request struct {
	QuantityConsumed float64 `json:"quantity_consumed"`
	QuantityLoaded   float64 `json:"quantity_loaded"`
}

type PDFRequest struct {
	Title    string         `json:"title"`
	KPIs     map[string]any `json:"kpis"`
	Filename string         `json:"filename"`
}

type MailRequest struct {
	Subject        string   `json:"subject"`
	Body           string   `json:"body"`
	Recipients     []string `json:"recipients"`
	SenderEmail    string   `json:"sender_email"`
	SenderPassword string   `json:"sender_password"`
	SMTPServer     string   `json:"smtp_server"`
	SMTPPort       int      `json:"smtp_port"`
	Attachments    []string `json:"attachments,omitempty"`
}

// Tools wraps a Caller with one typed method per remote tool.
type Tools struct {
	caller Caller
}

func NewTools(caller Caller) *Tools {
	return &Tools{caller: caller}
}

// ListTools returns the names of the tools the gateway exposes.
func (t *Tools) ListTools(ctx context.Context) ([]string, error) {
	if t == nil || t.caller == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tool gateway not configured")
	}
	return t.caller.ListTools(ctx)
}

// GatherFlightData returns the raw flight records.
func (t *Tools) GatherFlightData(ctx context.Context, req FlightLookupRequest) (any, error) {
	if req.Type == "" {
		req.Type = DirectionDeparture
	}
	result, err := t.call(ctx, ToolGatherFlightData, req)
	if err != nil {
		return nil, err
	}
	return Unwrap(result), nil
}

// Model runs model inference; the response carries at least "content".
func (t *Tools) Model(ctx context.Context, req ModelRequest) (map[string]any, error) {
	return t.call(ctx, ToolModel, req)
}

func (t *Tools) KPI1(ctx context.Context, req KPI1Request) (any, error) {
	return t.callValue(ctx, ToolKPI1, req)
}

func (t *Tools) KPI2(ctx context.Context, req KPI2Request) (any, error) {
	if req.Products == nil {
		req.Products = [][2]float64{}
	}
	return t.callValue(ctx, ToolKPI2, req)
}

func (t *Tools) KPI3(ctx context.Context, req KPI3Request) (any, error) {
	return t.callValue(ctx, ToolKPI3, req)
}

func (t *Tools) KPI4(ctx context.Context, req KPI4Request) (any, error) {
	return t.callValue(ctx, ToolKPI4, req)
}

// GeneratePDF returns the filesystem path of the generated report.
func (t *Tools) GeneratePDF(ctx context.Context, req PDFRequest) (string, error) {
	if req.KPIs == nil {
		req.KPIs = map[string]any{}
	}
	result, err := t.call(ctx, ToolGeneratePDF, req)
	if err != nil {
		return "", err
	}

	var path string
	switch v := Unwrap(result).(type) {
	case string:
		path = v
	case map[string]any:
		for _, key := range []string{"path", "report_path", "file"} {
			if s, ok := v[key].(string); ok {
				path = s
				break
			}
		}
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", pkgerrors.New(pkgerrors.CodeUpstream, "pdf tool returned no report path")
	}
	return path, nil
}

// SendMail returns the send-status record.
func (t *Tools) SendMail(ctx context.Context, req MailRequest) (map[string]any, error) {
	return t.call(ctx, ToolSendMail, req)
}

func (t *Tools) callValue(ctx context.Context, name string, req any) (any, error) {
	result, err := t.call(ctx, name, req)
	if err != nil {
		return nil, err
	}
	return Unwrap(result), nil
}

func (t *Tools) call(ctx context.Context, name string, req any) (map[string]any, error) {
	if t == nil || t.caller == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tool gateway not configured")
	}
	payload, err := toPayload(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("encode %s request", name))
	}
	return t.caller.CallTool(ctx, name, payload)
}

// Unwrap returns the scalar or array behind a {"result": v} mapping, or the
// mapping itself.
func Unwrap(result map[string]any) any {
	if len(result) == 1 {
		if v, ok := result["result"]; ok {
			return v
		}
	}
	return result
}

func toPayload(req any) (map[string]any, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
