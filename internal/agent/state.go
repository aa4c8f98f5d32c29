package agent

// State is the value threaded through a workflow run. Stages receive a copy
// and return a new value; maps held by an incoming State are never written.
type State struct {
	ProductList   []map[string]string `json:"product_list,omitempty"`
	Buffer        *Buffer             `json:"buffer,omitempty"`
	AircraftType  string              `json:"aircraft_type,omitempty"`
	Origin        string              `json:"origin,omitempty"`
	Passengers    *int                `json:"passengers,omitempty"`
	ServiceType   string              `json:"service_type,omitempty"`
	KPIs          map[string]any      `json:"kpis,omitempty"`
	Payload       map[string]any      `json:"payload,omitempty"`
	ModelResponse map[string]any      `json:"model_response,omitempty"`
	ReportPath    *string             `json:"report_path,omitempty"`
	EmailStatus   map[string]any      `json:"email_status,omitempty"`
}

// Buffer holds raw upstream data kept for the model context.
type Buffer struct {
	FlightRaw any `json:"flight_raw"`
}

func (s State) flightRaw() any {
	if s.Buffer == nil {
		return nil
	}
	return s.Buffer.FlightRaw
}

// KPI result keys.
const (
	KPIRatioConsumedByPassenger = "ratio_consumed_by_passenger"
	KPITotalWasteCost           = "total_waste_cost"
	KPICostPerPassenger         = "cost_per_passenger"
	KPIUtilizationPercent       = "utilization_percent"
)
