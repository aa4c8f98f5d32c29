package agent

import (
	"strings"
	"time"

	"github.com/angelmondragon/catering-backend/pkg/toolgateway"
	"github.com/shopspring/decimal"
)

const (
	DefaultPassengers     = 150
	DefaultAircraftType   = "A320"
	DefaultServiceType    = "standard"
	DefaultPurpose        = "Optimize catering"
	DefaultReportTitle    = "Flight KPIs Report"
	DefaultReportFilename = "report.pdf"
	DefaultEmailBody      = "Attached report."
	DefaultFlightTimeout  = 15
	DefaultQuantityLoaded = 1

	// DateLayout is the flight date wire format.
	DateLayout = "2006-01-02"
)

// RunInput carries everything a single workflow run needs.
type RunInput struct {
	CSVPath     string
	Origin      string
	Destination string
	FlightDate  time.Time
	Airline     string
	ServiceType string
	Direction   string

	// FlightTimeout is forwarded to the flight lookup tool, in seconds.
	FlightTimeout int

	UseLLMPassengers bool
	UseLLMAircraft   bool
	MakePDF          bool

	KPI   *KPIOptions
	Email *EmailOptions

	Purpose        string
	ReportTitle    string
	ReportFilename string
}

// KPIOptions supplies the KPI tool inputs. A nil PassengerCount falls back to
// the passenger count already in state.
type KPIOptions struct {
	QuantityConsumed int
	PassengerCount   *int
	WasteProducts    []WasteProduct
	TotalCost        decimal.Decimal
	QuantityLoaded   *int
}

// WasteProduct is one (unit cost, quantity wasted) pair.
type WasteProduct struct {
	UnitCost       decimal.Decimal
	QuantityWasted int
}

type EmailOptions struct {
	Subject        string
	Body           string
	Recipients     []string
	SenderEmail    string
	SenderPassword string
	SMTPServer     string
	SMTPPort       int
	Attachments    []string
}

// Defaults are deployment level fallbacks applied to every run.
type Defaults struct {
	ServiceType string
	SMTPServer  string
	SMTPPort    int
}

func (in RunInput) normalized(defaults Defaults) RunInput {
	in.Origin = strings.ToUpper(strings.TrimSpace(in.Origin))
	in.Destination = strings.ToUpper(strings.TrimSpace(in.Destination))
	in.Airline = strings.TrimSpace(in.Airline)

	if strings.TrimSpace(in.ServiceType) == "" {
		in.ServiceType = firstNonEmpty(defaults.ServiceType, DefaultServiceType)
	}
	if in.Direction != toolgateway.DirectionArrival {
		in.Direction = toolgateway.DirectionDeparture
	}
	if in.FlightTimeout <= 0 {
		in.FlightTimeout = DefaultFlightTimeout
	}
	if in.Purpose == "" {
		in.Purpose = DefaultPurpose
	}
	if in.ReportTitle == "" {
		in.ReportTitle = DefaultReportTitle
	}
	if in.ReportFilename == "" {
		in.ReportFilename = DefaultReportFilename
	}

	if in.Email != nil {
		email := *in.Email
		if email.Body == "" {
			email.Body = DefaultEmailBody
		}
		if email.SMTPServer == "" {
			email.SMTPServer = defaults.SMTPServer
		}
		if email.SMTPPort <= 0 {
			email.SMTPPort = defaults.SMTPPort
		}
		in.Email = &email
	}
	return in
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
