package controllers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/catering-backend/api/responses"
	"github.com/angelmondragon/catering-backend/api/validators"
	"github.com/angelmondragon/catering-backend/internal/agent"
	pkgerrors "github.com/angelmondragon/catering-backend/pkg/errors"
	"github.com/angelmondragon/catering-backend/pkg/logger"
)

// WorkflowRunner executes one catering workflow run.
type WorkflowRunner interface {
	Run(ctx context.Context, in agent.RunInput) (agent.State, error)
}

// ToolLister lists the tools exposed by the gateway.
type ToolLister interface {
	ListTools(ctx context.Context) ([]string, error)
}

type workflowResponse struct {
	State agent.State `json:"state"`
}

type computeKPIsRequest struct {
	QuantityConsumed int                  `json:"quantity_consumed" validate:"gte=0"`
	PassengerCount   *int                 `json:"passenger_count,omitempty" validate:"omitempty,gte=0"`
	WasteProducts    [][2]decimal.Decimal `json:"waste_products,omitempty"`
	TotalCost        decimal.Decimal      `json:"total_cost"`
	QuantityLoaded   *int                 `json:"quantity_loaded,omitempty" validate:"omitempty,gte=0"`
}

// toOptions rejects negative money and fractional or negative waste counts.
func (p *computeKPIsRequest) toOptions() (*agent.KPIOptions, error) {
	if p == nil {
		return nil, nil
	}
	if p.TotalCost.IsNegative() {
		return nil, invalidKPI("total_cost", "must not be negative")
	}
	waste := make([]agent.WasteProduct, 0, len(p.WasteProducts))
	for i, pair := range p.WasteProducts {
		field := fmt.Sprintf("waste_products[%d]", i)
		if pair[0].IsNegative() {
			return nil, invalidKPI(field, "unit cost must not be negative")
		}
		if !pair[1].IsInteger() || pair[1].IsNegative() {
			return nil, invalidKPI(field, "quantity wasted must be a non-negative integer")
		}
		waste = append(waste, agent.WasteProduct{UnitCost: pair[0], QuantityWasted: int(pair[1].IntPart())})
	}
	return &agent.KPIOptions{
		QuantityConsumed: p.QuantityConsumed,
		PassengerCount:   p.PassengerCount,
		WasteProducts:    waste,
		TotalCost:        p.TotalCost,
		QuantityLoaded:   p.QuantityLoaded,
	}, nil
}

func invalidKPI(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, field+" "+msg).WithDetails(map[string]string{field: msg})
}

type emailRequest struct {
	Subject        string   `json:"subject" validate:"required"`
	Body           string   `json:"body,omitempty"`
	Recipients     []string `json:"recipients" validate:"required,min=1,dive,email"`
	SenderEmail    string   `json:"sender_email" validate:"required,email"`
	SenderPassword string   `json:"sender_password" validate:"required"`
	SMTPServer     string   `json:"smtp_server,omitempty"`
	SMTPPort       int      `json:"smtp_port,omitempty" validate:"gte=0"`
	Attachments    []string `json:"attachments,omitempty"`
}

func (p *emailRequest) toOptions() *agent.EmailOptions {
	if p == nil {
		return nil
	}
	return &agent.EmailOptions{
		Subject:        p.Subject,
		Body:           p.Body,
		Recipients:     p.Recipients,
		SenderEmail:    p.SenderEmail,
		SenderPassword: p.SenderPassword,
		SMTPServer:     p.SMTPServer,
		SMTPPort:       p.SMTPPort,
		Attachments:    p.Attachments,
	}
}

type runRequest struct {
	CSVPath          string              `json:"csv_path" validate:"required"`
	OriginIATA       string              `json:"origin_iata" validate:"required,len=3,alpha"`
	DestIATA         string              `json:"dest_iata" validate:"required,len=3,alpha"`
	FlightDate       string              `json:"flight_date" validate:"required"`
	AirlineIATA      string              `json:"airline_iata,omitempty"`
	ServiceType      string              `json:"service_type,omitempty"`
	Direction        string              `json:"direction,omitempty" validate:"omitempty,oneof=departure arrival"`
	UseLLMPassengers *bool               `json:"use_llm_passengers,omitempty"`
	UseLLMAircraft   *bool               `json:"use_llm_aircraft,omitempty"`
	ComputeKPIsOpts  *computeKPIsRequest `json:"compute_kpis_opts,omitempty"`
	MakePDF          *bool               `json:"make_pdf,omitempty"`
	EmailOpts        *emailRequest       `json:"email_opts,omitempty"`
}

func (p runRequest) toInput() (agent.RunInput, error) {
	if err := checkCSVPath(p.CSVPath); err != nil {
		return agent.RunInput{}, err
	}
	flightDate, err := validators.ParseDate("flight_date", p.FlightDate)
	if err != nil {
		return agent.RunInput{}, err
	}
	kpi, err := p.ComputeKPIsOpts.toOptions()
	if err != nil {
		return agent.RunInput{}, err
	}
	return agent.RunInput{
		CSVPath:          p.CSVPath,
		Origin:           p.OriginIATA,
		Destination:      p.DestIATA,
		FlightDate:       flightDate,
		Airline:          p.AirlineIATA,
		ServiceType:      p.ServiceType,
		Direction:        p.Direction,
		UseLLMPassengers: boolOr(p.UseLLMPassengers, true),
		UseLLMAircraft:   boolOr(p.UseLLMAircraft, true),
		MakePDF:          boolOr(p.MakePDF, true),
		KPI:              kpi,
		Email:            p.EmailOpts.toOptions(),
	}, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func invalidCSV(msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithReason(pkgerrors.ReasonInvalidFile)
}

func checkCSVPath(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return invalidCSV("CSV file is invalid or was not found.")
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return invalidCSV("CSV file is invalid or was not found.")
	}
	return nil
}

// AgentRun runs the workflow against a CSV already present on the server.
func AgentRun(runner WorkflowRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "workflow runner unavailable"))
			return
		}

		var payload runRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := runner.Run(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflowResponse{State: state})
	}
}

// AgentRunMultipart stores the uploaded CSV in uploadDir, runs the workflow
// with KPIs always enabled and removes the upload afterwards.
func AgentRunMultipart(runner WorkflowRunner, uploadDir string, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "workflow runner unavailable"))
			return
		}

		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			if tooLarge := validators.BodyTooLarge(err); tooLarge != nil {
				responses.WriteError(r.Context(), logg, w, tooLarge)
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form").WithReason(pkgerrors.ReasonInvalidFile))
			return
		}
		defer r.MultipartForm.RemoveAll()

		input, err := multipartInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		path, err := saveUpload(r, uploadDir)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer func() {
			if rmErr := os.Remove(path); rmErr != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "path", path), "agent.upload_cleanup_failed")
			}
		}()
		input.CSVPath = path

		state, err := runner.Run(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflowResponse{State: state})
	}
}

func multipartInput(r *http.Request) (agent.RunInput, error) {
	required := map[string]string{}
	for _, key := range []string{"origin_iata", "dest_iata", "flight_date"} {
		if strings.TrimSpace(r.FormValue(key)) == "" {
			required[key] = "is required"
		}
	}
	if len(required) > 0 {
		return agent.RunInput{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(required)
	}

	flightDate, err := validators.ParseDate("flight_date", r.FormValue("flight_date"))
	if err != nil {
		return agent.RunInput{}, err
	}

	input := agent.RunInput{
		Origin:      r.FormValue("origin_iata"),
		Destination: r.FormValue("dest_iata"),
		FlightDate:  flightDate,
		Airline:     r.FormValue("airline_iata"),
		ServiceType: r.FormValue("service_type"),
		Direction:   r.FormValue("direction"),
	}
	if input.UseLLMPassengers, err = validators.ParseFormBool(r, "use_llm_passengers", true); err != nil {
		return agent.RunInput{}, err
	}
	if input.UseLLMAircraft, err = validators.ParseFormBool(r, "use_llm_aircraft", true); err != nil {
		return agent.RunInput{}, err
	}
	if input.MakePDF, err = validators.ParseFormBool(r, "make_pdf", true); err != nil {
		return agent.RunInput{}, err
	}

	var kpi computeKPIsRequest
	consumed, err := validators.ParseFormInt(r, "kpi_quantity_consumed")
	if err != nil {
		return agent.RunInput{}, err
	}
	if consumed != nil {
		kpi.QuantityConsumed = *consumed
	}
	if kpi.PassengerCount, err = validators.ParseFormInt(r, "kpi_passenger_count"); err != nil {
		return agent.RunInput{}, err
	}
	if kpi.QuantityLoaded, err = validators.ParseFormInt(r, "kpi_quantity_loaded"); err != nil {
		return agent.RunInput{}, err
	}
	if raw := strings.TrimSpace(r.FormValue("kpi_total_cost")); raw != "" {
		cost, err := decimal.NewFromString(raw)
		if err != nil {
			return agent.RunInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "kpi_total_cost must be a number").
				WithDetails(map[string]any{"field": "kpi_total_cost"})
		}
		kpi.TotalCost = cost
	}
	if err := validators.ValidateStruct(&kpi); err != nil {
		return agent.RunInput{}, err
	}
	if input.KPI, err = kpi.toOptions(); err != nil {
		return agent.RunInput{}, err
	}

	email, err := multipartEmail(r)
	if err != nil {
		return agent.RunInput{}, err
	}
	input.Email = email
	return input, nil
}

// multipartEmail builds email options from email_* fields. Email is sent only
// when recipients are given.
func multipartEmail(r *http.Request) (*agent.EmailOptions, error) {
	raw := strings.TrimSpace(r.FormValue("email_recipients"))
	if raw == "" {
		return nil, nil
	}
	var recipients []string
	for _, rcpt := range strings.Split(raw, ",") {
		if rcpt = strings.TrimSpace(rcpt); rcpt != "" {
			recipients = append(recipients, rcpt)
		}
	}
	req := emailRequest{
		Subject:        r.FormValue("email_subject"),
		Body:           r.FormValue("email_body"),
		Recipients:     recipients,
		SenderEmail:    strings.TrimSpace(r.FormValue("email_sender_email")),
		SenderPassword: r.FormValue("email_sender_password"),
		SMTPServer:     strings.TrimSpace(r.FormValue("email_smtp_server")),
	}
	port, err := validators.ParseFormInt(r, "email_smtp_port")
	if err != nil {
		return nil, err
	}
	if port != nil {
		req.SMTPPort = *port
	}
	if err := validators.ValidateStruct(&req); err != nil {
		return nil, err
	}
	return req.toOptions(), nil
}

func saveUpload(r *http.Request, uploadDir string) (string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", invalidCSV("A CSV file is required in the file field.")
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		return "", invalidCSV("The uploaded file must be a .csv file.")
	}

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prepare upload dir")
	}
	dst, err := os.CreateTemp(uploadDir, "upload_*.csv")
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create upload file")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store upload")
	}
	return dst.Name(), nil
}

// AgentTools lists the tool names exposed by the gateway.
func AgentTools(lister ToolLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if lister == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "tool gateway unavailable"))
			return
		}
		tools, err := lister.ListTools(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"tools": tools})
	}
}
