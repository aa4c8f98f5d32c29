package toolgateway

import (
	"context"
	"testing"

	pkgerrors "github.com/angelmondragon/catering-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCaller struct {
	responses map[string]map[string]any
	calls     []recordedCall
}

type recordedCall struct {
	name    string
	payload map[string]any
}

func (r *recordingCaller) ListTools(context.Context) ([]string, error) {
	names := make([]string, 0, len(r.responses))
	for name := range r.responses {
		names = append(names, name)
	}
	return names, nil
}

func (r *recordingCaller) CallTool(_ context.Context, name string, payload map[string]any) (map[string]any, error) {
	r.calls = append(r.calls, recordedCall{name: name, payload: payload})
	return r.responses[name], nil
}

func TestGatherFlightDataDefaultsDirection(t *testing.T) {
	caller := &recordingCaller{responses: map[string]map[string]any{
		ToolGatherFlightData: {"result": []any{map[string]any{"flight": "AA1"}}},
	}}
	tools := NewTools(caller)

	raw, err := tools.GatherFlightData(context.Background(), FlightLookupRequest{Date: "2026-10-26", IATACode: "JFK", Timeout: 15})
	require.NoError(t, err)
	assert.Len(t, raw, 1)

	require.Len(t, caller.calls, 1)
	payload := caller.calls[0].payload
	assert.Equal(t, "departure", payload["type"])
	assert.Equal(t, "JFK", payload["iataCode"])
	assert.Equal(t, float64(15), payload["timeout"])
	assert.NotContains(t, payload, "airline_iata")
}

func TestKPI2SendsPairs(t *testing.T) {
	caller := &recordingCaller{responses: map[string]map[string]any{ToolKPI2: {"result": 10.0}}}
	tools := NewTools(caller)

	got, err := tools.KPI2(context.Background(), KPI2Request{Products: [][2]float64{{5, 2}}})
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)
	assert.Equal(t, []any{[]any{float64(5), float64(2)}}, caller.calls[0].payload["products"])

	_, err = tools.KPI2(context.Background(), KPI2Request{})
	require.NoError(t, err)
	assert.Equal(t, []any{}, caller.calls[1].payload["products"])
}

func TestGeneratePDFExtractsPath(t *testing.T) {
	caller := &recordingCaller{responses: map[string]map[string]any{ToolGeneratePDF: {"result": "reports/report.pdf"}}}
	tools := NewTools(caller)

	path, err := tools.GeneratePDF(context.Background(), PDFRequest{Title: "t", Filename: "report.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "reports/report.pdf", path)
	assert.Equal(t, map[string]any{}, caller.calls[0].payload["kpis"])

	caller.responses[ToolGeneratePDF] = map[string]any{"path": "/tmp/r.pdf", "pages": 2.0}
	path, err = tools.GeneratePDF(context.Background(), PDFRequest{})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/r.pdf", path)

	caller.responses[ToolGeneratePDF] = map[string]any{"result": ""}
	_, err = tools.GeneratePDF(context.Background(), PDFRequest{})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUpstream))
}

func TestSendMailOmitsEmptyAttachments(t *testing.T) {
	caller := &recordingCaller{responses: map[string]map[string]any{ToolSendMail: {"status": "sent"}}}
	tools := NewTools(caller)

	status, err := tools.SendMail(context.Background(), MailRequest{Subject: "s", Recipients: []string{"ops@example.com"}, SMTPPort: 587})
	require.NoError(t, err)
	assert.Equal(t, "sent", status["status"])
	assert.NotContains(t, caller.calls[0].payload, "attachments")
	assert.Equal(t, float64(587), caller.calls[0].payload["smtp_port"])
}

func TestUnconfiguredTools(t *testing.T) {
	var tools *Tools
	_, err := tools.Model(context.Background(), ModelRequest{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestUnwrap(t *testing.T) {
	assert.Equal(t, 3.0, Unwrap(map[string]any{"result": 3.0}))
	m := map[string]any{"result": 3.0, "unit": "pct"}
	assert.Equal(t, m, Unwrap(m))
}
