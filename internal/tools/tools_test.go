package tools

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"rag-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type docs map[string]string

func (d docs) FileNames() []string {
	var out []string
	for _, n := range []string{"site_a.pdf", "site_b.docx"} {
		if _, ok := d[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (d docs) RawText(name string) (string, bool) {
	t, ok := d[name]
	return t, ok
}

type fakeLLM struct {
	system, prompt string
	reply          string
	err            error
}

func (f *fakeLLM) Generate(_ context.Context, system, prompt string) (string, error) {
	f.system, f.prompt = system, prompt
	return f.reply, f.err
}

type fakeRAG struct{ query string }

func (f *fakeRAG) Answer(_ context.Context, q string, _ []models.ChatMessage) string {
	f.query = q
	return "answer to " + q
}

func TestLinkBudgetReferenceValues(t *testing.T) {
	res, err := CalculateLinkBudget(LinkBudgetInput{
		DistanceKm:                10,
		TransmitterPowerDBm:       30,
		TransmitterCableLossDB:    2,
		TransmitterAntennaGainDBi: 15,
		ReceiverAntennaGainDBi:    15,
		ReceiverCableLossDB:       2,
		FrequencyMHz:              2400,
	})
	require.NoError(t, err)
	assert.Equal(t, 43.0, res.EIRP)
	assert.Equal(t, 115.15, res.FSPL)
	assert.Equal(t, -59.15, res.ReceivedPower)
	assert.Nil(t, res.LinkMargin)
}

func TestLinkBudgetMargin(t *testing.T) {
	sens := -90.0
	res, err := CalculateLinkBudget(LinkBudgetInput{
		DistanceKm: 10, TransmitterPowerDBm: 30, TransmitterCableLossDB: 2, TransmitterAntennaGainDBi: 15,
		ReceiverAntennaGainDBi: 15, ReceiverCableLossDB: 2, FrequencyMHz: 2400, ReceiverSensitivityDBm: &sens,
	})
	require.NoError(t, err)
	require.NotNil(t, res.LinkMargin)
	assert.Equal(t, 30.85, *res.LinkMargin)
}

func TestLinkBudgetRejectsNonPositive(t *testing.T) {
	_, err := CalculateLinkBudget(LinkBudgetInput{DistanceKm: 0, FrequencyMHz: 2400})
	assert.ErrorIs(t, err, ErrInvalidArguments)
	_, err = CalculateLinkBudget(LinkBudgetInput{DistanceKm: 1, FrequencyMHz: -5})
	assert.ErrorIs(t, err, ErrInvalidArguments)
	_, err = CalculateLinkBudget(LinkBudgetInput{DistanceKm: math.NaN(), FrequencyMHz: 5})
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestLinkBudgetIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := LinkBudgetInput{
			DistanceKm:                rapid.Float64Range(0.01, 1000).Draw(t, "d"),
			TransmitterPowerDBm:       rapid.Float64Range(-10, 60).Draw(t, "ptx"),
			TransmitterCableLossDB:    rapid.Float64Range(0, 10).Draw(t, "ltx"),
			TransmitterAntennaGainDBi: rapid.Float64Range(0, 40).Draw(t, "gtx"),
			ReceiverAntennaGainDBi:    rapid.Float64Range(0, 40).Draw(t, "grx"),
			ReceiverCableLossDB:       rapid.Float64Range(0, 10).Draw(t, "lrx"),
			FrequencyMHz:              rapid.Float64Range(1, 100000).Draw(t, "f"),
		}
		a, err := CalculateLinkBudget(in)
		if err != nil {
			t.Fatal(err)
		}
		b, _ := CalculateLinkBudget(in)
		if a != b {
			t.Fatalf("results differ: %+v vs %+v", a, b)
		}
		want := in.TransmitterPowerDBm - in.TransmitterCableLossDB + in.TransmitterAntennaGainDBi
		if math.Abs(a.EIRP-want) > 0.005+1e-9 {
			t.Fatalf("EIRP %v, want about %v", a.EIRP, want)
		}
		if math.Abs(a.EIRP*100-math.Round(a.EIRP*100)) > 1e-6 {
			t.Fatalf("EIRP %v not rounded to two decimals", a.EIRP)
		}
	})
}

func TestLinkBudgetToolRequiresEveryParameter(t *testing.T) {
	tool := NewLinkBudget()
	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"distance_km": 10, "frequency_MHz": 2400}`))
	assert.ErrorIs(t, err, ErrInvalidArguments)

	out, err := tool.Invoke(context.Background(), json.RawMessage(`{
		"distance_km": 10, "transmitter_power_dBm": 30, "transmitter_cable_loss_dB": 2,
		"transmitter_antenna_gain_dBi": 15, "receiver_antenna_gain_dBi": 15,
		"receiver_cable_loss_dB": 2, "frequency_MHz": 2400}`))
	require.NoError(t, err)
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Effective Isotropic Radiated Power (EIRP) dBm": 43,
		"Free Space Path Loss (FSPL) dB": 115.15,
		"Calculated Received Power dBm": -59.15}`, string(data))
}

func TestToolSchemasAreValidJSON(t *testing.T) {
	d := docs{}
	reg := NewRegistry(NewKnowledgeQA(&fakeRAG{}), NewSummarizer(d, &fakeLLM{}, 0), NewSpecExtractor(d, &fakeLLM{}, 0), NewLinkBudget())
	for _, tool := range reg.All() {
		var schema map[string]any
		require.NoError(t, json.Unmarshal(tool.Parameters(), &schema), tool.Name())
		assert.Equal(t, "object", schema["type"], tool.Name())
		assert.NotEmpty(t, tool.Description())
	}
	assert.Equal(t, []string{KnowledgeQAName, SummarizeName, ExtractSpecsName, LinkBudgetName}, names(reg.All()))
	assert.Equal(t, []string{LinkBudgetName}, names(reg.Available(false)))
	assert.Len(t, reg.Available(true), 4)

	_, err := reg.Get("delete_everything")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestKnowledgeQA(t *testing.T) {
	rag := &fakeRAG{}
	out, err := NewKnowledgeQA(rag).Invoke(context.Background(), json.RawMessage(`{"query":"what gain?"}`))
	require.NoError(t, err)
	assert.Equal(t, "answer to what gain?", out)

	_, err = NewKnowledgeQA(rag).Invoke(context.Background(), json.RawMessage(`{"query":"  "}`))
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestSummarizerLanguageAndTruncation(t *testing.T) {
	llm := &fakeLLM{reply: " Резюме документа "}
	s := NewSummarizer(docs{"site_a.pdf": strings.Repeat("x", 50)}, llm, 20)

	out, err := s.Summarize(context.Background(), "site_a.pdf", "Русский")
	require.NoError(t, err)
	assert.Equal(t, "Резюме документа", out)
	assert.Contains(t, llm.system, `"Русский"`)
	assert.Contains(t, llm.prompt, strings.Repeat("x", 20))
	assert.NotContains(t, llm.prompt, strings.Repeat("x", 21))

	_, err = s.Invoke(context.Background(), json.RawMessage(`{"file_name":"site_a.pdf"}`))
	require.NoError(t, err)
	assert.Contains(t, llm.system, `"English"`)
}

func TestSummarizerUnknownFile(t *testing.T) {
	s := NewSummarizer(docs{"site_a.pdf": "x", "site_b.docx": "y"}, &fakeLLM{}, 0)
	_, err := s.Summarize(context.Background(), "nope.pdf", "")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.Contains(t, err.Error(), "the file 'nope.pdf' was not found. Available files: site_a.pdf, site_b.docx")
}

func TestSpecExtractorFillsMissingWithNull(t *testing.T) {
	llm := &fakeLLM{reply: "```json\n{\"Transmitter Power (dBm)\": 30}\n```"}
	x := NewSpecExtractor(docs{"site_a.pdf": "Tx power 30 dBm"}, llm, 0)

	out, err := x.Invoke(context.Background(), json.RawMessage(
		`{"file_name":"site_a.pdf","parameters_to_extract":["Transmitter Power (dBm)","Antenna Gain (dBi)"]}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Transmitter Power (dBm)": 30.0, "Antenna Gain (dBi)": nil}, out)
	assert.Contains(t, llm.prompt, "Transmitter Power (dBm), Antenna Gain (dBi)")
}

func TestSpecExtractorErrors(t *testing.T) {
	d := docs{"site_a.pdf": "text"}
	_, err := NewSpecExtractor(d, &fakeLLM{reply: "not json"}, 0).Extract(context.Background(), "site_a.pdf", []string{"a"})
	assert.Error(t, err)

	_, err = NewSpecExtractor(d, &fakeLLM{}, 0).Extract(context.Background(), "site_a.pdf", nil)
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = NewSpecExtractor(d, &fakeLLM{err: errors.New("down")}, 0).Extract(context.Background(), "site_a.pdf", []string{"a"})
	assert.Error(t, err)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(` {"a":1} `))
}

func names(ts []Tool) []string {
	var out []string
	for _, t := range ts {
		out = append(out, t.Name())
	}
	return out
}
