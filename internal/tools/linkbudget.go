package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const LinkBudgetName = "calculate_link_budget"

// LinkBudgetInput holds point-to-point link parameters in km, MHz, dBm, dB and dBi.
// ReceiverSensitivity is optional; when set the link margin is also reported.
type LinkBudgetInput struct {
	DistanceKm                float64  `json:"distance_km"`
	TransmitterPowerDBm       float64  `json:"transmitter_power_dBm"`
	TransmitterCableLossDB    float64  `json:"transmitter_cable_loss_dB"`
	TransmitterAntennaGainDBi float64  `json:"transmitter_antenna_gain_dBi"`
	ReceiverAntennaGainDBi    float64  `json:"receiver_antenna_gain_dBi"`
	ReceiverCableLossDB       float64  `json:"receiver_cable_loss_dB"`
	FrequencyMHz              float64  `json:"frequency_MHz"`
	ReceiverSensitivityDBm    *float64 `json:"receiver_sensitivity_dBm,omitempty"`
}

type LinkBudgetResult struct {
	EIRP          float64  `json:"Effective Isotropic Radiated Power (EIRP) dBm"`
	FSPL          float64  `json:"Free Space Path Loss (FSPL) dB"`
	ReceivedPower float64  `json:"Calculated Received Power dBm"`
	LinkMargin    *float64 `json:"Link Margin dB,omitempty"`
}

// CalculateLinkBudget is pure: EIRP = Ptx - Ltx + Gtx,
// FSPL = 20log10(d_km) + 20log10(f_MHz) + 27.55, Prx = EIRP - FSPL + Grx - Lrx.
// Every value is rounded to two decimals.
func CalculateLinkBudget(in LinkBudgetInput) (LinkBudgetResult, error) {
	if !(in.DistanceKm > 0) || math.IsInf(in.DistanceKm, 0) {
		return LinkBudgetResult{}, fmt.Errorf("%w: distance_km must be positive", ErrInvalidArguments)
	}
	if !(in.FrequencyMHz > 0) || math.IsInf(in.FrequencyMHz, 0) {
		return LinkBudgetResult{}, fmt.Errorf("%w: frequency_MHz must be positive", ErrInvalidArguments)
	}

	eirp := in.TransmitterPowerDBm - in.TransmitterCableLossDB + in.TransmitterAntennaGainDBi
	fspl := 20*math.Log10(in.DistanceKm) + 20*math.Log10(in.FrequencyMHz) + 27.55
	prx := eirp - fspl + in.ReceiverAntennaGainDBi - in.ReceiverCableLossDB

	res := LinkBudgetResult{EIRP: round2(eirp), FSPL: round2(fspl), ReceivedPower: round2(prx)}
	if in.ReceiverSensitivityDBm != nil {
		margin := round2(prx - *in.ReceiverSensitivityDBm)
		res.LinkMargin = &margin
	}
	return res, nil
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

type LinkBudget struct{}

func NewLinkBudget() *LinkBudget { return &LinkBudget{} }

func (*LinkBudget) Name() string { return LinkBudgetName }

func (*LinkBudget) Description() string {
	return "Calculates the link budget for a point-to-point radio link. This is a pure calculation " +
		"and does not read documents: every parameter must be provided. Returns EIRP, free space path loss " +
		"and received power, plus the link margin when the receiver sensitivity is given."
}

func (*LinkBudget) NeedsKnowledgeBase() bool { return false }

func (*LinkBudget) Parameters() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "distance_km": {"type": "number", "description": "Distance between the two sites in kilometers."},
    "transmitter_power_dBm": {"type": "number", "description": "Transmitter output power in dBm."},
    "transmitter_cable_loss_dB": {"type": "number", "description": "Cable and connector loss at the transmitter in dB."},
    "transmitter_antenna_gain_dBi": {"type": "number", "description": "Transmitter antenna gain in dBi."},
    "receiver_antenna_gain_dBi": {"type": "number", "description": "Receiver antenna gain in dBi."},
    "receiver_cable_loss_dB": {"type": "number", "description": "Cable and connector loss at the receiver in dB."},
    "frequency_MHz": {"type": "number", "description": "Operating frequency in megahertz."},
    "receiver_sensitivity_dBm": {"type": "number", "description": "Optional receiver sensitivity in dBm."}
  },
  "required": ["distance_km", "transmitter_power_dBm", "transmitter_cable_loss_dB", "transmitter_antenna_gain_dBi",
    "receiver_antenna_gain_dBi", "receiver_cable_loss_dB", "frequency_MHz"]
}`)
}

var linkBudgetRequired = []string{
	"distance_km", "transmitter_power_dBm", "transmitter_cable_loss_dB", "transmitter_antenna_gain_dBi",
	"receiver_antenna_gain_dBi", "receiver_cable_loss_dB", "frequency_MHz",
}

func (*LinkBudget) Invoke(_ context.Context, args json.RawMessage) (any, error) {
	in, err := ParseLinkBudgetInput(args)
	if err != nil {
		return nil, err
	}
	return CalculateLinkBudget(in)
}

// ParseLinkBudgetInput decodes a JSON object and requires every mandatory
// parameter to be present and non-null. Zero is a valid loss or gain, so a
// missing key cannot be told apart after decoding.
func ParseLinkBudgetInput(args json.RawMessage) (LinkBudgetInput, error) {
	var present map[string]json.RawMessage
	if err := decodeArgs(args, &present); err != nil {
		return LinkBudgetInput{}, err
	}
	for _, key := range linkBudgetRequired {
		if v, ok := present[key]; !ok || string(v) == "null" {
			return LinkBudgetInput{}, fmt.Errorf("%w: missing %s", ErrInvalidArguments, key)
		}
	}

	var in LinkBudgetInput
	if err := decodeArgs(args, &in); err != nil {
		return LinkBudgetInput{}, err
	}
	return in, nil
}
