package tsmodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/service"
	"StockCast/pkg/util"
)

// Order is the (p,d,q)(P,D,Q)m specification of a fitted model.
type Order struct {
	P  int `json:"p"`
	D  int `json:"d"`
	Q  int `json:"q"`
	SP int `json:"sp"`
	SD int `json:"sd"`
	SQ int `json:"sq"`
	M  int `json:"m"`
}

func (o Order) String() string {
	if o.SP == 0 && o.SD == 0 && o.SQ == 0 {
		return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
	}
	return fmt.Sprintf("(%d,%d,%d)(%d,%d,%d)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
}

func (o Order) seasonal() bool {
	return o.SP > 0 || o.SD > 0 || o.SQ > 0
}

// Artifact is the on-disk form of a fitted model.
// History is on the original price scale; Residuals are on the differenced scale,
// aligned to the end of the differenced series.
type Artifact struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	LastDate  string    `json:"last_date"`
	Order     Order     `json:"order"`
	AR        []float64 `json:"ar"`
	MA        []float64 `json:"ma"`
	SAR       []float64 `json:"sar"`
	SMA       []float64 `json:"sma"`
	Intercept float64   `json:"intercept"`
	Variance  float64   `json:"variance"`
	History   []float64 `json:"history"`
	Residuals []float64 `json:"residuals"`
}

var (
	ErrUnknownKind = errors.New("unknown model kind")
	ErrInvalid     = errors.New("invalid artifact")
)

// Decode reads an artifact and dispatches on its kind.
func Decode(data []byte) (service.Decoded, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return service.Decoded{}, fmt.Errorf("decode artifact: %w", err)
	}

	dec, ok := decoders[models.ModelKind(strings.ToLower(strings.TrimSpace(a.Kind)))]
	if !ok {
		return service.Decoded{}, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
	return dec.fromArtifact(a)
}

type artifactDecoder interface {
	fromArtifact(a Artifact) (service.Decoded, error)
}

var decoders = map[models.ModelKind]artifactDecoder{
	models.KindARIMA:  ARIMADecoder{},
	models.KindSARIMA: SARIMADecoder{},
}

// build checks the parts common to every kind and constructs the model.
func (a Artifact) build(kind models.ModelKind) (service.Decoded, error) {
	lastDate, err := util.ParseDate(a.LastDate)
	if err != nil {
		return service.Decoded{}, fmt.Errorf("%w: last_date: %v", ErrInvalid, err)
	}

	o := a.Order
	for name, v := range map[string]int{"p": o.P, "d": o.D, "q": o.Q, "sp": o.SP, "sd": o.SD, "sq": o.SQ, "m": o.M} {
		if v < 0 {
			return service.Decoded{}, fmt.Errorf("%w: order.%s is negative", ErrInvalid, name)
		}
	}
	if o.seasonal() && o.M < 2 {
		return service.Decoded{}, fmt.Errorf("%w: seasonal order needs m >= 2, got %d", ErrInvalid, o.M)
	}
	if len(a.AR) != o.P || len(a.MA) != o.Q || len(a.SAR) != o.SP || len(a.SMA) != o.SQ {
		return service.Decoded{}, fmt.Errorf("%w: coefficient counts ar=%d ma=%d sar=%d sma=%d do not match order %s",
			ErrInvalid, len(a.AR), len(a.MA), len(a.SAR), len(a.SMA), o)
	}
	if need := o.D + o.SD*o.M + 1; len(a.History) < need {
		return service.Decoded{}, fmt.Errorf("%w: history has %d values, order %s needs at least %d",
			ErrInvalid, len(a.History), o, need)
	}
	if a.Variance < 0 {
		return service.Decoded{}, fmt.Errorf("%w: negative variance", ErrInvalid)
	}
	if !util.Finite(a.Intercept, a.Variance) || !util.Finite(a.AR...) || !util.Finite(a.MA...) ||
		!util.Finite(a.SAR...) || !util.Finite(a.SMA...) || !util.Finite(a.History...) || !util.Finite(a.Residuals...) {
		return service.Decoded{}, fmt.Errorf("%w: non-finite value", ErrInvalid)
	}

	m := newModel(a)
	return service.Decoded{
		Name:     a.Name,
		Kind:     kind,
		Model:    m,
		LastDate: lastDate,
	}, nil
}

func meanSquare(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x * x
	}
	return s / float64(len(xs))
}
