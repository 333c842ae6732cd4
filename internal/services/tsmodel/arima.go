package tsmodel

import (
	"fmt"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/service"
)

// ARIMADecoder accepts non-seasonal artifacts only.
type ARIMADecoder struct{}

var _ service.ModelDecoder = ARIMADecoder{}

func (d ARIMADecoder) Decode(data []byte) (service.Decoded, error) {
	out, err := Decode(data)
	if err != nil {
		return service.Decoded{}, err
	}
	if out.Kind != models.KindARIMA {
		return service.Decoded{}, fmt.Errorf("%w: expected arima, got %s", ErrUnknownKind, out.Kind)
	}
	return out, nil
}

func (ARIMADecoder) fromArtifact(a Artifact) (service.Decoded, error) {
	if a.Order.seasonal() || len(a.SAR) > 0 || len(a.SMA) > 0 {
		return service.Decoded{}, fmt.Errorf("%w: arima artifact carries seasonal terms %s", ErrInvalid, a.Order)
	}
	return a.build(models.KindARIMA)
}
