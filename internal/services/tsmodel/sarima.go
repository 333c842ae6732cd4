package tsmodel

import (
	"fmt"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/service"
)

// SARIMADecoder accepts seasonal artifacts; a zero seasonal order degrades to ARIMA behaviour.
type SARIMADecoder struct{}

var _ service.ModelDecoder = SARIMADecoder{}

func (d SARIMADecoder) Decode(data []byte) (service.Decoded, error) {
	out, err := Decode(data)
	if err != nil {
		return service.Decoded{}, err
	}
	if out.Kind != models.KindSARIMA {
		return service.Decoded{}, fmt.Errorf("%w: expected sarima, got %s", ErrUnknownKind, out.Kind)
	}
	return out, nil
}

func (SARIMADecoder) fromArtifact(a Artifact) (service.Decoded, error) {
	if a.Order.seasonal() && a.Order.M < 2 {
		return service.Decoded{}, fmt.Errorf("%w: sarima artifact needs a seasonal period", ErrInvalid)
	}
	return a.build(models.KindSARIMA)
}
