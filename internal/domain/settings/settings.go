package settings

import (
	"context"

	"rentals/internal/domain/shared/money"
)

// DefaultFeeRate is applied when no platform settings were stored.
var DefaultFeeRate = money.Percent(10)

// PlatformSettings holds marketplace-wide commercial parameters.
type PlatformSettings struct {
	FeeRate money.Rate
}

func Default() PlatformSettings {
	return PlatformSettings{FeeRate: DefaultFeeRate}
}

type Repository interface {
	PlatformSettings(ctx context.Context) (PlatformSettings, error)
}
