package chat

import (
	"context"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/nlu"
)

type vehicleKey struct{}

// WithVehicle attaches the shopper's vehicle to ctx. Product searches run
// under ctx use it as a model, engine and year filter.
func WithVehicle(ctx context.Context, v nlu.Vehicle) context.Context {
	if v.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, vehicleKey{}, v)
}

// VehicleFromContext returns the vehicle attached by WithVehicle, if any.
func VehicleFromContext(ctx context.Context) nlu.Vehicle {
	v, _ := ctx.Value(vehicleKey{}).(nlu.Vehicle)
	return v
}
