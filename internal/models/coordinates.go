package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Coordinates is a user position in decimal degrees.
type Coordinates struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

func NewCoordinates(lat, lng float64) *Coordinates {
	return &Coordinates{Latitude: &lat, Longitude: &lng}
}

// Validate reports ErrGeolocation for a missing or impossible position.
func (c *Coordinates) Validate() error {
	if c == nil {
		return ErrGeolocation
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrGeolocation, err)
	}
	return nil
}

func (c *Coordinates) Lat() float64 {
	if c == nil || c.Latitude == nil {
		return 0
	}
	return *c.Latitude
}

func (c *Coordinates) Lng() float64 {
	if c == nil || c.Longitude == nil {
		return 0
	}
	return *c.Longitude
}
