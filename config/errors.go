package config

import "errors"

// ErrInvalid marks a fatal configuration error. Policy components wrap it
// when a configured rule cannot be compiled; startup must not proceed past
// an error matching it.
var ErrInvalid = errors.New("invalid configuration")
