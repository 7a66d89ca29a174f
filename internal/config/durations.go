package config

import "time"

// Named duration constants so defaults.go reads as config, not arithmetic.
const (
	second = time.Second
	minute = time.Minute
	hour   = time.Hour

	durPreGateDefault  = 1500 * time.Millisecond
	durTISourceDefault = 5 * time.Second
	durAIModelDefault  = 15 * time.Second
)
