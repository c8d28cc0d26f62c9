package nlu

import "errors"

// Sentinel kinds for NLU errors.
var (
	ErrAnalyze   = errors.New("nlu analyze")
	ErrIAMToken  = errors.New("iam token exchange")
	ErrNoFeature = errors.New("no nlu feature enabled")
)
