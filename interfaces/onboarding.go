package interfaces

import (
	"context"
	"time"
)

type OnboardingStatus struct {
	Running     bool       `json:"running"`
	CyclesRun   int64      `json:"cyclesRun"`
	LastCycleAt *time.Time `json:"lastCycleAt,omitempty"`
}

type OnboardingService interface {
	// Start validates provider credentials, then blocks running scheduling
	// cycles until Stop is called or ctx is cancelled. A credentials problem
	// is returned synchronously before the first cycle.
	Start(ctx context.Context) error

	// Stop requests a cooperative shutdown, observed between cycles only.
	Stop() error

	Status() OnboardingStatus
}
