package domain

import (
	"errors"
	"fmt"
	"time"
)

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseErrored Phase = "errored"
)

var ErrInvalidTransition = errors.New("invalid view state transition")

// ViewState: явное состояние представления вместо разрозненных флагов loading/error.
// Значение неизменяемое: каждый переход возвращает новое состояние.
// Последний успешный Dashboard переживает Loading и Errored, чтобы UI было что показать.
type ViewState struct {
	Phase     Phase      `json:"phase"`
	Dashboard *Dashboard `json:"dashboard,omitempty"`
	Err       string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewViewState: начальное состояние Idle.
func NewViewState() ViewState {
	return ViewState{Phase: PhaseIdle}
}

// Begin: Idle | Ready | Errored -> Loading.
func (s ViewState) Begin(now time.Time) (ViewState, error) {
	if s.Phase == PhaseLoading {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, PhaseLoading)
	}
	return ViewState{Phase: PhaseLoading, Dashboard: s.Dashboard, UpdatedAt: now}, nil
}

// Succeed: Loading -> Ready.
func (s ViewState) Succeed(d *Dashboard, now time.Time) (ViewState, error) {
	if s.Phase != PhaseLoading {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, PhaseReady)
	}
	return ViewState{Phase: PhaseReady, Dashboard: d, UpdatedAt: now}, nil
}

// Fail: Loading -> Errored.
func (s ViewState) Fail(err error, now time.Time) (ViewState, error) {
	if s.Phase != PhaseLoading {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, PhaseErrored)
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ViewState{Phase: PhaseErrored, Dashboard: s.Dashboard, Err: msg, UpdatedAt: now}, nil
}
