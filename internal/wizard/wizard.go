// Package wizard holds the state machine behind both translation flows: a
// linear method -> content -> configure -> results sequence over one State.
//
// A Wizard is not safe for concurrent use; callers serialize access.
package wizard

import (
	"context"
	"fmt"
	"log/slog"
)

// Features are independent optional outputs.
type Features struct {
	Summarize         bool `json:"summarize"`
	GenerateBanner    bool `json:"generateBanner"`
	GenerateAudio     bool `json:"generateAudio"`
	IncludeTimestamps bool `json:"includeTimestamps"`
	EnableQA          bool `json:"enableQA"`
}

// State is the accumulated form state of one flow.
type State struct {
	InputMethod    Method   `json:"inputMethod"`
	Payload        Payload  `json:"payload"`
	TargetLanguage string   `json:"targetLanguage"`
	Tone           Tone     `json:"tone"`
	Features       Features `json:"features"`
}

// DefaultState is the state of a fresh flow.
func DefaultState() State {
	return State{Tone: DefaultTone}
}

// Wizard is the step controller for one flow.
type Wizard struct {
	flow  Flow
	step  Step
	state State

	teardown map[Step][]func()

	runCtx    context.Context
	runCancel context.CancelFunc
}

// New creates a wizard positioned at the first step with default state.
func New(flow Flow) *Wizard {
	return &Wizard{
		flow:     flow,
		step:     StepMethod,
		state:    DefaultState(),
		teardown: make(map[Step][]func()),
	}
}

func (w *Wizard) Flow() Flow   { return w.flow }
func (w *Wizard) Step() Step   { return w.step }
func (w *Wizard) State() State { return w.state }

// Advance moves to the next step, stopping at the results step. It performs
// no validation; callers check CanAdvance first.
func (w *Wizard) Advance() {
	w.moveTo(min(w.step+1, StepResults))
}

// Retreat moves to the previous step, stopping at the first.
func (w *Wizard) Retreat() {
	w.moveTo(max(w.step-1, StepMethod))
}

// Reset returns to the first step with default state. Every registered
// teardown runs and the run context is cancelled.
func (w *Wizard) Reset() {
	for s := StepResults; s >= StepMethod; s-- {
		w.release(s)
	}

	w.cancelRun()
	w.step = StepMethod
	w.state = DefaultState()

	slog.Debug("wizard reset", "flow", w.flow)
}

func (w *Wizard) moveTo(next Step) {
	if next == w.step {
		return
	}

	w.release(w.step)
	if w.step == StepResults {
		w.cancelRun()
	}

	slog.Debug("wizard step", "flow", w.flow, "from", w.step, "to", next)
	w.step = next
}

// Defer registers fn to run when the wizard leaves the current step. Functions
// run synchronously in reverse registration order.
func (w *Wizard) Defer(fn func()) {
	w.teardown[w.step] = append(w.teardown[w.step], fn)
}

func (w *Wizard) release(s Step) {
	fns := w.teardown[s]
	delete(w.teardown, s)

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// RunContext returns the context for work started on the results step. It is
// cancelled on Reset and when leaving the results step; the next call after
// that returns a fresh context.
func (w *Wizard) RunContext() context.Context {
	if w.runCtx == nil {
		w.runCtx, w.runCancel = context.WithCancel(context.Background())
	}

	return w.runCtx
}

func (w *Wizard) cancelRun() {
	if w.runCancel == nil {
		return
	}

	w.runCancel()
	w.runCtx = nil
	w.runCancel = nil
}

// SelectMethod stores the input method. Switching to a different method
// clears any captured payload. The step never changes.
func (w *Wizard) SelectMethod(m Method) error {
	if !w.flow.Supports(m) {
		return fmt.Errorf("%w: %q in %s flow", ErrInvalidMethod, m, w.flow)
	}

	if w.state.InputMethod != m {
		w.state.Payload = nil
	}

	w.state.InputMethod = m

	return nil
}

// SetPayload stores p, replacing any previous payload. p must belong to the
// selected method. A nil payload clears.
func (w *Wizard) SetPayload(p Payload) error {
	if p == nil {
		w.ClearPayload()
		return nil
	}

	if w.state.InputMethod == MethodNone || p.Method() != w.state.InputMethod {
		return fmt.Errorf("%w: %s payload for method %q", ErrPayloadMismatch, p.Method(), w.state.InputMethod)
	}

	w.state.Payload = p

	return nil
}

func (w *Wizard) ClearPayload() {
	w.state.Payload = nil
}

// SetTargetLanguage stores a language code. The empty string unsets it.
func (w *Wizard) SetTargetLanguage(code string) error {
	if code != "" {
		if _, ok := LookupLanguage(code); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
		}
	}

	w.state.TargetLanguage = code

	return nil
}

func (w *Wizard) SetTone(t Tone) error {
	if _, err := ParseTone(string(t)); err != nil {
		return err
	}

	w.state.Tone = t

	return nil
}

// SetFeatures replaces all feature toggles. Timestamps are audio-only.
func (w *Wizard) SetFeatures(f Features) error {
	if f.IncludeTimestamps && w.flow != FlowAudio {
		return fmt.Errorf("%w: timestamps in %s flow", ErrUnsupportedFeature, w.flow)
	}

	w.state.Features = f

	return nil
}

// CanAdvance reports whether the current step's input is complete.
func (w *Wizard) CanAdvance() bool {
	switch w.step {
	case StepMethod:
		return w.state.InputMethod != MethodNone
	case StepContent:
		return w.state.Payload != nil &&
			w.state.Payload.Method() == w.state.InputMethod &&
			w.state.Payload.Valid()
	case StepConfigure:
		return w.state.TargetLanguage != ""
	default:
		return false
	}
}
