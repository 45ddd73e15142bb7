// Package stages holds the production stage machine: the configured stage
// sequence, the transition policy and the derived time queries.
package stages

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSequence      = errors.New("invalid stage sequence")
	ErrUnknownStage         = errors.New("unknown stage")
	ErrTransitionNotAllowed = errors.New("transition not allowed")
)

// Stage names used by the default metal-pin production line.
const (
	NewOrder  = "NOVO_PEDIDO"
	Casting   = "FUNDICAO"
	Plating   = "BANHO"
	Painting  = "PINTURA"
	Packaging = "EMBALAGEM"
	Finished  = "FINALIZADO"
)

// Sequence is an ordered list of stage names. The first stage is intake and
// the last one is terminal; everything between is product-line specific.
type Sequence struct {
	Stages []string
	// MeasureFrom is the stage whose first entry starts the production clock.
	MeasureFrom string
}

// DefaultSequence is the pin/keychain line: intake, casting, plating,
// painting, packaging, finished.
func DefaultSequence() Sequence {
	return Sequence{
		Stages:      []string{NewOrder, Casting, Plating, Painting, Packaging, Finished},
		MeasureFrom: Casting,
	}
}

// ParseSequence builds a Sequence from a comma separated list.
func ParseSequence(list, measureFrom string) (Sequence, error) {
	var names []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			names = append(names, s)
		}
	}
	seq := Sequence{Stages: names, MeasureFrom: strings.TrimSpace(measureFrom)}
	if err := seq.Validate(); err != nil {
		return Sequence{}, err
	}
	return seq, nil
}

func (s Sequence) Validate() error {
	if len(s.Stages) < 2 {
		return fmt.Errorf("%w: need at least an intake and a terminal stage", ErrInvalidSequence)
	}
	seen := make(map[string]struct{}, len(s.Stages))
	for _, name := range s.Stages {
		if name == "" {
			return fmt.Errorf("%w: empty stage name", ErrInvalidSequence)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate stage %q", ErrInvalidSequence, name)
		}
		seen[name] = struct{}{}
	}
	if s.MeasureFrom != "" {
		if _, ok := seen[s.MeasureFrom]; !ok {
			return fmt.Errorf("%w: measure-from stage %q is not in the sequence", ErrInvalidSequence, s.MeasureFrom)
		}
	}
	return nil
}

func (s Sequence) Intake() string { return s.Stages[0] }

func (s Sequence) Terminal() string { return s.Stages[len(s.Stages)-1] }

func (s Sequence) IsTerminal(stage string) bool { return stage == s.Terminal() }

// Index returns the position of stage, or -1.
func (s Sequence) Index(stage string) int {
	for i, name := range s.Stages {
		if name == stage {
			return i
		}
	}
	return -1
}

func (s Sequence) Contains(stage string) bool { return s.Index(stage) >= 0 }
