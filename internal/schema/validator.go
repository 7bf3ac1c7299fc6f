// Package schema checks segment records before they leave the emitter.
package schema

import (
	"errors"
	"fmt"

	"extract-segmenter/internal/models"
)

var (
	ErrNegativeStart    = errors.New("segment starts before zero")
	ErrNegativeDuration = errors.New("segment ends before it starts")
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate returns an error if seg breaks a segment invariant.
func (v *Validator) Validate(seg models.Segment) error {
	if seg.Start < 0 {
		return fmt.Errorf("%w: start %d", ErrNegativeStart, seg.Start)
	}
	if seg.End < seg.Start {
		return fmt.Errorf("%w: start %d, end %d", ErrNegativeDuration, seg.Start, seg.End)
	}
	return nil
}
