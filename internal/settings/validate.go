package settings

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate validates a placement policy.
func (p Placement) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Mode, validation.Required,
			validation.In(PlaceFront, PlaceBack, PlaceField, PlaceNone)),
		validation.Field(&p.FieldName, validation.When(p.Mode == PlaceField, validation.Required)),
	)
}

// Validate checks that s is ready to be used for a submission.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.DeckName, validation.Required),
		validation.Field(&s.ModelName, validation.Required),
		validation.Field(&s.FrontFieldName, validation.Required),
		validation.Field(&s.BackFieldName, validation.Required),
		validation.Field(&s.SectionOrder, validation.By(isPermutation)),
		validation.Field(&s.SectionToField, validation.By(validMapping)),
		validation.Field(&s.Audio1Target),
		validation.Field(&s.Audio2Target),
		validation.Field(&s.ImagesTarget),
	)
}

func isPermutation(value interface{}) error {
	order, _ := value.([]Section)
	if len(order) != len(canonicalOrder) {
		return fmt.Errorf("must list all %d sections", len(canonicalOrder))
	}
	seen := make(map[Section]bool, len(order))
	for _, s := range order {
		if !s.Valid() {
			return fmt.Errorf("unknown section %q", s)
		}
		if seen[s] {
			return fmt.Errorf("section %q listed twice", s)
		}
		seen[s] = true
	}
	return nil
}

func validMapping(value interface{}) error {
	m, _ := value.(map[Section]string)
	for s, field := range m {
		if !s.Valid() {
			return fmt.Errorf("unknown section %q", s)
		}
		if s == TargetWord {
			return errors.New("targetWord always goes to the front field")
		}
		if field == "" {
			return fmt.Errorf("section %q maps to an empty field name", s)
		}
	}
	return nil
}
