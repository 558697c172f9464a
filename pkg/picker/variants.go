package picker

import (
	"context"
	"time"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/apiclient"
)

const (
	SeminarDebounce = 300 * time.Millisecond
	SubjectDebounce = 300 * time.Millisecond
	SpeakerDebounce = 500 * time.Millisecond

	searchPageSize = 20
)

// SeminarSource lists seminars matching a term. *apiclient.Client satisfies it.
type SeminarSource interface {
	Seminars(ctx context.Context, term string, perPage int) (*apiclient.Page[models.Seminar], error)
}

// SubjectSource lists subjects matching a term.
type SubjectSource interface {
	Subjects(ctx context.Context, term string) ([]models.Subject, error)
}

// SpeakerSource lists speakers matching a term.
type SpeakerSource interface {
	Speakers(ctx context.Context, term string, perPage int) (*apiclient.Page[models.Speaker], error)
}

// Seminars is the seminar multi-select, keyed by seminar id.
func Seminars(src SeminarSource, value []Item, onChange func([]Item), after AfterFunc) *Picker {
	return New(Config{
		Debounce:  SeminarDebounce,
		OnChange:  onChange,
		AfterFunc: after,
		Search: func(ctx context.Context, term string) ([]Item, error) {
			page, err := src.Seminars(ctx, term, searchPageSize)
			if err != nil {
				return nil, err
			}
			items := make([]Item, len(page.Data))
			for i, s := range page.Data {
				items[i] = Item{ID: s.ID.String(), Label: s.Name}
			}
			return items, nil
		},
	}, value)
}

// Subjects is the subject tag input, keyed by name. Enter with no highlight creates the
// typed subject.
func Subjects(src SubjectSource, value []Item, onChange func([]Item), after AfterFunc) *Picker {
	return New(Config{
		Debounce:    SubjectDebounce,
		AllowCreate: true,
		OnChange:    onChange,
		AfterFunc:   after,
		Search: func(ctx context.Context, term string) ([]Item, error) {
			list, err := src.Subjects(ctx, term)
			if err != nil {
				return nil, err
			}
			items := make([]Item, len(list))
			for i, s := range list {
				items[i] = Item{ID: s.Name, Label: s.Name}
			}
			return items, nil
		},
	}, value)
}

// Speakers is the speaker search, keyed by speaker id.
func Speakers(src SpeakerSource, value []Item, onChange func([]Item), after AfterFunc) *Picker {
	return New(Config{
		Debounce:  SpeakerDebounce,
		OnChange:  onChange,
		AfterFunc: after,
		Search: func(ctx context.Context, term string) ([]Item, error) {
			page, err := src.Speakers(ctx, term, searchPageSize)
			if err != nil {
				return nil, err
			}
			items := make([]Item, len(page.Data))
			for i, s := range page.Data {
				items[i] = SpeakerItem(&s)
			}
			return items, nil
		},
	}, value)
}

// SpeakerItem is the picker entry of a speaker.
func SpeakerItem(s *models.Speaker) Item {
	return Item{ID: s.ID.String(), Label: s.Name}
}
