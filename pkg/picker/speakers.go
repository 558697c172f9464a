package picker

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/apiclient"
)

// SpeakerAPI searches and creates speakers.
type SpeakerAPI interface {
	SpeakerSource
	CreateSpeaker(ctx context.Context, in apiclient.SpeakerInput) (*models.Speaker, error)
}

// FieldErrors maps a form field to its message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	msgs := make([]string, 0, len(f))
	for _, field := range []string{"name", "email", "institution", "password"} {
		if m, ok := f[field]; ok {
			msgs = append(msgs, m)
		}
	}
	return strings.Join(msgs, " ")
}

// SpeakerForm is the inline creation form of the speaker modal.
type SpeakerForm struct {
	Name        string `validate:"required,max=255"`
	Email       string `validate:"required,email,max=255"`
	Institution string `validate:"max=255"`
	Description string
	Password    string `validate:"omitempty,min=8"`
}

var formValidator = validator.New()

// Validate trims the form and reports field errors in Portuguese.
func (f *SpeakerForm) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Institution = strings.TrimSpace(f.Institution)
	f.Description = strings.TrimSpace(f.Description)

	err := formValidator.Struct(f)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Name":
			out["name"] = "O nome é obrigatório."
		case "Email":
			out["email"] = "Informe um e-mail válido."
		case "Institution":
			out["institution"] = "A instituição deve ter no máximo 255 caracteres."
		case "Password":
			out["password"] = "A senha deve ter pelo menos 8 caracteres."
		}
	}
	return out
}

// SpeakerModal edits a pending speaker selection. Nothing reaches the committed value
// until Confirm.
type SpeakerModal struct {
	api     SpeakerAPI
	search  *Picker
	confirm func([]Item)
}

// NewSpeakerModal opens the modal seeded with the committed selection.
func NewSpeakerModal(api SpeakerAPI, committed []Item, confirm func([]Item), after AfterFunc) *SpeakerModal {
	return &SpeakerModal{
		api:     api,
		search:  Speakers(api, committed, nil, after),
		confirm: confirm,
	}
}

// Search is the speaker picker whose value is the pending set.
func (m *SpeakerModal) Search() *Picker { return m.search }

// Pending returns the pending selection.
func (m *SpeakerModal) Pending() []Item { return m.search.Value() }

// Toggle adds or removes a speaker from the pending set.
func (m *SpeakerModal) Toggle(it Item) {
	if !m.search.Remove(it.ID) {
		m.search.Add(it)
	}
}

// Create validates f, creates the speaker and appends it to the pending set.
func (m *SpeakerModal) Create(ctx context.Context, f SpeakerForm) (Item, error) {
	if err := f.Validate(); err != nil {
		return Item{}, err
	}
	s, err := m.api.CreateSpeaker(ctx, apiclient.SpeakerInput{
		Name:        f.Name,
		Email:       f.Email,
		Institution: f.Institution,
		Description: f.Description,
		Password:    f.Password,
	})
	if err != nil {
		return Item{}, err
	}
	it := SpeakerItem(s)
	m.search.Add(it)
	return it, nil
}

// Confirm commits the pending set and closes the modal.
func (m *SpeakerModal) Confirm() []Item {
	pending := m.search.Value()
	m.search.Close()
	if m.confirm != nil {
		m.confirm(pending)
	}
	return pending
}

// Cancel discards the pending set.
func (m *SpeakerModal) Cancel() {
	m.search.Close()
}
