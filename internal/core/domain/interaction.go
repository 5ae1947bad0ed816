package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channel - канал контакта
type Channel string

const (
	ChannelWhatsApp   Channel = "whatsapp"
	ChannelCallOwner  Channel = "call_owner"
	ChannelCallAgency Channel = "call_agency"
)

// Interaction - запись журнала контактов (только добавление)
type Interaction struct {
	ID         uuid.UUID `json:"id"`
	ClientID   uuid.UUID `json:"client_id"`
	PropertyID uuid.UUID `json:"property_id"`
	Channel    Channel   `json:"channel"`
	Body       string    `json:"body"`
	ExternalID string    `json:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// InteractionKey - тройка, по которой работает защита от повторов
type InteractionKey struct {
	ClientID   uuid.UUID
	PropertyID uuid.UUID
	Channel    Channel
}

func (k InteractionKey) String() string {
	return k.ClientID.String() + "|" + k.PropertyID.String() + "|" + string(k.Channel)
}

func NewInteraction(key InteractionKey, body, externalID string) *Interaction {
	return &Interaction{
		ID:         uuid.New(),
		ClientID:   key.ClientID,
		PropertyID: key.PropertyID,
		Channel:    key.Channel,
		Body:       body,
		ExternalID: externalID,
		CreatedAt:  time.Now().UTC(),
	}
}
