package trello

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

// Os DTOs usam ponteiros para distinguir campo ausente de campo vazio; o
// decode para entity acontece aqui e o resto do código só vê registros estritos.

type labelDTO struct {
	ID    string  `json:"id"`
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

type cardDTO struct {
	ID               string     `json:"id"`
	Name             *string    `json:"name"`
	Desc             *string    `json:"desc"`
	IDList           *string    `json:"idList"`
	IDBoard          *string    `json:"idBoard"`
	Labels           []labelDTO `json:"labels"`
	Closed           *bool      `json:"closed"`
	DateLastActivity *time.Time `json:"dateLastActivity"`
}

type listDTO struct {
	ID     string  `json:"id"`
	Name   *string `json:"name"`
	Closed *bool   `json:"closed"`
}

type boardDTO struct {
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	ShortLink *string `json:"shortLink"`
}

type webhookDTO struct {
	ID          string  `json:"id"`
	Description *string `json:"description"`
	IDModel     *string `json:"idModel"`
	CallbackURL *string `json:"callbackURL"`
	Active      *bool   `json:"active"`
}

type createWebhookRequest struct {
	Description string `json:"description"`
	CallbackURL string `json:"callbackURL"`
	IDModel     string `json:"idModel"`
}

type webhookEventDTO struct {
	Action *struct {
		Type string `json:"type"`
		Data struct {
			Card *struct {
				ID string `json:"id"`
			} `json:"card"`
			Board *struct {
				ID        string `json:"id"`
				ShortLink string `json:"shortLink"`
			} `json:"board"`
		} `json:"data"`
	} `json:"action"`
	Model *struct {
		ID        string `json:"id"`
		ShortLink string `json:"shortLink"`
	} `json:"model"`
	Webhook *struct {
		ID string `json:"id"`
	} `json:"webhook"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (d cardDTO) toEntity() entity.Card {
	card := entity.Card{
		ID:          d.ID,
		Name:        str(d.Name),
		Description: str(d.Desc),
		IDList:      strings.TrimSpace(str(d.IDList)),
		IDBoard:     str(d.IDBoard),
		Closed:      d.Closed != nil && *d.Closed,
	}
	if d.DateLastActivity != nil {
		card.DateLastActivity = d.DateLastActivity.UTC()
	}
	for _, l := range d.Labels {
		card.Labels = append(card.Labels, entity.Label{ID: l.ID, Name: str(l.Name), Color: str(l.Color)})
	}
	return card
}

func (d cardDTO) toSummary() entity.CardSummary {
	c := d.toEntity()
	return entity.CardSummary{
		ID:               c.ID,
		Name:             c.Name,
		IDList:           c.IDList,
		Closed:           c.Closed,
		DateLastActivity: c.DateLastActivity,
	}
}

func (d listDTO) toEntity() entity.BoardList {
	return entity.BoardList{ID: d.ID, Name: str(d.Name), Closed: d.Closed != nil && *d.Closed}
}

func (d boardDTO) toEntity() entity.Board {
	return entity.Board{ID: d.ID, Name: str(d.Name), ShortLink: str(d.ShortLink)}
}

func (d webhookDTO) toEntity() entity.Webhook {
	return entity.Webhook{
		ID:          d.ID,
		Description: str(d.Description),
		IDModel:     str(d.IDModel),
		CallbackURL: str(d.CallbackURL),
		// ausente = ativo, é o default do provider
		Active: d.Active == nil || *d.Active,
	}
}

// DecodeWebhookEvent extrai o envelope de um callback. Quando a action não traz
// o board, usa o model da assinatura (o próprio board).
func DecodeWebhookEvent(body []byte) (entity.CardEvent, error) {
	var dto webhookEventDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return entity.CardEvent{}, fmt.Errorf("payload de webhook inválido: %w", err)
	}

	var event entity.CardEvent
	if dto.Action != nil {
		event.ActionType = dto.Action.Type
		if dto.Action.Data.Card != nil {
			event.CardID = dto.Action.Data.Card.ID
		}
		if dto.Action.Data.Board != nil {
			event.BoardID = dto.Action.Data.Board.ID
			event.BoardShortLink = dto.Action.Data.Board.ShortLink
		}
	}
	if dto.Webhook != nil {
		event.WebhookID = dto.Webhook.ID
	}
	if dto.Model != nil {
		if event.BoardID == "" {
			event.BoardID = dto.Model.ID
		}
		if event.BoardShortLink == "" {
			event.BoardShortLink = dto.Model.ShortLink
		}
	}
	return event, nil
}
