package usecase

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

type CardAction int

const (
	CardUpsert CardAction = iota
	CardDelete
	CardSkip
)

func (a CardAction) String() string {
	switch a {
	case CardUpsert:
		return "upsert"
	case CardDelete:
		return "delete"
	case CardSkip:
		return "skip"
	default:
		return "unknown"
	}
}

const SkipReasonMissingList = "card sem idList"

// CardMapping é a saída do mapper: o que fazer com o card e, para upsert, os campos.
type CardMapping struct {
	Action CardAction
	Reason string
	Fields entity.LeadFields
}

var (
	titleDelimiters = regexp.MustCompile(`[-:,\n]`)
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern    = regexp.MustCompile(`\+?\(?\d[\d\s().\-]{6,}\d`)
	socialPattern   = regexp.MustCompile(`(?i)(?:instagram\.com/|(?:ig|insta|instagram)\s*:\s*@?|@)([A-Za-z0-9._]{2,30})`)
)

// datePattern casa datas de viagem (2024-03-15, 15/03/2024, 15.03.24), que não são telefone.
var datePattern = regexp.MustCompile(`\b(?:\d{4}[-/.](?:0?[1-9]|1[0-2])[-/.](?:0?[1-9]|[12]\d|3[01])|(?:0?[1-9]|[12]\d|3[01])[-/.](?:0?[1-9]|1[0-2])[-/.](?:\d{4}|\d{2}))\b`)

// MapCard converte um card do provider em campos de lead. Função pura.
func MapCard(card entity.Card, cfg *entity.BoardConfig) CardMapping {
	if card.Closed {
		return CardMapping{Action: CardDelete, Reason: "card arquivado"}
	}
	if strings.TrimSpace(card.IDList) == "" {
		return CardMapping{Action: CardSkip, Reason: SkipReasonMissingList}
	}

	contact, secondSegment := splitTitle(card.Name)

	fields := entity.LeadFields{
		ListID:       card.IDList,
		Status:       cfg.StatusFor(card.IDList),
		Region:       cfg.RegionFor(card.IDList),
		Destination:  destinationFor(card.Labels, secondSegment),
		ContactName:  contact,
		ContactEmail: extractEmail(card.Description),
		ContactPhone: extractPhone(card.Description, cfg.PhoneRegionOrDefault()),
		SocialHandle: extractSocialHandle(card.Description),
		Notes:        strings.TrimSpace(card.Description),
	}
	if !card.DateLastActivity.IsZero() {
		at := card.DateLastActivity.UTC()
		fields.ExternalUpdatedAt = &at
	}

	return CardMapping{Action: CardUpsert, Fields: fields}
}

func splitTitle(title string) (string, string) {
	parts := titleDelimiters.Split(title, 3)
	first := strings.TrimSpace(parts[0])
	second := ""
	if len(parts) > 1 {
		second = strings.TrimSpace(parts[1])
	}
	return first, second
}

func destinationFor(labels []entity.Label, titleSegment string) string {
	for _, l := range labels {
		if name := strings.TrimSpace(l.Name); name != "" {
			return name
		}
	}
	if titleSegment != "" {
		return titleSegment
	}
	return entity.NoDestination
}

func extractEmail(text string) string {
	return strings.ToLower(emailPattern.FindString(text))
}

// extractPhone devolve o primeiro telefone válido para a região em E.164;
// sem nenhum válido, o primeiro candidato com dígitos suficientes, limpo.
// Emails e datas saem do texto antes da busca.
func extractPhone(text, region string) string {
	text = datePattern.ReplaceAllString(emailPattern.ReplaceAllString(text, " "), " ")
	candidates := phonePattern.FindAllString(text, -1)
	fallback := ""
	for _, raw := range candidates {
		if num, err := phonenumbers.Parse(raw, region); err == nil && phonenumbers.IsValidNumber(num) {
			return phonenumbers.Format(num, phonenumbers.E164)
		}
		if clean := digitsOnly(raw); fallback == "" && len(strings.TrimPrefix(clean, "+")) >= minPhoneDigits {
			fallback = clean
		}
	}
	return fallback
}

const minPhoneDigits = 8

func digitsOnly(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func extractSocialHandle(text string) string {
	m := socialPattern.FindStringSubmatch(emailPattern.ReplaceAllString(text, " "))
	if len(m) < 2 {
		return ""
	}
	return "@" + strings.TrimRight(m[1], ".")
}
