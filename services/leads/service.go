package leads

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/mylog"
	"github.com/MarcGrol/dobmilano/lib/mypublisher"
	"github.com/MarcGrol/dobmilano/lib/mystore"
	"github.com/MarcGrol/dobmilano/lib/mytime"
	"github.com/MarcGrol/dobmilano/lib/myuuid"
)

const (
	maxFieldLength   = 200
	maxMessageLength = 4000
)

var validationMessages = map[string]map[string]string{
	"it": {
		"required": "Nome, email e consenso sono obbligatori.",
		"email":    "Indirizzo email non valido.",
	},
	"en": {
		"required": "Name, email and consent are required.",
		"email":    "Invalid email address.",
	},
}

func validationMessage(locale string, key string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if len(locale) > 2 {
		locale = locale[:2]
	}
	if msgs, found := validationMessages[locale]; found {
		return msgs[key]
	}
	return validationMessages["it"][key]
}

type Service struct {
	logger    mylog.Logger
	leadStore mystore.Store[Lead]
	publisher mypublisher.Publisher
	nower     mytime.Nower
	uuider    myuuid.UUIDer
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewService(leadStore mystore.Store[Lead], publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer) *Service {
	return &Service{
		logger:    mylog.New("leads"),
		leadStore: leadStore,
		publisher: publisher,
		nower:     nower,
		uuider:    uuider,
	}
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// Capture validates and stores a lead. Name, a valid email and consent are required.
func (s *Service) Capture(c context.Context, lead Lead) (Lead, error) {
	lead.Name = truncate(lead.Name, maxFieldLength)
	lead.Email = truncate(lead.Email, maxFieldLength)
	lead.Phone = truncate(lead.Phone, maxFieldLength)
	lead.Service = truncate(lead.Service, maxFieldLength)
	lead.Message = truncate(lead.Message, maxMessageLength)
	lead.Locale = truncate(lead.Locale, 8)

	if lead.Name == "" || lead.Email == "" || !lead.Consent {
		return Lead{}, myerrors.NewInvalidInputError(errors.New(validationMessage(lead.Locale, "required")))
	}
	address, err := mail.ParseAddress(lead.Email)
	if err != nil || address.Address != lead.Email {
		return Lead{}, myerrors.NewInvalidInputError(errors.New(validationMessage(lead.Locale, "email")))
	}

	lead.UID = s.uuider.Create()
	lead.CreatedAt = s.nower.Now()

	err = s.leadStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		err := s.leadStore.Put(c, lead.UID, lead)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing lead %s: %s", lead.UID, err))
		}

		err = s.publisher.Publish(c, TopicName, LeadCreated{
			LeadUID: lead.UID,
			Name:    lead.Name,
			Email:   lead.Email,
			Service: lead.Service,
			Locale:  lead.Locale,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing lead %s: %s", lead.UID, err))
		}
		return nil
	})
	if err != nil {
		return Lead{}, err
	}

	s.logger.Log(c, lead.UID, mylog.SeverityInfo, "Captured lead %s for service %q", lead.UID, lead.Service)

	return lead, nil
}
