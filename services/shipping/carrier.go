package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/MarcGrol/dobmilano/lib/myhttpclient"
)

const (
	carrierTimeout          = 5 * time.Second
	breakerOpenTimeout      = 30 * time.Second
	breakerFailureThreshold = 5
)

// CarrierClient talks to the carrier aggregation API.
type CarrierClient struct {
	baseURL string
	apiKey  string
	sender  myhttpclient.HTTPSender
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewCarrierClient(baseURL string, apiKey string, sender myhttpclient.HTTPSender) *CarrierClient {
	return &CarrierClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		sender:  sender,
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:    "carrier " + baseURL,
			Timeout: breakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailureThreshold
			},
		}),
	}
}

func (cc *CarrierClient) Quote(c context.Context, req QuoteRequest) (ProviderQuote, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return ProviderQuote{}, fmt.Errorf("error marshalling quote request: %s", err)
	}

	c, cancel := context.WithTimeout(c, carrierTimeout)
	defer cancel()

	body, err := cc.breaker.Execute(func() ([]byte, error) {
		status, body, err := cc.sender.Send(c, http.MethodPost, cc.baseURL+"/v1/quotes", map[string]string{
			"Authorization": "Bearer " + cc.apiKey,
		}, payload)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("carrier responded with status %d: %s", status, truncate(string(body), 200))
		}
		return body, nil
	})
	if err != nil {
		return ProviderQuote{}, fmt.Errorf("error fetching carrier quote: %w", err)
	}

	quote := ProviderQuote{}
	err = json.Unmarshal(body, &quote)
	if err != nil {
		return ProviderQuote{}, fmt.Errorf("error parsing carrier quote: %s", err)
	}

	return quote, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// CarrierPool keeps one client, and so one breaker, per carrier account.
type CarrierPool struct {
	sync.Mutex
	sender  myhttpclient.HTTPSender
	clients map[string]*CarrierClient
}

func NewCarrierPool(sender myhttpclient.HTTPSender) *CarrierPool {
	return &CarrierPool{
		sender:  sender,
		clients: map[string]*CarrierClient{},
	}
}

func NewDefaultCarrierPool() *CarrierPool {
	return NewCarrierPool(myhttpclient.New(carrierTimeout))
}

func (p *CarrierPool) ProviderFor(baseURL string, apiKey string) Provider {
	p.Lock()
	defer p.Unlock()

	key := baseURL + "|" + apiKey
	client, found := p.clients[key]
	if !found {
		client = NewCarrierClient(baseURL, apiKey, p.sender)
		p.clients[key] = client
	}
	return client
}
