package mypublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/dobmilano/lib/mycontext"
	"github.com/MarcGrol/dobmilano/lib/myevents"
	"github.com/MarcGrol/dobmilano/lib/myhttp"
	"github.com/MarcGrol/dobmilano/lib/mylog"
	"github.com/MarcGrol/dobmilano/lib/mypubsub"
	"github.com/MarcGrol/dobmilano/lib/myqueue"
	"github.com/MarcGrol/dobmilano/lib/mystore"
	"github.com/MarcGrol/dobmilano/lib/mytime"
)

// TransactionalPublisher stores events in an outbox within the caller's transaction.
// A queued trigger moves them to pubsub afterwards.
type TransactionalPublisher struct {
	outbox    mystore.Store[myevents.EventEnvelope]
	queue     myqueue.TaskQueuer
	enveloper enveloper
	pubsub    mypubsub.PubSub
	logger    mylog.Logger
}

func New(c context.Context, pubsub mypubsub.PubSub, queue myqueue.TaskQueuer, nower mytime.Nower) (*TransactionalPublisher, func(), error) {
	store, storeCleanup, err := mystore.New[myevents.EventEnvelope](c)
	if err != nil {
		return nil, nil, err
	}

	return NewWithStore(store, pubsub, queue, nower), storeCleanup, nil
}

func NewWithStore(outbox mystore.Store[myevents.EventEnvelope], pubsub mypubsub.PubSub, queue myqueue.TaskQueuer, nower mytime.Nower) *TransactionalPublisher {
	return &TransactionalPublisher{
		outbox:    outbox,
		queue:     queue,
		enveloper: newEnveloper(nower),
		pubsub:    pubsub,
		logger:    mylog.New("publisher"),
	}
}

func (p *TransactionalPublisher) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/pubsub/{topic}/{uid}", p.processTriggerPage()).Methods("PUT")
}

func (p *TransactionalPublisher) CreateTopic(c context.Context, topicName string) error {
	return p.pubsub.CreateTopic(c, topicName)
}

func (p *TransactionalPublisher) Publish(c context.Context, topic string, event myevents.Event) error {
	envelope, err := p.enveloper.wrap(topic, event)
	if err != nil {
		return fmt.Errorf("error creating envelope: %s", err)
	}
	err = p.outbox.Put(c, envelope.UID, envelope)
	if err != nil {
		return fmt.Errorf("error storing envelope %s: %s", envelope, err)
	}

	err = p.queue.Enqueue(c, myqueue.Task{
		UID:            envelope.UID,
		WebhookURLPath: fmt.Sprintf("/pubsub/%s/%s", envelope.Topic, envelope.UID),
	})
	if err != nil {
		return fmt.Errorf("error queueing publication-trigger %s: %s", envelope.UID, err)
	}

	p.logger.Log(c, envelope.AggregateUID, mylog.SeverityInfo, "Enqueued event %s", envelope)

	return nil
}

func (p *TransactionalPublisher) processTriggerPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(p.logger)

		count, err := p.Flush(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			OK:      true,
			Message: fmt.Sprintf("Published %d events", count),
		})
	}
}

// Flush publishes every outbox envelope that is not yet published, oldest first.
func (p *TransactionalPublisher) Flush(c context.Context) (int, error) {
	envelopes, err := p.outbox.Query(c, []mystore.Filter{{Field: "Published", Compare: "=", Value: false}}, "CreatedAt")
	if err != nil {
		return 0, fmt.Errorf("error fetching envelopes: %s", err)
	}

	count := 0
	for _, e := range envelopes {
		published, err := p.publishOnce(c, e.UID)
		if err != nil {
			return count, err
		}
		if published {
			count++
		}
	}

	return count, nil
}

func (p *TransactionalPublisher) publishOnce(c context.Context, uid string) (bool, error) {
	published := false
	err := p.outbox.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		published = false

		envelope, exists, err := p.outbox.Get(c, uid)
		if err != nil {
			return fmt.Errorf("error fetching envelope %s: %s", uid, err)
		}
		if !exists || envelope.Published {
			return nil
		}

		jsonBytes, err := json.Marshal(envelope)
		if err != nil {
			return fmt.Errorf("error serializing envelope %s: %s", envelope, err)
		}

		err = p.pubsub.Publish(c, envelope.Topic, string(jsonBytes))
		if err != nil {
			return fmt.Errorf("error publishing envelope %s: %s", envelope, err)
		}

		envelope.Published = true
		err = p.outbox.Put(c, envelope.UID, envelope)
		if err != nil {
			return fmt.Errorf("error storing envelope %s: %s", envelope, err)
		}
		published = true

		return nil
	})
	if err != nil {
		return false, err
	}
	return published, nil
}
