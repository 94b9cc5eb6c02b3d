package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/dobmilano/lib/mycontext"
	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/myhttp"
	"github.com/MarcGrol/dobmilano/lib/mylog"
)

const (
	maxSnapshotSize   = 64 << 10
	keepAliveInterval = 25 * time.Second
)

type webService struct {
	logger mylog.Logger
	store  *Store
}

func NewWebService(store *Store) *webService {
	return &webService{
		logger: mylog.New("cart"),
		store:  store,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/api/shop/cart/{cartUID}", s.getCartPage()).Methods("GET")
	router.HandleFunc("/api/shop/cart/{cartUID}", s.putCartPage()).Methods("PUT")
	router.HandleFunc("/api/shop/cart/{cartUID}", s.clearCartPage()).Methods("DELETE")
	router.HandleFunc("/api/shop/cart/{cartUID}/items", s.addItemPage()).Methods("POST")
	router.HandleFunc("/api/shop/cart/{cartUID}/items/{itemID}", s.updateItemPage()).Methods("PATCH")
	router.HandleFunc("/api/shop/cart/{cartUID}/items/{itemID}", s.removeItemPage()).Methods("DELETE")
	router.HandleFunc("/api/shop/cart/{cartUID}/events", s.eventsPage()).Methods("GET")
}

type cartResponse struct {
	CartID    string     `json:"cartId"`
	Items     []CartItem `json:"items"`
	ItemCount int        `json:"itemCount"`
}

func newCartResponse(cartUID string, items []CartItem) cartResponse {
	if items == nil {
		items = []CartItem{}
	}
	return cartResponse{
		CartID:    cartUID,
		Items:     items,
		ItemCount: Cart{Items: items}.ItemCount(),
	}
}

func (s *webService) getCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		cartUID := mux.Vars(r)["cartUID"]
		items, err := s.store.Read(c, cartUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, newCartResponse(cartUID, items))
	}
}

func (s *webService) putCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		cartUID := mux.Vars(r)["cartUID"]
		body, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotSize))
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error reading cart snapshot: %s", err)))
			return
		}

		items, err := s.store.Write(c, cartUID, ParseSnapshot(body))
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, newCartResponse(cartUID, items))
	}
}

func (s *webService) clearCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := s.store.Clear(c, mux.Vars(r)["cartUID"])
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{OK: true})
	}
}

func (s *webService) addItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		cartUID := mux.Vars(r)["cartUID"]
		body, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotSize))
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error reading cart item: %s", err)))
			return
		}
		item, ok := parseItem(body)
		if !ok {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("Invalid cart item.")))
			return
		}

		items, err := s.store.AddItem(c, cartUID, item)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, newCartResponse(cartUID, items))
	}
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (s *webService) updateItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		cartUID := mux.Vars(r)["cartUID"]
		req := quantityRequest{}
		err := myhttp.DecodeJSON(r, &req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		items, err := s.store.UpdateQuantity(c, cartUID, mux.Vars(r)["itemID"], req.Quantity)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, newCartResponse(cartUID, items))
	}
}

func (s *webService) removeItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		cartUID := mux.Vars(r)["cartUID"]
		items, err := s.store.RemoveItem(c, cartUID, mux.Vars(r)["itemID"])
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, newCartResponse(cartUID, items))
	}
}

// eventsPage streams the cart as server-sent events: the current snapshot first,
// then one event per change until the client goes away.
func (s *webService) eventsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		cartUID := mux.Vars(r)["cartUID"]
		flusher, ok := w.(http.Flusher)
		if !ok {
			errorWriter.WriteError(c, w, 1, myerrors.NewNotImplementedError(fmt.Errorf("streaming not supported")))
			return
		}

		updates, stop := s.store.Watch(cartUID)
		defer stop()

		items, err := s.store.Read(c, cartUID)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		err = writeEvent(w, cartUID, items)
		if err != nil {
			return
		}
		flusher.Flush()

		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case <-c.Done():
				return
			case items := <-updates:
				err = writeEvent(w, cartUID, items)
				if err != nil {
					s.logger.Log(c, cartUID, mylog.SeverityDebug, "Cart event stream closed: %s", err)
					return
				}
			case <-keepAlive.C:
				_, err = fmt.Fprint(w, ": keep-alive\n\n")
				if err != nil {
					return
				}
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, cartUID string, items []CartItem) error {
	data, err := json.Marshal(newCartResponse(cartUID, items))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data)
	return err
}
