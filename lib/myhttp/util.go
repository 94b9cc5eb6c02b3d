package myhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"

	"github.com/MarcGrol/dobmilano/lib/myerrors"
)

const maxBodySize = 1 << 20

type ctxClientIP struct{}

// ClientIP returns the address resolved by ResolveClientIP, else the remote address.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ctxClientIP{}).(string); ok && ip != "" {
		return ip
	}
	return remoteHost(r)
}

// ResolveClientIP determines the client address once per request. The remote address
// and the right-most trustedProxies-1 X-Forwarded-For entries belong to our own proxies;
// the hop before them is the client. Entries further left are client supplied and ignored.
func ResolveClientIP(trustedProxies int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustedProxies)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxClientIP{}, ip)))
		})
	}
}

func clientIP(r *http.Request, trustedProxies int) string {
	hops := []string{}
	if trustedProxies > 0 {
		for _, part := range strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",") {
			if part = strings.TrimSpace(part); part != "" {
				hops = append(hops, part)
			}
		}
	}
	hops = append(hops, remoteHost(r))

	index := len(hops) - 1 - trustedProxies
	if index < 0 {
		index = 0
	}
	return hops[index]
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IsFormRequest reports whether the body is url-encoded or multipart form data.
func IsFormRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

// DecodeJSON reads a size limited JSON body into dest.
func DecodeJSON(r *http.Request, dest any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return myerrors.NewInvalidInputError(fmt.Errorf("error reading body: %s", err))
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return myerrors.NewInvalidInputError(fmt.Errorf("empty body"))
	}
	err = json.Unmarshal(body, dest)
	if err != nil {
		return myerrors.NewInvalidInputError(fmt.Errorf("error parsing json body: %s", err))
	}
	return nil
}
