// Provides generic adapters from typed handler functions to http.Handler.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	apierrors "github.com/maruel/mdcms/internal/errors"
	"github.com/maruel/mdcms/internal/server/dto"
	"github.com/maruel/mdcms/internal/server/handlers"
	"github.com/maruel/mdcms/internal/server/ratelimit"
	"github.com/maruel/mdcms/internal/server/reqctx"
	"github.com/maruel/mdcms/internal/utils"
)

var (
	errUnauthorized   = errors.New("missing authorization header")
	errInvalidAuthHdr = errors.New("invalid authorization header")
)

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *In) (*Out, error)
// where In can be unmarshalled from JSON. Path parameters are extracted into
// fields tagged `path:"name"`, query parameters into fields tagged
// `query:"name"`. *In must implement dto.Validatable.
//
// Example:
//
//	type DocumentRequest struct {
//	    Name string `path:"name"`
//	}
//
//	func (h *Handler) Get(ctx context.Context, req *DocumentRequest) (*Response, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), cfg *handlers.Config, limits *ratelimit.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if tier := limits.MatchUnauth(r.Method, r.URL.Path); tier != nil {
			var ok bool
			if w, ok = checkRateLimit(ctx, w, tier, reqctx.ClientIP(ctx)); !ok {
				return
			}
		}
		input := new(In)
		if !decodeRequest[In](ctx, w, r, PtrIn(input), cfg) {
			return
		}
		output, err := fn(ctx, PtrIn(input))
		writeJSONResponse(ctx, w, output, err)
	})
}

// WrapAuth wraps a handler that requires a signed-in user. The username from
// the bearer token is passed to fn.
func WrapAuth[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, string, PtrIn) (*Out, error), cfg *handlers.Config, limits *ratelimit.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := authenticate(r, cfg.JWTKey)
		if err != nil {
			utils.RespondError(r.Context(), w, apierrors.Unauthorized().Wrap(err))
			return
		}
		ctx := reqctx.WithUser(r.Context(), user)
		if tier := limits.MatchAuth(r.Method, r.URL.Path); tier != nil {
			var ok bool
			if w, ok = checkRateLimit(ctx, w, tier, user); !ok {
				return
			}
		}
		input := new(In)
		if !decodeRequest[In](ctx, w, r, PtrIn(input), cfg) {
			return
		}
		output, err := fn(ctx, user, PtrIn(input))
		writeJSONResponse(ctx, w, output, err)
	})
}

// RequireAuth protects a plain http.Handler with bearer authentication and the
// write rate limit. The username is available through reqctx.User.
func RequireAuth(next http.Handler, cfg *handlers.Config, limits *ratelimit.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := authenticate(r, cfg.JWTKey)
		if err != nil {
			utils.RespondError(r.Context(), w, apierrors.Unauthorized().Wrap(err))
			return
		}
		ctx := reqctx.WithUser(r.Context(), user)
		if tier := limits.MatchAuth(r.Method, r.URL.Path); tier != nil {
			var ok bool
			if w, ok = checkRateLimit(ctx, w, tier, user); !ok {
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate extracts the username from the Authorization bearer token.
func authenticate(r *http.Request, key []byte) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errUnauthorized
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", errInvalidAuthHdr
	}
	return handlers.ParseToken(key, token)
}

// checkRateLimit consumes a token from tier and wraps the response writer
// with the rate limit headers. It returns false after writing a 429.
func checkRateLimit(ctx context.Context, w http.ResponseWriter, tier *ratelimit.Tier, identifier string) (http.ResponseWriter, bool) {
	result := tier.Limiter.Allow(ratelimit.BuildKey(tier.Scope, identifier, tier.Name))
	w = ratelimit.NewResponseWriter(w, result)
	if !result.Allowed {
		utils.RespondError(ctx, w, apierrors.RateLimited().WithDetail("retry_after", int(result.RetryAfter.Seconds())))
		return w, false
	}
	return w, true
}

// decodeRequest reads the body with the size limit, decodes JSON into input,
// fills path and query parameters and validates. It returns false after
// writing an error response.
func decodeRequest[In any, PtrIn interface {
	*In
	dto.Validatable
}](ctx context.Context, w http.ResponseWriter, r *http.Request, input PtrIn, cfg *handlers.Config) bool {
	if cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			utils.RespondError(ctx, w, apierrors.PayloadTooLarge(mbe.Limit))
			return false
		}
		slog.ErrorContext(ctx, "Failed to read request body", "err", err)
		utils.RespondError(ctx, w, apierrors.BadRequest("Failed to read request body"))
		return false
	}
	if len(body) > 0 {
		d := json.NewDecoder(bytes.NewReader(body))
		d.DisallowUnknownFields()
		if err := d.Decode(input); err != nil {
			utils.RespondError(ctx, w, apierrors.BadRequest("Invalid request body").Wrap(err))
			return false
		}
	}
	populatePathParams(r, input)
	populateQueryParams(r, input)
	if err := input.Validate(); err != nil {
		utils.RespondError(ctx, w, err)
		return false
	}
	return true
}

// writeJSONResponse writes a JSON response or error response.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error) {
	if err != nil {
		utils.RespondError(ctx, w, err)
		return
	}
	utils.RespondJSON(ctx, w, http.StatusOK, output)
}

// populatePathParams sets string fields tagged `path:"paramName"`.
func populatePathParams(r *http.Request, input any) {
	elem, ok := structElem(input)
	if !ok {
		return
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" || field.Type.Kind() != reflect.String {
			continue
		}
		if v := r.PathValue(tag); v != "" {
			elem.Field(i).SetString(v)
		}
	}
}

// populateQueryParams sets string and int fields tagged `query:"paramName"`.
func populateQueryParams(r *http.Request, input any) {
	elem, ok := structElem(input)
	if !ok {
		return
	}
	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("query")
		if tag == "" {
			continue
		}
		v := query.Get(tag)
		if v == "" {
			continue
		}
		//nolint:exhaustive // Only string and int are supported for query params.
		switch field.Type.Kind() {
		case reflect.String:
			elem.Field(i).SetString(v)
		case reflect.Int:
			if n, err := strconv.Atoi(v); err == nil {
				elem.Field(i).SetInt(int64(n))
			}
		default:
		}
	}
}

func structElem(input any) (reflect.Value, bool) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	return val.Elem(), true
}
