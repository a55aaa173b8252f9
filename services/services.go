// Package services provides typed clients for the exam-prep REST API. Every call
// goes through an httpclient.Client, so bearer injection, token refresh and retries
// apply uniformly. Request DTOs are validated before anything is sent.
package services

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/examprep/client-go/httpclient"
	"github.com/examprep/client-go/validation"
)

// APIPrefix is the path prefix of every versioned endpoint.
const APIPrefix = "/api/v1"

// Services groups the API clients sharing one httpclient.Client.
type Services struct {
	Questions   *Questions
	Simulations *Simulations
	Essays      *Essays
	Analytics   *Analytics
}

// New creates all service clients on top of client.
func New(client httpclient.Client) *Services {
	v := validation.New()
	return &Services{
		Questions:   &Questions{client: client, validator: v},
		Simulations: &Simulations{client: client, validator: v},
		Essays:      &Essays{client: client, validator: v},
		Analytics:   &Analytics{client: client, validator: v},
	}
}

// Page is the paginated envelope returned by list endpoints.
type Page[T any] struct {
	Data    []T  `json:"data"`
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

// PageParams selects a page of a list endpoint.
type PageParams struct {
	Limit  int `json:"limit" validate:"gte=0,lte=100"`
	Offset int `json:"offset" validate:"gte=0"`
}

func (p PageParams) options() []httpclient.RequestOption {
	return []httpclient.RequestOption{
		httpclient.WithQueryInt("limit", p.Limit),
		httpclient.WithQueryInt("offset", p.Offset),
	}
}

// SubjectPerformance is the per-subject accuracy summary.
type SubjectPerformance struct {
	Subject  string  `json:"subject"`
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// validate checks req and converts a failure into an httpclient validation error
// naming the first offending field.
func validate(v *validation.Validator, req any) error {
	err := v.Validate(req)
	if err == nil {
		return nil
	}

	var verr *validation.ValidationError
	if errors.As(err, &verr) && len(verr.Errors) > 0 {
		first := verr.Errors[0]
		return httpclient.NewValidationError(first.Message, first.Field, err)
	}
	return httpclient.NewValidationError(err.Error(), "", err)
}

// resourcePath returns base/<escaped id>/suffix... and rejects an empty id.
func resourcePath(base, field, id string, suffix ...string) (string, error) {
	if id == "" {
		return "", httpclient.NewValidationError(field+" is required", field, nil)
	}
	p := base + "/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p, nil
}

func withBool(key string, value bool) httpclient.RequestOption {
	if !value {
		return func(*httpclient.Request) {}
	}
	return httpclient.WithQuery(key, strconv.FormatBool(value))
}
