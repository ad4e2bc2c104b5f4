// Package problem renders failures as RFC 7807 problem documents.
package problem

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vzahanych/forecast-client-demo/internal/service"
)

const (
	ContentType    = "application/problem+json"
	instancePrefix = "urn:ERROR:"
)

type InvalidParam struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Problem is the only error body this service ever returns.
type Problem struct {
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Instance      string         `json:"instance"`
	Detail        string         `json:"detail,omitempty"`
	InvalidParams []InvalidParam `json:"invalidParams,omitempty"`
}

// NewInstance mints a fresh error instance URN.
func NewInstance() string {
	return instancePrefix + uuid.NewString()
}

// New builds a problem for requestPath with a freshly minted instance.
func New(requestPath, title string) Problem {
	return Problem{
		Type:     requestPath,
		Title:    title,
		Instance: NewInstance(),
	}
}

// Translate maps err to a status and problem document. The mapping depends only
// on the failure kind, never on the strategy that produced it.
func Translate(err error, requestPath string) (int, Problem) {
	p := New(requestPath, err.Error())

	var serr *service.Error
	if !errors.As(err, &serr) {
		return http.StatusInternalServerError, p
	}

	switch serr.Kind {
	case service.KindNotFound:
		return http.StatusNotFound, p
	case service.KindValidation:
		p.InvalidParams = make([]InvalidParam, 0, len(serr.Violations))
		details := make([]string, 0, len(serr.Violations))
		for _, v := range serr.Violations {
			p.InvalidParams = append(p.InvalidParams, InvalidParam{Field: v.Field, Reason: v.Reason})
			details = append(details, v.String())
		}
		p.Detail = strings.Join(details, "; ")
		return http.StatusBadRequest, p
	case service.KindTransport:
		return http.StatusInternalServerError, p
	default:
		return http.StatusInternalServerError, p
	}
}

// Write sends p with the problem+json content type and aborts the chain.
func Write(c *gin.Context, status int, p Problem) {
	c.Header("Content-Type", ContentType)
	c.AbortWithStatusJSON(status, p)
}
