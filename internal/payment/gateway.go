package payment

import (
	"context"
	"net/url"
	"strings"

	"github.com/viettravel/booking-backend/internal/models"
)

// Status is the normalized tri-state every gateway result collapses into,
// so the reconciler never sees provider-specific codes.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusPending Status = "PENDING"
)

// RedirectRequest is the input to a redirect-URL creation
type RedirectRequest struct {
	OrderID   string // gateway order id, fresh per attempt, never the booking id
	Amount    int64  // VND
	OrderInfo string
	ClientIP  string
}

// Redirect is the gateway's hosted payment page for one attempt
type Redirect struct {
	URL     string `json:"redirect_url"`
	OrderID string `json:"order_id"`
}

// ReturnData is a verified, parsed gateway return or callback
type ReturnData struct {
	OrderID               string
	Status                Status
	ResponseCode          string
	ProviderTransactionID string
	Amount                int64
}

// Gateway abstracts one redirect-based payment provider. Implementations
// verify the provider's signature inside ParseReturn; unverified input never
// reaches booking state.
type Gateway interface {
	Name() string
	CreateRedirect(ctx context.Context, req *RedirectRequest) (*Redirect, error)
	ParseReturn(params url.Values) (*ReturnData, error)
	DescribeResponseCode(code string) string
	// Recognizes reports whether a raw return-parameter set has this
	// provider's shape, for callbacks that arrive without a gateway tag.
	Recognizes(params url.Values) bool
}

// Registry holds the configured gateways
type Registry struct {
	gateways map[string]Gateway
}

// NewRegistry builds a registry from the configured gateways
func NewRegistry(gateways ...Gateway) *Registry {
	reg := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, gw := range gateways {
		reg.gateways[strings.ToLower(gw.Name())] = gw
	}
	return reg
}

// ByName resolves a gateway by its route tag (case-insensitive)
func (r *Registry) ByName(name string) (Gateway, error) {
	gw, ok := r.gateways[strings.ToLower(name)]
	if !ok {
		return nil, models.ErrUnsupportedGateway
	}
	return gw, nil
}

// Resolve picks the gateway whose parameter shape matches the raw return.
// Used when the return arrives without a usable gateway tag in the path.
func (r *Registry) Resolve(params url.Values) (Gateway, error) {
	for _, gw := range r.gateways {
		if gw.Recognizes(params) {
			return gw, nil
		}
	}
	return nil, models.ErrUnsupportedGateway
}
