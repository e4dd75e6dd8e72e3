package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"masar/internal/metrics"
	"masar/internal/types"
)

// Thawani amounts are integer baisa.
const thawaniMinorFactor = 1000

type ThawaniConfig struct {
	APIURL         string
	CheckoutURL    string
	SecretKey      string
	PublishableKey string
	Timeout        time.Duration
}

type Thawani struct {
	cfg    ThawaniConfig
	client *http.Client
}

var _ Gateway = (*Thawani)(nil)

func NewThawani(cfg ThawaniConfig) *Thawani {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.CheckoutURL = strings.TrimRight(cfg.CheckoutURL, "/")
	return &Thawani{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type thawaniProduct struct {
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitAmount int64  `json:"unit_amount"`
}

type thawaniCreate struct {
	ClientReferenceID string            `json:"client_reference_id"`
	Mode              string            `json:"mode"`
	Products          []thawaniProduct  `json:"products"`
	SuccessURL        string            `json:"success_url"`
	CancelURL         string            `json:"cancel_url"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type thawaniSession struct {
	SessionID         string `json:"session_id"`
	ClientReferenceID string `json:"client_reference_id"`
	PaymentStatus     string `json:"payment_status"`
	TotalAmount       int64  `json:"total_amount"`
}

type thawaniEnvelope struct {
	Success     bool           `json:"success"`
	Code        int            `json:"code"`
	Description string         `json:"description"`
	Data        thawaniSession `json:"data"`
}

func (t *Thawani) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	body, err := json.Marshal(thawaniCreate{
		ClientReferenceID: req.Reference,
		Mode:              "payment",
		Products: []thawaniProduct{{
			Name:       req.ProductName,
			Quantity:   1,
			UnitAmount: req.Amount.MinorUnits(thawaniMinorFactor),
		}},
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return Session{}, err
	}
	s, err := t.do(ctx, "create", http.MethodPost, t.cfg.APIURL+"/checkout/session", body)
	if err != nil {
		return Session{}, err
	}
	if s.ID == "" {
		return Session{}, fmt.Errorf("%w: empty session id", ErrGatewayUnavailable)
	}
	return s, nil
}

func (t *Thawani) GetSession(ctx context.Context, id string) (Session, error) {
	return t.do(ctx, "get", http.MethodGet, t.cfg.APIURL+"/checkout/session/"+url.PathEscape(id), nil)
}

func (t *Thawani) CheckoutURL(sessionID string) string {
	return fmt.Sprintf("%s/pay/%s?key=%s", t.cfg.CheckoutURL, url.PathEscape(sessionID), url.QueryEscape(t.cfg.PublishableKey))
}

func (t *Thawani) do(ctx context.Context, op, method, target string, body []byte) (Session, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("thawani-api-key", t.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		metrics.PaymentGatewayCalls.WithLabelValues(op, "error").Inc()
		return Session{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		metrics.PaymentGatewayCalls.WithLabelValues(op, "not_found").Inc()
		return Session{}, ErrSessionNotFound
	}
	var env thawaniEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		metrics.PaymentGatewayCalls.WithLabelValues(op, "error").Inc()
		return Session{}, fmt.Errorf("%w: decode status %d: %v", ErrGatewayUnavailable, resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		metrics.PaymentGatewayCalls.WithLabelValues(op, "rejected").Inc()
		return Session{}, fmt.Errorf("%w: status %d: %s", ErrGatewayUnavailable, resp.StatusCode, env.Description)
	}
	metrics.PaymentGatewayCalls.WithLabelValues(op, "ok").Inc()
	return Session{
		ID:            env.Data.SessionID,
		Reference:     env.Data.ClientReferenceID,
		PaymentStatus: env.Data.PaymentStatus,
		Amount:        types.FromMinorUnits(env.Data.TotalAmount, thawaniMinorFactor),
	}, nil
}
