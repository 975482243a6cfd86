package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/ports"
)

// DispatcherDeps carries the optional collaborators of a Dispatcher.
type DispatcherDeps struct {
	Logger   *slog.Logger
	Observer ports.DeliveryObserver
}

// Dispatcher keeps a mapping from transport kinds to their implementations.
type Dispatcher struct {
	gateways map[Kind]Gateway
	logger   *slog.Logger
	observer ports.DeliveryObserver
}

// NewDispatcher registers the given gateways.
func NewDispatcher(deps DispatcherDeps, gateways ...Gateway) *Dispatcher {
	d := &Dispatcher{
		gateways: map[Kind]Gateway{},
		logger:   deps.Logger,
		observer: deps.Observer,
	}
	for _, gw := range gateways {
		d.Register(gw)
	}
	return d
}

// Register adds or replaces a gateway implementation.
func (d *Dispatcher) Register(gw Gateway) {
	if gw == nil {
		return
	}
	if d.gateways == nil {
		d.gateways = map[Kind]Gateway{}
	}
	d.gateways[gw.Kind()] = gw
}

// Resolve returns a gateway by kind or an error if it is absent.
func (d *Dispatcher) Resolve(kind Kind) (Gateway, error) {
	if gw, ok := d.gateways[kind]; ok {
		return gw, nil
	}
	return nil, fmt.Errorf("gateway %s is not registered", kind)
}

// Send normalizes phoneRaw for kind and hands the message to that transport.
// Invalid numbers and unregistered kinds fail locally without any I/O.
func (d *Dispatcher) Send(ctx context.Context, phoneRaw, message string, kind Kind) Result {
	gw, err := d.Resolve(kind)
	if err != nil {
		return Failed(domain.ErrGatewayRejected, err.Error())
	}

	phone, err := kind.Normalize(Digits(phoneRaw))
	if err != nil {
		d.observe(kind, domain.StatusFailed, 0)
		return Failed(domain.ErrInvalidPhoneFormat, err.Error())
	}

	started := time.Now()
	res := gw.Send(ctx, phone, message)
	took := time.Since(started)

	if res.Success {
		d.observe(kind, domain.StatusSent, took)
		d.debug("sms sent", "gateway", kind, "phone", phone, "id", res.ID, "timed_out", res.TimedOut, "took", took)
		return res
	}

	if res.Error == "" {
		res.Error = "send failed"
	}
	if res.Cause == nil {
		res.Cause = domain.ErrGatewayRejected
	}
	d.observe(kind, domain.StatusFailed, took)
	d.warn("sms failed", "gateway", kind, "phone", phone, "error", res.Error,
		"upstream", errors.Is(res.Cause, domain.ErrUpstreamUnavailable))
	return res
}

func (d *Dispatcher) observe(kind Kind, status domain.DeliveryStatus, took time.Duration) {
	if d.observer != nil {
		d.observer.ObserveDelivery(kind.String(), status, took)
	}
}

func (d *Dispatcher) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

func (d *Dispatcher) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
