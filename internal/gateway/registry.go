package gateway

import (
	"github.com/rs/zerolog/log"

	"github.com/vendalivre/payhub/internal/config"
	"github.com/vendalivre/payhub/internal/httpx"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/payerr"
)

// Registry maps a gateway identifier to its constructed adapter.
// Adapters are built once at startup; gateways lacking credentials are
// left unregistered and answer with a configuration error instead of
// ever reaching the network.
type Registry struct {
	adapters map[model.Gateway]Adapter
}

func NewRegistry(cfg *config.Config, exec *httpx.Executor) *Registry {
	r := &Registry{adapters: make(map[model.Gateway]Adapter)}

	register := func(gw model.Gateway, ok bool, build func() Adapter) {
		if !ok {
			log.Warn().Str("gateway", string(gw)).Msg("gateway disabled: missing credentials")
			return
		}
		r.adapters[gw] = build()
	}

	register(model.GatewayAsaas, cfg.Asaas.APIKey != "", func() Adapter {
		return NewAsaas(cfg.Asaas, exec)
	})
	register(model.GatewayCielo, cfg.Cielo.MerchantID != "" && cfg.Cielo.MerchantKey != "", func() Adapter {
		return NewCielo(cfg.Cielo, exec)
	})
	register(model.GatewayGetnet, cfg.Getnet.ClientID != "" && cfg.Getnet.ClientSecret != "", func() Adapter {
		return NewGetnet(cfg.Getnet, exec)
	})
	register(model.GatewayPagarme, cfg.Pagarme.SecretKey != "", func() Adapter {
		return NewPagarme(cfg.Pagarme, exec)
	})
	register(model.GatewayRede, cfg.Rede.PV != "" && cfg.Rede.Token != "", func() Adapter {
		return NewRede(cfg.Rede, exec)
	})
	register(model.GatewayStone, cfg.Stone.APIKey != "", func() Adapter {
		return NewStone(cfg.Stone, exec)
	})

	return r
}

// Adapter returns the adapter for gw, or a configuration error when
// the gateway is unknown or was disabled at startup.
func (r *Registry) Adapter(gw model.Gateway) (Adapter, error) {
	a, ok := r.adapters[gw]
	if !ok {
		return nil, payerr.New(payerr.KindConfiguration, "gateway %s is not configured", gw)
	}
	return a, nil
}

// Register installs an adapter directly. Used by tests to stub a
// provider.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Gateway()] = a
}
