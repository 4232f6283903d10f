package pdo

import "github.com/pd-buddy/pdbuddy-go/pkg/model"

// Select returns the offer a sink with cfg would request: the first offer,
// in list order, that can supply the configured voltage and the configured
// current (or power). The second result is false when nothing matches or
// the configuration is empty.
func Select(cfg model.Config, offers []Offer) (Offer, bool) {
	if cfg.IsEmpty() {
		return Offer{}, false
	}
	for _, o := range offers {
		v, ok := deliverableVoltage(cfg, o)
		if !ok {
			continue
		}
		if canSupply(cfg, o, v) {
			return o, true
		}
	}
	return Offer{}, false
}

// deliverableVoltage returns the voltage o would run at for cfg.
func deliverableVoltage(cfg model.Config, o Offer) (int, bool) {
	if o.Kind == KindFixed {
		if o.VoltageMV == cfg.VoltageMV {
			return o.VoltageMV, true
		}
		if cfg.HasRange() && o.VoltageMV >= cfg.MinVoltageMV && o.VoltageMV <= cfg.MaxVoltageMV {
			return o.VoltageMV, true
		}
		return 0, false
	}
	if cfg.VoltageMV >= o.MinVoltageMV && cfg.VoltageMV <= o.MaxVoltageMV {
		return cfg.VoltageMV, true
	}
	return 0, false
}

func canSupply(cfg model.Config, o Offer, voltageMV int) bool {
	var needMW int
	if cfg.CurrentMode == model.CurrentModePower {
		needMW = cfg.Current
	} else {
		if o.Kind != KindBattery {
			return o.CurrentMA >= cfg.Current
		}
		needMW = voltageMV * cfg.Current / 1000
	}

	if o.Kind == KindBattery {
		return o.PowerMW >= needMW
	}
	return voltageMV*o.CurrentMA/1000 >= needMW
}
