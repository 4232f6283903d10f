package pdo

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlOffers is the YAML structure of an offer file:
//
//	offers:
//	  - kind: fixed
//	    v: 5000
//	    i: 3000
//	    flags: [usb_comms, dual_role_data]
//	  - kind: pps
//	    vmin: 3300
//	    vmax: 11000
//	    i: 3000
type yamlOffers struct {
	Offers []yamlOffer `yaml:"offers"`
}

type yamlOffer struct {
	Kind  string   `yaml:"kind"`
	V     int      `yaml:"v"`
	VMin  int      `yaml:"vmin"`
	VMax  int      `yaml:"vmax"`
	I     int      `yaml:"i"`
	P     int      `yaml:"p"`
	PeakI int      `yaml:"peak_i"`
	Flags []string `yaml:"flags"`
}

// LoadOffers reads an offer list from a YAML file. Offers are indexed from 1
// in file order.
func LoadOffers(path string) ([]Offer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	offers, err := ParseOffers(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return offers, nil
}

// ParseOffers parses an offer list from YAML.
func ParseOffers(data []byte) ([]Offer, error) {
	var doc yamlOffers
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}

	offers := make([]Offer, 0, len(doc.Offers))
	for i, y := range doc.Offers {
		kind, ok := ParseKind(y.Kind)
		if !ok {
			return nil, fmt.Errorf("offer %d: unknown kind %q", i+1, y.Kind)
		}
		o := Offer{
			Index:        i + 1,
			Kind:         kind,
			VoltageMV:    y.V,
			MinVoltageMV: y.VMin,
			MaxVoltageMV: y.VMax,
			CurrentMA:    y.I,
			PowerMW:      y.P,
			PeakCurrent:  y.PeakI,
		}
		for _, tok := range y.Flags {
			f, ok := ParseFixedFlag(tok)
			if !ok {
				return nil, fmt.Errorf("offer %d: unknown flag %q", i+1, tok)
			}
			o.Flags |= f
		}
		if kind != KindFixed && (o.Flags != 0 || o.PeakCurrent != 0) {
			return nil, fmt.Errorf("offer %d: flags and peak_i only apply to fixed offers", i+1)
		}
		offers = append(offers, o)
	}
	return offers, nil
}
