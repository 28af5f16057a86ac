package normalize

import (
	"strings"

	postal "github.com/openvenues/gopostal/parser"
)

// AddressBlock is the street/city/state/zip column group standardized as a
// unit on every output table that carries a mailing address.
type AddressBlock struct {
	Street string
	City   string
	State  string
	Zip    string
}

// StandardizeAddress normalizes an address block via libpostal parsing.
// When parsing yields nothing usable the input block is returned with only
// the cheap formatting applied - a failed parse must never lose data.
// The state column is deliberately left as supplied; reference enrichment
// owns it.
func StandardizeAddress(in AddressBlock) AddressBlock {
	out := in

	line := joinAddressLine(in)
	if line != "" {
		if parsed, ok := parseAddressLine(line); ok {
			if parsed.Street != "" {
				out.Street = parsed.Street
			}
			if parsed.City != "" {
				out.City = parsed.City
			}
			if parsed.Zip != "" {
				out.Zip = parsed.Zip
			}
		}
	}

	out.Street = TitleCase(out.Street)
	out.City = TitleCase(out.City)
	out.Zip = RootZip(out.Zip)
	return out
}

func joinAddressLine(in AddressBlock) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{in.Street, in.City, in.State, in.Zip} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

// parseAddressLine runs libpostal over a single-line address and picks out
// the components we standardize. ok is false when nothing usable came back.
func parseAddressLine(line string) (AddressBlock, bool) {
	components := postal.ParseAddress(line)
	if len(components) == 0 {
		return AddressBlock{}, false
	}

	var houseNumber, road, unit, city, postcode string
	for _, c := range components {
		switch c.Label {
		case "house_number":
			houseNumber = c.Value
		case "road":
			road = c.Value
		case "unit":
			unit = c.Value
		case "city":
			city = c.Value
		case "postcode":
			postcode = c.Value
		}
	}

	if road == "" && city == "" {
		return AddressBlock{}, false
	}

	street := strings.TrimSpace(strings.Join(nonEmpty(houseNumber, road, unit), " "))
	return AddressBlock{Street: street, City: city, Zip: postcode}, true
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
