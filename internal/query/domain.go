package query

import (
	"fmt"
	"strconv"
	"strings"

	"keepa-tools/internal/model"
)

// Domain enumerates the supported marketplaces (1-11).
type Domain int

const (
	DomainUS Domain = iota + 1
	DomainGB
	DomainDE
	DomainFR
	DomainJP
	DomainCA
	DomainCN
	DomainIT
	DomainES
	DomainIN
	DomainMX
)

var domainNames = map[string]Domain{
	"us": DomainUS, "com": DomainUS,
	"gb": DomainGB, "uk": DomainGB, "co.uk": DomainGB,
	"de": DomainDE,
	"fr": DomainFR,
	"jp": DomainJP, "co.jp": DomainJP,
	"ca": DomainCA,
	"cn": DomainCN,
	"it": DomainIT,
	"es": DomainES,
	"in": DomainIN,
	"mx": DomainMX, "com.mx": DomainMX,
}

// Code returns the provider's marketplace code for d.
func (d Domain) Code() (int, error) {
	if d < DomainUS || d > DomainMX {
		return 0, &model.ValidationError{Field: "domain", Reason: fmt.Sprintf("must be within 1-11, got %d", int(d))}
	}
	return int(d), nil
}

// ParseDomain accepts a numeric code or a marketplace short name.
func ParseDomain(s string) (Domain, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if d, ok := domainNames[key]; ok {
		return d, nil
	}
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, &model.ValidationError{Field: "domain", Reason: fmt.Sprintf("unknown marketplace %q", s)}
	}
	d := Domain(n)
	if _, err := d.Code(); err != nil {
		return 0, err
	}
	return d, nil
}

func setDomain(params map[string][]string, d Domain) error {
	code, err := d.Code()
	if err != nil {
		return err
	}
	params["domain"] = []string{strconv.Itoa(code)}
	return nil
}
