package iplookup

import (
	"net/netip"
	"strings"

	"github.com/pkg/errors"
)

// Parser turns a decoded response into an Info. Missing fields may be left empty; they
// are replaced with NotAvailable afterwards.
type Parser func(resp *Response) *Info

// Validator accepts or rejects a parsed Info.
type Validator func(info *Info) error

// Endpoint is one entry of the lookup chain.
type Endpoint struct {
	Name     string
	URL      string
	Parse    Parser
	Validate Validator
}

// DefaultEndpoints returns the lookup chain in the order it is tried, IPv4-only
// services first. validate is applied to every entry; nil means RequireIPv4.
func DefaultEndpoints(validate Validator) []Endpoint {
	if validate == nil {
		validate = RequireIPv4
	}

	endpoints := []Endpoint{
		{Name: "ip.sb", URL: "https://ipv4.ip.sb/jsonip", Parse: ParseIPOnly},
		{Name: "icanhazip", URL: "https://ipv4.icanhazip.com/", Parse: ParseIPOnly},
		{Name: "ipapi.co", URL: "https://ipapi.co/json/", Parse: ParseIPAPICo},
		{Name: "ip-api.com", URL: "https://ip-api.com/json/", Parse: ParseIPAPICom},
		{Name: "ipwho.is", URL: "https://ipwho.is/", Parse: ParseIPWhoIs},
		{Name: "ipify", URL: "https://api.ipify.org?format=json", Parse: ParseIPOnly},
		{Name: "cloudflare", URL: "https://speed.cloudflare.com/__down?bytes=0", Parse: ParseCloudflareMeta},
	}
	for i := range endpoints {
		endpoints[i].Validate = validate
	}
	return endpoints
}

func ParseIPOnly(resp *Response) *Info {
	return &Info{IP: resp.IP("ip")}
}

func ParseIPAPICo(resp *Response) *Info {
	return &Info{
		IP:       resp.IP("ip", "query"),
		City:     resp.Field("city"),
		Region:   resp.Field("region", "regionName"),
		Country:  resp.Field("country_name", "country"),
		ISP:      resp.Field("org", "isp"),
		Timezone: resp.Field("timezone"),
	}
}

func ParseIPAPICom(resp *Response) *Info {
	return &Info{
		IP:       resp.IP("query"),
		City:     resp.Field("city"),
		Region:   resp.Field("regionName"),
		Country:  resp.Field("country"),
		ISP:      resp.Field("isp"),
		Timezone: resp.Field("timezone"),
	}
}

func ParseIPWhoIs(resp *Response) *Info {
	return &Info{
		IP:       resp.IP("ip"),
		City:     resp.Field("city"),
		Region:   resp.Field("region", "region_code"),
		Country:  resp.Field("country"),
		ISP:      resp.Field("connection.isp", "isp"),
		Timezone: resp.Field("timezone.id", "timezone"),
	}
}

// ParseCloudflareMeta reads the cf-meta-* headers attached to every speed test response.
func ParseCloudflareMeta(resp *Response) *Info {
	info := &Info{
		IP:      resp.Header.Get("cf-meta-ip"),
		City:    resp.Header.Get("cf-meta-city"),
		Country: resp.Header.Get("cf-meta-country"),
		Colo:    resp.Header.Get("cf-meta-colo"),
	}
	if asn := resp.Header.Get("cf-meta-asn"); asn != "" {
		info.ISP = "AS" + asn
	}
	return info
}

func RequireIP(info *Info) error {
	if _, err := netip.ParseAddr(strings.TrimSpace(info.IP)); err != nil {
		return errors.Wrapf(ErrInvalidIPAddress, "%q", info.IP)
	}
	return nil
}

func RequireIPv4(info *Info) error {
	addr, err := netip.ParseAddr(strings.TrimSpace(info.IP))
	if err != nil {
		return errors.Wrapf(ErrInvalidIPAddress, "%q", info.IP)
	}
	if !addr.Is4() {
		return errors.Wrapf(ErrNotIPv4, "%s", addr)
	}
	return nil
}
