package config

import (
	"slices"
	"strings"
)

// Sanitize returns a normalized copy of the config: enum values and
// command names are lower-cased, surrounding whitespace is trimmed and the
// delay exemption list is de-duplicated.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg

	r := &out.Server.Redis
	r.Address = strings.TrimSpace(r.Address)
	r.TLSAddress = strings.TrimSpace(r.TLSAddress)
	r.UnixSocket = strings.TrimSpace(r.UnixSocket)

	exempt := make([]string, 0, len(r.DelayExempt))
	for _, name := range r.DelayExempt {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && !slices.Contains(exempt, name) {
			exempt = append(exempt, name)
		}
	}
	r.DelayExempt = exempt
	if r.RateLimit > 0 && r.RateBurst <= 0 {
		r.RateBurst = r.RateLimit
	}

	out.Server.HTTP.Address = strings.TrimSpace(out.Server.HTTP.Address)
	out.Storage.Engine = strings.ToLower(strings.TrimSpace(out.Storage.Engine))
	out.Log.Level = strings.ToLower(strings.TrimSpace(out.Log.Level))
	out.Log.Format = strings.ToLower(strings.TrimSpace(out.Log.Format))

	return &out
}
