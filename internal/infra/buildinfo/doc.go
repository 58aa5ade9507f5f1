// Package buildinfo reports the version of the running binary.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/respd-go/internal/infra/buildinfo.Version=v1.0.0 \
//	  -X github.com/yndnr/respd-go/internal/infra/buildinfo.Commit=abc123"
//
// Anything left unset falls back to the module and VCS information the Go
// toolchain embeds in the binary.
package buildinfo
