// Package ircconfig loads a human-editable network profile into an
// ircx.Config, using the scfg block/directive format the way senpai does
// for its own network definitions. The core ircx.Client never reads files
// itself; this package is a thin, optional loader callers opt into.
package ircconfig

import (
	"crypto/tls"
	"fmt"
	"io"
	"strconv"
	"time"

	"git.sr.ht/~emersion/go-scfg"

	"github.com/tjarrett/ircx"
	"github.com/tjarrett/ircx/sasl"
)

// Load parses an scfg document describing one network profile into an
// ircx.Config. Recognized top-level directives:
//
//	server <host> [port]
//	tls [insecure-skip-verify]
//	nick <nick>
//	user <ident>
//	realname <name>
//	pass <password>
//	fallback-nick <nick>...
//	sasl plain <username> <password>
//	sasl external
//	required-cap <name>...
//	supported-cap <name>...
//	ping-timeout <duration>
//	throttle <burst> <rate-duration>
//	allow-flood
func Load(r io.Reader) (ircx.Config, error) {
	block, err := scfg.Read(r)
	if err != nil {
		return ircx.Config{}, fmt.Errorf("ircconfig: %w", err)
	}
	return FromBlock(block)
}

// FromBlock builds an ircx.Config from an already-parsed scfg Block, for
// callers assembling configuration from more than one source file.
func FromBlock(block scfg.Block) (ircx.Config, error) {
	var cfg ircx.Config
	cfg.Port = 6697

	for _, dir := range block {
		switch dir.Name {
		case "server":
			if len(dir.Params) == 0 {
				return cfg, fmt.Errorf("ircconfig: server: expected a host")
			}
			cfg.Server = dir.Params[0]
			if len(dir.Params) > 1 {
				port, err := strconv.Atoi(dir.Params[1])
				if err != nil {
					return cfg, fmt.Errorf("ircconfig: server: invalid port %q: %w", dir.Params[1], err)
				}
				cfg.Port = port
			}

		case "tls":
			tlsCfg := &ircx.TLSConfig{Enable: true}
			for _, p := range dir.Params {
				if p == "insecure-skip-verify" {
					tlsCfg.InsecureSkipVerify = true
				}
			}
			tlsCfg.Config = &tls.Config{InsecureSkipVerify: tlsCfg.InsecureSkipVerify}
			cfg.TLS = tlsCfg

		case "nick":
			if len(dir.Params) == 0 {
				return cfg, fmt.Errorf("ircconfig: nick: expected a value")
			}
			cfg.Nick = dir.Params[0]

		case "user":
			if len(dir.Params) == 0 {
				return cfg, fmt.Errorf("ircconfig: user: expected a value")
			}
			cfg.User = dir.Params[0]

		case "realname":
			if len(dir.Params) == 0 {
				return cfg, fmt.Errorf("ircconfig: realname: expected a value")
			}
			cfg.Name = dir.Params[0]

		case "pass":
			if len(dir.Params) == 0 {
				return cfg, fmt.Errorf("ircconfig: pass: expected a value")
			}
			cfg.ServerPass = dir.Params[0]

		case "fallback-nick":
			cfg.FallbackNicks = append(cfg.FallbackNicks, dir.Params...)

		case "sasl":
			sasl, err := parseSASL(dir)
			if err != nil {
				return cfg, err
			}
			cfg.SASL = sasl

		case "required-cap":
			cfg.RequiredCaps = append(cfg.RequiredCaps, dir.Params...)

		case "supported-cap":
			cfg.SupportedCaps = append(cfg.SupportedCaps, dir.Params...)

		case "ping-timeout":
			if len(dir.Params) == 0 {
				return cfg, fmt.Errorf("ircconfig: ping-timeout: expected a duration")
			}
			d, err := time.ParseDuration(dir.Params[0])
			if err != nil {
				return cfg, fmt.Errorf("ircconfig: ping-timeout: %w", err)
			}
			cfg.PingTimeout = d

		case "throttle":
			if len(dir.Params) != 2 {
				return cfg, fmt.Errorf("ircconfig: throttle: expected burst and rate")
			}
			burst, err := strconv.Atoi(dir.Params[0])
			if err != nil {
				return cfg, fmt.Errorf("ircconfig: throttle: invalid burst %q: %w", dir.Params[0], err)
			}
			rate, err := time.ParseDuration(dir.Params[1])
			if err != nil {
				return cfg, fmt.Errorf("ircconfig: throttle: invalid rate %q: %w", dir.Params[1], err)
			}
			cfg.ThrottleBurst = burst
			cfg.ThrottleRate = rate

		case "allow-flood":
			cfg.AllowFlood = true
		}
	}

	return cfg, nil
}

// parseSASL adapts a "sasl plain <user> <pass>" or "sasl external" directive
// into the ircx.Mechanism the core client drives during CAP negotiation.
func parseSASL(dir *scfg.Directive) (*ircx.SASLConfig, error) {
	if len(dir.Params) == 0 {
		return nil, fmt.Errorf("ircconfig: sasl: expected a mechanism")
	}

	switch dir.Params[0] {
	case "plain":
		if len(dir.Params) != 3 {
			return nil, fmt.Errorf("ircconfig: sasl plain: expected username and password")
		}
		return &ircx.SASLConfig{
			Mechanism: &sasl.Plain{Username: dir.Params[1], Password: dir.Params[2]},
			Timeout:   15 * time.Second,
		}, nil
	case "external":
		return &ircx.SASLConfig{
			Mechanism: &sasl.External{},
			Timeout:   15 * time.Second,
		}, nil
	default:
		return nil, fmt.Errorf("ircconfig: sasl: unknown mechanism %q", dir.Params[0])
	}
}
