// cmd/beamstate-probe/main.go
//
// One-shot diagnostic: probe a host with the same ICMP and SNMP checks
// the monitoring loops run, and print the outcome as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/beamstate/beamstate/pkg/logger"
	"github.com/beamstate/beamstate/pkg/probe"
)

type probeReport struct {
	IP          string   `json:"ip"`
	PingOK      bool     `json:"ping_ok"`
	LatencyMs   *float64 `json:"latency_ms,omitempty"`
	PacketLoss  float64  `json:"packet_loss"`
	PingError   string   `json:"ping_error,omitempty"`
	SNMPOK      bool     `json:"snmp_ok"`
	SysDescr    string   `json:"sys_descr,omitempty"`
	SysName     string   `json:"sys_name,omitempty"`
	SNMPLatency *float64 `json:"snmp_latency_ms,omitempty"`
	SNMPError   string   `json:"snmp_error,omitempty"`
}

func main() {
	ip := flag.String("ip", "", "Host to probe")
	community := flag.String("community", "public", "SNMP community")
	port := flag.Uint("port", 161, "SNMP port")
	count := flag.Int("count", 3, "ICMP packets to send")
	timeout := flag.Duration("timeout", 5*time.Second, "Per-protocol timeout")
	skipSNMP := flag.Bool("no-snmp", false, "Skip the SNMP check")
	flag.Parse()

	log := logger.GetLogger()

	if *ip == "" {
		log.Fatal().Msg("-ip is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*(*timeout))
	defer cancel()

	report := probeReport{IP: *ip}

	ping, err := probe.NewICMPPinger().Ping(ctx, *ip, *timeout, *count)
	if err != nil {
		report.PingError = err.Error()
	} else {
		report.PingOK = ping.Available
		report.PacketLoss = ping.PacketLoss

		if ping.Available {
			latency := ping.LatencyMs
			report.LatencyMs = &latency
		}
	}

	if !*skipSNMP {
		info, err := probe.NewSNMPGetter().SysInfo(ctx, probe.Target{
			IP:        *ip,
			Port:      uint16(*port),
			Community: *community,
			Timeout:   *timeout,
		})
		if err != nil {
			report.SNMPError = err.Error()
		} else {
			report.SNMPOK = true
			report.SysDescr = info.Description
			report.SysName = info.Name
			latency := info.LatencyMs
			report.SNMPLatency = &latency
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(report); err != nil {
		log.Fatal().Err(err).Msg("failed to encode report")
	}

	if !report.PingOK && !report.SNMPOK {
		os.Exit(1)
	}
}
