package discovery

import "strings"

// fingerprint is one sysDescr substring mapped to a vendor and device
// type guess. First match wins, so more specific entries come first.
type fingerprint struct {
	substr     string
	vendor     string
	deviceType string
}

var fingerprints = []fingerprint{
	{"synology", "Synology", "NAS"},
	{"qnap", "QNAP", "NAS"},
	{"ubiquiti", "Ubiquiti", "Access Point"},
	{"unifi", "Ubiquiti", "Access Point"},
	{"edgeswitch", "Ubiquiti", "Switch"},
	{"edgeos", "Ubiquiti", "Router"},
	{"mikrotik", "MikroTik", "Router"},
	{"routeros", "MikroTik", "Router"},
	{"cisco", "Cisco", "Switch"},
	{"procurve", "HP", "Switch"},
	{"aruba", "HP", "Switch"},
	{"hp ethernet", "HP", "Printer"},
	{"jetdirect", "HP", "Printer"},
	{"brother", "Brother", "Printer"},
	{"windows", "Microsoft", "Server"},
	{"linux", "Linux", "Server"},
	{"freebsd", "FreeBSD", "Server"},
}

// classifyDevice guesses vendor and device type from an SNMP system
// description. Both are empty when nothing matches; the import flow
// treats that as an unidentified host.
func classifyDevice(sysDescr string) (vendor, deviceType string) {
	lower := strings.ToLower(sysDescr)

	for _, fp := range fingerprints {
		if strings.Contains(lower, fp.substr) {
			return fp.vendor, fp.deviceType
		}
	}

	return "", ""
}
