package hwid

import (
	"encoding/hex"
	"reflect"
	"testing"

	"github.com/shirou/gopsutil/v4/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(s string) Probe { return func() string { return s } }

func TestComputeIsDeterministic(t *testing.T) {
	f := New()
	first := f.Compute()
	second := f.Compute()

	assert.Equal(t, first, second)
	require.Len(t, string(first), IDLength)
	_, err := hex.DecodeString(string(first))
	assert.NoError(t, err, "id must be hex")
}

func TestComputeUsesFirstAvailableSignal(t *testing.T) {
	f := &Fingerprinter{
		Probes:   []Probe{fixed(""), fixed("mac-cpu"), fixed("machine-id")},
		Hostname: fixed("desk"),
		Node:     fixed("node"),
	}
	assert.Equal(t, Hash("mac-cpudesk"), f.Compute())
}

func TestComputeFallsBackToNodeAndHostname(t *testing.T) {
	f := &Fingerprinter{
		Probes:   []Probe{fixed(""), fixed("  ")},
		Hostname: fixed("desk"),
		Node:     fixed("a1b2c3"),
	}
	assert.Equal(t, Hash("a1b2c3desk"), f.Compute())
}

func TestComputeSurvivesPanickingProbe(t *testing.T) {
	f := &Fingerprinter{
		Probes:   []Probe{func() string { panic("platform api missing") }, fixed("machine-id")},
		Hostname: fixed("desk"),
	}
	assert.Equal(t, Hash("machine-iddesk"), f.Compute())
}

func TestHashMatchesKnownValue(t *testing.T) {
	// sha256("abc") = ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223", string(Hash("abc")))
	assert.Equal(t, "PC_BA7816BF8F01CFEA414140DE5DAE2223", Hash("abc").Display())
	assert.Equal(t, "PC_BA7816BF", Hash("abc").Short())
}

func TestStableMACSkipsUnstableInterfaces(t *testing.T) {
	ifaces := []net.InterfaceStat{
		{Name: "lo", HardwareAddr: "", Flags: []string{"up", "loopback"}},
		{Name: "ifb0", HardwareAddr: "00:01:02:03:04:05", Flags: []string{"up", "broadcast"}},
		{Name: "veth1", HardwareAddr: "0a:94:00:00:00:01", Flags: []string{"up", "broadcast"}},
		{Name: "wlan0", HardwareAddr: "00:00:aa:00:00:01", Flags: []string{"broadcast"}},
		{Name: "eth0", HardwareAddr: "3C:52:82:11:22:33", Flags: []string{"up", "broadcast"}},
		{Name: "eth1", HardwareAddr: "b4:2e:99:00:00:01", Flags: []string{"up", "broadcast"}},
	}
	assignType := func(name string) string {
		if name == "ifb0" {
			return "1"
		}
		return "0"
	}

	assert.Equal(t, "3c:52:82:11:22:33", StableMAC(ifaces, assignType))

	// A re-randomised virtual interface does not change the choice.
	ifaces[1].HardwareAddr = "00:00:00:00:00:01"
	assert.Equal(t, "3c:52:82:11:22:33", StableMAC(ifaces, assignType))
}

func TestStableMACWithoutUsableInterfaces(t *testing.T) {
	ifaces := []net.InterfaceStat{
		{Name: "eth0", HardwareAddr: "02:fc:00:00:00:01", Flags: []string{"up"}},
		{Name: "docker0", HardwareAddr: "", Flags: []string{"up"}},
	}
	assert.Empty(t, StableMAC(ifaces, func(string) string { return "" }))
}

func TestLinuxPrefersMachineID(t *testing.T) {
	linux := ProbesFor("linux")
	require.Len(t, linux, 3)
	assert.Equal(t, reflect.ValueOf(MachineIDFile).Pointer(), reflect.ValueOf(linux[0]).Pointer())

	darwin := ProbesFor("darwin")
	require.Len(t, darwin, 3)
	assert.Equal(t, reflect.ValueOf(PlatformUUID).Pointer(), reflect.ValueOf(darwin[0]).Pointer())
}
