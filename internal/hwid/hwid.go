// Package hwid derives the per-device identifier that licenses are bound to.
package hwid

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"osenaabo-go/internal/models"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/net"
)

// IDLength is the number of hex characters kept from the hash.
const IDLength = 32

// Probe returns one platform signal, or "" when the platform cannot supply it.
type Probe func() string

// Fingerprinter computes the HardwareID from an ordered list of probes. The
// first probe that yields a signal wins; the hostname is always appended.
type Fingerprinter struct {
	Probes   []Probe
	Hostname func() string
	Node     func() string // fallback when every probe comes back empty
}

// New returns a Fingerprinter using the real platform signals of this OS.
func New() *Fingerprinter {
	return &Fingerprinter{
		Probes:   ProbesFor(runtime.GOOS),
		Hostname: Hostname,
		Node:     NodeID,
	}
}

// ProbesFor returns the probe order for goos, strongest first: hardware
// platform UUID, MAC address plus CPU descriptor, OS machine-id file. Linux
// reads /etc/machine-id first because the DMI uuid is often readable by root
// only, which would give root and user runs different ids.
func ProbesFor(goos string) []Probe {
	if goos == "linux" {
		return []Probe{MachineIDFile, PlatformUUID, MACAndCPU}
	}
	return []Probe{PlatformUUID, MACAndCPU, MachineIDFile}
}

// Compute returns the device id. It never fails: a panicking or empty probe
// degrades to the next one, and finally to node id plus hostname.
func (f *Fingerprinter) Compute() models.HardwareID {
	signal := ""
	for _, probe := range f.Probes {
		if s := safeProbe(probe); s != "" {
			signal = s
			break
		}
	}
	if signal == "" && f.Node != nil {
		signal = safeProbe(f.Node)
	}
	if f.Hostname != nil {
		signal += safeProbe(f.Hostname)
	}
	return Hash(signal)
}

// Hash maps a signal string to a HardwareID.
func Hash(signal string) models.HardwareID {
	sum := sha256.Sum256([]byte(signal))
	return models.HardwareID(hex.EncodeToString(sum[:])[:IDLength])
}

func safeProbe(p Probe) (s string) {
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	return strings.TrimSpace(p())
}

// PlatformUUID reads the firmware/OS platform UUID. On Linux only the DMI
// product uuid counts; gopsutil's HostID falls back to the boot id there,
// which changes every boot.
func PlatformUUID() string {
	if runtime.GOOS == "linux" {
		return readTrimmed("/sys/class/dmi/id/product_uuid")
	}
	id, err := host.HostID()
	if err != nil {
		return ""
	}
	return id
}

// MACAndCPU joins the lowest stable hardware address with the CPU model name.
func MACAndCPU() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	mac := StableMAC(ifaces, sysfsAssignType)
	if mac == "" {
		return ""
	}

	descriptor := ""
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		descriptor = infos[0].VendorID + infos[0].ModelName
	}
	return mac + descriptor
}

// StableMAC returns the lowest hardware address among interfaces that are up,
// not loopback, and carry a globally administered address that the kernel
// did not randomise. assignType returns the interface's addr_assign_type, or
// "" when unknown.
func StableMAC(ifaces []net.InterfaceStat, assignType func(name string) string) string {
	var macs []string
	for _, iface := range ifaces {
		addr := strings.ToLower(iface.HardwareAddr)
		if addr == "" || !hasFlag(iface.Flags, "up") || hasFlag(iface.Flags, "loopback") {
			continue
		}
		if locallyAdministered(addr) {
			continue
		}
		// 1: random, 3: set from userspace.
		if t := assignType(iface.Name); t == "1" || t == "3" {
			continue
		}
		macs = append(macs, addr)
	}
	if len(macs) == 0 {
		return ""
	}
	sort.Strings(macs)
	return macs[0]
}

func locallyAdministered(addr string) bool {
	if len(addr) < 2 {
		return true
	}
	b, err := hex.DecodeString(addr[:2])
	if err != nil || len(b) != 1 {
		return true
	}
	return b[0]&0x02 != 0
}

func sysfsAssignType(name string) string {
	if runtime.GOOS != "linux" {
		return ""
	}
	return readTrimmed(filepath.Join("/sys/class/net", name, "addr_assign_type"))
}

// MachineIDFile reads the persistent OS machine id.
func MachineIDFile() string {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if id := readTrimmed(path); id != "" {
			return id
		}
	}
	return ""
}

// Hostname returns the OS-reported host name.
func Hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}

// NodeID returns the IEEE 802 node id google/uuid derives from the network
// interfaces (random, but fixed for the life of the process, when none exist).
func NodeID() string {
	return hex.EncodeToString(uuid.NodeID())
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
