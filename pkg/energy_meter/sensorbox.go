package energy_meter

import (
	"fmt"
	"net/netip"
)

// SENSORBOX_ADDRESS is the fixed bus address of a Sensorbox.
const SENSORBOX_ADDRESS uint8 = 0x0A

const (
	SENSORBOX_REGISTER_GRID = 0x800
	SENSORBOX_REGISTER_WIFI = 0x801
)

// SENSORBOX_RECONCILE_FRAMES is how many mismatched frames pass after a WiFi
// write before it is repeated.
const SENSORBOX_RECONCILE_FRAMES = 5

type WiFiMode uint8

const (
	WIFI_DISABLED WiFiMode = iota
	WIFI_ENABLED
	WIFI_PORTAL
)

func (w WiFiMode) String() string {
	switch w {
	case WIFI_DISABLED:
		return "disabled"
	case WIFI_ENABLED:
		return "enabled"
	case WIFI_PORTAL:
		return "portal"
	}
	return fmt.Sprintf("WiFiMode(%d)", w)
}

type SyncState uint8

const (
	SYNC_UNKNOWN SyncState = iota
	SYNC_MISMATCHED
	SYNC_RECONCILING
	SYNC_SYNCED
)

func (s SyncState) String() string {
	switch s {
	case SYNC_MISMATCHED:
		return "mismatched"
	case SYNC_RECONCILING:
		return "reconciling"
	case SYNC_SYNCED:
		return "synced"
	}
	return "unknown"
}

type SensorboxConfig struct {
	WiFiMode WiFiMode
	// Grid is 0 for 4-wire and 1 for 3-wire CT installations.
	Grid uint8
	// LoadBalancingRole >= 2 marks a node, which never reconfigures the grid.
	LoadBalancingRole uint8
	// OnWiFiModeChanged is called when the desired mode changes on its own.
	OnWiFiModeChanged func(mode WiFiMode)
}

type SensorboxStatus struct {
	SoftwareVersion uint8  `json:"software_version"`
	WiFiConnected   bool   `json:"wifi_connected"`
	WiFiAPSTA       bool   `json:"wifi_ap_sta"`
	WiFiMode        uint8  `json:"wifi_mode"`
	IP              string `json:"ip"`
	APPassword      string `json:"ap_password"`
	GridActive      bool   `json:"grid_active"`
	GridWiring      uint8  `json:"grid_wiring"`
	Sync            string `json:"sync"`
}

// Sensorbox tracks the status block of a Sensorbox frame and reconciles its
// WiFi mode and grid wiring with the configured ones.
type Sensorbox struct {
	Status SensorboxStatus

	cfg  SensorboxConfig
	sync SyncState
	// mismatched frames seen since the last WiFi write
	waited int
}

func NewSensorbox(cfg SensorboxConfig) *Sensorbox {
	return &Sensorbox{cfg: cfg}
}

func (s *Sensorbox) DesiredWiFiMode() WiFiMode {
	return s.cfg.WiFiMode
}

// SetWiFiMode changes the desired mode. The write is issued on the next frame.
func (s *Sensorbox) SetWiFiMode(mode WiFiMode) error {
	if mode > WIFI_PORTAL {
		return fmt.Errorf("invalid sensorbox wifi mode %d", mode)
	}
	if mode != s.cfg.WiFiMode {
		s.cfg.WiFiMode = mode
		s.sync = SYNC_UNKNOWN
		s.Status.Sync = s.sync.String()
	}
	return nil
}

func (s *Sensorbox) SyncState() SyncState {
	return s.sync
}

// ResetSync forgets what the Sensorbox reported, after a communication loss.
func (s *Sensorbox) ResetSync() {
	s.Status.SoftwareVersion = 0
	s.sync = SYNC_UNKNOWN
	s.Status.Sync = s.sync.String()
}

func (s *Sensorbox) process(m *Meter, frame ResponseFrame, ctActive bool) {
	buf := frame.Data
	s.Status.SoftwareVersion = buf[0]

	// the version alone does not tell whether the extended registers were read
	if s.Status.SoftwareVersion == 1 && frame.DataLength() == 2*SENSORBOX_FRAME_REGISTERS {
		s.Status.WiFiConnected = buf[40]>>1&1 == 1
		s.Status.WiFiAPSTA = buf[40]>>2&1 == 1
		s.Status.WiFiMode = buf[41]
		s.Status.IP = netip.AddrFrom4([4]byte{buf[48], buf[49], buf[50], buf[51]}).String()
		password := make([]byte, 8)
		for x := range password {
			password[7-x] = buf[56+x]
		}
		s.Status.APPassword = string(password)

		if s.cfg.WiFiMode == WIFI_PORTAL && s.Status.WiFiConnected {
			s.cfg.WiFiMode = WIFI_ENABLED
			if s.cfg.OnWiFiModeChanged != nil {
				s.cfg.OnWiFiModeChanged(s.cfg.WiFiMode)
			}
		}

		if WiFiMode(s.Status.WiFiMode) != s.cfg.WiFiMode {
			if s.sync == SYNC_RECONCILING && s.waited < SENSORBOX_RECONCILE_FRAMES {
				s.waited++
			} else if m.writer != nil {
				m.writeRegister(SENSORBOX_ADDRESS, SENSORBOX_REGISTER_WIFI, uint16(s.cfg.WiFiMode))
				s.sync = SYNC_RECONCILING
				s.waited = 0
			} else {
				s.sync = SYNC_MISMATCHED
			}
		} else {
			s.sync = SYNC_SYNCED
		}
		s.Status.Sync = s.sync.String()
	}

	s.Status.GridActive = buf[1] >= 0x10 && ctActive
	s.Status.GridWiring = buf[1] & 0x3
	wiring := s.cfg.Grid << 1
	if s.Status.GridActive && s.Status.GridWiring != wiring && s.cfg.LoadBalancingRole < 2 {
		m.writeRegister(SENSORBOX_ADDRESS, SENSORBOX_REGISTER_GRID, uint16(wiring))
	}
}
