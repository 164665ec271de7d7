package record

import "fmt"

var navStatusLabels = [...]string{
	0:  "Under way using engine",
	1:  "At anchor",
	2:  "Not under command",
	3:  "Restricted manoeuvrability",
	4:  "Constrained by her draught",
	5:  "Moored",
	6:  "Aground",
	7:  "Engaged in fishing",
	8:  "Under way sailing",
	9:  "Reserved for HSC",
	10: "Reserved for WIG",
	11: "Power-driven vessel towing astern",
	12: "Power-driven vessel pushing ahead or towing alongside",
	13: "Reserved",
	14: "AIS-SART active",
	15: "Not defined",
}

// NavStatusLabel returns the human readable navigation status.
func NavStatusLabel(status uint8) string {
	if int(status) < len(navStatusLabels) {
		return navStatusLabels[status]
	}
	return fmt.Sprintf("Unknown (%d)", status)
}

var shipTypeSpecial = map[uint8]string{
	30: "Fishing",
	31: "Towing",
	32: "Towing: length exceeds 200m or breadth exceeds 25m",
	33: "Dredging or underwater ops",
	34: "Diving ops",
	35: "Military ops",
	36: "Sailing",
	37: "Pleasure craft",
	50: "Pilot vessel",
	51: "Search and rescue vessel",
	52: "Tug",
	53: "Port tender",
	54: "Anti-pollution equipment",
	55: "Law enforcement",
	58: "Medical transport",
	59: "Noncombatant ship",
}

var shipTypeDecades = map[uint8]string{
	2: "Wing in ground",
	4: "High speed craft",
	6: "Passenger",
	7: "Cargo",
	8: "Tanker",
	9: "Other",
}

// ShipTypeLabel returns the human readable ship and cargo type.
func ShipTypeLabel(t uint8) string {
	if t == 0 {
		return "Not available"
	}
	if label, ok := shipTypeSpecial[t]; ok {
		return label
	}
	if t >= 20 && t <= 99 {
		if label, ok := shipTypeDecades[t/10]; ok {
			return label
		}
	}
	if t >= 1 && t <= 19 || t >= 100 && t <= 199 {
		return "Reserved"
	}
	return fmt.Sprintf("Unknown (%d)", t)
}
