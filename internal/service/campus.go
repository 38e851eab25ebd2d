package service

import "strings"

// unknownCampus 房间号为空时的展示名
const unknownCampus = "Unknown Campus"

// campusNames 房间号前三位 → 校区全称（固定表，随校区变动手工维护）
var campusNames = map[string]string{
	"ADC": "Admiralty Learning Centre, 18 Harcourt Road, Hong Kong",
	"CIT": "CITA Learning Centre, Kowloon Bay",
	"FTC": "HKU SPACE Fortress Tower Learning Centre, North Point",
	"HPC": "HPSHCC Campus, Causeway Bay",
	"IEC": "Island East Campus, North Point",
	"ISP": "Po Kong Village Road Campus, Pokfulam",
	"KEC": "Kowloon East Campus, Kowloon Bay",
	"KEE": "Kowloon East (Exchange) Learning Centre",
	"KEK": "Kowloon East (Kingston) Learning Centre",
	"KWC": "Kowloon West Campus, Cheung Sha Wan",
	"UNC": "United Centre, Admiralty",
	"SSC": "Sheung Shui Learning Centre",
}

// ResolveCampus 由房间号推导校区代码与校区名
// 未登记的前缀回退为原始房间号
func ResolveCampus(room string) (code, name string) {
	room = strings.TrimSpace(room)
	if room == "" {
		return "", unknownCampus
	}
	code = strings.ToUpper(room)
	if len(code) > 3 {
		code = code[:3]
	}
	if full, ok := campusNames[code]; ok {
		return code, full
	}
	return code, room
}
