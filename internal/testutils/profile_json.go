package testutils

import (
	"encoding/json"
	"strings"

	blelib "github.com/go-ble/ble"
	"github.com/srg/blerpc/pkg/device"
)

type ProfileJSON struct {
	Services []ServiceJSON `json:"services"`
}

type ServiceJSON struct {
	UUID            string               `json:"uuid"`
	Characteristics []CharacteristicJSON `json:"characteristics"`
}

type CharacteristicJSON struct {
	UUID        string           `json:"uuid"`
	Properties  string           `json:"properties"`
	Descriptors []DescriptorJSON `json:"descriptors"`
	CCCD        bool             `json:"cccd"`
}

type DescriptorJSON struct {
	UUID string `json:"uuid"`
}

var propertyOrder = []struct {
	flag blelib.Property
	name string
}{
	{blelib.CharRead, "read"},
	{blelib.CharWrite, "write"},
	{blelib.CharWriteNR, "write_nr"},
	{blelib.CharNotify, "notify"},
	{blelib.CharIndicate, "indicate"},
}

// formatCharacteristicProperties is the inverse of parseCharacteristicProperties
func formatCharacteristicProperties(p blelib.Property) string {
	var names []string
	for _, po := range propertyOrder {
		if p&po.flag != 0 {
			names = append(names, po.name)
		}
	}
	return strings.Join(names, ",")
}

// ProfileToJSON converts a ble.Profile to a JSON string with normalized UUIDs
func ProfileToJSON(profile *blelib.Profile) string {
	out := ProfileJSON{Services: []ServiceJSON{}}
	if profile != nil {
		for _, svc := range profile.Services {
			sj := ServiceJSON{UUID: device.UUIDKey(svc.UUID), Characteristics: []CharacteristicJSON{}}
			for _, c := range svc.Characteristics {
				cj := CharacteristicJSON{
					UUID:        device.UUIDKey(c.UUID),
					Properties:  formatCharacteristicProperties(c.Property),
					Descriptors: []DescriptorJSON{},
					CCCD:        c.CCCD != nil,
				}
				for _, d := range c.Descriptors {
					cj.Descriptors = append(cj.Descriptors, DescriptorJSON{UUID: device.UUIDKey(d.UUID)})
				}
				sj.Characteristics = append(sj.Characteristics, cj)
			}
			out.Services = append(out.Services, sj)
		}
	}

	b, err := json.Marshal(out)
	if err != nil {
		panic(err)
	}
	return string(b)
}
