package handlers

import (
	"encoding/xml"
	"net/http"

	"github.com/MrSnakeDoc/dialcast/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dialcast/internal/logger"
	"github.com/MrSnakeDoc/dialcast/internal/ssdp"
)

const (
	deviceType   = "urn:schemas-upnp-org:device:dial:1"
	serviceID    = "urn:dial-multiscreen-org:device:dial"
	manufacturer = "Mopidy"
	modelName    = "Mopidy YouTube Cast Receiver"
)

type specVersion struct {
	Major int `xml:"major"`
	Minor int `xml:"minor"`
}

type upnpService struct {
	ServiceType string `xml:"serviceType"`
	ServiceID   string `xml:"serviceId"`
	ControlURL  string `xml:"controlURL"`
	EventSubURL string `xml:"eventSubURL"`
	SCPDURL     string `xml:"SCPDURL"`
}

type upnpDevice struct {
	DeviceType      string        `xml:"deviceType"`
	FriendlyName    string        `xml:"friendlyName"`
	Manufacturer    string        `xml:"manufacturer"`
	ModelName       string        `xml:"modelName"`
	UDN             string        `xml:"UDN"`
	Services        []upnpService `xml:"serviceList>service"`
	PresentationURL string        `xml:"presentationURL"`
}

type deviceDescription struct {
	XMLName     xml.Name    `xml:"urn:schemas-upnp-org:device-1-0 root"`
	SpecVersion specVersion `xml:"specVersion"`
	Device      upnpDevice  `xml:"device"`
	URLBase     string      `xml:"URLBase"`
}

// RenderDescriptor builds the UPnP device description advertising the DIAL service.
func RenderDescriptor(friendlyName, applicationURL, udn string) ([]byte, error) {
	doc := deviceDescription{
		SpecVersion: specVersion{Major: 1, Minor: 0},
		Device: upnpDevice{
			DeviceType:   deviceType,
			FriendlyName: friendlyName,
			Manufacturer: manufacturer,
			ModelName:    modelName,
			UDN:          "uuid:" + udn,
			Services: []upnpService{{
				ServiceType: ssdp.SearchTarget,
				ServiceID:   serviceID,
			}},
			PresentationURL: applicationURL,
		},
		URLBase: applicationURL,
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

// DeviceDescriptor serves the device description. The Application-URL header
// tells DIAL clients where the apps live.
func DeviceDescriptor(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := RenderDescriptor(d.FriendlyName, d.ApplicationURL, d.UDN)
		if err != nil {
			d.Logger.Error("failed to render device descriptor", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Application-URL", d.ApplicationURL+"/apps")
		writeBody(w, http.StatusOK, "application/xml", body, d)
	}
}
