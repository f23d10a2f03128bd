package relay

import (
	"encoding/json"
	"net/http"
	"sync"
)

// supportedNIPs lists the NIPs pkg/relay actually implements: NIP-01 core
// protocol, NIP-09 deletion, and NIP-11 itself, including a subset of
// the limitation fields NIP-11 defines. AUTH (42), counting (45), DMs (4), and GiftWrap
// (59) are excluded — matching this relay's feature scope, not the donor
// document's full list.
var supportedNIPs = []int{1, 9, 11}

type nip11Limitation struct {
	PaymentRequired    bool `json:"payment_required"`
	AuthRequired       bool `json:"auth_required"`
	RestrictedWrites   bool `json:"restricted_writes"`
	MaxMessageLength   int64 `json:"max_message_length"`
	MaxSubscriptions   int   `json:"max_subscriptions"`
}

type nip11Document struct {
	SupportedNIPs []int            `json:"supported_nips"`
	Software      string           `json:"software"`
	Version       string           `json:"version"`
	Name          string           `json:"name,omitempty"`
	Description   string           `json:"description,omitempty"`
	Contact       string           `json:"contact,omitempty"`
	Limitation    nip11Limitation  `json:"limitation"`
}

const (
	relaySoftware = "https://github.com/cuemby/nostrd"
	relayVersion  = "0.1.0"
)

// buildNIP11Doc renders the relay information document lazily and caches
// it for the life of the server, matching the donor relay's
// get_or_init-and-cache pattern for its own NIP-11 document.
func (s *Server) buildNIP11Doc() func() []byte {
	return sync.OnceValue(func() []byte {
		doc := nip11Document{
			SupportedNIPs: supportedNIPs,
			Software:      relaySoftware,
			Version:       relayVersion,
			Name:          s.cfg.RelayName,
			Description:   s.cfg.RelayDescription,
			Contact:       s.cfg.RelayContact,
			Limitation: nip11Limitation{
				RestrictedWrites: false,
				MaxMessageLength: s.cfg.MaxMessageBytes,
				MaxSubscriptions: s.cfg.MaxSubscriptions,
			},
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return []byte(`{"supported_nips":[1,9,11]}`)
		}
		return data
	})
}

func (s *Server) handleNIP11(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "*")
	w.Header().Set("Access-Control-Allow-Methods", "*")
	w.Header().Set("Content-Type", "application/nostr+json")
	w.WriteHeader(http.StatusOK)
	w.Write(s.nip11Doc())
}
