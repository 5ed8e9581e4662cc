package freight

import (
	"net/url"
	"strings"
)

// ContactMessage is the chat message sent to the shipper.
func ContactMessage(freightID, agentCode string) string {
	msg := "Olá! Tenho interesse no frete " + freightID
	if agentCode != "" {
		msg += " Agenciador: " + agentCode
	}
	return msg
}

// ContactLink builds the messaging deep link <service><phone>?text=<message>.
func ContactLink(service, phone, freightID, agentCode string) string {
	return service + phone + "?text=" + encodeComponent(ContactMessage(freightID, agentCode))
}

// encodeComponent escapes like a URI component: spaces become %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ReferralLink is the share link an agent sends to drivers:
// <site>/frete/ag?<code>&<freightID>.
func ReferralLink(siteURL, agentCode, freightID string) string {
	return strings.TrimRight(siteURL, "/") + "/frete/ag?" + agentCode + "&" + freightID
}

// ParseReferralQuery accepts the bare "<code>&<id>" form as well as
// "ag=<code>&id=<id>".
func ParseReferralQuery(rawQuery string) (agentCode, freightID string) {
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		if !hasValue {
			bare, err := url.QueryUnescape(key)
			if err != nil {
				continue
			}
			if agentCode == "" && ValidAgentCode(bare) {
				agentCode = bare
			} else if freightID == "" {
				freightID = bare
			}
			continue
		}
		value, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		switch key {
		case "ag":
			agentCode = value
		case "id", "frete":
			freightID = value
		}
	}
	if !ValidAgentCode(agentCode) {
		agentCode = ""
	}
	return agentCode, freightID
}
