package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/leadconvert/leadconvert/internal/esp/sendgrid"
)

// CampaignID resolves the campaign an event belongs to. The explicit custom
// arg wins. Otherwise the sg_message_id token is used when it parses as a
// UUID; derived reports that this fallback was taken. Campaign ids are
// UUIDs, so a tag that is not one resolves to nothing.
func CampaignID(e sendgrid.Event) (id string, derived bool) {
	if tag := e.TaggedCampaignID(); tag != "" {
		u, err := uuid.Parse(tag)
		if err != nil {
			return "", false
		}
		return u.String(), false
	}
	u, err := uuid.Parse(MessageToken(e))
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// MessageToken is the leading dot-separated token of sg_message_id, which is
// the X-Message-Id returned when the message was sent.
func MessageToken(e sendgrid.Event) string {
	token, _, _ := strings.Cut(e.SGMessageID, ".")
	return strings.TrimSpace(token)
}

// DedupKey is the provider event id, or a content hash when SendGrid did
// not send one.
func DedupKey(e sendgrid.Event) string {
	if e.SGEventID != "" {
		return e.SGEventID
	}
	h := sha256.New()
	for i, part := range []string{e.Event, strings.ToLower(e.Email), strconv.FormatInt(e.Timestamp, 10), e.SGMessageID, e.URL} {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		h.Write([]byte(part))
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}
