package httpdto

import (
	"encoding/json"
	"math"
	"strings"

	"convo-chat/internal/services"
)

// FlexInt accepts a JSON number or a string and keeps its integer part.
// A string is read up to the first non-digit ("250ms" is 250); anything
// without leading digits decodes as zero.
type FlexInt int

func (f FlexInt) Int() int { return int(f) }

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*f = FlexInt(clampInt(math.Trunc(v)))
	case string:
		*f = FlexInt(leadingInt(v))
	default:
		*f = 0
	}
	return nil
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	var n float64
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + float64(s[i]-'0')
	}
	if neg {
		n = -n
	}
	return clampInt(n)
}

func clampInt(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int(v)
}

// FlexInts decodes a JSON array of FlexInt. Any other JSON value decodes
// as nil, which leaves every entry at its default.
type FlexInts []FlexInt

func (f *FlexInts) UnmarshalJSON(b []byte) error {
	var items []FlexInt
	if err := json.Unmarshal(b, &items); err != nil {
		*f = nil
		return nil
	}
	*f = items
	return nil
}

// BroadcastRequest is used for POST /broadcast
type BroadcastRequest struct {
	Message   string   `json:"message"`
	SenderID  FlexInt  `json:"senderId"`
	BotCount  FlexInt  `json:"botCount,omitempty"`
	BotDelays FlexInts `json:"botDelays,omitempty"`
}

func (r BroadcastRequest) ToInput() services.BroadcastInput {
	delays := make([]int, len(r.BotDelays))
	for i, d := range r.BotDelays {
		delays[i] = d.Int()
	}
	return services.BroadcastInput{
		Message:   r.Message,
		SenderID:  r.SenderID.Int(),
		BotCount:  r.BotCount.Int(),
		BotDelays: delays,
	}
}

// BroadcastResponse carries status and report only for a run that sent
// something.
type BroadcastResponse struct {
	Message string                    `json:"message"`
	Status  bool                      `json:"status,omitempty"`
	Report  *services.BroadcastReport `json:"report,omitempty"`
}
