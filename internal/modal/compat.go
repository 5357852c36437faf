package modal

import (
	"encoding/json"
	"fmt"
)

// Older callers send the token list nested under payment options, in either
// camelCase or snake_case. The flat AllowedTokens field is canonical; these
// decoders fold the nested shape into it and encoding only ever emits the
// flat one.
type legacyPaymentOptions struct {
	AllowedTokens      []string `json:"allowedTokens"`
	AllowedTokensSnake []string `json:"allowed_tokens"`
	RequireEmail       *bool    `json:"requireEmail"`
	RequireEmailSnake  *bool    `json:"require_email"`
	RequireShipping    *bool    `json:"requireShipping"`
	RequireShipSnake   *bool    `json:"require_shipping"`
	ShowBreakdown      *bool    `json:"showAmountBreakdown"`
	ShowBreakdownSnake *bool    `json:"show_amount_breakdown"`
	EnableTips         *bool    `json:"enableTips"`
	EnableTipsSnake    *bool    `json:"enable_tips"`
}

type legacyEnvelope struct {
	PaymentOptions      *legacyPaymentOptions `json:"paymentOptions"`
	PaymentOptionsSnake *legacyPaymentOptions `json:"payment_options"`
}

// DecodeDraft decodes a draft, accepting the legacy nested token shape.
func DecodeDraft(data []byte) (Draft, error) {
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("failed to decode draft: %w", err)
	}
	if err := foldLegacy(data, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// DecodeConfig decodes a stored configuration, accepting the legacy nested
// token shape.
func DecodeConfig(data []byte) (Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to decode modal config: %w", err)
	}
	if err := foldLegacy(data, &c.Draft); err != nil {
		return Config{}, err
	}
	return c, nil
}

func foldLegacy(data []byte, d *Draft) error {
	var env legacyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to decode payment options: %w", err)
	}
	for _, po := range []*legacyPaymentOptions{env.PaymentOptions, env.PaymentOptionsSnake} {
		if po == nil {
			continue
		}
		if len(d.AllowedTokens) == 0 {
			if len(po.AllowedTokens) > 0 {
				d.AllowedTokens = po.AllowedTokens
			} else if len(po.AllowedTokensSnake) > 0 {
				d.AllowedTokens = po.AllowedTokensSnake
			}
		}
		applyBool(&d.RequireEmail, po.RequireEmail, po.RequireEmailSnake)
		applyBool(&d.RequireShipping, po.RequireShipping, po.RequireShipSnake)
		applyBool(&d.ShowAmountBreakdown, po.ShowBreakdown, po.ShowBreakdownSnake)
		applyBool(&d.EnableTips, po.EnableTips, po.EnableTipsSnake)
	}
	return nil
}

func applyBool(dst *bool, vals ...*bool) {
	for _, v := range vals {
		if v != nil {
			*dst = *v
			return
		}
	}
}
