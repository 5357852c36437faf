package snippets

import (
	"bytes"
	"text/template"

	"github.com/ckpayment/ckmodal/internal/modal"
)

var embedTemplate = template.Must(template.New("embed").Parse(`<!-- ckPay payment modal -->
<script src="{{html .SDKURL}}"></script>
<script>
  ckPay.init({ modalId: "{{js .ModalID}}" });
</script>
<button type="button" data-ckpay-modal="{{html .ModalID}}" onclick="ckPay.open('{{.ModalID | js | html}}')">{{html .ButtonText}}</button>
`))

// EmbedCode returns the HTML a merchant pastes into their page: the SDK
// include, the init call and a trigger button. The modal id is the only
// configuration value it carries; everything else is fetched by the SDK.
func EmbedCode(cfg modal.Config, opts EmbedOptions) string {
	var buf bytes.Buffer
	// Executing into a buffer cannot fail for this template.
	_ = embedTemplate.Execute(&buf, buildTemplateData(cfg, opts))
	return buf.String()
}
