package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex inv_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	UUID_PREFIX_INVOICE            = "inv"
	UUID_PREFIX_INVOICE_LINE_ITEM  = "inv_line"
	UUID_PREFIX_ESTIMATE           = "est"
	UUID_PREFIX_ESTIMATE_LINE_ITEM = "est_line"
	UUID_PREFIX_TEMPLATE           = "tmpl"
	UUID_PREFIX_TEMPLATE_LINE_ITEM = "tmpl_line"
	UUID_PREFIX_PAYMENT            = "pay"
	UUID_PREFIX_CONTACT            = "cont"
	UUID_PREFIX_PRODUCT            = "prod"
	UUID_PREFIX_REQUEST            = "req"
	UUID_PREFIX_WEBHOOK_EVENT      = "wh"
)
