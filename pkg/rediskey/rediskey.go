package rediskey

import "fmt"

// Sequence keys (global convention across binaries)
const (
	InvoiceSeqPrefix = "seq:invoice"
	PayoutSeqPrefix  = "seq:payout"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildInvoiceSeqKey returns "seq:invoice:{year}"
func BuildInvoiceSeqKey(year int) string {
	return NamespaceKey(InvoiceSeqPrefix, fmt.Sprintf("%d", year))
}

// BuildPayoutSeqKey returns "seq:payout:{yymmdd}"
func BuildPayoutSeqKey(day string) string {
	return NamespaceKey(PayoutSeqPrefix, day)
}
