package model

import "strings"

// TrackingParams is the closed, typed projection of a Flow's free-form
// metadata used by the tracker engine and pollers for control flow
// (spec.md §4.4). Matching parameters are derived once, by name lookup
// with fallbacks; nothing downstream re-consults the raw metadata map.
type TrackingParams struct {
	EvmBurnTxHash        string
	ForwardingAddress    string
	NamadaReceiver       string
	UsdcAddress          string
	Recipient            string
	AmountBaseUnits      string
	ExpectedAmountUusdc  string
	MemoJson             string
	NamadaIbcTxHash      string
	DestinationCallerB64 string
	MintRecipientB64     string
	ChannelId            string
	DestinationDomain    string
}

// str reads a non-empty string field from a metadata map, trying each key
// in order and returning the first non-empty match.
func str(meta map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := meta[k]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		}
	}
	return ""
}

// DeriveTrackingParams projects a flow's metadata (and, for the tx hash
// fallback, the flow's own txHash) into TrackingParams per the derivation
// table in spec.md §4.4.
func DeriveTrackingParams(flow *Flow) TrackingParams {
	meta := flow.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}

	p := TrackingParams{
		ForwardingAddress:    str(meta, "forwardingAddress", "nobleForwardingAddress"),
		NamadaReceiver:       str(meta, "namadaReceiver", "destinationAddress"),
		UsdcAddress:          str(meta, "usdcAddress"),
		Recipient:            str(meta, "recipient", "destinationEvmAddress"),
		AmountBaseUnits:      str(meta, "amountBaseUnits", "amount"),
		MemoJson:             str(meta, "memoJson"),
		NamadaIbcTxHash:      str(meta, "namadaIbcTxHash"),
		DestinationCallerB64: str(meta, "destinationCallerB64"),
		MintRecipientB64:     str(meta, "mintRecipientB64"),
		ChannelId:            str(meta, "channelId"),
		DestinationDomain:    str(meta, "destinationDomain"),
	}

	p.EvmBurnTxHash = str(meta, "evmBurnTxHash", "burnTxHash")
	if p.EvmBurnTxHash == "" {
		p.EvmBurnTxHash = flow.TxHash
	}

	// expectedAmountUusdc falls back to amountBaseUnits with a "uusdc"
	// suffix appended if one isn't already present.
	p.ExpectedAmountUusdc = str(meta, "expectedAmountUusdc")
	if p.ExpectedAmountUusdc == "" {
		base := p.AmountBaseUnits
		if base != "" {
			if strings.HasSuffix(base, "uusdc") {
				p.ExpectedAmountUusdc = base
			} else {
				p.ExpectedAmountUusdc = base + "uusdc"
			}
		}
	}

	return p
}
