package models

// FeeStatus is the status summary exposed to API consumers. Both fields
// are in base-currency micro-units.
type FeeStatus struct {
	// BaseFee is the cost of a reference transaction under no load.
	BaseFee uint64 `json:"base_fee"`
	// LoadFee is the cost of a reference transaction right now.
	LoadFee uint64 `json:"load_fee"`
}
