package entity

// AssetStatus is the classification state of a stored media asset.
//
// An asset starts pending and transitions exactly once, to safe or
// flagged. There are no other transitions.
type AssetStatus string

const (
	AssetStatusPending AssetStatus = "pending"
	AssetStatusSafe    AssetStatus = "safe"
	AssetStatusFlagged AssetStatus = "flagged"
)

// Terminal reports whether the status can no longer change.
func (s AssetStatus) Terminal() bool {
	return s == AssetStatusSafe || s == AssetStatusFlagged
}
