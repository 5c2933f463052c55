package entity

// StatusEvent is emitted once per asset status transition. It is not
// persisted: only observers connected at publish time receive it.
type StatusEvent struct {
	AssetID string
	Status  AssetStatus
}
