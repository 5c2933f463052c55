package entity

// Asset is one stored media object. ID, OwnerID, and Location never change
// after creation; ByteSize is fixed once the content is fully written. Only
// Status mutates, and only through the store's conditional update.
type Asset struct {
	ID        string
	OwnerID   string
	Filename  string
	Location  string
	ByteSize  int64
	Status    AssetStatus
	CreatedAt int64
}
