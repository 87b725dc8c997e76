package entity

// Record is one value of the flat key-value store together with its
// optimistic version stamp. Version 0 means the key has never been written.
type Record struct {
	Key     string
	Value   []byte
	Version uint64
}
