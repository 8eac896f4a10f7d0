package models

// Caller is the verified identity a request runs as. It is built by the
// authorization gate and passed explicitly to every task operation.
type Caller struct {
	Id    string
	Email string
}
