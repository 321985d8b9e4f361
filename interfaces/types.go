package interfaces

import (
	"encoding/json"
	"time"
)

// User is the registry record of a known identity, keyed by signer address.
type User struct {
	// Address is the signer address. It never changes for a record.
	Address string `json:"address"`

	// InternalBucketAddress is empty when signer and issuer coincide,
	// otherwise it holds the issuer address.
	InternalBucketAddress string `json:"internalBucketAddress"`

	// Connections maps connection id to connection.
	Connections map[string]*Connection `json:"connections"`

	// DefaultConnection references a key of Connections, or is empty.
	DefaultConnection string `json:"defaultConnection,omitempty"`
}

// Connection binds a user to one storage driver.
type Connection struct {
	Driver string `json:"driver"`
	Name   string `json:"name"`

	// Config is the driver-returned userdata, nil when the driver returned none.
	Config json.RawMessage `json:"config"`

	Buckets []string `json:"buckets"`
}

// NewUser returns an empty record for address.
func NewUser(address, bucketAddress string) *User {
	return &User{
		Address:               address,
		InternalBucketAddress: bucketAddress,
		Connections:           map[string]*Connection{},
	}
}

// HasDriver reports whether any connection binds to driverID.
func (u *User) HasDriver(driverID string) bool {
	for _, conn := range u.Connections {
		if conn != nil && conn.Driver == driverID {
			return true
		}
	}
	return false
}

// CountDriver returns the number of connections bound to driverID.
func (u *User) CountDriver(driverID string) int {
	n := 0
	for _, conn := range u.Connections {
		if conn != nil && conn.Driver == driverID {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the user record.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := &User{
		Address:               u.Address,
		InternalBucketAddress: u.InternalBucketAddress,
		DefaultConnection:     u.DefaultConnection,
		Connections:           make(map[string]*Connection, len(u.Connections)),
	}
	for id, conn := range u.Connections {
		if conn == nil {
			continue
		}
		c.Connections[id] = conn.clone()
	}
	return c
}

func (c *Connection) clone() *Connection {
	return &Connection{
		Driver:  c.Driver,
		Name:    c.Name,
		Config:  cloneRaw(c.Config),
		Buckets: append([]string(nil), c.Buckets...),
	}
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

// DriverInfo is the catalog metadata of one configured driver.
type DriverInfo struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	AutoRegister bool   `json:"autoRegister" yaml:"auto_register"`
}

// Addresses is the outcome of a successful credential validation.
type Addresses struct {
	SignerAddress string
	IssuerAddress string
}

// BucketAddress derives the internal bucket address: empty without
// delegation, the issuer address otherwise.
func (a Addresses) BucketAddress() string {
	if a.SignerAddress == a.IssuerAddress {
		return ""
	}
	return a.IssuerAddress
}

// IndexEntry describes one stored file known to the registry.
type IndexEntry struct {
	Bucket       string    `json:"bucket"`
	Path         string    `json:"path"`
	Connection   string    `json:"connection"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// FileIndex groups index entries by bucket address.
type FileIndex map[string][]IndexEntry
